package fsm

import "github.com/librescoot/librefsm"

// Actions defines the interface for drive state machine actions.
// RoverSystem implements this interface to handle state entry and
// transition behavior.
type Actions interface {
	// State entry actions
	EnterRemote(c *librefsm.Context) error
	EnterRunning(c *librefsm.Context) error
	EnterSensing(c *librefsm.Context) error

	// Transition actions
	OnScanComplete(c *librefsm.Context) error
}
