package fsm

import (
	"github.com/librescoot/librefsm"
)

// NewDefinition creates the drive controller FSM definition.
// The actions parameter provides the implementation for state entry
// and transition behavior.
func NewDefinition(actions Actions) *librefsm.Definition {
	return librefsm.NewDefinition().
		State(StateInit).
		State(StateRemote,
			librefsm.WithOnEnter(actions.EnterRemote),
		).
		State(StateRunning,
			librefsm.WithOnEnter(actions.EnterRunning),
		).
		State(StateSensing,
			librefsm.WithOnEnter(actions.EnterSensing),
		).
		State(StateTurning).

		// === Transitions ===

		// Startup lands in manual control; the rover stays stopped until
		// the operator toggles into autonomous mode.
		Transition(StateInit, EvInitDone, StateRemote).

		// Mode toggle between manual and autonomous. Toggling out of any
		// autonomous state returns to remote; in-flight scan and turn
		// completions are dropped once there.
		Transition(StateRemote, EvModeToggle, StateRunning).
		Transition(StateRunning, EvModeToggle, StateRemote).
		Transition(StateSensing, EvModeToggle, StateRemote).
		Transition(StateTurning, EvModeToggle, StateRemote).

		// Autonomous avoidance cycle.
		Transition(StateRunning, EvObstacleDetected, StateSensing).
		Transition(StateSensing, EvScanComplete, StateTurning,
			librefsm.WithAction(actions.OnScanComplete),
		).
		Transition(StateTurning, EvTurnComplete, StateRunning).

		// Initial state
		Initial(StateInit)
}
