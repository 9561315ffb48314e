package fsm

import "github.com/librescoot/librefsm"

// Drive controller states
const (
	StateInit    librefsm.StateID = "init"
	StateRemote  librefsm.StateID = "remote"
	StateRunning librefsm.StateID = "running"
	StateSensing librefsm.StateID = "sensing"
	StateTurning librefsm.StateID = "turning"
)

// Drive controller events
const (
	// Startup
	EvInitDone librefsm.EventID = "init-done"

	// Manual commands (IR remote, serial link, Redis)
	EvModeToggle librefsm.EventID = "mode-toggle"

	// Sensing and motion completions
	EvObstacleDetected librefsm.EventID = "obstacle-detected"
	EvScanComplete     librefsm.EventID = "scan-complete"
	EvTurnComplete     librefsm.EventID = "turn-complete"
)
