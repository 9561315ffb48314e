package types

// DriveState is the externally visible operating state of the rover.
type DriveState string

const (
	StateInit    DriveState = "init"
	StateRemote  DriveState = "remote"
	StateRunning DriveState = "running"
	StateSensing DriveState = "sensing"
	StateTurning DriveState = "turning"
)

// Direction is the commanded direction of a drive motor.
type Direction string

const (
	DirForward Direction = "forward"
	DirReverse Direction = "reverse"
	DirStop    Direction = "stop"
)

// Side identifies one of the two motor channels.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Command is the shared manual-command vocabulary. Both the infrared
// decoder and the serial text protocol map onto these values.
type Command string

const (
	CmdForward    Command = "forward"
	CmdBackward   Command = "backward"
	CmdTurnLeft   Command = "turn-left"
	CmdTurnRight  Command = "turn-right"
	CmdStop       Command = "stop"
	CmdSpeedUp    Command = "speed-up"
	CmdSpeedDown  Command = "speed-down"
	CmdToggleMode Command = "toggle-mode"
)

// DistanceNoObject is the sentinel reported when no echo returned within
// the sensor's maximum round-trip window. It always classifies as clear.
const DistanceNoObject uint16 = 0xFFFF
