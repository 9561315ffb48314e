package core

import (
	"rover-service/internal/sensing"
	"rover-service/internal/types"
)

// Drivetrain defines the motion operations needed by RoverSystem. The
// powertrain implements this interface.
type Drivetrain interface {
	MoveForward()
	MoveBackward()
	Stop()
	TurnLeft(angle int)
	TurnRight(angle int)
	IncreaseSpeed()
	DecreaseSpeed()
	RegisterTurnCompletedCallback(cb func())
}

// Scanner defines the clearance-check operations needed by RoverSystem.
// The sensing module implements this interface.
type Scanner interface {
	CheckFrontClearance()
	CheckLateralClearance()
	Scanning() bool
	RegisterSingleMeasurementReadyCallback(cb sensing.SingleResultFunc)
	RegisterDoubleMeasurementReadyCallback(cb sensing.DoubleResultFunc)
}

// TelemetrySink receives the state-change reports RoverSystem raises.
type TelemetrySink interface {
	ObjectDetected(bearing int, distanceCm uint16)
	BatteryStatus(voltageMv, percent int)
	ModeSwitched(manual bool)
}

// BatteryMonitor samples the battery pack.
type BatteryMonitor interface {
	Read() (voltageMv, percent int, err error)
}

// StatePublisher records drive controller state changes.
type StatePublisher interface {
	PublishDriveState(state types.DriveState) error
}
