package core

import (
	"context"
	"fmt"

	"github.com/librescoot/librefsm"

	"rover-service/internal/fsm"
	"rover-service/internal/types"
)

// Ensure RoverSystem implements fsm.Actions
var _ fsm.Actions = (*RoverSystem)(nil)

// Turn used when neither side is clear.
const reversalTurnAngle = 180

// stateIDToDriveState converts librefsm StateID to types.DriveState
func stateIDToDriveState(id librefsm.StateID) types.DriveState {
	switch id {
	case fsm.StateInit:
		return types.StateInit
	case fsm.StateRemote:
		return types.StateRemote
	case fsm.StateRunning:
		return types.StateRunning
	case fsm.StateSensing:
		return types.StateSensing
	case fsm.StateTurning:
		return types.StateTurning
	default:
		// Every machine state is declared above; anything else is a
		// definition bug.
		panic(fmt.Sprintf("unknown drive state: %s", id))
	}
}

// initFSM initializes and starts the librefsm machine
func (r *RoverSystem) initFSM(ctx context.Context) error {
	def := fsm.NewDefinition(r)
	machine, err := def.Build()
	if err != nil {
		return err
	}
	r.machine = machine

	r.machine.OnStateChange(func(from, to librefsm.StateID) {
		oldState := stateIDToDriveState(from)
		newState := stateIDToDriveState(to)

		r.logger.Infof("State transition: %s -> %s", oldState, newState)

		if r.publisher != nil {
			if err := r.publisher.PublishDriveState(newState); err != nil {
				r.logger.Errorf("Failed to publish state: %v", err)
			}
		}
	})

	if err := r.machine.Start(ctx); err != nil {
		return err
	}

	r.logger.Infof("librefsm state machine started")
	return nil
}

// sendEvent sends an event to the FSM
func (r *RoverSystem) sendEvent(event librefsm.EventID) error {
	return r.machine.SendSync(librefsm.Event{ID: event})
}

// === State Entry Actions ===

// EnterRemote parks the rover and hands control to the operator. Reached
// from startup and from every autonomous state on a mode toggle.
func (r *RoverSystem) EnterRemote(c *librefsm.Context) error {
	r.logger.Debugf("FSM: EnterRemote")
	r.drive.Stop()
	r.telemetry.ModeSwitched(true)
	return nil
}

// EnterRunning resumes autonomous forward motion. Reached both from a
// mode toggle out of remote and from a completed avoidance turn.
func (r *RoverSystem) EnterRunning(c *librefsm.Context) error {
	r.logger.Debugf("FSM: EnterRunning")
	if c.FromState == fsm.StateRemote {
		r.telemetry.ModeSwitched(false)
	}
	r.drive.MoveForward()
	return nil
}

// EnterSensing stops in front of the obstacle and starts the lateral
// scan. The scan outcome arrives as a scan-complete event.
func (r *RoverSystem) EnterSensing(c *librefsm.Context) error {
	r.logger.Debugf("FSM: EnterSensing")
	r.drive.Stop()
	r.scanner.CheckLateralClearance()
	return nil
}

// === Transition Actions ===

// OnScanComplete picks the avoidance turn from the lateral scan results:
// prefer a clear left, then a clear right, else turn around.
func (r *RoverSystem) OnScanComplete(c *librefsm.Context) error {
	r.mu.Lock()
	leftClear := r.scanLeftClear
	rightClear := r.scanRightClear
	r.mu.Unlock()

	switch {
	case leftClear:
		r.logger.Infof("Left is clear, turning left %d deg", r.cfg.AvoidTurnAngle)
		r.drive.TurnLeft(r.cfg.AvoidTurnAngle)
	case rightClear:
		r.logger.Infof("Right is clear, turning right %d deg", r.cfg.AvoidTurnAngle)
		r.drive.TurnRight(r.cfg.AvoidTurnAngle)
	default:
		r.logger.Infof("Both sides blocked, turning around")
		r.drive.TurnRight(reversalTurnAngle)
	}
	return nil
}
