package powertrain

import (
	"sync"
	"time"

	"rover-service/internal/logger"
	"rover-service/internal/timing"
	"rover-service/internal/types"
)

const (
	minDriveSpeed = 20
	maxDriveSpeed = 100
	speedStep     = 10
)

// Config carries the powertrain tunables.
type Config struct {
	ForwardSpeed int
	ReverseSpeed int
	TurnSpeed    int
	// MaxAngularSpeed is the drivetrain rotation rate at 100% duty in
	// degrees per second; turn durations are derived from it.
	MaxAngularSpeed float64
}

// Powertrain composes the two drive motors into the motion operations the
// drive controller issues. Turning is timed on the shared one-shot timer:
// the motors counter-rotate for a duration computed from the requested
// angle, and the expiry callback stops them and reports completion.
//
// All operations are non-blocking. The caller learns about turn completion
// only through the registered callback.
//
// Commands arrive concurrently from the remote input goroutines, the state
// machine and the shared-timer expiry; mu serializes all motor access.
type Powertrain struct {
	cfg    Config
	logger *logger.Logger
	timer  *timing.SharedTimer

	mu            sync.Mutex
	left          *Motor
	right         *Motor
	turnInFlight  bool
	turnCompleted func()
}

func New(driver MotorDriver, timer *timing.SharedTimer, cfg Config, l *logger.Logger) *Powertrain {
	return &Powertrain{
		cfg:    cfg,
		logger: l,
		timer:  timer,
		left:   newMotor(types.SideLeft, driver, l),
		right:  newMotor(types.SideRight, driver, l),
	}
}

// RegisterTurnCompletedCallback registers the function invoked after a
// timed turn has stopped the motors.
func (p *Powertrain) RegisterTurnCompletedCallback(cb func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.turnCompleted = cb
}

// SetChangeListener wires motor state-change notifications (consumed by
// telemetry).
func (p *Powertrain) SetChangeListener(l ChangeListener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.left.listener = l
	p.right.listener = l
}

// Stop halts both motors. Idempotent; redundant stops do not re-notify.
func (p *Powertrain) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopMotors()
}

func (p *Powertrain) stopMotors() {
	if p.left.speed > 0 || p.left.direction != types.DirStop {
		p.left.stop()
	}
	if p.right.speed > 0 || p.right.direction != types.DirStop {
		p.right.stop()
	}
}

// MoveForward starts both motors forward at the default forward speed.
func (p *Powertrain) MoveForward() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.left.setDirection(types.DirForward)
	p.right.setDirection(types.DirForward)
	p.left.setSpeed(p.cfg.ForwardSpeed)
	p.right.setSpeed(p.cfg.ForwardSpeed)
}

// MoveBackward starts both motors in reverse at the default reverse speed.
func (p *Powertrain) MoveBackward() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.left.setDirection(types.DirReverse)
	p.right.setDirection(types.DirReverse)
	p.left.setSpeed(p.cfg.ReverseSpeed)
	p.right.setSpeed(p.cfg.ReverseSpeed)
}

// IncreaseSpeed raises each moving motor by one step, clamped to the top
// speed. A stopped motor is left alone.
func (p *Powertrain) IncreaseSpeed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range []*Motor{p.left, p.right} {
		if m.direction == types.DirStop {
			continue
		}
		next := m.speed + speedStep
		if next > maxDriveSpeed {
			next = maxDriveSpeed
		}
		m.setSpeed(next)
	}
}

// DecreaseSpeed lowers each moving motor by one step, clamped to the
// minimum drive speed. A stopped motor is left alone.
func (p *Powertrain) DecreaseSpeed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range []*Motor{p.left, p.right} {
		if m.direction == types.DirStop {
			continue
		}
		next := m.speed - speedStep
		if next < minDriveSpeed {
			next = minDriveSpeed
		}
		m.setSpeed(next)
	}
}

// TurnLeft rotates the rover counter-clockwise by the given angle.
func (p *Powertrain) TurnLeft(angle int) {
	p.turn(types.DirReverse, types.DirForward, angle)
}

// TurnRight rotates the rover clockwise by the given angle.
func (p *Powertrain) TurnRight(angle int) {
	p.turn(types.DirForward, types.DirReverse, angle)
}

func (p *Powertrain) turn(leftDir, rightDir types.Direction, angle int) {
	if angle <= 0 {
		return
	}
	p.mu.Lock()
	if p.turnInFlight {
		// The shared timer carries one lease; a second timed turn would
		// trip its acquire contract. Refuse and let the caller's state
		// machine retry once the completion callback lands.
		p.mu.Unlock()
		p.logger.Warnf("Turn of %d deg refused: previous turn still in flight", angle)
		return
	}
	p.turnInFlight = true

	p.left.setDirection(leftDir)
	p.right.setDirection(rightDir)
	p.left.setSpeed(p.cfg.TurnSpeed)
	p.right.setSpeed(p.cfg.TurnSpeed)

	d := p.turnDuration(angle)
	p.timer.Acquire(d, p.onTurnTimerExpired)
	p.mu.Unlock()

	p.logger.Debugf("Turning %d deg (left=%s right=%s) for %v", angle, leftDir, rightDir, d)
}

// turnDuration converts a turn angle into a motor run time from the
// drivetrain's angular speed at the configured turn duty.
func (p *Powertrain) turnDuration(angle int) time.Duration {
	degPerSec := p.cfg.MaxAngularSpeed * float64(p.cfg.TurnSpeed) / 100.0
	return time.Duration(float64(angle) / degPerSec * float64(time.Second))
}

func (p *Powertrain) onTurnTimerExpired() {
	p.mu.Lock()
	p.left.stop()
	p.right.stop()
	p.timer.Release()
	p.turnInFlight = false
	cb := p.turnCompleted
	p.mu.Unlock()

	// The completion callback feeds the state machine, which may issue new
	// motion commands; it must run outside the lock.
	if cb != nil {
		cb()
	}
}

// Turning reports whether a timed turn is currently in flight.
func (p *Powertrain) Turning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.turnInFlight
}

// Speed returns the commanded speed of one motor.
func (p *Powertrain) Speed(side types.Side) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if side == types.SideLeft {
		return p.left.speed
	}
	return p.right.speed
}

// Direction returns the commanded direction of one motor.
func (p *Powertrain) Direction(side types.Side) types.Direction {
	p.mu.Lock()
	defer p.mu.Unlock()
	if side == types.SideLeft {
		return p.left.direction
	}
	return p.right.direction
}
