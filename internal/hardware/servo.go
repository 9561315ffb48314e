package hardware

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"rover-service/internal/logger"
)

const (
	// Pulse widths for the -90..+90 degree sweep, centered at 1.5 ms.
	servoCenterPulseNs = 1_500_000
	servoHalfSweepNs   = 500_000
	servoHalfSweepDeg  = 90

	// Travel time per degree of swing, plus a floor for tiny moves. The
	// servo has no position feedback, so arrival is modeled from its
	// rated speed.
	servoSettlePerDeg = 4 * time.Millisecond
	servoSettleMin    = 20 * time.Millisecond
)

// SysfsServo drives the sensor-mount servo over sysfs PWM. SetBearing is
// asynchronous: the position-reached callback fires after a settle delay
// proportional to the commanded swing. It implements sensing.Servo.
type SysfsServo struct {
	logger *logger.Logger
	clk    clock.Clock

	mu          sync.Mutex
	pwm         *PwmChannel
	lastBearing int
	settle      *clock.Timer
	reached     func()
}

func NewSysfsServo(clk clock.Clock, l *logger.Logger) *SysfsServo {
	return &SysfsServo{
		logger: l.WithTag("servo"),
		clk:    clk,
	}
}

func (s *SysfsServo) Initialize() error {
	pwm, err := ExportPwmChannel(PwmChipPath, PwmChannelServo, ServoPwmPeriodNs)
	if err != nil {
		return fmt.Errorf("failed to set up servo PWM: %w", err)
	}
	s.mu.Lock()
	s.pwm = pwm
	s.mu.Unlock()
	s.SetBearing(0)
	return nil
}

func (s *SysfsServo) RegisterPositionReachedCallback(cb func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reached = cb
}

// SetBearing points the mount at the given bearing in degrees off the
// forward axis, negative left. A new command supersedes any settle delay
// still pending.
func (s *SysfsServo) SetBearing(deg int) {
	if deg < -servoHalfSweepDeg {
		deg = -servoHalfSweepDeg
	}
	if deg > servoHalfSweepDeg {
		deg = servoHalfSweepDeg
	}

	s.mu.Lock()
	if s.settle != nil {
		s.settle.Stop()
		s.settle = nil
	}
	swing := deg - s.lastBearing
	if swing < 0 {
		swing = -swing
	}
	s.lastBearing = deg
	pwm := s.pwm
	s.mu.Unlock()

	pulse := servoCenterPulseNs + deg*servoHalfSweepNs/servoHalfSweepDeg
	if pwm != nil {
		if err := pwm.SetDutyNs(pulse); err != nil {
			s.logger.Errorf("Failed to command servo to %d deg: %v", deg, err)
			return
		}
	}

	delay := time.Duration(swing) * servoSettlePerDeg
	if delay < servoSettleMin {
		delay = servoSettleMin
	}
	s.logger.Debugf("Servo commanded to %d deg, settling for %v", deg, delay)

	s.mu.Lock()
	s.settle = s.clk.AfterFunc(delay, s.onSettled)
	s.mu.Unlock()
}

func (s *SysfsServo) onSettled() {
	s.mu.Lock()
	s.settle = nil
	cb := s.reached
	s.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (s *SysfsServo) Cleanup() {
	s.mu.Lock()
	if s.settle != nil {
		s.settle.Stop()
		s.settle = nil
	}
	pwm := s.pwm
	s.mu.Unlock()
	if pwm != nil {
		if err := pwm.Close(); err != nil {
			s.logger.Warnf("Failed to close servo PWM: %v", err)
		}
	}
}
