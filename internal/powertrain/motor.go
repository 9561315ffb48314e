package powertrain

import (
	"rover-service/internal/logger"
	"rover-service/internal/types"
)

// MotorDriver is the hardware boundary for the two drive channels. The
// Linux implementation lives in internal/hardware; tests substitute a mock.
type MotorDriver interface {
	SetDirection(side types.Side, dir types.Direction) error
	SetDuty(side types.Side, percent int) error
}

// ChangeListener receives motor state-change notifications. Setters only
// notify when the value actually differs from the previous one.
type ChangeListener interface {
	MotorSpeedChanged(side types.Side, speed int)
	MotorDirectionChanged(side types.Side, dir types.Direction)
}

// Motor tracks the commanded state of one drive channel. It is owned
// exclusively by the Powertrain; callers go through Powertrain operations,
// which serialize all motor access under the Powertrain mutex.
type Motor struct {
	side      types.Side
	driver    MotorDriver
	logger    *logger.Logger
	speed     int
	direction types.Direction
	listener  ChangeListener
}

func newMotor(side types.Side, driver MotorDriver, l *logger.Logger) *Motor {
	return &Motor{
		side:      side,
		driver:    driver,
		logger:    l,
		direction: types.DirStop,
	}
}

func (m *Motor) setDirection(dir types.Direction) {
	if dir == m.direction {
		return
	}
	if err := m.driver.SetDirection(m.side, dir); err != nil {
		m.logger.Errorf("Failed to set %s motor direction to %s: %v", m.side, dir, err)
		return
	}
	m.direction = dir
	if m.listener != nil {
		m.listener.MotorDirectionChanged(m.side, dir)
	}
}

func (m *Motor) setSpeed(speed int) {
	if speed < 0 {
		speed = 0
	}
	if speed > 100 {
		speed = 100
	}
	if speed == m.speed {
		return
	}
	if err := m.driver.SetDuty(m.side, speed); err != nil {
		m.logger.Errorf("Failed to set %s motor speed to %d: %v", m.side, speed, err)
		return
	}
	m.speed = speed
	if m.listener != nil {
		m.listener.MotorSpeedChanged(m.side, speed)
	}
}

func (m *Motor) stop() {
	m.setSpeed(0)
	m.setDirection(types.DirStop)
}
