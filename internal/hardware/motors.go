package hardware

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"rover-service/internal/logger"
	"rover-service/internal/types"
)

// MotorHardware drives the dual H-bridge: one direction line pair and one
// PWM channel per side. It implements powertrain.MotorDriver.
type MotorHardware struct {
	logger *logger.Logger
	chips  map[int]*gpiocdev.Chip
	lines  map[string]*gpiocdev.Line
	pwm    map[types.Side]*PwmChannel
}

func NewMotorHardware(l *logger.Logger) *MotorHardware {
	return &MotorHardware{
		logger: l.WithTag("motors"),
		chips:  make(map[int]*gpiocdev.Chip),
		lines:  make(map[string]*gpiocdev.Line),
		pwm:    make(map[types.Side]*PwmChannel),
	}
}

func (m *MotorHardware) Initialize() error {
	m.logger.Infof("Initializing motor hardware")

	for name, mapping := range DoMappings {
		if name == "ultrasonic_trigger" {
			continue
		}
		chip, err := m.openChip(mapping.Chip)
		if err != nil {
			return err
		}
		line, err := chip.RequestLine(mapping.Line,
			gpiocdev.AsOutput(0),
			gpiocdev.WithConsumer("rover-service"))
		if err != nil {
			return fmt.Errorf("failed to request GPIO line %d: %w", mapping.Line, err)
		}
		m.lines[name] = line
		m.logger.Debugf("Configured DO %s: chip=%d, line=%d", name, mapping.Chip, mapping.Line)
	}

	channels := map[types.Side]int{
		types.SideLeft:  PwmChannelLeftMotor,
		types.SideRight: PwmChannelRightMotor,
	}
	for side, channel := range channels {
		pwm, err := ExportPwmChannel(PwmChipPath, channel, MotorPwmPeriodNs)
		if err != nil {
			return fmt.Errorf("failed to set up %s motor PWM: %w", side, err)
		}
		m.pwm[side] = pwm
	}

	return nil
}

func (m *MotorHardware) openChip(num int) (*gpiocdev.Chip, error) {
	if chip, ok := m.chips[num]; ok {
		return chip, nil
	}
	chip, err := gpiocdev.NewChip(fmt.Sprintf("gpiochip%d", num))
	if err != nil {
		return nil, fmt.Errorf("failed to open GPIO chip %d: %w", num, err)
	}
	m.chips[num] = chip
	return chip, nil
}

// SetDirection programs the H-bridge input pair for one side. Stop sets
// both inputs low, coasting the motor.
func (m *MotorHardware) SetDirection(side types.Side, dir types.Direction) error {
	var in1, in2 int
	switch dir {
	case types.DirForward:
		in1, in2 = 1, 0
	case types.DirReverse:
		in1, in2 = 0, 1
	case types.DirStop:
		in1, in2 = 0, 0
	default:
		return fmt.Errorf("unknown motor direction: %s", dir)
	}

	if err := m.setLine(fmt.Sprintf("%s_in1", side), in1); err != nil {
		return err
	}
	if err := m.setLine(fmt.Sprintf("%s_in2", side), in2); err != nil {
		return err
	}
	m.logger.Debugf("Set %s motor direction %s", side, dir)
	return nil
}

func (m *MotorHardware) SetDuty(side types.Side, percent int) error {
	pwm, ok := m.pwm[side]
	if !ok {
		return fmt.Errorf("no PWM channel for %s motor", side)
	}
	if err := pwm.SetDutyPercent(percent); err != nil {
		return fmt.Errorf("failed to set %s motor duty: %w", side, err)
	}
	m.logger.Debugf("Set %s motor duty %d%%", side, percent)
	return nil
}

func (m *MotorHardware) setLine(name string, value int) error {
	line, ok := m.lines[name]
	if !ok {
		return fmt.Errorf("unknown digital output channel: %s", name)
	}
	if err := line.SetValue(value); err != nil {
		return fmt.Errorf("failed to set DO %s=%d: %w", name, value, err)
	}
	return nil
}

func (m *MotorHardware) Cleanup() {
	for side, pwm := range m.pwm {
		if err := pwm.Close(); err != nil {
			m.logger.Warnf("Failed to close %s motor PWM: %v", side, err)
		}
	}
	for name, line := range m.lines {
		line.Close()
		m.logger.Debugf("Closed GPIO line for %s", name)
	}
	for id, chip := range m.chips {
		chip.Close()
		m.logger.Debugf("Closed GPIO chip %d", id)
	}
}
