package hardware

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// PwmChannel drives one channel of a sysfs PWM chip.
type PwmChannel struct {
	path     string
	periodNs int
}

// ExportPwmChannel exports a channel on the chip, programs its period and
// enables it with zero duty.
func ExportPwmChannel(chipPath string, channel, periodNs int) (*PwmChannel, error) {
	channelPath := filepath.Join(chipPath, fmt.Sprintf("pwm%d", channel))
	if _, err := os.Stat(channelPath); os.IsNotExist(err) {
		if err := writeSysfs(filepath.Join(chipPath, "export"), strconv.Itoa(channel)); err != nil {
			return nil, fmt.Errorf("failed to export PWM channel %d: %w", channel, err)
		}
	}

	p := &PwmChannel{path: channelPath, periodNs: periodNs}
	if err := writeSysfs(filepath.Join(channelPath, "period"), strconv.Itoa(periodNs)); err != nil {
		return nil, fmt.Errorf("failed to set PWM period: %w", err)
	}
	if err := p.SetDutyNs(0); err != nil {
		return nil, err
	}
	if err := writeSysfs(filepath.Join(channelPath, "enable"), "1"); err != nil {
		return nil, fmt.Errorf("failed to enable PWM channel: %w", err)
	}
	return p, nil
}

func (p *PwmChannel) SetDutyNs(ns int) error {
	if ns < 0 {
		ns = 0
	}
	if ns > p.periodNs {
		ns = p.periodNs
	}
	if err := writeSysfs(filepath.Join(p.path, "duty_cycle"), strconv.Itoa(ns)); err != nil {
		return fmt.Errorf("failed to set PWM duty cycle: %w", err)
	}
	return nil
}

// SetDutyPercent scales a 0..100 duty onto the channel period.
func (p *PwmChannel) SetDutyPercent(percent int) error {
	return p.SetDutyNs(p.periodNs * percent / 100)
}

func (p *PwmChannel) Close() error {
	if err := p.SetDutyNs(0); err != nil {
		return err
	}
	return writeSysfs(filepath.Join(p.path, "enable"), "0")
}

func writeSysfs(path, value string) error {
	return os.WriteFile(path, []byte(value), 0o644)
}
