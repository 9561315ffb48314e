package hardware

import (
	"fmt"
	"os"

	"rover-service/internal/logger"
)

const (
	// ADC reference and resolution (12-bit, 3.3 V).
	adcVrefMv   = 3300
	adcMaxCount = 4095

	// Pack voltage is divided down before the ADC pin.
	batteryDividerNum = 26
	batteryDividerDen = 10

	// 2S lithium pack range in millivolts.
	batteryEmptyMv = 6000
	batteryFullMv  = 8400
)

// Battery reads the pack voltage through the ADC divider.
type Battery struct {
	logger  *logger.Logger
	device  string
	channel int
}

func NewBattery(l *logger.Logger) *Battery {
	return &Battery{
		logger:  l.WithTag("battery"),
		device:  AdcDevice,
		channel: AdcBatteryChannel,
	}
}

// Read samples the ADC and returns the pack voltage in millivolts and the
// charge percentage over the pack's usable range.
func (b *Battery) Read() (voltageMv, percent int, err error) {
	raw, err := ReadAdcValue(b.device, b.channel)
	if err != nil {
		return 0, 0, err
	}

	pinMv := raw * adcVrefMv / adcMaxCount
	voltageMv = pinMv * batteryDividerNum / batteryDividerDen
	percent = chargePercent(voltageMv)

	b.logger.Debugf("Battery: raw=%d, %d mV, %d%%", raw, voltageMv, percent)
	return voltageMv, percent, nil
}

func chargePercent(voltageMv int) int {
	if voltageMv <= batteryEmptyMv {
		return 0
	}
	if voltageMv >= batteryFullMv {
		return 100
	}
	return (voltageMv - batteryEmptyMv) * 100 / (batteryFullMv - batteryEmptyMv)
}

// ReadAdcValue reads one raw sample from an IIO ADC channel over sysfs.
func ReadAdcValue(device string, channel int) (int, error) {
	path := fmt.Sprintf("/sys/bus/iio/devices/%s/in_voltage%d_raw", device, channel)
	data, err := os.ReadFile(path)
	if err != nil {
		return -1, fmt.Errorf("failed reading %s: %w", path, err)
	}

	var value int
	if _, err := fmt.Sscanf(string(data), "%d", &value); err != nil {
		return -1, fmt.Errorf("failed parsing ADC value: %w", err)
	}
	return value, nil
}
