package hardware

const (
	PwmChipPath = "/sys/class/pwm/pwmchip0"

	// PWM channel assignments on the chip.
	PwmChannelLeftMotor  = 0
	PwmChannelRightMotor = 1
	PwmChannelServo      = 2

	// Motor PWM runs at 1 kHz, servo PWM at the standard 50 Hz frame.
	MotorPwmPeriodNs = 1_000_000
	ServoPwmPeriodNs = 20_000_000

	AdcDevice         = "iio:device0"
	AdcBatteryChannel = 0

	IrKeysInput = "/dev/input/by-path/platform-ir-receiver-event"
)

// Input event keycodes delivered by the kernel IR keymap.
const (
	EV_KEY = 0x01

	KEY_2          = 3
	KEY_8          = 9
	KEY_ENTER      = 28
	KEY_KPASTERISK = 55
	KEY_UP         = 103
	KEY_LEFT       = 105
	KEY_RIGHT      = 106
	KEY_DOWN       = 108
)

// H-bridge direction inputs and the ultrasonic trigger/echo pair.
var DoMappings = map[string]struct {
	Chip int
	Line int
}{
	"left_in1":           {0, 6},
	"left_in2":           {0, 7},
	"right_in1":          {0, 8},
	"right_in2":          {0, 9},
	"ultrasonic_trigger": {1, 4},
}

var DiMappings = map[string]struct {
	Chip int
	Line int
}{
	"ultrasonic_echo": {1, 5},
}
