package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries the runtime tunables. Values come from the environment
// so deployments can retune thresholds and speeds without a rebuild.
type Config struct {
	// Obstacle classification
	FreeDistanceCm uint16 `env:"ROVER_FREE_DISTANCE_CM" envDefault:"15"`

	// Powertrain speeds (percent)
	ForwardSpeed int `env:"ROVER_FORWARD_SPEED" envDefault:"40"`
	ReverseSpeed int `env:"ROVER_REVERSE_SPEED" envDefault:"20"`
	TurnSpeed    int `env:"ROVER_TURN_SPEED" envDefault:"50"`

	// Drivetrain geometry: wheel angular speed at 100% duty, deg/s.
	// Turn durations are derived from this.
	MaxAngularSpeed float64 `env:"ROVER_MAX_ANGULAR_SPEED" envDefault:"36"`

	// Autonomous turn angles and the manual (remote) turn angle, degrees.
	AvoidTurnAngle  int `env:"ROVER_AVOID_TURN_ANGLE" envDefault:"90"`
	ManualTurnAngle int `env:"ROVER_MANUAL_TURN_ANGLE" envDefault:"45"`

	// Periodic scheduling: obstacle poll period, and how many poll ticks
	// elapse between battery telemetry reports.
	TickPeriod       time.Duration `env:"ROVER_TICK_PERIOD" envDefault:"500ms"`
	BatteryTickEvery int           `env:"ROVER_BATTERY_TICK_EVERY" envDefault:"20"`

	// Device paths
	SerialDevice  string `env:"ROVER_SERIAL_DEVICE" envDefault:"/dev/ttyS1"`
	SerialBaud    int    `env:"ROVER_SERIAL_BAUD" envDefault:"9600"`
	IrInputDevice string `env:"ROVER_IR_INPUT_DEVICE" envDefault:"/dev/input/by-path/platform-ir-receiver-event"`
}

// Load parses the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment config: %w", err)
	}
	if cfg.TurnSpeed <= 0 || cfg.TurnSpeed > 100 {
		return nil, fmt.Errorf("turn speed out of range: %d", cfg.TurnSpeed)
	}
	if cfg.MaxAngularSpeed <= 0 {
		return nil, fmt.Errorf("max angular speed must be positive: %v", cfg.MaxAngularSpeed)
	}
	if cfg.BatteryTickEvery <= 0 {
		return nil, fmt.Errorf("battery tick divider must be positive: %d", cfg.BatteryTickEvery)
	}
	return cfg, nil
}
