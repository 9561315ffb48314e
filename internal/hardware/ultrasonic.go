package hardware

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/warthog618/go-gpiocdev"

	"rover-service/internal/logger"
	"rover-service/internal/types"
)

const (
	ultrasonicTriggerPulse = 10 * time.Microsecond

	// Longest round trip the sensor can report (~4 m). Past this the
	// measurement counts as no object.
	ultrasonicEchoTimeout = 30 * time.Millisecond

	// Round-trip microseconds per centimeter of distance at the speed
	// of sound.
	ultrasonicUsPerCm = 58
)

// Ultrasonic drives an HC-SR04 style rangefinder: a trigger pulse starts
// the measurement, the echo line goes high for the round-trip time. Edge
// timestamps come from the GPIO character device. It implements
// sensing.Rangefinder.
type Ultrasonic struct {
	logger *logger.Logger
	clk    clock.Clock

	chip    *gpiocdev.Chip
	trigger *gpiocdev.Line
	echo    *gpiocdev.Line

	mu         sync.Mutex
	ready      func(distanceCm uint16)
	pending    bool
	generation uint64
	riseStamp  time.Duration
	timeout    *clock.Timer
}

func NewUltrasonic(clk clock.Clock, l *logger.Logger) *Ultrasonic {
	return &Ultrasonic{
		logger: l.WithTag("ultrasonic"),
		clk:    clk,
	}
}

func (u *Ultrasonic) Initialize() error {
	trigMap := DoMappings["ultrasonic_trigger"]
	echoMap := DiMappings["ultrasonic_echo"]
	if trigMap.Chip != echoMap.Chip {
		return fmt.Errorf("ultrasonic trigger and echo must share a GPIO chip")
	}

	chip, err := gpiocdev.NewChip(fmt.Sprintf("gpiochip%d", trigMap.Chip))
	if err != nil {
		return fmt.Errorf("failed to open GPIO chip %d: %w", trigMap.Chip, err)
	}
	u.chip = chip

	u.trigger, err = chip.RequestLine(trigMap.Line,
		gpiocdev.AsOutput(0),
		gpiocdev.WithConsumer("rover-service"))
	if err != nil {
		return fmt.Errorf("failed to request trigger line %d: %w", trigMap.Line, err)
	}

	u.echo, err = chip.RequestLine(echoMap.Line,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(u.onEchoEdge),
		gpiocdev.WithConsumer("rover-service"))
	if err != nil {
		return fmt.Errorf("failed to request echo line %d: %w", echoMap.Line, err)
	}

	return nil
}

func (u *Ultrasonic) RegisterMeasurementReadyCallback(cb func(distanceCm uint16)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.ready = cb
}

// TriggerMeasurement fires one ranging cycle. The result arrives on the
// measurement-ready callback, types.DistanceNoObject if no echo returns
// within the sensor window. A trigger while a measurement is pending is
// dropped.
func (u *Ultrasonic) TriggerMeasurement() {
	u.mu.Lock()
	if u.pending {
		u.mu.Unlock()
		u.logger.Warnf("Trigger dropped: measurement already pending")
		return
	}
	u.pending = true
	u.generation++
	gen := u.generation
	u.riseStamp = 0
	u.timeout = u.clk.AfterFunc(ultrasonicEchoTimeout, func() { u.onTimeout(gen) })
	u.mu.Unlock()

	if err := u.trigger.SetValue(1); err != nil {
		u.logger.Errorf("Failed to raise trigger: %v", err)
		u.finish(gen, types.DistanceNoObject)
		return
	}
	time.Sleep(ultrasonicTriggerPulse)
	if err := u.trigger.SetValue(0); err != nil {
		u.logger.Errorf("Failed to lower trigger: %v", err)
		u.finish(gen, types.DistanceNoObject)
	}
}

func (u *Ultrasonic) onEchoEdge(evt gpiocdev.LineEvent) {
	u.mu.Lock()
	if !u.pending {
		u.mu.Unlock()
		return
	}
	gen := u.generation

	if evt.Type == gpiocdev.LineEventRisingEdge {
		u.riseStamp = evt.Timestamp
		u.mu.Unlock()
		return
	}

	rise := u.riseStamp
	u.mu.Unlock()
	if rise == 0 {
		// Falling edge with no rise seen; leave the timeout to report.
		return
	}

	us := (evt.Timestamp - rise).Microseconds()
	cm := us / ultrasonicUsPerCm
	if cm < 0 || cm >= int64(types.DistanceNoObject) {
		u.finish(gen, types.DistanceNoObject)
		return
	}
	u.finish(gen, uint16(cm))
}

func (u *Ultrasonic) onTimeout(gen uint64) {
	u.logger.Debugf("Echo timeout, reporting no object")
	u.finish(gen, types.DistanceNoObject)
}

// finish delivers one result, ignoring stale completions from a prior
// measurement generation.
func (u *Ultrasonic) finish(gen uint64, distanceCm uint16) {
	u.mu.Lock()
	if !u.pending || gen != u.generation {
		u.mu.Unlock()
		return
	}
	u.pending = false
	if u.timeout != nil {
		u.timeout.Stop()
		u.timeout = nil
	}
	cb := u.ready
	u.mu.Unlock()

	if cb != nil {
		cb(distanceCm)
	}
}

func (u *Ultrasonic) Cleanup() {
	u.mu.Lock()
	if u.timeout != nil {
		u.timeout.Stop()
		u.timeout = nil
	}
	u.pending = false
	u.mu.Unlock()

	if u.echo != nil {
		u.echo.Close()
	}
	if u.trigger != nil {
		u.trigger.Close()
	}
	if u.chip != nil {
		u.chip.Close()
	}
}
