package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/librescoot/librefsm"

	"rover-service/internal/config"
	"rover-service/internal/fsm"
	"rover-service/internal/logger"
	"rover-service/internal/timing"
	"rover-service/internal/types"
)

// RoverSystem is the drive controller. It owns the state machine and
// folds the completion callbacks of the powertrain and sensing layers
// into FSM events. Completions that no longer apply to the current state
// have no matching transition and are dropped by the machine.
type RoverSystem struct {
	logger    *logger.Logger
	cfg       *config.Config
	machine   *librefsm.Machine
	drive     Drivetrain
	scanner   Scanner
	telemetry TelemetrySink
	battery   BatteryMonitor
	publisher StatePublisher
	ticker    *timing.PeriodicTicker

	mu             sync.Mutex
	scanLeftClear  bool
	scanRightClear bool
	tickCount      int
}

func NewRoverSystem(drive Drivetrain, scanner Scanner, telemetry TelemetrySink,
	battery BatteryMonitor, publisher StatePublisher, ticker *timing.PeriodicTicker,
	cfg *config.Config, l *logger.Logger) *RoverSystem {
	return &RoverSystem{
		logger:    l.WithTag("rover"),
		cfg:       cfg,
		drive:     drive,
		scanner:   scanner,
		telemetry: telemetry,
		battery:   battery,
		publisher: publisher,
		ticker:    ticker,
	}
}

func (r *RoverSystem) Start(ctx context.Context) error {
	r.logger.Infof("Starting rover system")

	if err := r.initFSM(ctx); err != nil {
		return fmt.Errorf("failed to initialize state machine: %w", err)
	}

	r.drive.RegisterTurnCompletedCallback(r.onTurnCompleted)
	r.scanner.RegisterSingleMeasurementReadyCallback(r.onSingleClearance)
	r.scanner.RegisterDoubleMeasurementReadyCallback(r.onScanResult)

	if err := r.sendEvent(fsm.EvInitDone); err != nil {
		return fmt.Errorf("failed to leave init state: %w", err)
	}

	r.ticker.Start(r.cfg.TickPeriod, r.onTick)

	r.logger.Infof("Rover system started")
	return nil
}

// onTick drives the periodic work: forward clearance checks while moving
// autonomously, and battery sampling every few ticks.
func (r *RoverSystem) onTick() {
	if r.CurrentState() == types.StateRunning && !r.scanner.Scanning() {
		r.scanner.CheckFrontClearance()
	}

	r.mu.Lock()
	r.tickCount++
	sampleBattery := r.tickCount%r.cfg.BatteryTickEvery == 0
	r.mu.Unlock()

	if sampleBattery {
		voltageMv, percent, err := r.battery.Read()
		if err != nil {
			r.logger.Warnf("Battery read failed: %v", err)
			return
		}
		r.telemetry.BatteryStatus(voltageMv, percent)
	}
}

// onSingleClearance receives the forward clearance check result. A
// blocked path reports the sighting and kicks off the avoidance cycle.
func (r *RoverSystem) onSingleClearance(clear bool, bearing int, distanceCm uint16) {
	if clear {
		return
	}
	r.logger.Infof("Obstacle at %d deg, %d cm", bearing, distanceCm)
	r.telemetry.ObjectDetected(bearing, distanceCm)

	if err := r.sendEvent(fsm.EvObstacleDetected); err != nil {
		r.logger.Debugf("Obstacle event dropped: %v", err)
	}
}

// onScanResult receives the lateral scan outcome, left then right. The
// results are held for the scan-complete transition action.
func (r *RoverSystem) onScanResult(leftClear, rightClear bool) {
	r.mu.Lock()
	r.scanLeftClear = leftClear
	r.scanRightClear = rightClear
	r.mu.Unlock()

	r.logger.Infof("Lateral scan complete: left clear=%v, right clear=%v", leftClear, rightClear)
	if err := r.sendEvent(fsm.EvScanComplete); err != nil {
		r.logger.Debugf("Scan completion dropped: %v", err)
	}
}

func (r *RoverSystem) onTurnCompleted() {
	if err := r.sendEvent(fsm.EvTurnComplete); err != nil {
		r.logger.Debugf("Turn completion dropped: %v", err)
	}
}

// RequestModeToggle switches between manual and autonomous control. It is
// honored from every state after startup.
func (r *RoverSystem) RequestModeToggle() {
	if err := r.sendEvent(fsm.EvModeToggle); err != nil {
		r.logger.Warnf("Mode toggle dropped: %v", err)
	}
}

// InRemote reports whether the controller is under manual control.
func (r *RoverSystem) InRemote() bool {
	return r.CurrentState() == types.StateRemote
}

func (r *RoverSystem) CurrentState() types.DriveState {
	return stateIDToDriveState(r.machine.CurrentState())
}

func (r *RoverSystem) Shutdown() {
	r.logger.Infof("Shutting down rover system")
	r.ticker.Stop()
	r.drive.Stop()
}
