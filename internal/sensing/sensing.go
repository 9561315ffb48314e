package sensing

import (
	"sync"

	"rover-service/internal/logger"
	"rover-service/internal/types"
)

// Bearing limits of the servo sweep, degrees off the forward axis.
const (
	BearingLeft  = -90
	BearingFront = 0
	BearingRight = 90
)

// Servo is the hardware boundary for the sensor mount. SetBearing is
// asynchronous; the position-reached callback fires once the bearing has
// been achieved.
type Servo interface {
	SetBearing(deg int)
	RegisterPositionReachedCallback(cb func())
}

// Rangefinder is the hardware boundary for the ultrasonic sensor.
// TriggerMeasurement is asynchronous; the measurement-ready callback
// delivers the distance in centimeters, or types.DistanceNoObject when no
// echo returned within the sensor's window.
type Rangefinder interface {
	TriggerMeasurement()
	RegisterMeasurementReadyCallback(cb func(distanceCm uint16))
}

// SingleResultFunc receives the outcome of a single-bearing clearance
// check. DoubleResultFunc receives the outcomes of a two-bearing scan in
// request order.
type (
	SingleResultFunc func(clear bool, bearing int, distanceCm uint16)
	DoubleResultFunc func(firstClear, secondClear bool)
)

type scanMode int

const (
	scanSingle scanMode = iota
	scanDouble
)

// scanSession is the transient state of one in-flight scan. It is created
// on request and discarded when the final result callback fires.
type scanSession struct {
	mode          scanMode
	firstBearing  int
	secondBearing int
	firstDone     bool
	firstClear    bool
}

// Module sequences servo positioning and ranging into clearance checks.
// The whole protocol is callback-chained: point the servo, measure when it
// reports in position, classify when the echo arrives. Nothing blocks and
// nothing polls.
type Module struct {
	servo       Servo
	rangefinder Rangefinder
	logger      *logger.Logger

	// Distances strictly greater than this classify as clear.
	freeThresholdCm uint16

	mu          sync.Mutex
	session     *scanSession
	singleReady SingleResultFunc
	doubleReady DoubleResultFunc
}

func New(servo Servo, rangefinder Rangefinder, freeThresholdCm uint16, l *logger.Logger) *Module {
	m := &Module{
		servo:           servo,
		rangefinder:     rangefinder,
		logger:          l,
		freeThresholdCm: freeThresholdCm,
	}
	servo.RegisterPositionReachedCallback(m.onServoPositioned)
	rangefinder.RegisterMeasurementReadyCallback(m.onMeasurementReady)
	return m
}

func (m *Module) RegisterSingleMeasurementReadyCallback(cb SingleResultFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.singleReady = cb
}

func (m *Module) RegisterDoubleMeasurementReadyCallback(cb DoubleResultFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doubleReady = cb
}

// CheckSingleClearance starts a one-bearing clearance check. The result
// arrives via the single measurement-ready callback.
func (m *Module) CheckSingleClearance(deg int) {
	deg = clampBearing(deg)
	m.mu.Lock()
	if m.session != nil {
		m.mu.Unlock()
		m.logger.Warnf("Scan at %d deg refused: scan already in flight", deg)
		return
	}
	m.session = &scanSession{mode: scanSingle, firstBearing: deg}
	m.mu.Unlock()

	m.servo.SetBearing(deg)
}

// CheckDoubleClearance starts a two-bearing scan: first deg1, then deg2.
// The combined result arrives via the double measurement-ready callback,
// in request order.
func (m *Module) CheckDoubleClearance(deg1, deg2 int) {
	deg1, deg2 = clampBearing(deg1), clampBearing(deg2)
	m.mu.Lock()
	if m.session != nil {
		m.mu.Unlock()
		m.logger.Warnf("Scan at %d/%d deg refused: scan already in flight", deg1, deg2)
		return
	}
	m.session = &scanSession{mode: scanDouble, firstBearing: deg1, secondBearing: deg2}
	m.mu.Unlock()

	m.servo.SetBearing(deg1)
}

// CheckFrontClearance checks straight ahead.
func (m *Module) CheckFrontClearance() {
	m.CheckSingleClearance(BearingFront)
}

// CheckLateralClearance scans the left extreme, then the right extreme.
func (m *Module) CheckLateralClearance() {
	m.CheckDoubleClearance(BearingLeft, BearingRight)
}

// onServoPositioned continues the chain: the mount is on target, so start
// the ranging measurement.
func (m *Module) onServoPositioned() {
	m.mu.Lock()
	active := m.session != nil
	m.mu.Unlock()
	if !active {
		// Position report with no scan outstanding; nothing to measure.
		return
	}
	m.rangefinder.TriggerMeasurement()
}

func (m *Module) onMeasurementReady(distanceCm uint16) {
	// No echo within the sensor window means nothing in range.
	clear := distanceCm == types.DistanceNoObject || distanceCm > m.freeThresholdCm

	m.mu.Lock()
	s := m.session
	if s == nil {
		m.mu.Unlock()
		m.logger.Debugf("Dropping measurement (%d cm): no scan in flight", distanceCm)
		return
	}

	if s.mode == scanSingle {
		cb := m.singleReady
		bearing := s.firstBearing
		m.session = nil
		m.mu.Unlock()
		if cb != nil {
			cb(clear, bearing, distanceCm)
		}
		return
	}

	if !s.firstDone {
		// First of two samples: store the result and re-point the servo
		// at the second bearing, re-arming the position/measure chain.
		s.firstDone = true
		s.firstClear = clear
		second := s.secondBearing
		m.mu.Unlock()
		m.servo.SetBearing(second)
		return
	}

	cb := m.doubleReady
	firstClear := s.firstClear
	m.session = nil
	m.mu.Unlock()
	if cb != nil {
		cb(firstClear, clear)
	}
}

// Scanning reports whether a scan session is in flight.
func (m *Module) Scanning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}

func clampBearing(deg int) int {
	if deg < BearingLeft {
		return BearingLeft
	}
	if deg > BearingRight {
		return BearingRight
	}
	return deg
}
