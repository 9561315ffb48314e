package sensing

import (
	"testing"

	"rover-service/internal/logger"
	"rover-service/internal/types"
)

// Mock Servo
type mockServo struct {
	bearings []int
	reached  func()
}

func (m *mockServo) SetBearing(deg int)                      { m.bearings = append(m.bearings, deg) }
func (m *mockServo) RegisterPositionReachedCallback(cb func()) { m.reached = cb }

// ReachPosition simulates the mount arriving at the commanded bearing.
func (m *mockServo) ReachPosition() { m.reached() }

// Mock Rangefinder
type mockRangefinder struct {
	triggers int
	ready    func(distanceCm uint16)
}

func (m *mockRangefinder) TriggerMeasurement() { m.triggers++ }
func (m *mockRangefinder) RegisterMeasurementReadyCallback(cb func(distanceCm uint16)) {
	m.ready = cb
}

// DeliverMeasurement simulates the echo result arriving.
func (m *mockRangefinder) DeliverMeasurement(distanceCm uint16) { m.ready(distanceCm) }

func newTestModule() (*Module, *mockServo, *mockRangefinder) {
	l := logger.NewLogger(nil, logger.LogLevelError)
	servo := &mockServo{}
	rf := &mockRangefinder{}
	m := New(servo, rf, 15, l)
	return m, servo, rf
}

// ===== Single Clearance =====

func TestSingleClearanceChain(t *testing.T) {
	m, servo, rf := newTestModule()
	var results []struct {
		clear      bool
		bearing    int
		distanceCm uint16
	}
	m.RegisterSingleMeasurementReadyCallback(func(clear bool, bearing int, distanceCm uint16) {
		results = append(results, struct {
			clear      bool
			bearing    int
			distanceCm uint16
		}{clear, bearing, distanceCm})
	})

	m.CheckFrontClearance()

	if len(servo.bearings) != 1 || servo.bearings[0] != BearingFront {
		t.Fatalf("Expected servo pointed front, got %v", servo.bearings)
	}
	if rf.triggers != 0 {
		t.Fatal("Expected no measurement before servo settles")
	}

	servo.ReachPosition()
	if rf.triggers != 1 {
		t.Fatalf("Expected measurement triggered, got %d", rf.triggers)
	}

	rf.DeliverMeasurement(40)
	if len(results) != 1 {
		t.Fatalf("Expected one result, got %d", len(results))
	}
	if !results[0].clear || results[0].bearing != BearingFront || results[0].distanceCm != 40 {
		t.Errorf("Unexpected result: %+v", results[0])
	}
	if m.Scanning() {
		t.Error("Expected session cleared after result")
	}
}

func TestSingleClearanceClassification(t *testing.T) {
	cases := []struct {
		distanceCm uint16
		clear      bool
	}{
		{10, false},
		{15, false}, // at the threshold counts as blocked
		{16, true},
		{types.DistanceNoObject, true},
	}

	for _, c := range cases {
		m, servo, rf := newTestModule()
		var gotClear bool
		m.RegisterSingleMeasurementReadyCallback(func(clear bool, bearing int, distanceCm uint16) {
			gotClear = clear
		})

		m.CheckFrontClearance()
		servo.ReachPosition()
		rf.DeliverMeasurement(c.distanceCm)

		if gotClear != c.clear {
			t.Errorf("Distance %d: expected clear=%v, got %v", c.distanceCm, c.clear, gotClear)
		}
	}
}

// ===== Double Clearance =====

func TestDoubleClearanceVisitsBothBearings(t *testing.T) {
	m, servo, rf := newTestModule()
	var first, second bool
	done := false
	m.RegisterDoubleMeasurementReadyCallback(func(firstClear, secondClear bool) {
		first, second = firstClear, secondClear
		done = true
	})

	m.CheckLateralClearance()

	if len(servo.bearings) != 1 || servo.bearings[0] != BearingLeft {
		t.Fatalf("Expected servo at left first, got %v", servo.bearings)
	}

	servo.ReachPosition()
	rf.DeliverMeasurement(100) // left is clear

	if len(servo.bearings) != 2 || servo.bearings[1] != BearingRight {
		t.Fatalf("Expected servo re-pointed right, got %v", servo.bearings)
	}
	if done {
		t.Fatal("Expected no result before second measurement")
	}

	servo.ReachPosition()
	rf.DeliverMeasurement(5) // right is blocked

	if !done {
		t.Fatal("Expected combined result")
	}
	if !first || second {
		t.Errorf("Expected left clear and right blocked, got %v/%v", first, second)
	}
	if m.Scanning() {
		t.Error("Expected session cleared")
	}
}

func TestDoubleClearanceResultsInRequestOrder(t *testing.T) {
	m, servo, rf := newTestModule()
	var first, second bool
	m.RegisterDoubleMeasurementReadyCallback(func(firstClear, secondClear bool) {
		first, second = firstClear, secondClear
	})

	// Right first, then left: results must still arrive in request order.
	m.CheckDoubleClearance(BearingRight, BearingLeft)

	servo.ReachPosition()
	rf.DeliverMeasurement(5) // right (first requested) blocked
	servo.ReachPosition()
	rf.DeliverMeasurement(100) // left (second requested) clear

	if first || !second {
		t.Errorf("Expected first=blocked second=clear in request order, got %v/%v", first, second)
	}
}

// ===== Session Lifecycle =====

func TestScanRefusedWhileScanning(t *testing.T) {
	m, servo, _ := newTestModule()

	m.CheckLateralClearance()
	m.CheckFrontClearance() // refused

	if len(servo.bearings) != 1 {
		t.Errorf("Expected second scan refused, got bearings %v", servo.bearings)
	}
	if !m.Scanning() {
		t.Error("Expected original session still in flight")
	}
}

func TestMeasurementDroppedWithoutSession(t *testing.T) {
	m, _, rf := newTestModule()
	called := false
	m.RegisterSingleMeasurementReadyCallback(func(clear bool, bearing int, distanceCm uint16) {
		called = true
	})

	rf.DeliverMeasurement(40)

	if called {
		t.Error("Expected measurement without a session to be dropped")
	}
}

func TestPositionReportDroppedWithoutSession(t *testing.T) {
	_, servo, rf := newTestModule()

	servo.ReachPosition()

	if rf.triggers != 0 {
		t.Errorf("Expected no measurement without a session, got %d", rf.triggers)
	}
}

func TestBearingClamped(t *testing.T) {
	m, servo, _ := newTestModule()

	m.CheckSingleClearance(-180)

	if servo.bearings[0] != BearingLeft {
		t.Errorf("Expected bearing clamped to %d, got %d", BearingLeft, servo.bearings[0])
	}
}
