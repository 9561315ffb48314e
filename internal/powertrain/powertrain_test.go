package powertrain

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"rover-service/internal/logger"
	"rover-service/internal/timing"
	"rover-service/internal/types"
)

// Mock MotorDriver
type mockDriver struct {
	directions map[types.Side]types.Direction
	duties     map[types.Side]int
}

func newMockDriver() *mockDriver {
	return &mockDriver{
		directions: make(map[types.Side]types.Direction),
		duties:     make(map[types.Side]int),
	}
}

func (m *mockDriver) SetDirection(side types.Side, dir types.Direction) error {
	m.directions[side] = dir
	return nil
}

func (m *mockDriver) SetDuty(side types.Side, percent int) error {
	m.duties[side] = percent
	return nil
}

// Mock ChangeListener
type mockListener struct {
	speedChanges []struct {
		side  types.Side
		speed int
	}
	dirChanges []struct {
		side types.Side
		dir  types.Direction
	}
}

func (m *mockListener) MotorSpeedChanged(side types.Side, speed int) {
	m.speedChanges = append(m.speedChanges, struct {
		side  types.Side
		speed int
	}{side, speed})
}

func (m *mockListener) MotorDirectionChanged(side types.Side, dir types.Direction) {
	m.dirChanges = append(m.dirChanges, struct {
		side types.Side
		dir  types.Direction
	}{side, dir})
}

func testPowertrain() (*Powertrain, *mockDriver, *clock.Mock) {
	l := logger.NewLogger(nil, logger.LogLevelError)
	clk := clock.NewMock()
	driver := newMockDriver()
	p := New(driver, timing.NewSharedTimer(clk), Config{
		ForwardSpeed:    40,
		ReverseSpeed:    20,
		TurnSpeed:       50,
		MaxAngularSpeed: 36,
	}, l)
	return p, driver, clk
}

func TestMoveForward(t *testing.T) {
	p, driver, _ := testPowertrain()

	p.MoveForward()

	for _, side := range []types.Side{types.SideLeft, types.SideRight} {
		if driver.directions[side] != types.DirForward {
			t.Errorf("Expected %s motor forward, got %s", side, driver.directions[side])
		}
		if driver.duties[side] != 40 {
			t.Errorf("Expected %s motor at 40%%, got %d", side, driver.duties[side])
		}
	}
}

func TestMoveBackward(t *testing.T) {
	p, driver, _ := testPowertrain()

	p.MoveBackward()

	for _, side := range []types.Side{types.SideLeft, types.SideRight} {
		if driver.directions[side] != types.DirReverse {
			t.Errorf("Expected %s motor reverse, got %s", side, driver.directions[side])
		}
		if driver.duties[side] != 20 {
			t.Errorf("Expected %s motor at 20%%, got %d", side, driver.duties[side])
		}
	}
}

func TestStop(t *testing.T) {
	p, driver, _ := testPowertrain()
	p.MoveForward()

	p.Stop()

	for _, side := range []types.Side{types.SideLeft, types.SideRight} {
		if driver.directions[side] != types.DirStop {
			t.Errorf("Expected %s motor stopped, got %s", side, driver.directions[side])
		}
		if driver.duties[side] != 0 {
			t.Errorf("Expected %s motor at 0%%, got %d", side, driver.duties[side])
		}
	}
}

// ===== Speed Stepping =====

func TestIncreaseSpeedSteps(t *testing.T) {
	p, _, _ := testPowertrain()
	p.MoveForward()

	p.IncreaseSpeed()

	if p.Speed(types.SideLeft) != 50 || p.Speed(types.SideRight) != 50 {
		t.Errorf("Expected 50%%, got %d/%d", p.Speed(types.SideLeft), p.Speed(types.SideRight))
	}
}

func TestIncreaseSpeedClampsAtMax(t *testing.T) {
	p, _, _ := testPowertrain()
	p.MoveForward()

	for i := 0; i < 10; i++ {
		p.IncreaseSpeed()
	}

	if p.Speed(types.SideLeft) != maxDriveSpeed {
		t.Errorf("Expected clamp at %d%%, got %d", maxDriveSpeed, p.Speed(types.SideLeft))
	}
}

func TestDecreaseSpeedClampsAtMin(t *testing.T) {
	p, _, _ := testPowertrain()
	p.MoveForward()

	for i := 0; i < 10; i++ {
		p.DecreaseSpeed()
	}

	if p.Speed(types.SideLeft) != minDriveSpeed {
		t.Errorf("Expected clamp at %d%%, got %d", minDriveSpeed, p.Speed(types.SideLeft))
	}
}

func TestSpeedChangeSkipsStoppedMotors(t *testing.T) {
	p, driver, _ := testPowertrain()

	p.IncreaseSpeed()
	p.DecreaseSpeed()

	if len(driver.duties) != 0 {
		t.Errorf("Expected no duty commands while stopped, got %v", driver.duties)
	}
}

// ===== Turning =====

func TestTurnDuration(t *testing.T) {
	p, _, _ := testPowertrain()

	// 36 deg/s at 50% duty is 18 deg/s, so 90 deg takes 5 s.
	if d := p.turnDuration(90); d != 5*time.Second {
		t.Errorf("Expected 5s for 90 deg, got %v", d)
	}
	if d := p.turnDuration(180); d != 10*time.Second {
		t.Errorf("Expected 10s for 180 deg, got %v", d)
	}
}

func TestTurnLeftCounterRotates(t *testing.T) {
	p, driver, _ := testPowertrain()

	p.TurnLeft(90)

	if driver.directions[types.SideLeft] != types.DirReverse {
		t.Errorf("Expected left motor reverse, got %s", driver.directions[types.SideLeft])
	}
	if driver.directions[types.SideRight] != types.DirForward {
		t.Errorf("Expected right motor forward, got %s", driver.directions[types.SideRight])
	}
	if driver.duties[types.SideLeft] != 50 || driver.duties[types.SideRight] != 50 {
		t.Errorf("Expected both motors at turn speed, got %v", driver.duties)
	}
	if !p.Turning() {
		t.Error("Expected turn in flight")
	}
}

func TestTurnCompletionStopsMotorsAndNotifies(t *testing.T) {
	p, driver, clk := testPowertrain()
	completed := 0
	p.RegisterTurnCompletedCallback(func() { completed++ })

	p.TurnRight(90)
	clk.Add(5 * time.Second)

	if driver.directions[types.SideLeft] != types.DirStop || driver.directions[types.SideRight] != types.DirStop {
		t.Errorf("Expected both motors stopped, got %v", driver.directions)
	}
	if completed != 1 {
		t.Errorf("Expected one completion callback, got %d", completed)
	}
	if p.Turning() {
		t.Error("Expected turn no longer in flight")
	}
}

func TestTurnRefusedWhileTurning(t *testing.T) {
	p, _, clk := testPowertrain()
	completed := 0
	p.RegisterTurnCompletedCallback(func() { completed++ })

	p.TurnRight(90)
	p.TurnLeft(45) // refused, first turn still in flight

	clk.Add(5 * time.Second)
	if completed != 1 {
		t.Errorf("Expected exactly one completion, got %d", completed)
	}

	// The timer is free again, so a new turn is accepted.
	p.TurnLeft(45)
	if !p.Turning() {
		t.Error("Expected new turn accepted after completion")
	}
}

func TestTurnIgnoresNonPositiveAngle(t *testing.T) {
	p, _, _ := testPowertrain()

	p.TurnLeft(0)
	p.TurnRight(-90)

	if p.Turning() {
		t.Error("Expected no turn for non-positive angle")
	}
}

// ===== Concurrency =====

// Commands reach the powertrain from several goroutines at once (serial,
// Redis and IR readers plus the state machine). Interleaved commands must
// leave the motors in a state some serial order could have produced; run
// with -race.
func TestConcurrentCommandSourcesSerialized(t *testing.T) {
	p, _, _ := testPowertrain()
	listener := &mockListener{}
	p.SetChangeListener(listener)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			p.MoveForward()
			p.IncreaseSpeed()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			p.Stop()
			p.MoveBackward()
		}
	}()
	wg.Wait()

	for _, side := range []types.Side{types.SideLeft, types.SideRight} {
		if speed := p.Speed(side); speed < 0 || speed > maxDriveSpeed {
			t.Errorf("%s motor speed out of range: %d", side, speed)
		}
		switch dir := p.Direction(side); dir {
		case types.DirForward, types.DirReverse, types.DirStop:
		default:
			t.Errorf("%s motor in impossible direction %q", side, dir)
		}
	}
}

// ===== Change Notifications =====

func TestListenerNotifiedOnChangeOnly(t *testing.T) {
	p, _, _ := testPowertrain()
	listener := &mockListener{}
	p.SetChangeListener(listener)

	p.MoveForward()
	p.MoveForward() // no state change, no new notifications

	if len(listener.speedChanges) != 2 {
		t.Errorf("Expected 2 speed notifications (one per side), got %d", len(listener.speedChanges))
	}
	if len(listener.dirChanges) != 2 {
		t.Errorf("Expected 2 direction notifications (one per side), got %d", len(listener.dirChanges))
	}
}

func TestStopIsIdempotent(t *testing.T) {
	p, _, _ := testPowertrain()
	listener := &mockListener{}
	p.SetChangeListener(listener)

	p.MoveForward()
	notifications := len(listener.speedChanges) + len(listener.dirChanges)

	p.Stop()
	afterStop := len(listener.speedChanges) + len(listener.dirChanges)
	if afterStop <= notifications {
		t.Error("Expected stop to notify")
	}

	p.Stop() // redundant
	if len(listener.speedChanges)+len(listener.dirChanges) != afterStop {
		t.Error("Expected redundant stop not to re-notify")
	}
}
