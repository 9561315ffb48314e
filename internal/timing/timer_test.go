package timing

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestSharedTimerFiresCallback(t *testing.T) {
	clk := clock.NewMock()
	timer := NewSharedTimer(clk)
	fired := 0

	timer.Acquire(time.Second, func() { fired++ })
	if !timer.Held() {
		t.Error("Expected timer held after acquire")
	}

	clk.Add(time.Second)
	if fired != 1 {
		t.Errorf("Expected one fire, got %d", fired)
	}
}

func TestSharedTimerDoubleAcquirePanics(t *testing.T) {
	clk := clock.NewMock()
	timer := NewSharedTimer(clk)
	timer.Acquire(time.Second, func() {})

	defer func() {
		if recover() == nil {
			t.Error("Expected panic on double acquire")
		}
	}()
	timer.Acquire(time.Second, func() {})
}

func TestSharedTimerReleaseCancels(t *testing.T) {
	clk := clock.NewMock()
	timer := NewSharedTimer(clk)
	fired := 0

	timer.Acquire(time.Second, func() { fired++ })
	timer.Release()
	if timer.Held() {
		t.Error("Expected timer free after release")
	}

	clk.Add(2 * time.Second)
	if fired != 0 {
		t.Errorf("Expected no fire after release, got %d", fired)
	}
}

func TestSharedTimerReleaseIsIdempotent(t *testing.T) {
	clk := clock.NewMock()
	timer := NewSharedTimer(clk)

	timer.Release()
	timer.Acquire(time.Second, func() {})
	timer.Release()
	timer.Release()

	if timer.Held() {
		t.Error("Expected timer free")
	}
}

func TestSharedTimerReacquireAfterRelease(t *testing.T) {
	clk := clock.NewMock()
	timer := NewSharedTimer(clk)
	var order []string

	timer.Acquire(time.Second, func() { order = append(order, "first") })
	timer.Release()
	timer.Acquire(time.Second, func() { order = append(order, "second") })

	clk.Add(time.Second)
	if len(order) != 1 || order[0] != "second" {
		t.Errorf("Expected only the second lease to fire, got %v", order)
	}
}

func TestSharedTimerReleaseFromCallback(t *testing.T) {
	clk := clock.NewMock()
	timer := NewSharedTimer(clk)

	timer.Acquire(time.Second, func() { timer.Release() })
	clk.Add(time.Second)

	if timer.Held() {
		t.Error("Expected timer free after callback released it")
	}
	// Timer must be reusable after a callback-side release.
	timer.Acquire(time.Second, func() {})
	if !timer.Held() {
		t.Error("Expected timer held after reacquire")
	}
}

func TestPeriodicTickerDeliversTicks(t *testing.T) {
	clk := clock.NewMock()
	ticker := NewPeriodicTicker(clk)
	ticks := make(chan struct{}, 10)

	ticker.Start(100*time.Millisecond, func() { ticks <- struct{}{} })
	defer ticker.Stop()

	clk.Add(350 * time.Millisecond)

	deadline := time.After(time.Second)
	for i := 0; i < 3; i++ {
		select {
		case <-ticks:
		case <-deadline:
			t.Fatalf("Expected 3 ticks, got %d", i)
		}
	}
}

func TestPeriodicTickerStopIsIdempotent(t *testing.T) {
	clk := clock.NewMock()
	ticker := NewPeriodicTicker(clk)
	ticker.Start(100*time.Millisecond, func() {})

	ticker.Stop()
	ticker.Stop()
}
