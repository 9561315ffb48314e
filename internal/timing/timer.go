package timing

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Callback is invoked when a timer expires.
type Callback func()

type lease struct {
	timer *clock.Timer
}

// SharedTimer models the single hardware one-shot countdown resource. At
// most one lease may be outstanding; Acquire panics on a double acquire
// because overlapping timed actions silently corrupt motion timing. The
// drive controller's state machine guarantees single use by construction,
// so a second acquire is always a logic bug.
type SharedTimer struct {
	clk     clock.Clock
	mu      sync.Mutex
	current *lease
}

func NewSharedTimer(clk clock.Clock) *SharedTimer {
	if clk == nil {
		clk = clock.New()
	}
	return &SharedTimer{clk: clk}
}

// Acquire arms the timer for d and registers cb to run on expiry. The
// holder must call Release when done, whether the timer expired or the
// action was abandoned.
func (s *SharedTimer) Acquire(d time.Duration, cb Callback) {
	s.mu.Lock()
	if s.current != nil {
		s.mu.Unlock()
		panic("timing: shared timer acquired while already held")
	}
	l := &lease{}
	s.current = l
	l.timer = s.clk.AfterFunc(d, func() {
		s.fire(l, cb)
	})
	s.mu.Unlock()
}

func (s *SharedTimer) fire(l *lease, cb Callback) {
	s.mu.Lock()
	stale := s.current != l
	s.mu.Unlock()
	// A lease released between scheduling and firing must not deliver
	// its callback.
	if stale {
		return
	}
	cb()
}

// Release returns the timer to the free state. Safe to call from the
// expiry callback or to cancel an outstanding lease; releasing a free
// timer is a no-op.
func (s *SharedTimer) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.timer.Stop()
		s.current = nil
	}
}

// Held reports whether a lease is outstanding.
func (s *SharedTimer) Held() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// PeriodicTicker delivers a fixed-period tick callback on its own
// goroutine.
type PeriodicTicker struct {
	clk      clock.Clock
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewPeriodicTicker(clk clock.Clock) *PeriodicTicker {
	if clk == nil {
		clk = clock.New()
	}
	return &PeriodicTicker{
		clk:      clk,
		stopChan: make(chan struct{}),
	}
}

// Start begins delivering ticks every period until Stop is called. The
// callback runs on the ticker goroutine.
func (p *PeriodicTicker) Start(period time.Duration, cb Callback) {
	ticker := p.clk.Ticker(period)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-p.stopChan:
				return
			case <-ticker.C:
				cb()
			}
		}
	}()
}

// Stop halts tick delivery and waits for the ticker goroutine to exit.
func (p *PeriodicTicker) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
	})
	p.wg.Wait()
}
