package puzzle

import (
	"sync"
	"time"
)

// Cancel stops a scheduled task. Calling it more than once is safe.
type Cancel func()

// Scheduler runs delayed and repeated callbacks. The engine uses it for the
// scatter cooldown and the elapsed-time tick so tests can drive time by hand.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Cancel
	Every(d time.Duration, fn func()) Cancel
}

// SystemScheduler schedules on real timers.
type SystemScheduler struct{}

func (SystemScheduler) AfterFunc(d time.Duration, fn func()) Cancel {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

func (SystemScheduler) Every(d time.Duration, fn func()) Cancel {
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()

	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}

// Clock returns the current time.
type Clock func() time.Time
