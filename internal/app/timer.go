package app

import (
	"sync"
	"time"
)

// Timer is the countdown resource owned by a session while it is in progress.
// Start is called once on entering in_progress; tick runs once per interval
// and returns false when the countdown should end. Stop must be safe to call
// from inside tick and more than once.
type Timer interface {
	Start(tick func() bool)
	Stop()
}

// TimerFactory creates a fresh Timer for every started session.
type TimerFactory func() Timer

// NewTickerTimer returns a TimerFactory backed by time.Ticker.
func NewTickerTimer(interval time.Duration) TimerFactory {
	return func() Timer {
		return &tickerTimer{interval: interval, stop: make(chan struct{})}
	}
}

type tickerTimer struct {
	interval time.Duration
	stop     chan struct{}
	once     sync.Once
}

func (t *tickerTimer) Start(tick func() bool) {
	ticker := time.NewTicker(t.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C:
				if !tick() {
					return
				}
			}
		}
	}()
}

// Stop never blocks, so the tick callback may cancel its own timer.
func (t *tickerTimer) Stop() {
	t.once.Do(func() { close(t.stop) })
}
