package app_test

import (
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"course-assessment-service/internal/app"
)

const tickInterval = 2 * time.Millisecond

// settled waits for count to stop changing and returns its final value.
func settled(t *testing.T, count *atomic.Int32) int32 {
	t.Helper()
	last := count.Load()
	for i := 0; i < 50; i++ {
		time.Sleep(20 * tickInterval)
		now := count.Load()
		if now == last {
			return now
		}
		last = now
	}
	t.Fatalf("timer kept ticking: %d ticks", last)
	return 0
}

func TestTickerTimerFiresUntilTickDeclines(t *testing.T) {
	var ticks atomic.Int32
	done := make(chan struct{})
	timer := app.NewTickerTimer(tickInterval)()
	timer.Start(func() bool {
		if ticks.Add(1) == 3 {
			close(done)
			return false
		}
		return true
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timer did not fire, %d ticks", ticks.Load())
	}
	if n := settled(t, &ticks); n != 3 {
		t.Fatalf("expected ticking to end after the declining tick, got %d", n)
	}
	timer.Stop()
}

func TestTickerTimerStop(t *testing.T) {
	var ticks atomic.Int32
	first := make(chan struct{}, 1)
	timer := app.NewTickerTimer(tickInterval)()
	timer.Start(func() bool {
		ticks.Add(1)
		select {
		case first <- struct{}{}:
		default:
		}
		return true
	})

	select {
	case <-first:
	case <-time.After(2 * time.Second):
		t.Fatalf("timer did not fire")
	}
	timer.Stop()
	timer.Stop()

	stopped := settled(t, &ticks)
	time.Sleep(20 * tickInterval)
	if n := ticks.Load(); n != stopped {
		t.Fatalf("ticks continued after Stop: %d then %d", stopped, n)
	}
}

func TestTickerTimerStopFromInsideTick(t *testing.T) {
	var ticks atomic.Int32
	returned := make(chan struct{})
	timer := app.NewTickerTimer(tickInterval)()
	timer.Start(func() bool {
		if ticks.Add(1) == 1 {
			timer.Stop()
			timer.Stop()
			close(returned)
		}
		return true
	})

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatalf("Stop blocked inside the tick callback")
	}
	if n := settled(t, &ticks); n > 2 {
		t.Fatalf("expected ticking to end after an in-tick Stop, got %d ticks", n)
	}
}

func TestTickerTimerReleasesGoroutines(t *testing.T) {
	before := runtime.NumGoroutine()

	timers := make([]app.Timer, 50)
	for i := range timers {
		timers[i] = app.NewTickerTimer(tickInterval)()
		timers[i].Start(func() bool { return true })
	}
	for _, timer := range timers {
		timer.Stop()
	}

	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > before {
		if time.Now().After(deadline) {
			t.Fatalf("timer goroutines leaked: %d before, %d after", before, runtime.NumGoroutine())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
