package util

import (
	"context"
	"time"
)

// DebounceEvent contains the last event fired to the input channel
type DebounceEvent struct {
	Counter int64
	Data    interface{}
}

// Debounce returns two channels for input and output. Bursts on the
// input collapse into one output event carrying the last data and a
// count of how many were absorbed.
func Debounce(ctx context.Context, wait time.Duration) (noisy chan interface{}, clean chan DebounceEvent) {
	noisy = make(chan interface{})
	clean = make(chan DebounceEvent, 1) // do not block our goroutine

	go func() {
		ticker := time.NewTicker(wait)
		defer ticker.Stop()

		var lastTime time.Time
		var counter int64
		var data interface{}

		for {
			select {
			case <-ctx.Done():
				return
			case data = <-noisy:
				lastTime = time.Now()
				counter++
			case <-ticker.C:
				if !lastTime.IsZero() && time.Since(lastTime) > wait {
					clean <- DebounceEvent{
						Counter: counter,
						Data:    data,
					}

					lastTime = time.Time{}
					counter = 0
				}
			}
		}
	}()

	return
}

// PassThrough has the same shape as Debounce but forwards every event
// immediately. Used for inputs that must never be coalesced.
func PassThrough(ctx context.Context) (noisy chan interface{}, clean chan DebounceEvent) {
	noisy = make(chan interface{})
	clean = make(chan DebounceEvent, 1)

	go func() {
		var counter int64
		for {
			select {
			case <-ctx.Done():
				return
			case data := <-noisy:
				counter++
				clean <- DebounceEvent{
					Counter: counter,
					Data:    data,
				}
			}
		}
	}()

	return
}
