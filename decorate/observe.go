package decorate

import (
	"context"
	"time"
)

// debounce coalesces bursts of signals from in: one value is emitted once
// window has passed without a new signal. The output closes when in closes
// or ctx ends.
func debounce(ctx context.Context, in <-chan struct{}, window time.Duration) <-chan struct{} {
	out := make(chan struct{})
	go func() {
		defer close(out)
		var (
			timer  *time.Timer
			timerC <-chan time.Time
		)
		stop := func() {
			if timer != nil {
				timer.Stop()
				timer, timerC = nil, nil
			}
		}
		defer stop()

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-in:
				if !ok {
					return
				}
				// (re)start the quiet window
				stop()
				timer = time.NewTimer(window)
				timerC = timer.C
			case <-timerC:
				timer, timerC = nil, nil
				select {
				case out <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
