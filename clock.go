package fetchguard

import (
	"context"
	"time"
)

// systemClock implements Clock using the standard time package.
type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// SystemClock returns the real-time Clock used by default.
func SystemClock() Clock {
	return systemClock{}
}

// SystemSleeper returns the default Sleeper. It waits on a timer and aborts
// with the context error if the context is cancelled first.
func SystemSleeper() Sleeper {
	return func(ctx context.Context, d time.Duration) error {
		if d <= 0 {
			return ctx.Err()
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
