package retry

import (
	"context"
	"log"
	"time"
)

// Forever calls fn until it succeeds, sleeping delay between attempts. Every
// failure is logged as a warning describing what was attempted. The only error
// returned is the context's, when the process is shutting down.
func Forever(ctx context.Context, delay time.Duration, what string, fn func() error) error {
	for {
		err := fn()
		if err == nil {
			return nil
		}
		log.Printf("WARNING: Failed to %s: %v. Trying again in %v", what, err, delay)
		if err := Sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
