package utils

import (
	"context"
	"time"
)

// Retry runs fn up to attempts times, sleeping backoff, 2*backoff, ...
// between failures. The last error is returned when every attempt fails.
func Retry(ctx context.Context, attempts int, backoff time.Duration, fn func() error) error {
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		wait := backoff * time.Duration(i+1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}
