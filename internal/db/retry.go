package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Operation is a single attempt at a write that may collide on a random key.
type Operation func() error

const DefaultMaxRetries = 3

// Try runs op, retrying up to DefaultMaxRetries times while it fails with a
// duplicate key error. Any other error is returned at once.
func Try(ctx context.Context, op Operation) error {
	return WithRetries(ctx, op, DefaultMaxRetries, mongo.IsDuplicateKeyError)
}

// WithRetries runs op once plus up to maxRetries more times while isRetryable
// accepts its error. The wait between attempts grows linearly and is cut short
// when ctx is done.
func WithRetries(ctx context.Context, op Operation, maxRetries int, isRetryable func(error) bool) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt == maxRetries || !isRetryable(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(50*(attempt+1)) * time.Millisecond):
		}
	}
	return err
}
