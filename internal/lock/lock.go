// Package lock serialises work on a single order across goroutines or,
// with Redis, across API instances.
package lock

import (
	"context"
	"errors"
)

var ErrNotAcquired = errors.New("order lock not acquired")

// OrderLocker hands out one lock per key. The returned unlock func must be called exactly once.
type OrderLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
