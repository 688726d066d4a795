package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "rental:order-lock:"

// Redis takes a redsync mutex per order so several API instances agree on
// who is reconciling an order.
type Redis struct {
	rs     *redsync.Redsync
	expiry time.Duration
	tries  int
	log    *logrus.Logger
}

func NewRedis(client *goredislib.Client, expiry time.Duration, tries int, log *logrus.Logger) *Redis {
	return &Redis{
		rs:     redsync.New(goredis.NewPool(client)),
		expiry: expiry,
		tries:  tries,
		log:    log,
	}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	mutex := r.rs.NewMutex(keyPrefix+key,
		redsync.WithExpiry(r.expiry),
		redsync.WithTries(r.tries),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, err)
	}

	return func() {
		// A fresh context: the caller's may already be cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if ok, err := mutex.UnlockContext(ctx); !ok || err != nil {
			r.log.WithFields(logrus.Fields{"key": key, "error": err}).Warn("order lock release failed")
		}
	}, nil
}
