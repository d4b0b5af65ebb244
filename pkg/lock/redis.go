package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"go.uber.org/multierr"

	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
)

const (
	defaultTTL   = 10 * time.Second
	defaultRetry = 25 * time.Millisecond
)

type lease interface {
	Refresh(ctx context.Context, ttl time.Duration, opt *redislock.Options) error
	Release(ctx context.Context) error
}

type obtainer interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (lease, error)
}

type redislockObtainer struct {
	client *redislock.Client
}

func (o redislockObtainer) Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (lease, error) {
	held, err := o.client.Obtain(ctx, key, ttl, opt)
	if err != nil {
		return nil, err
	}
	return held, nil
}

// Redis serializes operations across processes that share one database.
type Redis struct {
	client obtainer
	key    string
	ttl    time.Duration
	retry  time.Duration
	wait   time.Duration
}

// RedisOptions tunes the distributed lock.
type RedisOptions struct {
	Key           string
	TTL           time.Duration
	RetryInterval time.Duration
	WaitTimeout   time.Duration
}

// NewRedis builds a distributed lock on top of any go-redis client.
func NewRedis(client redislock.RedisClient, opts RedisOptions) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	return newRedis(redislockObtainer{client: redislock.New(client)}, opts)
}

func newRedis(client obtainer, opts RedisOptions) (*Redis, error) {
	if opts.Key == "" {
		return nil, errors.New("lock key is required")
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = defaultRetry
	}
	return &Redis{
		client: client,
		key:    opts.Key,
		ttl:    opts.TTL,
		retry:  opts.RetryInterval,
		wait:   opts.WaitTimeout,
	}, nil
}

func (r *Redis) Acquire(ctx context.Context) (Unlocker, error) {
	waitCtx, cancel := withWait(ctx, r.wait)
	defer cancel()

	held, err := r.client.Obtain(waitCtx, r.key, r.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(r.retry),
	})
	switch {
	case err == nil:
	case errors.Is(err, redislock.ErrNotObtained), errors.Is(err, context.DeadlineExceeded):
		return nil, pkgerrors.Wrap(pkgerrors.CodeTimeout, err, "timed out waiting for stock lock")
	case errors.Is(err, context.Canceled):
		return nil, waitError(err)
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis: obtain stock lock")
	}

	stop := make(chan struct{})
	lost := make(chan error, 1)
	go r.keepAlive(held, stop, lost)

	var once sync.Once
	var releaseErr error
	return UnlockFunc(func(ctx context.Context) error {
		once.Do(func() {
			close(stop)
			if err := <-lost; err != nil {
				releaseErr = multierr.Append(releaseErr, fmt.Errorf("refresh %s: %w", r.key, err))
			}
			if err := held.Release(ctx); err != nil {
				releaseErr = multierr.Append(releaseErr, fmt.Errorf("release %s: %w", r.key, err))
			}
		})
		return releaseErr
	}), nil
}

// keepAlive extends the lease every half TTL until stop closes. The first
// refresh failure ends it and is reported on lost.
func (r *Redis) keepAlive(held lease, stop <-chan struct{}, lost chan<- error) {
	interval := r.ttl / 2
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			lost <- nil
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			err := held.Refresh(ctx, r.ttl, nil)
			cancel()
			if err != nil {
				<-stop
				lost <- err
				return
			}
		}
	}
}
