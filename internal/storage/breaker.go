package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/and161185/feedlog/internal/errs"
)

// Breaker guards a remote Storage with a circuit breaker. After consecutive
// failures calls fail fast with gobreaker.ErrOpenState until the timeout passes.
// A missing key is a normal answer and does not count as a failure.
type Breaker struct {
	next Storage
	cb   *gobreaker.CircuitBreaker
}

var _ Storage = (*Breaker)(nil)

// BreakerSettings tunes NewBreaker; zero fields take defaults.
type BreakerSettings struct {
	MaxFailures uint32
	Timeout     time.Duration
}

// NewBreaker wraps next with a breaker named after the backend.
func NewBreaker(name string, next Storage, set BreakerSettings, log *zap.Logger) *Breaker {
	if set.MaxFailures == 0 {
		set.MaxFailures = 3
	}
	if set.Timeout <= 0 {
		set.Timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     set.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= set.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("storage circuit breaker",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errs.ErrNotFound)
		},
	})
	return &Breaker{next: next, cb: cb}
}

// State exposes the breaker state for diagnostics.
func (b *Breaker) State() gobreaker.State { return b.cb.State() }

func (b *Breaker) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Get(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (b *Breaker) Set(ctx context.Context, key string, value []byte) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Set(ctx, key, value)
	})
	return err
}
