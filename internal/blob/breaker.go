package blob

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

// Breaker stops calling a failing store for a while after a run of
// consecutive failures. While open every call fails with ErrUnavailable.
type Breaker struct {
	next Store
	cb   *gobreaker.CircuitBreaker[[]Object]
}

// NewBreaker trips after failures consecutive errors and probes again after
// timeout.
func NewBreaker(next Store, failures uint32, timeout time.Duration) *Breaker {
	if failures == 0 {
		failures = 1
	}
	st := gobreaker.Settings{
		Name:        "blob",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(log.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
		// a cancelled request says nothing about the store
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker[[]Object](st)}
}

func (b *Breaker) Put(ctx context.Context, key, contentType string, data []byte) error {
	_, err := b.cb.Execute(func() ([]Object, error) {
		return nil, b.next.Put(ctx, key, contentType, data)
	})
	return b.wrap(err)
}

func (b *Breaker) Delete(ctx context.Context, key string) error {
	_, err := b.cb.Execute(func() ([]Object, error) {
		return nil, b.next.Delete(ctx, key)
	})
	return b.wrap(err)
}

func (b *Breaker) List(ctx context.Context, olderThan time.Time) ([]Object, error) {
	objs, err := b.cb.Execute(func() ([]Object, error) {
		return b.next.List(ctx, olderThan)
	})
	return objs, b.wrap(err)
}

// State reports the current breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func (b *Breaker) wrap(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
