// Package coupons: service.go holds the validation rules.
package coupons

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"serotonyl.ru/printvend/internal/cache"
	"serotonyl.ru/printvend/internal/common"
)

// Store is the read side of Repository.
type Store interface {
	Get(ctx context.Context, code string) (*Coupon, error)
	HasUsed(ctx context.Context, userID, code string) (bool, error)
}

// Cache holds coupon definitions. Usage is never cached.
type Cache interface {
	Get(ctx context.Context, key string, dst any) error
	Set(ctx context.Context, key string, v any) error
}

type Service struct {
	repo  Store
	cache Cache // nil disables caching
	sfg   singleflight.Group
}

func NewService(repo Store, c Cache) *Service {
	return &Service{repo: repo, cache: c}
}

// Validate checks that code exists, is active and, for one-time coupons,
// has not been redeemed by userID. It does not record the redemption:
// that happens atomically with the order.
func (s *Service) Validate(ctx context.Context, code, userID string) (*Coupon, error) {
	code = Normalize(code)
	if code == "" {
		return nil, common.ErrCouponNotFound
	}

	c, err := s.lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	if !c.Active {
		return nil, common.ErrCouponInactive
	}
	if c.IsOneTime {
		used, err := s.repo.HasUsed(ctx, userID, code)
		if err != nil {
			return nil, err
		}
		if used {
			return nil, common.ErrCouponAlreadyUsed
		}
	}
	return c, nil
}

// lookup reads through the cache. Concurrent misses for one code share a
// single database query.
// lookupTimeout bounds a shared lookup, which outlives the caller that
// started it.
const lookupTimeout = 5 * time.Second

func (s *Service) lookup(ctx context.Context, code string) (*Coupon, error) {
	v, err, _ := s.sfg.Do(code, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()

		if s.cache != nil {
			var cached Coupon
			err := s.cache.Get(ctx, code, &cached)
			if err == nil {
				return &cached, nil
			}
			if !errors.Is(err, cache.ErrCacheMiss) {
				log.WithError(err).WithField("coupon", code).Warn("coupon cache read failed")
			}
		}

		c, err := s.repo.Get(ctx, code)
		if err != nil {
			return nil, err
		}

		if s.cache != nil {
			if err := s.cache.Set(ctx, code, c); err != nil {
				log.WithError(err).WithField("coupon", code).Warn("coupon cache write failed")
			}
		}
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Coupon), nil
}
