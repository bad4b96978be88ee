// Package retry re-runs optimistic read-modify-write cycles that lost a
// version race.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/neuroforge/backend/internal/apperr"
	"github.com/neuroforge/backend/internal/store"
)

type Policy struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 25 * time.Millisecond,
		MaxInterval:     250 * time.Millisecond,
	}
}

// OnConflict runs op until it succeeds, fails with anything other than
// store.ErrVersionConflict, or the policy's attempts are spent. Each run of op
// must re-read the state it writes. An exhausted retry is reported as an
// apperr Transient error.
func OnConflict[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	if p.MaxAttempts == 0 {
		p = DefaultPolicy()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.RandomizationFactor = 0.5

	attempts := 0
	res, err := backoff.Retry(ctx, func() (T, error) {
		attempts++
		v, err := op(ctx)
		if err == nil || errors.Is(err, store.ErrVersionConflict) {
			return v, err
		}
		return v, backoff.Permanent(err)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(p.MaxAttempts))

	if err == nil {
		return res, nil
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	if errors.Is(err, store.ErrVersionConflict) {
		return res, apperr.Transient(err, "gave up after %d attempts", attempts)
	}
	return res, err
}
