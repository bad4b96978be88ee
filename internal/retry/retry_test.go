package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuroforge/backend/internal/apperr"
	"github.com/neuroforge/backend/internal/store"
)

func fastPolicy() Policy {
	return Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func TestOnConflictRetriesUntilSuccess(t *testing.T) {
	calls := 0
	v, err := OnConflict(context.Background(), fastPolicy(), func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, store.ErrVersionConflict
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 3, calls)
}

func TestOnConflictGivesUpAsTransient(t *testing.T) {
	calls := 0
	_, err := OnConflict(context.Background(), fastPolicy(), func(ctx context.Context) (struct{}, error) {
		calls++
		return struct{}{}, store.ErrVersionConflict
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, errors.Is(err, apperr.ErrTransient))
	assert.True(t, errors.Is(err, store.ErrVersionConflict))
}

func TestOnConflictStopsOnOtherErrors(t *testing.T) {
	calls := 0
	_, err := OnConflict(context.Background(), fastPolicy(), func(ctx context.Context) (int, error) {
		calls++
		return 0, apperr.NotFound("wallet missing")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
