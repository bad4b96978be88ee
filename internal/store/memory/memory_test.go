package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuroforge/backend/internal/models"
	"github.com/neuroforge/backend/internal/store"
)

func TestWalletCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := New().Wallets

	w := &models.Wallet{PlayerID: 1, Credits: 500}
	require.NoError(t, s.Create(ctx, w))
	assert.ErrorIs(t, s.Create(ctx, &models.Wallet{PlayerID: 1}), store.ErrAlreadyExists)

	w.Credits = 400
	require.NoError(t, s.CompareAndSwap(ctx, w, 0))
	assert.Equal(t, int64(1), w.Version)

	stale := &models.Wallet{PlayerID: 1, Credits: 1}
	assert.ErrorIs(t, s.CompareAndSwap(ctx, stale, 0), store.ErrVersionConflict)

	got, err := s.Find(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(400), got.Credits)
}

func TestQueueClaimPairRequiresBothEntries(t *testing.T) {
	ctx := context.Background()
	q := New().Queue
	now := time.Now()

	a := models.QueueEntry{PlayerID: 1, Category: models.CategoryTranslation, Status: models.QueueStatusSearching, EnqueuedAt: now}
	b := models.QueueEntry{PlayerID: 2, Category: models.CategoryTranslation, Status: models.QueueStatusSearching, EnqueuedAt: now.Add(time.Second)}
	require.NoError(t, q.Upsert(ctx, &a))
	require.NoError(t, q.Upsert(ctx, &b))

	// b rejoined after being observed
	rejoined := b
	rejoined.EnqueuedAt = now.Add(time.Minute)
	require.NoError(t, q.Upsert(ctx, &rejoined))

	ok, err := q.ClaimPair(ctx, a, b)
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := q.ListSearching(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	ok, err = q.ClaimPair(ctx, a, rejoined)
	require.NoError(t, err)
	assert.True(t, ok)

	list, err = q.ListSearching(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMatchUpdateIsolatesCopies(t *testing.T) {
	ctx := context.Background()
	s := New().Matches

	m := &models.Match{ID: "m1", Player1ID: 1, Player2ID: 2, GameState: []byte(`{"a":1}`)}
	require.NoError(t, s.Create(ctx, m))

	loaded, err := s.FindByID(ctx, "m1")
	require.NoError(t, err)
	loaded.GameState[0] = 'x'

	again, err := s.FindByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(again.GameState))

	loaded.Player1Score = 10
	require.NoError(t, s.Update(ctx, loaded, 0))
	assert.ErrorIs(t, s.Update(ctx, again, 0), store.ErrVersionConflict)
}

func TestQueueDeleteIfMatchesEnqueuedAt(t *testing.T) {
	ctx := context.Background()
	q := New().Queue
	now := time.Now()

	observed := models.QueueEntry{PlayerID: 1, Category: models.CategoryTranslation, Status: models.QueueStatusSearching, EnqueuedAt: now}
	require.NoError(t, q.Upsert(ctx, &observed))
	fresh := observed
	fresh.EnqueuedAt = now.Add(time.Minute)
	require.NoError(t, q.Upsert(ctx, &fresh))

	ok, err := q.DeleteIf(ctx, observed)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = q.Find(ctx, 1)
	require.NoError(t, err)

	ok, err = q.DeleteIf(ctx, fresh)
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = q.Find(ctx, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
