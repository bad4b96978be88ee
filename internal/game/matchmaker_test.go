package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuroforge/backend/internal/apperr"
	"github.com/neuroforge/backend/internal/models"
	"github.com/neuroforge/backend/internal/store"
)

func queued(t *testing.T, f *fixture) []models.QueueEntry {
	t.Helper()
	list, err := f.stores.Queue.ListSearching(context.Background())
	require.NoError(t, err)
	return list
}

func activeMatches(t *testing.T, f *fixture) []models.Match {
	t.Helper()
	list, err := f.stores.Matches.ListActive(context.Background())
	require.NoError(t, err)
	return list
}

func TestTickPairsWithinBaseRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, am := f.addPlayer(t, "ana", 1000)
	b, bm := f.addPlayer(t, "ben", 1050)

	_, err := f.mm.Join(ctx, a, am, models.CategoryTranslation)
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	_, err = f.mm.Join(ctx, b, bm, models.CategoryTranslation)
	require.NoError(t, err)

	assert.Equal(t, 1, f.mm.Tick(ctx))
	assert.Empty(t, queued(t, f))

	matches := activeMatches(t, f)
	require.Len(t, matches, 1)
	assert.Equal(t, a, matches[0].Player1ID)
	assert.Equal(t, b, matches[0].Player2ID)
	assert.Equal(t, am, matches[0].Player1ModelID)
	assert.Equal(t, models.CategoryTranslation, matches[0].Category)

	assert.Equal(t, 1, f.events.playerEvents(a, EventMatchFound))
	assert.Equal(t, 1, f.events.playerEvents(b, EventMatchFound))
}

func TestTickEvictsTimedOutEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, am := f.addPlayer(t, "ana", 1000)

	_, err := f.mm.Join(ctx, a, am, models.CategoryOptimization)
	require.NoError(t, err)

	f.clock.Advance(5*time.Minute + time.Second)
	// a late joiner in range must not be paired with the expired entry
	b, bm := f.addPlayer(t, "ben", 1000)
	_, err = f.mm.Join(ctx, b, bm, models.CategoryOptimization)
	require.NoError(t, err)

	assert.Equal(t, 0, f.mm.Tick(ctx))

	list := queued(t, f)
	require.Len(t, list, 1)
	assert.Equal(t, b, list[0].PlayerID)
	assert.Empty(t, activeMatches(t, f))
	assert.Equal(t, 1, f.events.playerEvents(a, EventQueueTimeout))
}

func TestSearchRangeWidensWithWait(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, am := f.addPlayer(t, "ana", 1000)
	b, bm := f.addPlayer(t, "ben", 1200)

	_, err := f.mm.Join(ctx, a, am, models.CategoryTranslation)
	require.NoError(t, err)
	_, err = f.mm.Join(ctx, b, bm, models.CategoryTranslation)
	require.NoError(t, err)

	assert.Equal(t, 0, f.mm.Tick(ctx))
	f.clock.Advance(30 * time.Second)
	assert.Equal(t, 0, f.mm.Tick(ctx))
	f.clock.Advance(30 * time.Second)
	assert.Equal(t, 1, f.mm.Tick(ctx))

	assert.Equal(t, 100, f.mm.SearchRange(0))
	assert.Equal(t, 100, f.mm.SearchRange(29*time.Second))
	assert.Equal(t, 250, f.mm.SearchRange(95*time.Second))
}

func TestTickKeepsCategoriesApart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, am := f.addPlayer(t, "ana", 1000)
	b, bm := f.addPlayer(t, "ben", 1000)

	_, err := f.mm.Join(ctx, a, am, models.CategoryTranslation)
	require.NoError(t, err)
	_, err = f.mm.Join(ctx, b, bm, models.CategoryOptimization)
	require.NoError(t, err)

	assert.Equal(t, 0, f.mm.Tick(ctx))
	assert.Len(t, queued(t, f), 2)
}

func TestTickPairsOldestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, am := f.addPlayer(t, "ana", 1000)
	b, bm := f.addPlayer(t, "ben", 1020)
	c, cm := f.addPlayer(t, "cat", 1005)

	for _, j := range []struct{ p, m int64 }{{a, am}, {b, bm}, {c, cm}} {
		_, err := f.mm.Join(ctx, j.p, j.m, models.CategoryTranslation)
		require.NoError(t, err)
		f.clock.Advance(time.Second)
	}

	assert.Equal(t, 1, f.mm.Tick(ctx))

	// first compatible, not closest: ana pairs with ben even though cat is nearer
	matches := activeMatches(t, f)
	require.Len(t, matches, 1)
	assert.Equal(t, a, matches[0].Player1ID)
	assert.Equal(t, b, matches[0].Player2ID)

	list := queued(t, f)
	require.Len(t, list, 1)
	assert.Equal(t, c, list[0].PlayerID)
}

func TestJoinValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, am := f.addPlayer(t, "ana", 1000)
	_, bm := f.addPlayer(t, "ben", 1000)

	_, err := f.mm.Join(ctx, 404, am, models.CategoryTranslation)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = f.mm.Join(ctx, a, 404, models.CategoryTranslation)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = f.mm.Join(ctx, a, bm, models.CategoryTranslation)
	assert.True(t, errors.Is(err, apperr.ErrInvalidOwnership))

	_, err = f.mm.Join(ctx, a, am, "CHESS")
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	assert.Empty(t, queued(t, f))
}

func TestJoinAgainRefreshesEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, am := f.addPlayer(t, "ana", 1000)

	first, err := f.mm.Join(ctx, a, am, models.CategoryTranslation)
	require.NoError(t, err)
	f.clock.Advance(4 * time.Minute)
	second, err := f.mm.Join(ctx, a, am, models.CategoryOptimization)
	require.NoError(t, err)

	list := queued(t, f)
	require.Len(t, list, 1)
	assert.True(t, list[0].EnqueuedAt.Equal(second.EnqueuedAt))
	assert.True(t, second.EnqueuedAt.After(first.EnqueuedAt))
	assert.Equal(t, models.CategoryOptimization, list[0].Category)
}

func TestLeave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, am := f.addPlayer(t, "ana", 1000)

	require.NoError(t, f.mm.Leave(ctx, a))

	_, err := f.mm.Join(ctx, a, am, models.CategoryTranslation)
	require.NoError(t, err)
	require.NoError(t, f.mm.Leave(ctx, a))
	assert.Empty(t, queued(t, f))

	err = f.mm.Leave(ctx, 404)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestCleanupStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, am := f.addPlayer(t, "ana", 1000)
	b, bm := f.addPlayer(t, "ben", 1000)

	_, err := f.mm.Join(ctx, a, am, models.CategoryTranslation)
	require.NoError(t, err)
	f.clock.Advance(8 * time.Minute)
	_, err = f.mm.Join(ctx, b, bm, models.CategoryOptimization)
	require.NoError(t, err)
	f.clock.Advance(3 * time.Minute)

	assert.Equal(t, int64(1), f.mm.CleanupStale(ctx))
	list := queued(t, f)
	require.Len(t, list, 1)
	assert.Equal(t, b, list[0].PlayerID)
}

type losingClaims struct {
	store.QueueStore
}

func (losingClaims) ClaimPair(context.Context, models.QueueEntry, models.QueueEntry) (bool, error) {
	return false, nil
}

func TestTickSkipsPairClaimedElsewhere(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mm.queue = losingClaims{f.stores.Queue}
	a, am := f.addPlayer(t, "ana", 1000)
	b, bm := f.addPlayer(t, "ben", 1000)

	_, err := f.mm.Join(ctx, a, am, models.CategoryTranslation)
	require.NoError(t, err)
	_, err = f.mm.Join(ctx, b, bm, models.CategoryTranslation)
	require.NoError(t, err)

	assert.Equal(t, 0, f.mm.Tick(ctx))
	assert.Empty(t, activeMatches(t, f))
	assert.Len(t, queued(t, f), 2)
}

type failingCreator struct{}

func (failingCreator) CreateMatch(context.Context, models.QueueEntry, models.QueueEntry) (*models.Match, error) {
	return nil, errors.New("db down")
}

func TestTickRequeuesWhenMatchCreationFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mm.creator = failingCreator{}
	a, am := f.addPlayer(t, "ana", 1000)
	b, bm := f.addPlayer(t, "ben", 1000)

	_, err := f.mm.Join(ctx, a, am, models.CategoryTranslation)
	require.NoError(t, err)
	_, err = f.mm.Join(ctx, b, bm, models.CategoryTranslation)
	require.NoError(t, err)

	assert.Equal(t, 0, f.mm.Tick(ctx))
	assert.Len(t, queued(t, f), 2)
}

// rejoinAfterList runs rejoin once, after the tick has taken its snapshot.
type rejoinAfterList struct {
	store.QueueStore
	rejoin func()
}

func (q *rejoinAfterList) ListSearching(ctx context.Context) ([]models.QueueEntry, error) {
	list, err := q.QueueStore.ListSearching(ctx)
	if q.rejoin != nil {
		q.rejoin()
		q.rejoin = nil
	}
	return list, err
}

func TestTickKeepsEntryRefreshedDuringTick(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, am := f.addPlayer(t, "ana", 1000)

	_, err := f.mm.Join(ctx, a, am, models.CategoryTranslation)
	require.NoError(t, err)
	f.clock.Advance(6 * time.Minute)

	f.mm.queue = &rejoinAfterList{
		QueueStore: f.stores.Queue,
		rejoin: func() {
			_, err := f.mm.Join(ctx, a, am, models.CategoryTranslation)
			require.NoError(t, err)
		},
	}

	assert.Equal(t, 0, f.mm.Tick(ctx))

	e, err := f.stores.Queue.Find(ctx, a)
	require.NoError(t, err)
	assert.True(t, e.EnqueuedAt.Equal(f.clock.Now()))
	assert.Zero(t, f.events.playerEvents(a, EventQueueTimeout))
}
