package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuroforge/backend/internal/apperr"
	"github.com/neuroforge/backend/internal/models"
)

func TestCreateMatchStartsNotStarted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1, m1 := f.addPlayer(t, "ana", 1000)
	p2, m2 := f.addPlayer(t, "ben", 1000)

	m, err := f.duels.CreateMatch(ctx,
		models.QueueEntry{PlayerID: p1, ModelID: m1, Category: models.CategoryTranslation},
		models.QueueEntry{PlayerID: p2, ModelID: m2, Category: models.CategoryTranslation})
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)

	_, st, err := f.duels.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusNotStarted, st.Status)
	assert.Equal(t, 10, st.TotalRounds)
	require.NotNil(t, st.Translation)
	assert.Len(t, st.Translation.Phrases, 10)
	assert.NotEmpty(t, st.Translation.Phrases[0].Answer)

	_, err = f.duels.CreateMatch(ctx,
		models.QueueEntry{PlayerID: p1, Category: "CHESS"},
		models.QueueEntry{PlayerID: p2, Category: "CHESS"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestReadyTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1, m1 := f.addPlayer(t, "ana", 1000)
	p2, m2 := f.addPlayer(t, "ben", 1000)
	m, err := f.duels.CreateMatch(ctx,
		models.QueueEntry{PlayerID: p1, ModelID: m1, Category: models.CategoryOptimization},
		models.QueueEntry{PlayerID: p2, ModelID: m2, Category: models.CategoryOptimization})
	require.NoError(t, err)

	st, err := f.duels.Ready(ctx, m.ID, p1)
	require.NoError(t, err)
	assert.Equal(t, StatusWaitingForPlayers, st.Status)
	assert.Equal(t, 0, st.CurrentRound)

	// a second ready from the same player changes nothing
	st, err = f.duels.Ready(ctx, m.ID, p1)
	require.NoError(t, err)
	assert.Equal(t, StatusWaitingForPlayers, st.Status)
	assert.Equal(t, 1, f.events.matchEvents(m.ID, EventDuelState))

	st, err = f.duels.Ready(ctx, m.ID, p2)
	require.NoError(t, err)
	assert.Equal(t, StatusRoundInProgress, st.Status)
	assert.Equal(t, 1, st.CurrentRound)
	require.NotNil(t, st.RoundStartedAt)
	assert.True(t, st.RoundStartedAt.Equal(f.clock.Now()))

	_, err = f.duels.Ready(ctx, m.ID, 404)
	assert.True(t, errors.Is(err, apperr.ErrInvalidOwnership))

	_, err = f.duels.Ready(ctx, "missing", p1)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestSubmitBeforeStartIsDropped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1, m1 := f.addPlayer(t, "ana", 1000)
	p2, m2 := f.addPlayer(t, "ben", 1000)
	m, err := f.duels.CreateMatch(ctx,
		models.QueueEntry{PlayerID: p1, ModelID: m1, Category: models.CategoryTranslation},
		models.QueueEntry{PlayerID: p2, ModelID: m2, Category: models.CategoryTranslation})
	require.NoError(t, err)

	st, err := f.duels.Submit(ctx, m.ID, p1, 1, "hola")
	require.NoError(t, err)
	assert.Equal(t, StatusNotStarted, st.Status)
	assert.Empty(t, st.Player1Rounds)
	assert.Equal(t, 0, f.events.matchEvents(m.ID, EventDuelState))
}

func TestTranslationRoundFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, p1, p2 := f.startDuel(t, models.CategoryTranslation)
	published := f.events.matchEvents(m.ID, EventDuelState)

	st, err := f.duels.Submit(ctx, m.ID, p2, 1, "  "+phraseBank[0].Answer+" ")
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitingPlayer1, st.Status)
	assert.Equal(t, 100, st.Player2Score)
	assert.Empty(t, st.Translation.Phrases[0].Answer, "answers stay hidden from clients")

	// duplicate for the same round
	st, err = f.duels.Submit(ctx, m.ID, p2, 1, phraseBank[0].Answer)
	require.NoError(t, err)
	assert.Len(t, st.Player2Rounds, 1)
	assert.Equal(t, 100, st.Player2Score)

	// stale round number
	st, err = f.duels.Submit(ctx, m.ID, p1, 2, phraseBank[1].Answer)
	require.NoError(t, err)
	assert.Empty(t, st.Player1Rounds)

	f.clock.Advance(10 * time.Second)
	st, err = f.duels.Submit(ctx, m.ID, p1, 1, "wrong")
	require.NoError(t, err)
	assert.Equal(t, StatusRoundInProgress, st.Status)
	assert.Equal(t, 2, st.CurrentRound)
	assert.Equal(t, 0, st.Player1Score)
	assert.True(t, st.RoundStartedAt.Equal(f.clock.Now()))

	st, err = f.duels.Submit(ctx, m.ID, p1, 2, phraseBank[1].Answer)
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitingPlayer2, st.Status)

	assert.Equal(t, published+3, f.events.matchEvents(m.ID, EventDuelState))
}

func TestOptimizationDuelRunsToGameOver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, p1, p2 := f.startDuel(t, models.CategoryOptimization)

	var st *DuelState
	var err error
	for round := 1; round <= 5; round++ {
		_, err = f.duels.Submit(ctx, m.ID, p1, round, "return arr")
		require.NoError(t, err)
		st, err = f.duels.Submit(ctx, m.ID, p2, round, optimizationBaseline)
		require.NoError(t, err)
	}

	assert.Equal(t, StatusGameOver, st.Status)
	assert.Equal(t, p1, st.WinnerID)
	assert.Equal(t, 5*74, st.Player1Score)
	assert.Greater(t, st.Player1Score, st.Player2Score)
	assert.Nil(t, st.RoundStartedAt)

	ended, _, err := f.duels.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, ended.Ended())
	assert.Equal(t, p1, ended.WinnerID.Int64)
	assert.Equal(t, st.Player1Score, ended.Player1Score)

	delta := RatingDelta(st.Player1Score, st.Player2Score)
	assert.Equal(t, 37, delta)
	assert.Equal(t, 1000+delta, f.rating(t, p1))
	assert.Equal(t, 1000-delta, f.rating(t, p2))
	assert.Equal(t, 1, f.events.matchEvents(m.ID, EventMatchEnded))

	// the result is final: further submissions and Finish leave ratings alone
	st, err = f.duels.Submit(ctx, m.ID, p2, 5, "return arr")
	require.NoError(t, err)
	assert.Equal(t, StatusGameOver, st.Status)

	_, err = f.duels.Finish(ctx, m.ID, p2, 0, 500)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.Equal(t, 1000+delta, f.rating(t, p1))
	assert.Equal(t, 1000-delta, f.rating(t, p2))

	active, err := f.duels.Active(ctx, p1)
	require.NoError(t, err)
	assert.Empty(t, active)
	history, err := f.duels.History(ctx, p1, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestDrawLeavesRatings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, p1, p2 := f.startDuel(t, models.CategoryTranslation)

	var st *DuelState
	var err error
	for round := 1; round <= 10; round++ {
		_, err = f.duels.Submit(ctx, m.ID, p1, round, "no idea")
		require.NoError(t, err)
		st, err = f.duels.Submit(ctx, m.ID, p2, round, "no idea")
		require.NoError(t, err)
	}

	assert.Equal(t, StatusGameOver, st.Status)
	assert.Zero(t, st.WinnerID)
	assert.Equal(t, 1000, f.rating(t, p1))
	assert.Equal(t, 1000, f.rating(t, p2))

	ended, _, err := f.duels.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, ended.Ended())
	assert.False(t, ended.WinnerID.Valid)
}

func TestConcurrentSubmissionsBothCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, p1, p2 := f.startDuel(t, models.CategoryTranslation)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, p := range []int64{p1, p2} {
		wg.Add(1)
		go func(i int, p int64) {
			defer wg.Done()
			_, errs[i] = f.duels.Submit(ctx, m.ID, p, 1, phraseBank[0].Answer)
		}(i, p)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	_, st, err := f.duels.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, st.CurrentRound)
	assert.Equal(t, StatusRoundInProgress, st.Status)
	assert.Equal(t, 100, st.Player1Score)
	assert.Equal(t, 100, st.Player2Score)
}

func TestFinishExplicitResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, p1, p2 := f.startDuel(t, models.CategoryTranslation)

	_, err := f.duels.Finish(ctx, m.ID, 404, 1, 0)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	ended, err := f.duels.Finish(ctx, m.ID, p2, 8, 10)
	require.NoError(t, err)
	assert.Equal(t, p2, ended.WinnerID.Int64)
	assert.Equal(t, 1000+25, f.rating(t, p2))
	assert.Equal(t, 1000-25, f.rating(t, p1))

	_, err = f.duels.Finish(ctx, m.ID, 0, 0, 0)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.Equal(t, 1025, f.rating(t, p2))
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, p1, p2 := f.startDuel(t, models.CategoryTranslation)

	err := f.duels.Cancel(ctx, m.ID, 404)
	assert.True(t, errors.Is(err, apperr.ErrInvalidOwnership))

	require.NoError(t, f.duels.Cancel(ctx, m.ID, p1))
	assert.Equal(t, 1, f.events.playerEvents(p2, EventMatchEnded))

	_, _, err = f.duels.Get(ctx, m.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	err = f.duels.Cancel(ctx, m.ID, p1)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	finished, q1, _ := f.startDuel(t, models.CategoryOptimization)
	_, err = f.duels.Finish(ctx, finished.ID, 0, 0, 0)
	require.NoError(t, err)
	err = f.duels.Cancel(ctx, finished.ID, q1)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestWinRate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1, m1 := f.addPlayer(t, "ana", 1000)
	p2, m2 := f.addPlayer(t, "ben", 1000)

	rate, err := f.duels.WinRate(ctx, p1)
	require.NoError(t, err)
	assert.Zero(t, rate)

	newMatch := func() string {
		m, err := f.duels.CreateMatch(ctx,
			models.QueueEntry{PlayerID: p1, ModelID: m1, Category: models.CategoryTranslation},
			models.QueueEntry{PlayerID: p2, ModelID: m2, Category: models.CategoryTranslation})
		require.NoError(t, err)
		return m.ID
	}
	for _, winner := range []int64{p1, p2, p1, p1} {
		_, err := f.duels.Finish(ctx, newMatch(), winner, 20, 5)
		require.NoError(t, err)
	}
	newMatch() // still active, not counted

	rate, err = f.duels.WinRate(ctx, p1)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, rate, 1e-9)
}

func TestPublishedStatesCarryIncreasingVersions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, p1, p2 := f.startDuel(t, models.CategoryTranslation)

	_, err := f.duels.Submit(ctx, m.ID, p1, 1, phraseBank[0].Answer)
	require.NoError(t, err)
	_, err = f.duels.Submit(ctx, m.ID, p2, 1, "wrong")
	require.NoError(t, err)

	f.events.mu.Lock()
	published := append([]Event(nil), f.events.matches[m.ID]...)
	f.events.mu.Unlock()

	var last int64
	states := 0
	for _, ev := range published {
		if ev.Type != EventDuelState {
			continue
		}
		states++
		assert.Greater(t, ev.Version, last)
		last = ev.Version
	}
	assert.Equal(t, 4, states)

	stored, _, err := f.duels.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.Version, last)
}
