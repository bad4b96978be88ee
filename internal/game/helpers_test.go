package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/neuroforge/backend/internal/models"
	"github.com/neuroforge/backend/internal/retry"
	"github.com/neuroforge/backend/internal/store"
	"github.com/neuroforge/backend/internal/store/memory"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu      sync.Mutex
	matches map[string][]Event
	players map[int64][]Event
}

func newRecorder() *recorder {
	return &recorder{matches: map[string][]Event{}, players: map[int64][]Event{}}
}

func (r *recorder) PublishMatch(matchID string, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches[matchID] = append(r.matches[matchID], ev)
}

func (r *recorder) PublishPlayer(playerID int64, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players[playerID] = append(r.players[playerID], ev)
}

func (r *recorder) matchEvents(matchID, eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.matches[matchID] {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

func (r *recorder) playerEvents(playerID int64, eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.players[playerID] {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

type fixture struct {
	stores store.Stores
	clock  *clock
	events *recorder
	duels  *Duels
	mm     *Matchmaker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	stores := memory.New()
	c := &clock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	rec := newRecorder()

	duels := NewDuels(stores.Matches, stores.Players, rec, DuelOptions{
		Retry:  retry.Policy{MaxAttempts: 50, InitialInterval: time.Microsecond, MaxInterval: time.Millisecond},
		Now:    c.Now,
		Jitter: func(int) int { return 0 },
	})
	opts := DefaultQueueOptions()
	opts.Now = c.Now
	mm := NewMatchmaker(stores.Queue, stores.Players, stores.Models, duels, rec, opts)

	return &fixture{stores: stores, clock: c, events: rec, duels: duels, mm: mm}
}

// addPlayer creates a player with one model and returns both ids.
func (f *fixture) addPlayer(t *testing.T, name string, rating int) (int64, int64) {
	t.Helper()
	ctx := context.Background()
	p := &models.Player{Username: name, SkillRating: rating}
	require.NoError(t, f.stores.Players.Create(ctx, p))
	m := &models.AIModel{OwnerID: p.ID, Name: name + "-net"}
	require.NoError(t, f.stores.Models.Create(ctx, m))
	return p.ID, m.ID
}

func (f *fixture) rating(t *testing.T, playerID int64) int {
	t.Helper()
	p, err := f.stores.Players.FindByID(context.Background(), playerID)
	require.NoError(t, err)
	return p.SkillRating
}

// startDuel creates a match between two fresh players and readies both.
func (f *fixture) startDuel(t *testing.T, category string) (*models.Match, int64, int64) {
	t.Helper()
	ctx := context.Background()
	p1, m1 := f.addPlayer(t, "p1-"+category, 1000)
	p2, m2 := f.addPlayer(t, "p2-"+category, 1000)

	match, err := f.duels.CreateMatch(ctx,
		models.QueueEntry{PlayerID: p1, ModelID: m1, Category: category},
		models.QueueEntry{PlayerID: p2, ModelID: m2, Category: category})
	require.NoError(t, err)

	_, err = f.duels.Ready(ctx, match.ID, p1)
	require.NoError(t, err)
	st, err := f.duels.Ready(ctx, match.ID, p2)
	require.NoError(t, err)
	require.Equal(t, StatusRoundInProgress, st.Status)
	return match, p1, p2
}
