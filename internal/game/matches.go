package game

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/neuroforge/backend/internal/apperr"
	"github.com/neuroforge/backend/internal/logging"
	"github.com/neuroforge/backend/internal/models"
	"github.com/neuroforge/backend/internal/retry"
	"github.com/neuroforge/backend/internal/store"
)

type DuelOptions struct {
	Retry          retry.Policy
	RoundTimeLimit time.Duration
	Now            func() time.Time
	Jitter         Jitter
}

// Duels owns match records and drives their session state.
type Duels struct {
	matches    store.MatchStore
	players    store.PlayerStore
	events     Broadcaster
	policy     retry.Policy
	roundLimit time.Duration
	now        func() time.Time
	jitter     Jitter
	log        *zap.Logger
}

func NewDuels(matches store.MatchStore, players store.PlayerStore, events Broadcaster, opts DuelOptions) *Duels {
	if events == nil {
		events = NopBroadcaster{}
	}
	if opts.RoundTimeLimit <= 0 {
		opts.RoundTimeLimit = DefaultRoundTimeLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Jitter == nil {
		opts.Jitter = rand.IntN
	}
	return &Duels{
		matches:    matches,
		players:    players,
		events:     events,
		policy:     opts.Retry,
		roundLimit: opts.RoundTimeLimit,
		now:        opts.Now,
		jitter:     opts.Jitter,
		log:        logging.Named("duel"),
	}
}

// MatchView is the client-facing shape of a match
type MatchView struct {
	ID             string     `json:"id"`
	Category       string     `json:"category"`
	Player1ID      int64      `json:"player1_id"`
	Player2ID      int64      `json:"player2_id"`
	Player1ModelID int64      `json:"player1_model_id"`
	Player2ModelID int64      `json:"player2_model_id"`
	Player1Score   int        `json:"player1_score"`
	Player2Score   int        `json:"player2_score"`
	WinnerID       *int64     `json:"winner_id"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at"`
	State          *DuelState `json:"state,omitempty"`
}

func NewMatchView(m *models.Match, st *DuelState) MatchView {
	v := MatchView{
		ID:             m.ID,
		Category:       m.Category,
		Player1ID:      m.Player1ID,
		Player2ID:      m.Player2ID,
		Player1ModelID: m.Player1ModelID,
		Player2ModelID: m.Player2ModelID,
		Player1Score:   m.Player1Score,
		Player2Score:   m.Player2Score,
		StartedAt:      m.StartedAt,
	}
	if m.WinnerID.Valid {
		w := m.WinnerID.Int64
		v.WinnerID = &w
	}
	if m.EndedAt.Valid {
		e := m.EndedAt.Time
		v.EndedAt = &e
	}
	if st != nil {
		v.State = st.Public()
	}
	return v
}

// CreateMatch records a new match for two paired queue entries with a fresh
// session state for their category.
func (d *Duels) CreateMatch(ctx context.Context, a, b models.QueueEntry) (*models.Match, error) {
	rules, ok := rulesets[a.Category]
	if !ok {
		return nil, apperr.Validation("unsupported category %q", a.Category)
	}

	st := &DuelState{
		Category:       a.Category,
		Status:         StatusNotStarted,
		TotalRounds:    rules.rounds,
		Player1ID:      a.PlayerID,
		Player2ID:      b.PlayerID,
		Player1Rounds:  []Submission{},
		Player2Rounds:  []Submission{},
		RoundLimitSecs: int(d.roundLimit / time.Second),
	}
	rules.setup(st)

	blob, err := encodeState(st)
	if err != nil {
		return nil, err
	}
	m := &models.Match{
		ID:             uuid.NewString(),
		Category:       a.Category,
		Player1ID:      a.PlayerID,
		Player2ID:      b.PlayerID,
		Player1ModelID: a.ModelID,
		Player2ModelID: b.ModelID,
		StartedAt:      d.now(),
		GameState:      blob,
	}
	if err := d.matches.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}

	d.log.Info("match created",
		zap.String("match_id", m.ID), zap.String("category", m.Category),
		zap.Int64("player1", m.Player1ID), zap.Int64("player2", m.Player2ID))
	return m, nil
}

func (d *Duels) load(ctx context.Context, matchID string) (*models.Match, *DuelState, error) {
	m, err := d.matches.FindByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, apperr.NotFound("match %s not found", matchID)
		}
		return nil, nil, fmt.Errorf("find match: %w", err)
	}
	st, err := decodeState(m.GameState)
	if err != nil {
		return nil, nil, err
	}
	return m, st, nil
}

// save writes st into m conditioned on the version m was loaded at.
func (d *Duels) save(ctx context.Context, m *models.Match, st *DuelState) error {
	blob, err := encodeState(st)
	if err != nil {
		return err
	}
	m.GameState = blob
	return d.matches.Update(ctx, m, m.Version)
}

// Get returns the match and its full session state, for resync.
func (d *Duels) Get(ctx context.Context, matchID string) (*models.Match, *DuelState, error) {
	return d.load(ctx, matchID)
}

func (d *Duels) History(ctx context.Context, playerID int64, limit int) ([]models.Match, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return d.matches.ListByPlayer(ctx, playerID, limit)
}

func (d *Duels) Active(ctx context.Context, playerID int64) ([]models.Match, error) {
	return d.matches.ListActiveByPlayer(ctx, playerID)
}

// WinRate is wins over finished matches, 0 when none are finished.
func (d *Duels) WinRate(ctx context.Context, playerID int64) (float64, error) {
	wins, err := d.matches.CountWins(ctx, playerID)
	if err != nil {
		return 0, err
	}
	played, err := d.matches.CountPlayed(ctx, playerID)
	if err != nil {
		return 0, err
	}
	if played == 0 {
		return 0, nil
	}
	return float64(wins) / float64(played), nil
}

// Cancel removes an active match. Only participants may cancel.
func (d *Duels) Cancel(ctx context.Context, matchID string, requesterID int64) error {
	m, err := d.matches.FindByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("match %s not found", matchID)
		}
		return err
	}
	if !m.HasPlayer(requesterID) {
		return apperr.InvalidOwnership("player %d is not in match %s", requesterID, matchID)
	}
	if m.Ended() {
		return apperr.Conflict("match %s already finished", matchID)
	}
	if err := d.matches.Delete(ctx, matchID); err != nil {
		return fmt.Errorf("delete match: %w", err)
	}

	ev := NewEvent(EventMatchEnded, matchID, map[string]any{"cancelled_by": requesterID})
	d.events.PublishPlayer(m.Opponent(requesterID), ev)
	d.log.Info("match cancelled", zap.String("match_id", matchID), zap.Int64("by", requesterID))
	return nil
}

// Finish ends a match with an explicit result. winnerID 0 records a draw.
// A match that already ended is rejected, so ratings move at most once.
//
// Finish trusts its caller with the scores and is not exposed over HTTP;
// players finish duels by playing the last round through Submit.
func (d *Duels) Finish(ctx context.Context, matchID string, winnerID int64, score1, score2 int) (*models.Match, error) {
	m, err := retry.OnConflict(ctx, d.policy, func(ctx context.Context) (*models.Match, error) {
		m, st, err := d.load(ctx, matchID)
		if err != nil {
			return nil, err
		}
		if m.Ended() {
			return nil, apperr.Conflict("match %s already finished", matchID)
		}
		if winnerID != 0 && !m.HasPlayer(winnerID) {
			return nil, apperr.Validation("winner %d is not in match %s", winnerID, matchID)
		}

		st.Player1Score, st.Player2Score = score1, score2
		st.Status = StatusGameOver
		st.RoundStartedAt = nil
		st.WinnerID = winnerID
		m.Player1Score, m.Player2Score = score1, score2
		m.WinnerID = sql.NullInt64{Int64: winnerID, Valid: winnerID != 0}
		m.EndedAt = sql.NullTime{Time: d.now(), Valid: true}
		if err := d.save(ctx, m, st); err != nil {
			return nil, err
		}
		return m, nil
	})
	if err != nil {
		return nil, err
	}

	d.concluded(ctx, m)
	return m, nil
}

// finalize fills in the result of a duel whose last round just completed.
func (d *Duels) finalize(m *models.Match, st *DuelState, at time.Time) {
	m.Player1Score, m.Player2Score = st.Player1Score, st.Player2Score
	switch {
	case st.Player1Score > st.Player2Score:
		st.WinnerID = m.Player1ID
	case st.Player2Score > st.Player1Score:
		st.WinnerID = m.Player2ID
	default:
		st.WinnerID = 0
	}
	m.WinnerID = sql.NullInt64{Int64: st.WinnerID, Valid: st.WinnerID != 0}
	m.EndedAt = sql.NullTime{Time: at, Valid: true}
}

// concluded runs once, after the write that ended m succeeded.
func (d *Duels) concluded(ctx context.Context, m *models.Match) {
	delta := 0
	if m.WinnerID.Valid {
		winner := m.WinnerID.Int64
		loser := m.Opponent(winner)
		delta = RatingDelta(m.Player1Score, m.Player2Score)
		if err := d.players.AdjustRating(ctx, winner, delta); err != nil {
			d.log.Error("adjust winner rating", zap.String("match_id", m.ID), zap.Int64("player_id", winner), zap.Error(err))
		}
		if err := d.players.AdjustRating(ctx, loser, -delta); err != nil {
			d.log.Error("adjust loser rating", zap.String("match_id", m.ID), zap.Int64("player_id", loser), zap.Error(err))
		}
	}

	d.log.Info("match finished",
		zap.String("match_id", m.ID),
		zap.Int("player1_score", m.Player1Score), zap.Int("player2_score", m.Player2Score),
		zap.Int64("winner", m.WinnerID.Int64), zap.Int("rating_delta", delta))

	d.events.PublishMatch(m.ID, NewEvent(EventMatchEnded, m.ID, NewMatchView(m, nil)))
}
