package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/neuroforge/backend/internal/apperr"
	"github.com/neuroforge/backend/internal/logging"
	"github.com/neuroforge/backend/internal/models"
	"github.com/neuroforge/backend/internal/store"
)

type QueueOptions struct {
	BaseRange         int
	ExpansionStep     int
	ExpansionInterval time.Duration
	Timeout           time.Duration
	CleanupMargin     time.Duration
	Now               func() time.Time
}

func DefaultQueueOptions() QueueOptions {
	return QueueOptions{
		BaseRange:         100,
		ExpansionStep:     50,
		ExpansionInterval: 30 * time.Second,
		Timeout:           5 * time.Minute,
		CleanupMargin:     5 * time.Minute,
	}
}

// MatchCreator turns a claimed pair of queue entries into a match.
type MatchCreator interface {
	CreateMatch(ctx context.Context, a, b models.QueueEntry) (*models.Match, error)
}

// Matchmaker keeps the queue of players looking for a duel and pairs them
// on each tick.
type Matchmaker struct {
	queue   store.QueueStore
	players store.PlayerStore
	models  store.ModelStore
	creator MatchCreator
	events  Broadcaster
	opts    QueueOptions
	log     *zap.Logger
}

func NewMatchmaker(queue store.QueueStore, players store.PlayerStore, aiModels store.ModelStore,
	creator MatchCreator, events Broadcaster, opts QueueOptions) *Matchmaker {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if events == nil {
		events = NopBroadcaster{}
	}
	return &Matchmaker{
		queue:   queue,
		players: players,
		models:  aiModels,
		creator: creator,
		events:  events,
		opts:    opts,
		log:     logging.Named("matchmaker"),
	}
}

func (mm *Matchmaker) player(ctx context.Context, playerID int64) (*models.Player, error) {
	p, err := mm.players.FindByID(ctx, playerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("player %d not found", playerID)
	}
	if err != nil {
		return nil, fmt.Errorf("find player: %w", err)
	}
	return p, nil
}

// Join queues the player with one of their models. Joining again replaces
// the entry and restarts its wait.
func (mm *Matchmaker) Join(ctx context.Context, playerID, modelID int64, category string) (*models.QueueEntry, error) {
	if !SupportedCategory(category) {
		return nil, apperr.Validation("unsupported category %q", category)
	}
	p, err := mm.player(ctx, playerID)
	if err != nil {
		return nil, err
	}
	m, err := mm.models.FindByID(ctx, modelID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("model %d not found", modelID)
	}
	if err != nil {
		return nil, fmt.Errorf("find model: %w", err)
	}
	if m.OwnerID != playerID {
		return nil, apperr.InvalidOwnership("model %d does not belong to player %d", modelID, playerID)
	}

	entry := &models.QueueEntry{
		PlayerID:    playerID,
		ModelID:     modelID,
		Category:    category,
		SkillRating: p.SkillRating,
		Status:      models.QueueStatusSearching,
		EnqueuedAt:  mm.opts.Now(),
	}
	if err := mm.queue.Upsert(ctx, entry); err != nil {
		return nil, fmt.Errorf("queue player: %w", err)
	}

	mm.log.Info("player queued",
		zap.Int64("player_id", playerID), zap.Int64("model_id", modelID),
		zap.String("category", category), zap.Int("rating", p.SkillRating))
	return entry, nil
}

// Leave removes the player from the queue. Leaving when not queued is fine.
func (mm *Matchmaker) Leave(ctx context.Context, playerID int64) error {
	if _, err := mm.player(ctx, playerID); err != nil {
		return err
	}
	if err := mm.queue.Delete(ctx, playerID); err != nil {
		return fmt.Errorf("leave queue: %w", err)
	}
	mm.log.Info("player left queue", zap.Int64("player_id", playerID))
	return nil
}

// SearchRange is the rating tolerance after waiting for wait.
func (mm *Matchmaker) SearchRange(wait time.Duration) int {
	if wait < 0 || mm.opts.ExpansionInterval <= 0 {
		return mm.opts.BaseRange
	}
	steps := int(wait / mm.opts.ExpansionInterval)
	return mm.opts.BaseRange + steps*mm.opts.ExpansionStep
}
