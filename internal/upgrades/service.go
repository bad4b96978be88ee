package upgrades

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/neuroforge/backend/internal/apperr"
	"github.com/neuroforge/backend/internal/logging"
	"github.com/neuroforge/backend/internal/models"
	"github.com/neuroforge/backend/internal/retry"
	"github.com/neuroforge/backend/internal/store"
)

// cancelRefundRate is the share of the unspent cost returned on cancel.
const cancelRefundRate = 0.8

// Wallet is the part of the ledger the upgrade timer pays with.
type Wallet interface {
	SpendCredits(ctx context.Context, playerID, amount int64) (bool, error)
	SpendResearchPoints(ctx context.Context, playerID, amount int64) (bool, error)
	AddCredits(ctx context.Context, playerID, amount int64) (*models.Wallet, error)
	AddResearchPoints(ctx context.Context, playerID, amount int64) (*models.Wallet, error)
}

type Options struct {
	Table                  Table
	SpeedUpPointsPerMinute int64
	Retry                  retry.Policy
	Now                    func() time.Time
}

type Service struct {
	records store.UpgradeStore
	players store.PlayerStore
	wallet  Wallet
	table   Table
	rate    int64
	policy  retry.Policy
	now     func() time.Time
	log     *zap.Logger
}

func NewService(records store.UpgradeStore, players store.PlayerStore, wallet Wallet, opts Options) *Service {
	if opts.Table == nil {
		opts.Table = DefaultTable()
	}
	if opts.SpeedUpPointsPerMinute <= 0 {
		opts.SpeedUpPointsPerMinute = 10
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		records: records,
		players: players,
		wallet:  wallet,
		table:   opts.Table,
		rate:    opts.SpeedUpPointsPerMinute,
		policy:  opts.Retry,
		now:     opts.Now,
		log:     logging.Named("upgrades"),
	}
}

// LevelInfo describes a record together with its next step.
type LevelInfo struct {
	Category         string     `json:"category"`
	Status           string     `json:"status"`
	CurrentLevel     int        `json:"current_level"`
	NextLevel        int        `json:"next_level,omitempty"`
	Cost             int64      `json:"cost,omitempty"`
	DurationMinutes  int        `json:"duration_minutes,omitempty"`
	IsMaxLevel       bool       `json:"is_max_level"`
	FinishAt         *time.Time `json:"finish_at,omitempty"`
	RemainingSeconds int64      `json:"remaining_seconds"`
}

func (s *Service) Describe(rec *models.UpgradeRecord) LevelInfo {
	info := LevelInfo{
		Category:     rec.Category,
		Status:       rec.Status,
		CurrentLevel: rec.Level,
		IsMaxLevel:   rec.Level >= s.table.MaxLevel(rec.Category),
	}
	if step, ok := s.table.Next(rec.Category, rec.Level); ok {
		info.NextLevel = rec.Level + 1
		info.Cost = step.Cost
		info.DurationMinutes = int(step.Duration / time.Minute)
	}
	if rec.Upgrading() && rec.FinishAt.Valid {
		finish := rec.FinishAt.Time
		info.FinishAt = &finish
		info.RemainingSeconds = int64(s.remaining(rec) / time.Second)
	}
	return info
}

func (s *Service) checkCategory(category string) error {
	if !s.table.Has(category) {
		return apperr.Validation("unknown upgrade category %q", category)
	}
	return nil
}

// record loads the player's record for category, creating an idle level-1
// record the first time it is asked for.
func (s *Service) record(ctx context.Context, playerID int64, category string) (*models.UpgradeRecord, error) {
	rec, err := s.records.Find(ctx, playerID, category)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("find upgrade: %w", err)
	}

	if _, err := s.players.FindByID(ctx, playerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("player %d not found", playerID)
		}
		return nil, fmt.Errorf("find player: %w", err)
	}

	rec = &models.UpgradeRecord{
		PlayerID: playerID,
		Category: category,
		Level:    1,
		Status:   models.UpgradeStatusIdle,
	}
	err = s.records.Create(ctx, rec)
	if errors.Is(err, store.ErrAlreadyExists) {
		return s.records.Find(ctx, playerID, category)
	}
	if err != nil {
		return nil, fmt.Errorf("create upgrade: %w", err)
	}
	return rec, nil
}

// Get returns the record for one category.
func (s *Service) Get(ctx context.Context, playerID int64, category string) (*models.UpgradeRecord, error) {
	if err := s.checkCategory(category); err != nil {
		return nil, err
	}
	return s.record(ctx, playerID, category)
}

// List returns one record per category, creating missing ones.
func (s *Service) List(ctx context.Context, playerID int64) ([]models.UpgradeRecord, error) {
	out := make([]models.UpgradeRecord, 0, len(s.table))
	for _, category := range s.table.Categories() {
		rec, err := s.record(ctx, playerID, category)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

// Start pays for the next level and starts its timer. The credits are spent
// before the record changes; if the record cannot be written they are
// refunded.
func (s *Service) Start(ctx context.Context, playerID int64, category string) (*models.UpgradeRecord, error) {
	rec, err := s.Get(ctx, playerID, category)
	if err != nil {
		return nil, err
	}
	if rec.Upgrading() {
		return nil, apperr.Conflict("%s upgrade already in progress", category)
	}
	step, ok := s.table.Next(category, rec.Level)
	if !ok {
		return nil, apperr.Conflict("%s is already at max level %d", category, rec.Level)
	}

	paid, err := s.wallet.SpendCredits(ctx, playerID, step.Cost)
	if err != nil {
		return nil, err
	}
	if !paid {
		return nil, apperr.Insufficient("%s level %d costs %d credits", category, rec.Level+1, step.Cost)
	}

	now := s.now()
	expected := rec.Version
	rec.Status = models.UpgradeStatusUpgrading
	rec.StartedAt = sql.NullTime{Time: now, Valid: true}
	rec.FinishAt = sql.NullTime{Time: now.Add(step.Duration), Valid: true}
	if err := s.records.Save(ctx, rec, expected); err != nil {
		s.refund(ctx, playerID, step.Cost, 0)
		if errors.Is(err, store.ErrVersionConflict) {
			return nil, apperr.Conflict("%s upgrade changed concurrently", category)
		}
		return nil, fmt.Errorf("save upgrade: %w", err)
	}

	s.log.Info("upgrade started",
		zap.Int64("player_id", playerID), zap.String("category", category),
		zap.Int("to_level", rec.Level+1), zap.Time("finish_at", rec.FinishAt.Time))
	return rec, nil
}

// SpeedUp spends research points to pull the finish time forward, never
// past now.
func (s *Service) SpeedUp(ctx context.Context, playerID int64, category string, minutes int) (*models.UpgradeRecord, error) {
	if minutes <= 0 {
		return nil, apperr.Validation("minutes must be positive")
	}
	rec, err := s.Get(ctx, playerID, category)
	if err != nil {
		return nil, err
	}
	if !rec.Upgrading() {
		return nil, apperr.Conflict("no %s upgrade in progress", category)
	}

	cost := int64(minutes) * s.rate
	paid, err := s.wallet.SpendResearchPoints(ctx, playerID, cost)
	if err != nil {
		return nil, err
	}
	if !paid {
		return nil, apperr.Insufficient("speeding up %d minutes costs %d research points", minutes, cost)
	}

	now := s.now()
	finish := rec.FinishAt.Time.Add(-time.Duration(minutes) * time.Minute)
	if finish.Before(now) {
		finish = now
	}
	expected := rec.Version
	rec.FinishAt = sql.NullTime{Time: finish, Valid: true}
	if err := s.records.Save(ctx, rec, expected); err != nil {
		s.refund(ctx, playerID, 0, cost)
		if errors.Is(err, store.ErrVersionConflict) {
			return nil, apperr.Conflict("%s upgrade changed concurrently", category)
		}
		return nil, fmt.Errorf("save upgrade: %w", err)
	}

	s.log.Info("upgrade sped up",
		zap.Int64("player_id", playerID), zap.String("category", category),
		zap.Int("minutes", minutes), zap.Int64("research_points", cost))
	return rec, nil
}

// Cancel stops a running upgrade and returns part of the unspent cost.
func (s *Service) Cancel(ctx context.Context, playerID int64, category string) (int64, error) {
	rec, err := s.Get(ctx, playerID, category)
	if err != nil {
		return 0, err
	}
	if !rec.Upgrading() {
		return 0, apperr.Conflict("no %s upgrade in progress", category)
	}
	step, ok := s.table.Next(category, rec.Level)
	if !ok {
		return 0, apperr.Conflict("%s has no step from level %d", category, rec.Level)
	}

	refund := cancelRefund(step, s.remaining(rec))

	expected := rec.Version
	rec.Status = models.UpgradeStatusIdle
	rec.StartedAt = sql.NullTime{}
	rec.FinishAt = sql.NullTime{}
	if err := s.records.Save(ctx, rec, expected); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return 0, apperr.Conflict("%s upgrade changed concurrently", category)
		}
		return 0, fmt.Errorf("save upgrade: %w", err)
	}
	s.refund(ctx, playerID, refund, 0)

	s.log.Info("upgrade cancelled",
		zap.Int64("player_id", playerID), zap.String("category", category), zap.Int64("refund", refund))
	return refund, nil
}

func cancelRefund(step Step, remaining time.Duration) int64 {
	total := int64(step.Duration / time.Minute)
	if total <= 0 {
		return 0
	}
	left := int64(remaining / time.Minute)
	return int64(float64(step.Cost) * float64(left) / float64(total) * cancelRefundRate)
}

// Remaining is zero for idle records and for upgrades past their finish
// time that the sweep has not reached yet.
func (s *Service) Remaining(ctx context.Context, playerID int64, category string) (time.Duration, error) {
	rec, err := s.Get(ctx, playerID, category)
	if err != nil {
		return 0, err
	}
	return s.remaining(rec), nil
}

func (s *Service) remaining(rec *models.UpgradeRecord) time.Duration {
	if !rec.Upgrading() || !rec.FinishAt.Valid {
		return 0
	}
	left := rec.FinishAt.Time.Sub(s.now())
	if left < 0 {
		return 0
	}
	return left
}

func (s *Service) NextLevelInfo(ctx context.Context, playerID int64, category string) (LevelInfo, error) {
	rec, err := s.Get(ctx, playerID, category)
	if err != nil {
		return LevelInfo{}, err
	}
	return s.Describe(rec), nil
}

// CompleteNow finishes a running upgrade regardless of its finish time.
// Idle records are returned unchanged.
func (s *Service) CompleteNow(ctx context.Context, playerID int64, category string) (*models.UpgradeRecord, error) {
	if err := s.checkCategory(category); err != nil {
		return nil, err
	}
	return retry.OnConflict(ctx, s.policy, func(ctx context.Context) (*models.UpgradeRecord, error) {
		rec, err := s.record(ctx, playerID, category)
		if err != nil {
			return nil, err
		}
		if !rec.Upgrading() {
			return rec, nil
		}
		if err := s.complete(ctx, rec); err != nil {
			return nil, err
		}
		return rec, nil
	})
}

func (s *Service) complete(ctx context.Context, rec *models.UpgradeRecord) error {
	expected := rec.Version
	rec.Level++
	rec.Status = models.UpgradeStatusIdle
	rec.StartedAt = sql.NullTime{}
	rec.FinishAt = sql.NullTime{}
	return s.records.Save(ctx, rec, expected)
}

func (s *Service) refund(ctx context.Context, playerID, credits, points int64) {
	var err error
	if credits > 0 {
		_, err = s.wallet.AddCredits(ctx, playerID, credits)
	}
	if points > 0 && err == nil {
		_, err = s.wallet.AddResearchPoints(ctx, playerID, points)
	}
	if err != nil {
		s.log.Error("refund failed",
			zap.Int64("player_id", playerID), zap.Int64("credits", credits),
			zap.Int64("research_points", points), zap.Error(err))
	}
}
