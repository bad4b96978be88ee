// Package store declares the persistence contracts used by the game
// services. Implementations live in the postgres and memory subpackages.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/neuroforge/backend/internal/models"
)

var (
	ErrNotFound        = errors.New("store: not found")
	ErrAlreadyExists   = errors.New("store: already exists")
	ErrVersionConflict = errors.New("store: version conflict")
)

type PlayerStore interface {
	FindByID(ctx context.Context, id int64) (*models.Player, error)
	Create(ctx context.Context, p *models.Player) error
	AdjustRating(ctx context.Context, id int64, delta int) error
	TopByRating(ctx context.Context, limit int) ([]models.Player, error)
}

type ModelStore interface {
	FindByID(ctx context.Context, id int64) (*models.AIModel, error)
	Create(ctx context.Context, m *models.AIModel) error
	SetDeployed(ctx context.Context, id int64, deployed bool) error
	UpdateIncome(ctx context.Context, id int64, creditsPerMinute int) error
	ListDeployed(ctx context.Context) ([]models.AIModel, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]models.AIModel, error)
	// TopByIncome returns models by credits per minute, highest first.
	TopByIncome(ctx context.Context, limit int) ([]models.AIModel, error)
}

// WalletStore persists wallets with optimistic concurrency.
type WalletStore interface {
	Find(ctx context.Context, playerID int64) (*models.Wallet, error)
	// Create returns ErrAlreadyExists when the player already has a wallet.
	Create(ctx context.Context, w *models.Wallet) error
	// CompareAndSwap writes w only if the stored version equals
	// expectedVersion, and sets w.Version to expectedVersion+1 on success.
	// It returns ErrVersionConflict otherwise.
	CompareAndSwap(ctx context.Context, w *models.Wallet, expectedVersion int64) error
}

type UpgradeStore interface {
	Find(ctx context.Context, playerID int64, category string) (*models.UpgradeRecord, error)
	Create(ctx context.Context, r *models.UpgradeRecord) error
	// Save follows the same version rule as WalletStore.CompareAndSwap.
	Save(ctx context.Context, r *models.UpgradeRecord, expectedVersion int64) error
	ListByPlayer(ctx context.Context, playerID int64) ([]models.UpgradeRecord, error)
	ListUpgrading(ctx context.Context) ([]models.UpgradeRecord, error)
}

type QueueStore interface {
	Upsert(ctx context.Context, e *models.QueueEntry) error
	Find(ctx context.Context, playerID int64) (*models.QueueEntry, error)
	// Delete is a no-op when the player is not queued.
	Delete(ctx context.Context, playerID int64) error
	// ClaimPair removes both entries in one step, but only if both are still
	// queued with the EnqueuedAt values observed by the caller.
	ClaimPair(ctx context.Context, a, b models.QueueEntry) (bool, error)
	// DeleteIf removes e only if it is still queued with the observed
	// EnqueuedAt. It reports whether a row was removed.
	DeleteIf(ctx context.Context, e models.QueueEntry) (bool, error)
	// ListSearching returns searching entries oldest first.
	ListSearching(ctx context.Context) ([]models.QueueEntry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type MatchStore interface {
	Create(ctx context.Context, m *models.Match) error
	FindByID(ctx context.Context, id string) (*models.Match, error)
	// Update follows the same version rule as WalletStore.CompareAndSwap.
	Update(ctx context.Context, m *models.Match, expectedVersion int64) error
	Delete(ctx context.Context, id string) error
	ListByPlayer(ctx context.Context, playerID int64, limit int) ([]models.Match, error)
	ListActiveByPlayer(ctx context.Context, playerID int64) ([]models.Match, error)
	ListActive(ctx context.Context) ([]models.Match, error)
	CountPlayed(ctx context.Context, playerID int64) (int64, error)
	CountWins(ctx context.Context, playerID int64) (int64, error)
}

// Stores bundles every store so callers can swap backends in one place.
type Stores struct {
	Players  PlayerStore
	Models   ModelStore
	Wallets  WalletStore
	Upgrades UpgradeStore
	Queue    QueueStore
	Matches  MatchStore
}
