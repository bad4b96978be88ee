// Package accounts owns player wallets: lazy creation, balance adjustments
// under optimistic concurrency, transfers and passive model income.
package accounts

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/neuroforge/backend/internal/apperr"
	"github.com/neuroforge/backend/internal/logging"
	"github.com/neuroforge/backend/internal/models"
	"github.com/neuroforge/backend/internal/retry"
	"github.com/neuroforge/backend/internal/store"
)

type Options struct {
	StartingCredits        int64
	StartingResearchPoints int64
	Retry                  retry.Policy
}

func DefaultOptions() Options {
	return Options{
		StartingCredits:        500,
		StartingResearchPoints: 0,
		Retry:                  retry.DefaultPolicy(),
	}
}

// Ledger is the single authority for wallet balances.
type Ledger struct {
	wallets store.WalletStore
	players store.PlayerStore
	opts    Options
	log     *zap.Logger
}

func NewLedger(wallets store.WalletStore, players store.PlayerStore, opts Options) *Ledger {
	return &Ledger{
		wallets: wallets,
		players: players,
		opts:    opts,
		log:     logging.Named("ledger"),
	}
}

// Wallet returns the player's wallet, creating it with the starting balance
// on first access.
func (l *Ledger) Wallet(ctx context.Context, playerID int64) (*models.Wallet, error) {
	w, err := l.wallets.Find(ctx, playerID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("find wallet: %w", err)
	}

	if _, err := l.players.FindByID(ctx, playerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("player %d not found", playerID)
		}
		return nil, fmt.Errorf("find player: %w", err)
	}

	w = &models.Wallet{
		PlayerID:       playerID,
		Credits:        l.opts.StartingCredits,
		ResearchPoints: l.opts.StartingResearchPoints,
	}
	err = l.wallets.Create(ctx, w)
	switch {
	case err == nil:
		l.log.Info("wallet created", zap.Int64("player_id", playerID), zap.Int64("credits", w.Credits))
		return w, nil
	case errors.Is(err, store.ErrAlreadyExists):
		// a concurrent caller created it first
		w, err = l.wallets.Find(ctx, playerID)
		if err != nil {
			return nil, fmt.Errorf("find wallet after create race: %w", err)
		}
		return w, nil
	default:
		return nil, fmt.Errorf("create wallet: %w", err)
	}
}

// TryAdjust applies both deltas atomically. A delta that would take either
// balance below zero fails with an Insufficient error and writes nothing.
func (l *Ledger) TryAdjust(ctx context.Context, playerID, dCredits, dResearchPoints int64) (*models.Wallet, error) {
	return retry.OnConflict(ctx, l.opts.Retry, func(ctx context.Context) (*models.Wallet, error) {
		current, err := l.Wallet(ctx, playerID)
		if err != nil {
			return nil, err
		}
		if current.Credits+dCredits < 0 {
			return nil, apperr.Insufficient("player %d has %d credits, needs %d", playerID, current.Credits, -dCredits)
		}
		if current.ResearchPoints+dResearchPoints < 0 {
			return nil, apperr.Insufficient("player %d has %d research points, needs %d", playerID, current.ResearchPoints, -dResearchPoints)
		}

		next := *current
		next.Credits += dCredits
		next.ResearchPoints += dResearchPoints
		if err := l.wallets.CompareAndSwap(ctx, &next, current.Version); err != nil {
			return nil, err
		}
		return &next, nil
	})
}

// spend reports false, with no error, when the balance is too low.
func (l *Ledger) spend(ctx context.Context, playerID, dCredits, dResearchPoints int64) (bool, error) {
	_, err := l.TryAdjust(ctx, playerID, dCredits, dResearchPoints)
	if errors.Is(err, apperr.ErrInsufficient) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (l *Ledger) SpendCredits(ctx context.Context, playerID, amount int64) (bool, error) {
	if amount <= 0 {
		return false, apperr.Validation("amount must be positive")
	}
	return l.spend(ctx, playerID, -amount, 0)
}

func (l *Ledger) SpendResearchPoints(ctx context.Context, playerID, amount int64) (bool, error) {
	if amount <= 0 {
		return false, apperr.Validation("amount must be positive")
	}
	return l.spend(ctx, playerID, 0, -amount)
}

func (l *Ledger) AddCredits(ctx context.Context, playerID, amount int64) (*models.Wallet, error) {
	if amount <= 0 {
		return nil, apperr.Validation("amount must be positive")
	}
	return l.TryAdjust(ctx, playerID, amount, 0)
}

func (l *Ledger) AddResearchPoints(ctx context.Context, playerID, amount int64) (*models.Wallet, error) {
	if amount <= 0 {
		return nil, apperr.Validation("amount must be positive")
	}
	return l.TryAdjust(ctx, playerID, 0, amount)
}

// TransferCredits moves credits between two players. The sender is debited
// first; if crediting the receiver fails the sender is refunded.
func (l *Ledger) TransferCredits(ctx context.Context, fromID, toID, amount int64) (bool, error) {
	if fromID == toID {
		return false, apperr.Validation("cannot transfer to self")
	}
	if amount <= 0 {
		return false, apperr.Validation("amount must be positive")
	}
	if _, err := l.Wallet(ctx, toID); err != nil {
		return false, err
	}

	ok, err := l.SpendCredits(ctx, fromID, amount)
	if err != nil || !ok {
		return false, err
	}

	if _, err := l.AddCredits(ctx, toID, amount); err != nil {
		l.log.Error("transfer credit failed, refunding sender",
			zap.Int64("from", fromID), zap.Int64("to", toID), zap.Int64("amount", amount), zap.Error(err))
		if _, rerr := l.AddCredits(ctx, fromID, amount); rerr != nil {
			l.log.Error("transfer refund failed",
				zap.Int64("from", fromID), zap.Int64("amount", amount), zap.Error(rerr))
		}
		return false, err
	}

	l.log.Info("transfer completed", zap.Int64("from", fromID), zap.Int64("to", toID), zap.Int64("amount", amount))
	return true, nil
}
