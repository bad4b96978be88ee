package accounts

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
	"github.com/neuroforge/backend/internal/retry"
	"github.com/neuroforge/backend/internal/store"
	"github.com/neuroforge/backend/internal/store/memory"
)

func newTestLedger(t *testing.T, players ...string) (*Ledger, store.Stores) {
	t.Helper()
	stores := memory.New()
	for _, name := range players {
		require.NoError(t, stores.Players.Create(context.Background(), &models.Player{Username: name}))
	}
	opts := DefaultOptions()
	opts.Retry = retry.Policy{MaxAttempts: 50, InitialInterval: time.Microsecond, MaxInterval: time.Millisecond}
	return NewLedger(stores.Wallets, stores.Players, opts), stores
}

func TestWalletLazyCreation(t *testing.T) {
	l, _ := newTestLedger(t, "alice")

	w, err := l.Wallet(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(500), w.Credits)
	assert.Equal(t, int64(0), w.ResearchPoints)

	_, err = l.Wallet(context.Background(), 99)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestWalletCreateRaceReadsExisting(t *testing.T) {
	l, _ := newTestLedger(t, "alice")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, err := l.Wallet(ctx, 1)
			assert.NoError(t, err)
			assert.Equal(t, int64(500), w.Credits)
		}()
	}
	wg.Wait()
}

func TestSpendBeyondBalanceLeavesWalletUnchanged(t *testing.T) {
	l, _ := newTestLedger(t, "alice")
	ctx := context.Background()

	ok, err := l.SpendCredits(ctx, 1, 600)
	require.NoError(t, err)
	assert.False(t, ok)

	w, err := l.Wallet(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(500), w.Credits)
	assert.Equal(t, int64(0), w.Version)

	ok, err = l.SpendResearchPoints(ctx, 1, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTryAdjustBothBalances(t *testing.T) {
	l, _ := newTestLedger(t, "alice")
	ctx := context.Background()

	w, err := l.TryAdjust(ctx, 1, -100, 40)
	require.NoError(t, err)
	assert.Equal(t, int64(400), w.Credits)
	assert.Equal(t, int64(40), w.ResearchPoints)
	assert.Equal(t, int64(1), w.Version)

	// second delta is short, so neither applies
	_, err = l.TryAdjust(ctx, 1, -100, -41)
	assert.True(t, errors.Is(err, apperr.ErrInsufficient))

	w, err = l.Wallet(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(400), w.Credits)
	assert.Equal(t, int64(40), w.ResearchPoints)
}

func TestConcurrentAdjustmentsConserveBalance(t *testing.T) {
	l, _ := newTestLedger(t, "alice")
	ctx := context.Background()
	_, err := l.Wallet(ctx, 1)
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := l.AddCredits(ctx, 1, 10)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			ok, err := l.SpendCredits(ctx, 1, 5)
			assert.NoError(t, err)
			assert.True(t, ok)
		}()
	}
	wg.Wait()

	w, err := l.Wallet(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(500+workers*10-workers*5), w.Credits)
	assert.Equal(t, int64(2*workers), w.Version)
}

func TestAmountsMustBePositive(t *testing.T) {
	l, _ := newTestLedger(t, "alice")
	ctx := context.Background()

	_, err := l.SpendCredits(ctx, 1, 0)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	_, err = l.AddResearchPoints(ctx, 1, -5)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestTransferCredits(t *testing.T) {
	l, _ := newTestLedger(t, "alice", "bob")
	ctx := context.Background()

	ok, err := l.TransferCredits(ctx, 1, 2, 200)
	require.NoError(t, err)
	assert.True(t, ok)

	from, _ := l.Wallet(ctx, 1)
	to, _ := l.Wallet(ctx, 2)
	assert.Equal(t, int64(300), from.Credits)
	assert.Equal(t, int64(700), to.Credits)

	ok, err = l.TransferCredits(ctx, 1, 2, 301)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = l.TransferCredits(ctx, 1, 1, 10)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = l.TransferCredits(ctx, 1, 42, 10)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	from, _ = l.Wallet(ctx, 1)
	assert.Equal(t, int64(300), from.Credits)
}

type conflictingWallets struct {
	store.WalletStore
}

func (conflictingWallets) CompareAndSwap(context.Context, *models.Wallet, int64) error {
	return store.ErrVersionConflict
}

func TestPersistentConflictSurfacesAsTransient(t *testing.T) {
	stores := memory.New()
	ctx := context.Background()
	require.NoError(t, stores.Players.Create(ctx, &models.Player{Username: "alice"}))

	opts := DefaultOptions()
	opts.Retry = retry.Policy{MaxAttempts: 3, InitialInterval: time.Microsecond, MaxInterval: time.Millisecond}
	l := NewLedger(conflictingWallets{stores.Wallets}, stores.Players, opts)

	_, err := l.AddCredits(ctx, 1, 10)
	assert.True(t, errors.Is(err, apperr.ErrTransient))
}
