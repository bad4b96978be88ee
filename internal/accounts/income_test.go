package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuroforge/backend/internal/models"
)

func TestModelIncome(t *testing.T) {
	assert.Equal(t, 12, ModelIncome(models.AIModel{CreditsPerMinute: 12}))
	// 5 + 0.8*10 + 50/10 + 40/20
	assert.Equal(t, 20, ModelIncome(models.AIModel{Accuracy: 0.8, PopularityScore: 50, SpeedScore: 40}))
	assert.Equal(t, 0, ModelIncome(models.AIModel{Accuracy: -3}))
}

func TestIncomeWorkerPaysDeployedModels(t *testing.T) {
	l, stores := newTestLedger(t, "alice", "bob")
	ctx := context.Background()

	require.NoError(t, stores.Models.Create(ctx, &models.AIModel{OwnerID: 1, Name: "a", CreditsPerMinute: 7, Deployed: true}))
	require.NoError(t, stores.Models.Create(ctx, &models.AIModel{OwnerID: 2, Name: "b", Accuracy: 0.5}))
	// owner does not exist, must not stop the others
	require.NoError(t, stores.Models.Create(ctx, &models.AIModel{OwnerID: 99, Name: "orphan", CreditsPerMinute: 3, Deployed: true}))
	require.NoError(t, stores.Models.Create(ctx, &models.AIModel{OwnerID: 2, Name: "c", Accuracy: 0.5, Deployed: true}))

	w := NewIncomeWorker(stores.Models, l)
	assert.Equal(t, 2, w.Run(ctx))

	alice, _ := l.Wallet(ctx, 1)
	bob, _ := l.Wallet(ctx, 2)
	assert.Equal(t, int64(507), alice.Credits)
	assert.Equal(t, int64(510), bob.Credits)

	m, err := stores.Models.FindByID(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 10, m.CreditsPerMinute)
}
