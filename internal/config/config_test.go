package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := fromViper(newViper())

	assert.Equal(t, 100, cfg.QueueBaseRange)
	assert.Equal(t, 50, cfg.QueueExpansionStep)
	assert.Equal(t, 5*time.Minute, cfg.QueueTimeout())
	assert.Equal(t, 30*time.Second, cfg.QueueExpansionInterval())
	assert.Equal(t, 5*time.Second, cfg.MatchmakerInterval())
	assert.Equal(t, 30*time.Second, cfg.UpgradeSweepInterval())
	assert.Equal(t, 500, cfg.StartingCredits)
	assert.Equal(t, 3, cfg.LedgerMaxAttempts)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("QUEUE_BASE_RANGE", "250")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("MIGRATE_ON_START", "true")

	cfg := fromViper(newViper())

	assert.Equal(t, 250, cfg.QueueBaseRange)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.True(t, cfg.MigrateOnStart)
}
