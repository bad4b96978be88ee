package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Environment
	Environment string
	LogLevel    string

	// Storage
	StoreDriver    string
	DatabaseURL    string
	MigrateOnStart bool

	// Redis event bus; empty runs a single instance without it
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Matchmaking
	MatchmakerPollSeconds     int
	QueueTimeoutMinutes       int
	QueueBaseRange            int
	QueueExpansionStep        int
	QueueExpansionSeconds     int
	QueueCleanupMarginMinutes int

	// Economy
	UpgradeSweepSeconds    int
	SpeedUpPointsPerMinute int
	StartingCredits        int
	StartingResearchPoints int
	LedgerMaxAttempts      int
	PassiveIncomeSeconds   int

	// Duels
	RoundWatchSeconds int

	// Security
	JWTSecret string
}

var defaults = map[string]any{
	"APP_ENV":                      "development",
	"LOG_LEVEL":                    "info",
	"STORE_DRIVER":                 "postgres",
	"DATABASE_URL":                 "postgres://localhost:5432/neuroforge?sslmode=disable",
	"MIGRATE_ON_START":             false,
	"REDIS_URL":                    "",
	"APP_PORT":                     "8080",
	"FRONTEND_URL":                 "http://localhost:5173",
	"MATCHMAKER_POLL_SECONDS":      5,
	"QUEUE_TIMEOUT_MINUTES":        5,
	"QUEUE_BASE_RANGE":             100,
	"QUEUE_EXPANSION_STEP":         50,
	"QUEUE_EXPANSION_SECONDS":      30,
	"QUEUE_CLEANUP_MARGIN_MINUTES": 5,
	"UPGRADE_SWEEP_SECONDS":        30,
	"SPEEDUP_POINTS_PER_MINUTE":    10,
	"STARTING_CREDITS":             500,
	"STARTING_RESEARCH_POINTS":     0,
	"LEDGER_MAX_ATTEMPTS":          3,
	"PASSIVE_INCOME_SECONDS":       60,
	"ROUND_WATCH_SECONDS":          15,
	"JWT_SECRET":                   "change-me-in-production",
}

// Load reads .env (if present), an optional config.yaml, then the process
// environment. Environment variables win.
func Load() *Config {
	godotenv.Load()
	return fromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	return v
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Environment: v.GetString("APP_ENV"),
		LogLevel:    v.GetString("LOG_LEVEL"),

		StoreDriver:    v.GetString("STORE_DRIVER"),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		MigrateOnStart: v.GetBool("MIGRATE_ON_START"),

		RedisURL: v.GetString("REDIS_URL"),

		Port:        v.GetString("APP_PORT"),
		FrontendURL: v.GetString("FRONTEND_URL"),

		MatchmakerPollSeconds:     v.GetInt("MATCHMAKER_POLL_SECONDS"),
		QueueTimeoutMinutes:       v.GetInt("QUEUE_TIMEOUT_MINUTES"),
		QueueBaseRange:            v.GetInt("QUEUE_BASE_RANGE"),
		QueueExpansionStep:        v.GetInt("QUEUE_EXPANSION_STEP"),
		QueueExpansionSeconds:     v.GetInt("QUEUE_EXPANSION_SECONDS"),
		QueueCleanupMarginMinutes: v.GetInt("QUEUE_CLEANUP_MARGIN_MINUTES"),

		UpgradeSweepSeconds:    v.GetInt("UPGRADE_SWEEP_SECONDS"),
		SpeedUpPointsPerMinute: v.GetInt("SPEEDUP_POINTS_PER_MINUTE"),
		StartingCredits:        v.GetInt("STARTING_CREDITS"),
		StartingResearchPoints: v.GetInt("STARTING_RESEARCH_POINTS"),
		LedgerMaxAttempts:      v.GetInt("LEDGER_MAX_ATTEMPTS"),
		PassiveIncomeSeconds:   v.GetInt("PASSIVE_INCOME_SECONDS"),

		RoundWatchSeconds: v.GetInt("ROUND_WATCH_SECONDS"),

		JWTSecret: v.GetString("JWT_SECRET"),
	}
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func (c *Config) MatchmakerInterval() time.Duration { return seconds(c.MatchmakerPollSeconds) }
func (c *Config) QueueTimeout() time.Duration {
	return time.Duration(c.QueueTimeoutMinutes) * time.Minute
}
func (c *Config) QueueExpansionInterval() time.Duration {
	return seconds(c.QueueExpansionSeconds)
}
func (c *Config) QueueCleanupMargin() time.Duration {
	return time.Duration(c.QueueCleanupMarginMinutes) * time.Minute
}
func (c *Config) UpgradeSweepInterval() time.Duration  { return seconds(c.UpgradeSweepSeconds) }
func (c *Config) PassiveIncomeInterval() time.Duration { return seconds(c.PassiveIncomeSeconds) }
func (c *Config) RoundWatchInterval() time.Duration    { return seconds(c.RoundWatchSeconds) }
