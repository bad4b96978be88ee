package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/neuroforge/backend/internal/accounts"
	"github.com/neuroforge/backend/internal/aimodels"
	"github.com/neuroforge/backend/internal/api"
	"github.com/neuroforge/backend/internal/config"
	"github.com/neuroforge/backend/internal/database"
	"github.com/neuroforge/backend/internal/game"
	"github.com/neuroforge/backend/internal/logging"
	"github.com/neuroforge/backend/internal/migrations"
	"github.com/neuroforge/backend/internal/redis"
	"github.com/neuroforge/backend/internal/retry"
	"github.com/neuroforge/backend/internal/scheduler"
	"github.com/neuroforge/backend/internal/seed"
	"github.com/neuroforge/backend/internal/store"
	"github.com/neuroforge/backend/internal/store/memory"
	"github.com/neuroforge/backend/internal/store/postgres"
	"github.com/neuroforge/backend/internal/upgrades"
	"github.com/neuroforge/backend/internal/ws"
)

func main() {
	cfg := config.Load()

	if err := logging.Init(cfg.Environment, cfg.LogLevel); err != nil {
		panic(err)
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, closeStore := openStores(cfg)
	defer closeStore()

	// Realtime: a local hub always; Redis carries events between instances
	// when configured.
	hub := ws.NewHub()
	go hub.Run(ctx)

	var events game.Broadcaster = hub
	if cfg.RedisURL != "" {
		rdb, err := redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logging.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		ws.StartSubscriber(ctx, rdb, hub)
		bus := ws.NewRedisBroadcaster(rdb)
		go bus.Run(ctx)
		events = bus
	} else {
		logging.Warn("REDIS_URL not set, events are delivered to this instance only")
	}

	policy := retry.DefaultPolicy()
	if cfg.LedgerMaxAttempts > 0 {
		policy.MaxAttempts = uint(cfg.LedgerMaxAttempts)
	}

	ledger := accounts.NewLedger(stores.Wallets, stores.Players, accounts.Options{
		StartingCredits:        int64(cfg.StartingCredits),
		StartingResearchPoints: int64(cfg.StartingResearchPoints),
		Retry:                  policy,
	})
	upgradeSvc := upgrades.NewService(stores.Upgrades, stores.Players, ledger, upgrades.Options{
		SpeedUpPointsPerMinute: int64(cfg.SpeedUpPointsPerMinute),
		Retry:                  policy,
	})
	duels := game.NewDuels(stores.Matches, stores.Players, events, game.DuelOptions{Retry: policy})
	matchmaker := game.NewMatchmaker(stores.Queue, stores.Players, stores.Models, duels, events, game.QueueOptions{
		BaseRange:         cfg.QueueBaseRange,
		ExpansionStep:     cfg.QueueExpansionStep,
		ExpansionInterval: cfg.QueueExpansionInterval(),
		Timeout:           cfg.QueueTimeout(),
		CleanupMargin:     cfg.QueueCleanupMargin(),
	})
	income := accounts.NewIncomeWorker(stores.Models, ledger)
	rounds := game.NewRoundWatch(duels)

	if cfg.StoreDriver == "memory" {
		if _, err := seed.Demo(ctx, stores, ledger); err != nil {
			logging.Fatal("failed to seed memory store", zap.Error(err))
		}
	}

	sched, err := scheduler.New()
	if err != nil {
		logging.Fatal("failed to create scheduler", zap.Error(err))
	}
	jobs := []scheduler.Job{
		{Name: "matchmaker", Every: cfg.MatchmakerInterval(), Run: func(ctx context.Context) { matchmaker.Tick(ctx) }},
		{Name: "queue-cleanup", Cron: "0 * * * *", Run: func(ctx context.Context) { matchmaker.CleanupStale(ctx) }},
		{Name: "upgrade-sweep", Every: cfg.UpgradeSweepInterval(), Run: func(ctx context.Context) { upgradeSvc.Sweep(ctx) }},
		{Name: "passive-income", Every: cfg.PassiveIncomeInterval(), Run: func(ctx context.Context) { income.Run(ctx) }},
		{Name: "round-watch", Every: cfg.RoundWatchInterval(), Run: func(ctx context.Context) { rounds.Run(ctx) }},
	}
	for _, job := range jobs {
		if err := sched.Add(job); err != nil {
			logging.Fatal("failed to schedule job", zap.String("job", job.Name), zap.Error(err))
		}
	}
	sched.Start()
	defer func() {
		if err := sched.Stop(); err != nil {
			logging.Error("scheduler shutdown", zap.Error(err))
		}
	}()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	api.SetupRoutes(ctx, router, cfg, api.Services{
		Players:    stores.Players,
		Ledger:     ledger,
		Models:     aimodels.NewService(stores.Models, stores.Players),
		Upgrades:   upgradeSvc,
		Matchmaker: matchmaker,
		Duels:      duels,
		Hub:        hub,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logging.Info("starting NeuroForge server", zap.String("port", cfg.Port), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logging.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("http shutdown", zap.Error(err))
	}
}

// openStores connects the configured backend and returns a close func.
func openStores(cfg *config.Config) (store.Stores, func()) {
	if cfg.StoreDriver == "memory" {
		logging.Warn("using in-memory store, state is lost on restart")
		return memory.New(), func() {}
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logging.Fatal("failed to connect to database", zap.Error(err))
	}
	if cfg.MigrateOnStart {
		logging.Info("running database migrations")
		if err := migrations.RunMigrations(cfg.DatabaseURL, "migrations"); err != nil {
			logging.Fatal("failed to run migrations", zap.Error(err))
		}
	}
	return postgres.New(db), func() { db.Close() }
}
