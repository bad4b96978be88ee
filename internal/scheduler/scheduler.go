package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/neuroforge/backend/internal/logging"
)

// Job is one periodic background task. Exactly one of Every and Cron is set.
type Job struct {
	Name  string
	Every time.Duration
	Cron  string
	Run   func(ctx context.Context)
}

// Scheduler runs the background workers. A run that is still going when
// its next slot comes up is skipped, never doubled.
type Scheduler struct {
	s      gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger
}

func New() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{s: s, ctx: ctx, cancel: cancel, log: logging.Named("scheduler")}, nil
}

// Add registers job. Jobs only start firing after Start.
func (sc *Scheduler) Add(job Job) error {
	if job.Run == nil {
		return fmt.Errorf("job %q has no run func", job.Name)
	}

	var def gocron.JobDefinition
	switch {
	case job.Cron != "" && job.Every > 0:
		return fmt.Errorf("job %q sets both cron and interval", job.Name)
	case job.Cron != "":
		def = gocron.CronJob(job.Cron, false)
	case job.Every > 0:
		def = gocron.DurationJob(job.Every)
	default:
		return errors.New("job " + job.Name + " has no schedule")
	}

	_, err := sc.s.NewJob(def,
		gocron.NewTask(func() {
			start := time.Now()
			job.Run(sc.ctx)
			sc.log.Debug("job ran", zap.String("job", job.Name), zap.Duration("took", time.Since(start)))
		}),
		gocron.WithName(job.Name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name, err)
	}
	sc.log.Info("job scheduled", zap.String("job", job.Name), zap.Duration("every", job.Every), zap.String("cron", job.Cron))
	return nil
}

func (sc *Scheduler) Start() {
	sc.s.Start()
}

// Stop cancels the context handed to running jobs and waits for them.
func (sc *Scheduler) Stop() error {
	sc.cancel()
	return sc.s.Shutdown()
}
