package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DecaySweeper applies ladder decay to every stored tournament.
type DecaySweeper interface {
	ApplyDecayAll(ctx context.Context) (int, error)
}

type Config struct {
	Enabled  bool
	CronSpec string // standard 5-field spec, e.g. "0 3 * * *" (UTC)
	Timeout  time.Duration
}

type Scheduler struct {
	c       *cron.Cron
	config  Config
	sweeper DecaySweeper
}

func New(cfg Config, sweeper DecaySweeper) (*Scheduler, error) {
	s := &Scheduler{
		c:       cron.New(cron.WithLocation(time.UTC)),
		config:  cfg,
		sweeper: sweeper,
	}
	if _, err := s.c.AddFunc(cfg.CronSpec, s.Sweep); err != nil {
		return nil, err
	}
	return s, nil
}

// Sweep runs one decay pass. It is what the cron job calls.
func (s *Scheduler) Sweep() {
	ctx := context.Background()
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	slog.Info("scheduler tick: applying ladder decay")
	applied, err := s.sweeper.ApplyDecayAll(ctx)
	if err != nil {
		slog.Error("ladder decay sweep failed", "applied", applied, "error", err)
		return
	}
	slog.Info("ladder decay sweep done", "applied", applied)
}

func (s *Scheduler) Start() {
	if !s.config.Enabled {
		slog.Info("scheduler disabled")
		return
	}
	slog.Info("starting scheduler", "cron", s.config.CronSpec)
	s.c.Start()
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.c.Stop().Done()
}

func (s *Scheduler) Config() Config {
	return s.config
}
