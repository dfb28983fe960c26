package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/config"
	"github.com/AdamBeresnev/bracket-engine/internal/db"
	"github.com/AdamBeresnev/bracket-engine/internal/engine"
	"github.com/AdamBeresnev/bracket-engine/internal/realtime"
	"github.com/AdamBeresnev/bracket-engine/internal/scheduler"
	"github.com/AdamBeresnev/bracket-engine/internal/service"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()})))

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.RunMigrations(database); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub()
	if err := hub.Connect(ctx); err != nil {
		return err
	}
	defer hub.Disconnect()

	tournaments := service.NewTournamentService(engine.New(nil), store.NewSnapshotStore(database), hub)

	sched, err := scheduler.New(scheduler.Config{
		Enabled:  cfg.DecayEnabled,
		CronSpec: cfg.DecayCron,
		Timeout:  cfg.DecayTimeout,
	}, tournaments)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()
	if sc := sched.Config(); sc.Enabled {
		slog.Info("decay sweep scheduled", "cron", sc.CronSpec, "timeout", sc.Timeout)
	}

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: newRouter(&application{
			tournaments: tournaments,
			hub:         hub,
			corsOrigins: cfg.CORSOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
