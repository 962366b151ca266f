package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tnicklin/birthday_countdown/config"
	"github.com/tnicklin/birthday_countdown/countdown"
	"github.com/tnicklin/birthday_countdown/logger"
	"github.com/tnicklin/birthday_countdown/store"
	"github.com/tnicklin/birthday_countdown/timesync"
	"github.com/tnicklin/birthday_countdown/timeutil"
)

func main() {
	params, err := build()
	if err != nil {
		log.Fatal(err)
	}

	if err = run(params); err != nil {
		log.Fatal(err)
	}
}

func build() (runParams, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.LoadWithDefaults("config/config.yaml", "config/local.yaml")
	if err != nil {
		return runParams{}, fmt.Errorf("load config: %w", err)
	}

	if v := strings.TrimSpace(os.Getenv("COUNTDOWN_TARGET")); v != "" {
		cfg.Countdown.Target = v
	}
	if v := strings.TrimSpace(os.Getenv("COUNTDOWN_STORE_PATH")); v != "" {
		cfg.Store.Path = v
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return runParams{}, fmt.Errorf("initialize logger: %w", err)
	}

	target, err := timeutil.ParseTarget(cfg.Countdown.Target, timeutil.Location(cfg.Countdown.Location))
	if err != nil {
		return runParams{}, fmt.Errorf("countdown target: %w", err)
	}

	st := store.NewSQLiteStore(store.Params{
		Path:   cfg.Store.Path,
		Logger: appLogger.Named("store"),
	})

	return runParams{
		Config: cfg,
		Logger: appLogger,
		Store:  st,
		Target: target,
	}, nil
}

type runParams struct {
	Config *config.AppConfig
	Logger logger.Logger
	Store  *store.SQLiteStore
	Target time.Time
}

// run starts all components and runs the application until shutdown.
func run(p runParams) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	defer p.Logger.Sync()

	if err := p.Store.Open(ctx); err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if err := p.Store.RestoreFromDisk(ctx, p.Config.Store.Path); err != nil {
		p.Logger.WarnW("restore from disk", "error", err)
	}

	// The estimator must exist before the view, so corrections reach the
	// view through a channel rather than a program handle.
	syncs := make(chan countdown.SyncedMsg, 1)
	estimator := timesync.New(timesync.Params{
		Config: p.Config.TimeSync,
		Store:  p.Store,
		Logger: p.Logger.Named("timesync"),
		OnSync: func(ev timesync.Event) {
			msg := countdown.SyncedMsg{Offset: ev.Offset, SyncTime: ev.SyncTime, Source: ev.Source}
			select {
			case syncs <- msg:
			default:
			}
		},
	})

	if err := estimator.Start(ctx); err != nil {
		return fmt.Errorf("start timesync: %w", err)
	}

	p.Logger.InfoW("countdown started",
		"target", p.Target.Format(time.RFC3339),
		"offset_ms", estimator.Offset().Milliseconds(),
	)

	model := countdown.NewModel(countdown.ModelParams{
		Clock:   estimator,
		Target:  p.Target,
		Title:   p.Config.Countdown.Title,
		Message: p.Config.Countdown.CelebrationMessage,
		Offset:  estimator.Offset(),
		Syncs:   syncs,
	})
	viewErr := countdown.Run(ctx, model)

	// No sync callbacks run after Stop returns.
	estimator.Stop()
	close(syncs)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := p.Store.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return viewErr
}
