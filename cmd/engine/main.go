// Package main wires the unswipe engine: configuration, logging, the
// sqlite stores, and the domain services, then runs the app-foreground
// routine (entitlement sync, expiry enforcement, reminder rebuild).
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/ts3486/unswipe-sub000/internal/clock"
	"github.com/ts3486/unswipe-sub000/internal/config"
	"github.com/ts3486/unswipe-sub000/internal/domain"
	"github.com/ts3486/unswipe-sub000/internal/platform/logger"
	"github.com/ts3486/unswipe-sub000/internal/platform/sqlite"
	"github.com/ts3486/unswipe-sub000/internal/service/entitlement"
	"github.com/ts3486/unswipe-sub000/internal/service/notification"
	"github.com/ts3486/unswipe-sub000/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("engine failed: %v", err)
	}
}

// app holds the wired engine components. Reset sessions are driven by the
// embedding UI, so the binary only wires the stores the foreground routine
// reads.
type app struct {
	clk         clock.Clock
	snapshots   store.ProgressStore
	subs        store.SubscriptionStore
	entitlement *entitlement.Service
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("engine configuration loaded",
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("database_path", cfg.Database.Path))

	db, err := sqlite.Open(cfg.Database.Path, appLogger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	clk := clock.New()
	a := &app{
		clk:       clk,
		snapshots: sqlite.NewProgressStore(db, appLogger),
		subs:      sqlite.NewSubscriptionStore(db, appLogger),
	}

	// No purchase ledger is wired in the standalone binary; entitlement
	// runs in offline mode and only enforces expiry.
	a.entitlement = entitlement.NewService(a.subs, nil, clk, entitlement.Params{
		EntitlementKey:    cfg.Subscription.EntitlementKey,
		LifetimeProductID: cfg.Subscription.LifetimeProductID,
		TrialDays:         cfg.Subscription.TrialDays,
		GraceDays:         cfg.Subscription.GraceDays,
	}, appLogger)

	ctx := context.Background()
	if err := a.foreground(ctx, appLogger); err != nil {
		return err
	}

	appLogger.Info("engine ready")
	return nil
}

// foreground runs the app-foreground routine: reconcile entitlement state,
// then rebuild the reminder schedule from current progress.
func (a *app) foreground(ctx context.Context, log *slog.Logger) error {
	subState, err := a.entitlement.Foreground(ctx)
	if err != nil {
		return fmt.Errorf("entitlement foreground failed: %w", err)
	}
	log.Info("entitlement reconciled",
		slog.String("status", string(subState.Status)),
		slog.Bool("is_premium", subState.IsPremium))

	inputs, err := a.reminderInputs(ctx)
	if err != nil {
		return fmt.Errorf("failed to derive reminder inputs: %w", err)
	}

	rebuilder := notification.NewRebuilder(logScheduler{log: log}, nil, log)
	scheduled, err := rebuilder.Reschedule(ctx, inputs)
	if err != nil {
		return fmt.Errorf("failed to rebuild reminders: %w", err)
	}
	log.Info("reminders rebuilt", slog.Int("scheduled", scheduled))

	return nil
}

// reminderInputs derives the notification policy inputs from the stored
// progress state.
func (a *app) reminderInputs(ctx context.Context) (notification.Inputs, error) {
	inputs := notification.Inputs{Style: notification.StyleGentle}

	latest, err := a.snapshots.GetLatest(ctx)
	if err != nil {
		if store.IsNotFoundError(err) {
			return inputs, nil
		}
		return inputs, err
	}

	today := a.clk.Today()
	inputs.StreakDays = latest.StreakDays
	inputs.TodaySuccess = latest.Date == today && latest.DaySuccess
	inputs.HasOpenedToday = latest.Date == today

	// Course day index counts from the first recorded day.
	dates, err := a.snapshots.ListAllDatesAscending(ctx)
	if err != nil {
		return inputs, err
	}
	if len(dates) > 0 {
		first, err := time.Parse(domain.DayFormat, dates[0])
		if err != nil {
			return inputs, err
		}
		now, err := time.Parse(domain.DayFormat, today)
		if err != nil {
			return inputs, err
		}
		inputs.CourseDayIndex = int(now.Sub(first).Hours()/24) + 1
	}

	return inputs, nil
}

// logScheduler is the standalone binary's Scheduler: it records what would
// be scheduled. Real delivery belongs to the host platform embedding the
// engine.
type logScheduler struct {
	log *slog.Logger
}

func (s logScheduler) Schedule(_ context.Context, id string, hour, minute int, content notification.Content) error {
	s.log.Info("reminder scheduled",
		slog.String("id", id),
		slog.Int("hour", hour),
		slog.Int("minute", minute),
		slog.String("title", content.Title))
	return nil
}

func (s logScheduler) Cancel(_ context.Context, id string) error {
	s.log.Debug("reminder cancelled", slog.String("id", id))
	return nil
}

func (s logScheduler) CancelAll(_ context.Context) error {
	s.log.Debug("all reminders cancelled")
	return nil
}

func (s logScheduler) ListScheduled(_ context.Context) ([]notification.ScheduledReminder, error) {
	return nil, nil
}
