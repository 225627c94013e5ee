package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/prasad758/timesheet-version-sub000/internal/adapter/gitlab"
	"github.com/prasad758/timesheet-version-sub000/internal/adapter/sqlstore"
	"github.com/prasad758/timesheet-version-sub000/internal/config"
	"github.com/prasad758/timesheet-version-sub000/internal/migrate"
	"github.com/prasad758/timesheet-version-sub000/internal/ports"
	"github.com/prasad758/timesheet-version-sub000/internal/usecase"
)

// App wires adapters and use cases.
type App struct {
	log    *slog.Logger
	store  ports.Store
	loc    *time.Location
	now    func() time.Time
	clock  *usecase.ClockService
	sheets *usecase.TimesheetService
	leave  *usecase.LeaveService
}

// New migrates the configured database, opens it and builds the services.
func New(ctx context.Context, log *slog.Logger, cfg config.Config) (*App, error) {
	// Run migrations before opening the store for use
	if err := migrate.Run(ctx, cfg.DB.Driver, cfg.DB.DSN, log); err != nil {
		return nil, err
	}
	store, err := sqlstore.Open(ctx, cfg.DB.Driver, cfg.DB.DSN, log)
	if err != nil {
		return nil, err
	}

	var items ports.WorkItems = gitlab.Disabled{}
	if cfg.GitLabEnabled() {
		items = gitlab.NewClient(cfg.GitLab.BaseURL, cfg.GitLab.Token, cfg.GitLab.ProjectID, log)
		log.Info("gitlab work items enabled", slog.String("project", cfg.GitLab.ProjectID))
	} else {
		log.Info("gitlab work items disabled, using fallback labels")
	}

	return Wire(log, store, items, cfg.Clock.Location, cfg.Clock.AggregateTimeout), nil
}

// Wire builds an App on an already opened store.
func Wire(log *slog.Logger, store ports.Store, items ports.WorkItems, loc *time.Location, sideEffectTimeout time.Duration) *App {
	if loc == nil {
		loc = time.Local
	}
	a := &App{log: log, store: store, loc: loc, now: time.Now}
	a.sheets = &usecase.TimesheetService{
		Log:       log,
		Store:     store,
		Leave:     store,
		WorkItems: items,
		Location:  loc,
	}
	a.clock = &usecase.ClockService{
		Log:               log,
		Sessions:          store,
		Recorder:          a.sheets,
		WorkItems:         items,
		Now:               func() time.Time { return a.now() },
		SideEffectTimeout: sideEffectTimeout,
	}
	a.leave = &usecase.LeaveService{
		Log:   log,
		Store: store,
		Now:   func() time.Time { return a.now() },
	}
	return a
}

// Close waits for pending clock-out side effects, then releases the database.
func (a *App) Close() error {
	a.clock.Wait()
	return a.store.Close()
}
