package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/prasad758/timesheet-version-sub000/internal/app"
	"github.com/prasad758/timesheet-version-sub000/internal/config"
	"github.com/prasad758/timesheet-version-sub000/internal/migrate"
	"github.com/prasad758/timesheet-version-sub000/internal/week"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool
	var logger *slog.Logger

	root := &cobra.Command{
		Use:           "timeclock",
		Short:         "Time clock and weekly timesheet service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Migrate the database and serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), logger)
		},
	}

	mig := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				logger.Error("failed to load config", slog.String("error", err.Error()))
				return err
			}
			if err := migrate.Run(cmd.Context(), cfg.DB.Driver, cfg.DB.DSN, logger); err != nil {
				logger.Error("migration failed", slog.String("error", err.Error()))
				return err
			}
			return nil
		},
	}

	weekCmd := &cobra.Command{
		Use:   "week [YYYY-MM-DD]",
		Short: "Print the Monday to Sunday week containing a date (default: today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := config.Location()
			if err != nil {
				return err
			}
			d := time.Now().In(loc)
			if len(args) == 1 {
				if d, err = week.ParseDate(args[0], loc); err != nil {
					return err
				}
			}
			start := week.StartMonday(d)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s..%s (%s)\n",
				week.FormatDate(d), week.FormatDate(start), week.FormatDate(week.End(start)), week.DayColumn(d).Column())
			return nil
		},
	}

	root.AddCommand(serve, mig, weekCmd)
	return root
}

func runServe(parent context.Context, logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		return err
	}

	// Context with signal handling
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to initialize app", slog.String("error", err.Error()))
		return err
	}
	defer application.Close()

	srv := application.HTTPServer(cfg.HTTP.Addr)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", cfg.HTTP.Addr), slog.String("tz", cfg.Clock.Location.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", slog.String("error", err.Error()))
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}
