package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tkingovr/companybook/api"
	"github.com/tkingovr/companybook/internal/app"
	"github.com/tkingovr/companybook/internal/client"
	"github.com/tkingovr/companybook/internal/config"
	"github.com/tkingovr/companybook/internal/store"
)

var (
	cfgFile string
	verbose bool
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "companybook",
	Short: "Companybook: a live, persistent list of companies",
	Long: `Companybook keeps a durable list of company names, shows it live in a
web dashboard, checks new names against a naming policy and announces
every addition as a notification.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("starting companybook: %w", err)
	}
	return a, nil
}

// book is the part of the controller that add and list need. A local App
// and a remote dashboard both provide it.
type book interface {
	Insert(ctx context.Context, name string) (api.Company, error)
	All(ctx context.Context) (api.Snapshot, error)
}

// openBook opens the App, or falls back to the dashboard's API when a
// running server already owns the store. The App is nil in that case.
func openBook(ctx context.Context) (book, *app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(ctx, cfg, logger)
	if err == nil {
		return a.Controller, a, nil
	}
	if !errors.Is(err, store.ErrLocked) {
		return nil, nil, fmt.Errorf("starting companybook: %w", err)
	}
	logger.Debug("store owned by a running server, using its API", "addr", cfg.DashboardAddr)
	return client.New(cfg.DashboardAddr, cfg.NotifyTimeout), nil, nil
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("shutting down")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
