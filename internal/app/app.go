// Package app assembles the long-lived components from a Config. The App is
// passed explicitly to the dashboard and CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tkingovr/companybook/api"
	"github.com/tkingovr/companybook/internal/config"
	"github.com/tkingovr/companybook/internal/controller"
	"github.com/tkingovr/companybook/internal/filter"
	"github.com/tkingovr/companybook/internal/metrics"
	"github.com/tkingovr/companybook/internal/notify"
	"github.com/tkingovr/companybook/internal/permission"
	"github.com/tkingovr/companybook/internal/policy"
	"github.com/tkingovr/companybook/internal/store"
)

// PermissionPrompt is the text of the first-launch notification prompt.
const PermissionPrompt = "Allow companybook to show a notification whenever a company is added?"

// App holds everything a running companybook needs.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Store      store.Store
	Engine     policy.Engine
	Gate       *permission.Gate
	Journal    *notify.Journal
	Metrics    *metrics.Metrics
	Controller *controller.Controller

	checker *Checker
}

// Checker dry-runs names through the naming policy. It never rate limits and
// never stores anything. The dashboard and the check command share it.
type Checker struct {
	chain *filter.Chain
}

// NewChecker builds a Checker over engine.
func NewChecker(engine policy.Engine, logger *slog.Logger) *Checker {
	return &Checker{chain: filter.BuildCheckChain(filter.ChainConfig{Engine: engine, Logger: logger})}
}

// Check evaluates name against the naming policy without storing it.
func (c *Checker) Check(ctx context.Context, name string) (api.CheckResponse, error) {
	fc := filter.NewFilterContext(name)
	if err := c.chain.Process(ctx, fc); err != nil {
		return api.CheckResponse{}, err
	}
	return fc.CheckResponse(), nil
}

// New builds the App. On error everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Gate:    permission.NewGate(cfg.RequirePermission),
		Metrics: metrics.New(),
	}

	engine, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	a.Engine = engine

	a.Journal, err = notify.NewJournal(cfg.JournalDir)
	if err != nil {
		return nil, err
	}

	a.Store, err = store.Open(ctx, cfg.Store)
	if err != nil {
		a.Journal.Close()
		return nil, fmt.Errorf("opening store: %w", err)
	}

	notifiers := notify.Multi{a.Journal, notify.NewLog(logger)}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhook(cfg.WebhookURL, cfg.NotifyTimeout))
	}

	chainCfg := filter.ChainConfig{
		Engine:    engine,
		Logger:    logger,
		RateLimit: cfg.RateLimit,
	}
	a.checker = NewChecker(engine, logger)

	a.Controller = controller.New(a.Store,
		filter.BuildAdmissionChain(chainCfg),
		notify.NewGated(a.Gate, notifiers),
		controller.WithLogger(logger),
		controller.WithMetrics(a.Metrics),
		controller.WithNotifyTimeout(cfg.NotifyTimeout),
	)

	logger.Debug("app initialized",
		"store", cfg.Store.Driver,
		"require_permission", cfg.RequirePermission,
		"webhook", cfg.WebhookURL != "",
	)
	return a, nil
}

// NewEngine builds the naming policy engine: Rego when configured, YAML rules
// otherwise.
func NewEngine(cfg *config.Config) (policy.Engine, error) {
	if cfg.OPAPolicy != "" {
		engine, err := policy.NewOPAEngine(cfg.OPAPolicy)
		if err != nil {
			return nil, fmt.Errorf("loading OPA policy: %w", err)
		}
		return engine, nil
	}
	engine, err := policy.NewYAMLEngineFromPolicy(cfg.PolicyFile)
	if err != nil {
		return nil, fmt.Errorf("loading naming policy: %w", err)
	}
	return engine, nil
}

// Check evaluates name against the naming policy without storing it.
func (a *App) Check(ctx context.Context, name string) (api.CheckResponse, error) {
	return a.checker.Check(ctx, name)
}

// RequestPermission opens the notification prompt if one is required.
func (a *App) RequestPermission() {
	if a.Gate.Status() == permission.StatusPending {
		a.Gate.Request(PermissionPrompt)
	}
}

// Close waits for pending notifications, then releases the store and journal.
func (a *App) Close() error {
	a.Controller.Close()
	return errors.Join(a.Store.Close(), a.Journal.Close())
}
