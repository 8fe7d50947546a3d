// Package controller mediates between the presentation layer and the store.
// It admits names through the filter chain, persists them, and announces
// each new company through the notifier without letting notification
// problems affect the insert.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tkingovr/companybook/api"
	"github.com/tkingovr/companybook/internal/company"
	"github.com/tkingovr/companybook/internal/filter"
	"github.com/tkingovr/companybook/internal/metrics"
	"github.com/tkingovr/companybook/internal/notify"
	"github.com/tkingovr/companybook/internal/store"
)

const defaultNotifyTimeout = 5 * time.Second

// Controller is safe for concurrent use.
type Controller struct {
	store         store.Store
	admit         *filter.Chain
	notifier      notify.Notifier
	logger        *slog.Logger
	metrics       *metrics.Metrics
	notifyTimeout time.Duration

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup

	stopWatch context.CancelFunc
	watchDone chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithMetrics enables instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithNotifyTimeout bounds each notification delivery.
func WithNotifyTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.notifyTimeout = d
		}
	}
}

// New creates a controller. A nil chain only normalizes names; a nil
// notifier disables notifications.
func New(s store.Store, chain *filter.Chain, n notify.Notifier, opts ...Option) *Controller {
	c := &Controller{
		store:         s,
		notifier:      n,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		notifyTimeout: defaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if chain == nil {
		chain = filter.NewChain(c.logger, filter.NewNormalizeFilter())
	}
	c.admit = chain

	if c.metrics != nil {
		c.watchSize()
	}
	return c
}

// Insert admits, persists and announces a new company.
//
// It returns a *company.ValidationError for blank names, a
// *company.RejectedError when the naming policy or rate limiter refuses the
// name, and a *company.PersistenceError when the store fails. In all three
// cases nothing was stored and no notification was sent.
func (c *Controller) Insert(ctx context.Context, name string) (api.Company, error) {
	start := time.Now()

	fc := filter.NewFilterContext(name)
	if err := c.admit.Process(ctx, fc); err != nil {
		var verr *company.ValidationError
		if errors.As(err, &verr) {
			c.metrics.ObserveInsert(metrics.OutcomeInvalid, time.Since(start))
			return api.Company{}, verr
		}
		c.metrics.ObserveInsert(metrics.OutcomeError, time.Since(start))
		return api.Company{}, fmt.Errorf("admitting company: %w", err)
	}
	if err := fc.Err(); err != nil {
		c.metrics.ObserveInsert(metrics.OutcomeRejected, time.Since(start))
		c.logger.Info("company rejected",
			"name", fc.Name,
			"rule", fc.MatchedRule,
			"message", fc.VerdictMessage,
		)
		return api.Company{}, err
	}

	rec, err := c.store.Insert(ctx, fc.Name)
	if err != nil {
		outcome := metrics.OutcomeError
		if errors.Is(err, company.ErrValidation) {
			outcome = metrics.OutcomeInvalid
		}
		c.metrics.ObserveInsert(outcome, time.Since(start))
		c.logger.Error("insert failed", "name", fc.Name, "error", err)
		return api.Company{}, err
	}
	c.metrics.ObserveInsert(metrics.OutcomeOK, time.Since(start))

	if fc.Verdict == api.VerdictLog {
		c.logger.Info("company matched log rule",
			"id", rec.ID,
			"name", rec.Name,
			"rule", fc.MatchedRule,
		)
	} else {
		c.logger.Debug("company added", "id", rec.ID, "name", rec.Name)
	}

	c.announce(rec)
	return rec, nil
}

// All returns the current snapshot.
func (c *Controller) All(ctx context.Context) (api.Snapshot, error) {
	return c.store.All(ctx)
}

// ObserveAll subscribes to the live collection. The first value is the
// current snapshot.
func (c *Controller) ObserveAll(ctx context.Context) (<-chan api.Snapshot, func()) {
	return c.store.Subscribe(ctx)
}

// Close waits for in-flight notifications. It does not close the store.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	if c.stopWatch != nil {
		c.stopWatch()
		<-c.watchDone
	}
	c.inflight.Wait()
}

// announce delivers the notification for rec exactly once, in the
// background, with a context detached from the caller.
// The notifier is only ever called from that goroutine, so a panic in
// CanNotify or Notify cannot reach the inserting caller.
func (c *Controller) announce(rec api.Company) {
	if c.notifier == nil {
		c.metrics.ObserveNotification(metrics.OutcomeSkipped)
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.metrics.ObserveNotification(metrics.OutcomeSkipped)
		return
	}
	c.inflight.Add(1)
	c.mu.Unlock()

	title, body := company.NotificationText(rec.Name)
	n := &api.Notification{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Title:     title,
		Body:      body,
		Company:   &rec,
	}

	go func() {
		defer c.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				c.metrics.ObserveNotification(metrics.OutcomeError)
				c.logger.Error("notifier panicked", "company_id", rec.ID, "panic", r)
			}
		}()

		if !c.notifier.CanNotify() {
			c.metrics.ObserveNotification(metrics.OutcomeSkipped)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.notifyTimeout)
		defer cancel()

		if err := c.notifier.Notify(ctx, n); err != nil {
			c.metrics.ObserveNotification(metrics.OutcomeError)
			c.logger.Warn("notification failed", "company_id", rec.ID, "error", err)
			return
		}
		c.metrics.ObserveNotification(metrics.OutcomeOK)
	}()
}

// watchSize keeps the companies gauge in step with the store.
func (c *Controller) watchSize() {
	ctx, cancel := context.WithCancel(context.Background())
	c.stopWatch = cancel
	c.watchDone = make(chan struct{})

	updates, unsubscribe := c.store.Subscribe(ctx)
	go func() {
		defer close(c.watchDone)
		defer unsubscribe()
		for snap := range updates {
			c.metrics.SetCompanies(snap.Len())
		}
	}()
}
