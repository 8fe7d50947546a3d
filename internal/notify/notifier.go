package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tkingovr/companybook/api"
	"github.com/tkingovr/companybook/internal/permission"
)

// ErrNotPermitted is returned when the user has not allowed notifications.
var ErrNotPermitted = errors.New("notifications not permitted")

// Notifier delivers user-visible notifications.
type Notifier interface {
	// Notify delivers a single notification.
	Notify(ctx context.Context, n *api.Notification) error

	// CanNotify reports whether Notify is currently expected to deliver.
	CanNotify() bool
}

// Log writes notifications to a structured logger.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(_ context.Context, n *api.Notification) error {
	l.logger.Info(n.Title, "body", n.Body, "notification_id", n.ID)
	return nil
}

func (l *Log) CanNotify() bool { return true }

// Multi fans a notification out to several notifiers.
type Multi []Notifier

// Notify delivers to every member that can notify and joins their errors.
func (m Multi) Notify(ctx context.Context, n *api.Notification) error {
	var errs []error
	for _, nt := range m {
		if !nt.CanNotify() {
			continue
		}
		if err := nt.Notify(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", nt, err))
		}
	}
	return errors.Join(errs...)
}

// CanNotify is true if any member can notify.
func (m Multi) CanNotify() bool {
	for _, nt := range m {
		if nt.CanNotify() {
			return true
		}
	}
	return false
}

// Gated only delivers once the permission gate is granted.
type Gated struct {
	gate  *permission.Gate
	inner Notifier
}

func NewGated(gate *permission.Gate, inner Notifier) *Gated {
	return &Gated{gate: gate, inner: inner}
}

func (g *Gated) Notify(ctx context.Context, n *api.Notification) error {
	if !g.gate.Allowed() {
		return ErrNotPermitted
	}
	return g.inner.Notify(ctx, n)
}

func (g *Gated) CanNotify() bool {
	return g.gate.Allowed() && g.inner.CanNotify()
}
