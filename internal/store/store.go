// Package store provides durable storage for companies and the live view
// that subscribers observe.
//
// Every backend serializes writers behind one mutex. A record becomes
// visible to readers and subscribers only after the backend has durably
// written it, and snapshots are published from inside the writer's critical
// section, so all observers see inserts in the same order.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/tkingovr/companybook/api"
)

// ErrClosed is the cause of the PersistenceError returned by a closed store.
var ErrClosed = errors.New("store closed")

// ErrLocked is the cause of the PersistenceError returned when another
// process already owns the backing database.
var ErrLocked = errors.New("store is owned by another process")

// Store is the single owner of persisted companies.
type Store interface {
	// Insert validates name, durably records a new company with a fresh id
	// and publishes the updated snapshot to subscribers.
	Insert(ctx context.Context, name string) (api.Company, error)

	// All returns the current contents in insertion order.
	All(ctx context.Context) (api.Snapshot, error)

	// Subscribe returns a channel that receives the full snapshot
	// immediately and again after every successful insert. The returned
	// function cancels the subscription; cancelling ctx does the same.
	Subscribe(ctx context.Context) (<-chan api.Snapshot, func())

	// Close releases the backend and closes every subscriber channel.
	Close() error
}

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects and configures a backend.
type Config struct {
	Driver string `yaml:"driver" json:"driver"`
	Path   string `yaml:"path,omitempty" json:"path,omitempty"`
	DSN    string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
}

// Open constructs the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite, "":
		return OpenSQLite(ctx, cfg.Path)
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres driver requires a dsn")
		}
		return OpenPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
