package config

import (
	"time"

	"github.com/tkingovr/companybook/internal/store"
)

const (
	DefaultDashboardAddr = "127.0.0.1:8080"
	DefaultNotifyTimeout = 5 * time.Second
	DefaultStoreDriver   = store.DriverSQLite
)

// DefaultDBPath returns the default SQLite database path.
func DefaultDBPath() string {
	return "~/.companybook/companies.db"
}

// DefaultJournalDir returns the default notification journal directory.
func DefaultJournalDir() string {
	return "~/.companybook/notifications"
}
