package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tkingovr/companybook/api"
	"github.com/tkingovr/companybook/internal/filter"
	"github.com/tkingovr/companybook/internal/policy"
	"github.com/tkingovr/companybook/internal/store"
)

// Config is the runtime configuration for companybook.
type Config struct {
	PolicyFile        *policy.PolicyFile
	PolicyPath        string
	Store             store.Config
	DashboardAddr     string
	RequirePermission bool
	JournalDir        string
	WebhookURL        string
	NotifyTimeout     time.Duration
	RateLimit         *filter.RateLimit
	OPAPolicy         string
}

// Load reads a YAML config file and produces a runtime Config.
func Load(path string) (*Config, error) {
	pf, err := policy.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return fromPolicy(pf, path)
}

// LoadBytes parses YAML data and produces a runtime Config.
func LoadBytes(data []byte) (*Config, error) {
	pf, err := policy.LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return fromPolicy(pf, "")
}

func fromPolicy(pf *policy.PolicyFile, path string) (*Config, error) {
	s := pf.Settings
	cfg := &Config{
		PolicyFile:        pf,
		PolicyPath:        path,
		RequirePermission: true,
		WebhookURL:        s.Notifications.WebhookURL,
	}

	// Store
	cfg.Store = store.Config{
		Driver: s.Store.Driver,
		Path:   s.Store.Path,
		DSN:    s.Store.DSN,
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = DefaultStoreDriver
	}
	switch cfg.Store.Driver {
	case store.DriverMemory:
	case store.DriverSQLite:
		if cfg.Store.Path == "" {
			cfg.Store.Path = DefaultDBPath()
		}
		if cfg.Store.Path != ":memory:" {
			cfg.Store.Path = expandHome(cfg.Store.Path)
		}
	case store.DriverPostgres:
		if cfg.Store.DSN == "" {
			return nil, fmt.Errorf("store driver postgres requires a dsn")
		}
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	// Dashboard address
	cfg.DashboardAddr = s.DashboardAddr
	if cfg.DashboardAddr == "" {
		cfg.DashboardAddr = DefaultDashboardAddr
	}

	// Notifications
	if s.Notifications.RequirePermission != nil {
		cfg.RequirePermission = *s.Notifications.RequirePermission
	}
	cfg.JournalDir = s.Notifications.JournalDir
	if cfg.JournalDir == "" {
		cfg.JournalDir = DefaultJournalDir()
	}
	cfg.JournalDir = expandHome(cfg.JournalDir)

	if s.Notifications.Timeout != "" {
		d, err := time.ParseDuration(s.Notifications.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid notifications.timeout %q: %w", s.Notifications.Timeout, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("notifications.timeout must be positive, got %s", d)
		}
		cfg.NotifyTimeout = d
	} else {
		cfg.NotifyTimeout = DefaultNotifyTimeout
	}

	// Rate limit
	rl, err := filter.RateLimitFromPolicy(s.RateLimit)
	if err != nil {
		return nil, err
	}
	cfg.RateLimit = rl

	// OPA policy, relative to the config file
	if s.OPAPolicy != "" {
		cfg.OPAPolicy = expandHome(s.OPAPolicy)
		if path != "" && !filepath.IsAbs(cfg.OPAPolicy) {
			cfg.OPAPolicy = filepath.Join(filepath.Dir(path), cfg.OPAPolicy)
		}
	}

	return cfg, nil
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfig returns a config with defaults for when no config file is given.
func DefaultConfig() *Config {
	return &Config{
		PolicyFile: &policy.PolicyFile{
			Version: 1,
			Settings: policy.Settings{
				DefaultAction: api.VerdictAllow,
			},
		},
		Store: store.Config{
			Driver: DefaultStoreDriver,
			Path:   expandHome(DefaultDBPath()),
		},
		DashboardAddr:     DefaultDashboardAddr,
		RequirePermission: true,
		JournalDir:        expandHome(DefaultJournalDir()),
		NotifyTimeout:     DefaultNotifyTimeout,
	}
}

// MarshalYAML serializes the policy for display/export.
func (c *Config) MarshalYAML() ([]byte, error) {
	return yaml.Marshal(c.PolicyFile)
}
