package filter

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tkingovr/companybook/internal/policy"
)

// ChainConfig holds the configuration for building the admission chain.
type ChainConfig struct {
	Engine    policy.Engine
	Logger    *slog.Logger
	RateLimit *RateLimit
}

// BuildAdmissionChain constructs the chain every insert passes through:
// normalize, then naming policy, then the rate limiter.
func BuildAdmissionChain(cfg ChainConfig) *Chain {
	filters := []Filter{NewNormalizeFilter()}

	if cfg.Engine != nil {
		filters = append(filters, NewPolicyFilter(cfg.Engine))
	}

	// Rate limit last so denied names do not consume the budget
	if cfg.RateLimit != nil {
		filters = append(filters, NewRateLimitFilter(*cfg.RateLimit))
	}

	return NewChain(cfg.Logger, filters...)
}

// BuildCheckChain constructs the dry-run chain used by `check`: like the
// admission chain but without the rate limiter, which would otherwise
// count dry runs.
func BuildCheckChain(cfg ChainConfig) *Chain {
	cfg.RateLimit = nil
	return BuildAdmissionChain(cfg)
}

// RateLimitFromPolicy converts policy rate limit settings to filter config.
func RateLimitFromPolicy(settings *policy.RateLimitSettings) (*RateLimit, error) {
	if settings == nil || settings.Global == nil {
		return nil, nil
	}
	d, err := time.ParseDuration(settings.Global.Window)
	if err != nil {
		return nil, fmt.Errorf("invalid rate_limit window %q: %w", settings.Global.Window, err)
	}
	if settings.Global.Max <= 0 || d <= 0 {
		return nil, fmt.Errorf("rate_limit needs a positive max and window")
	}
	return &RateLimit{Max: settings.Global.Max, Window: d}, nil
}
