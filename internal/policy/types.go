package policy

import (
	"github.com/tkingovr/companybook/api"
)

// PolicyFile represents the top-level YAML configuration: runtime settings
// plus the naming rules applied to every new company.
type PolicyFile struct {
	Version  int      `yaml:"version" json:"version"`
	Settings Settings `yaml:"settings" json:"settings"`
	Rules    []Rule   `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// Settings contains global settings.
type Settings struct {
	DefaultAction api.Verdict          `yaml:"default_action" json:"default_action"`
	DashboardAddr string               `yaml:"dashboard_addr,omitempty" json:"dashboard_addr,omitempty"`
	Store         StoreSettings        `yaml:"store,omitempty" json:"store,omitempty"`
	Notifications NotificationSettings `yaml:"notifications,omitempty" json:"notifications,omitempty"`
	OPAPolicy     string               `yaml:"opa_policy,omitempty" json:"opa_policy,omitempty"`
	RateLimit     *RateLimitSettings   `yaml:"rate_limit,omitempty" json:"rate_limit,omitempty"`
}

// StoreSettings selects the persistence backend.
type StoreSettings struct {
	Driver string `yaml:"driver,omitempty" json:"driver,omitempty"`
	Path   string `yaml:"path,omitempty" json:"path,omitempty"`
	DSN    string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
}

// NotificationSettings configures how new companies are announced.
type NotificationSettings struct {
	// RequirePermission opens a permission prompt on first launch; nothing
	// is sent until it is granted. Defaults to true.
	RequirePermission *bool  `yaml:"require_permission,omitempty" json:"require_permission,omitempty"`
	JournalDir        string `yaml:"journal_dir,omitempty" json:"journal_dir,omitempty"`
	WebhookURL        string `yaml:"webhook_url,omitempty" json:"webhook_url,omitempty"`
	Timeout           string `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// RateLimitSettings configures rate limiting of inserts.
type RateLimitSettings struct {
	Global *RateLimitRule `yaml:"global,omitempty" json:"global,omitempty"`
}

// RateLimitRule defines a rate limit: max requests per time window.
type RateLimitRule struct {
	Max    int    `yaml:"max" json:"max"`
	Window string `yaml:"window" json:"window"`
}

// Rule represents a single naming rule.
type Rule struct {
	Name    string    `yaml:"name" json:"name"`
	Match   RuleMatch `yaml:"match" json:"match"`
	Action  string    `yaml:"action" json:"action"`
	Message string    `yaml:"message,omitempty" json:"message,omitempty"`
}

// RuleMatch specifies conditions on the normalized company name. Every
// non-empty condition must hold. Exact, Prefix and Contains ignore case.
type RuleMatch struct {
	Exact    string `yaml:"exact,omitempty" json:"exact,omitempty"`
	Prefix   string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Contains string `yaml:"contains,omitempty" json:"contains,omitempty"`
	Regex    string `yaml:"regex,omitempty" json:"regex,omitempty"`
}

// Empty reports whether the match has no conditions.
func (m RuleMatch) Empty() bool {
	return m.Exact == "" && m.Prefix == "" && m.Contains == "" && m.Regex == ""
}

// EvalInput is the input to a policy engine evaluation.
type EvalInput struct {
	Name string `json:"name"`
}

// EvalResult is the output of a policy engine evaluation.
type EvalResult struct {
	Verdict api.Verdict `json:"verdict"`
	Rule    string      `json:"rule,omitempty"`
	Message string      `json:"message,omitempty"`
}
