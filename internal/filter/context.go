package filter

import (
	"time"

	"github.com/tkingovr/companybook/api"
	"github.com/tkingovr/companybook/internal/company"
)

// FilterContext carries a single insert request through the filter chain.
type FilterContext struct {
	// Input is the name exactly as the caller supplied it.
	Input string

	// Name is the normalized name (set by NormalizeFilter).
	Name string

	// Verdict is set by the PolicyFilter after evaluation.
	Verdict api.Verdict

	// MatchedRule is the name of the rule that matched.
	MatchedRule string

	// VerdictMessage is the human-readable message from the matched rule.
	VerdictMessage string

	// StartTime records when the request entered the pipeline.
	StartTime time.Time

	// Halted indicates the request must not reach the store.
	Halted bool
}

// NewFilterContext creates a new FilterContext for a raw name.
func NewFilterContext(input string) *FilterContext {
	return &FilterContext{
		Input:     input,
		Name:      input,
		Verdict:   api.VerdictAllow,
		StartTime: time.Now(),
	}
}

// deny halts the pipeline with the given rule and message.
func (fc *FilterContext) deny(rule, message string) {
	fc.Verdict = api.VerdictDeny
	fc.MatchedRule = rule
	fc.VerdictMessage = message
	fc.Halted = true
}

// Err converts a halted context into a *company.RejectedError.
func (fc *FilterContext) Err() error {
	if !fc.Halted {
		return nil
	}
	return &company.RejectedError{
		Name:    fc.Name,
		Rule:    fc.MatchedRule,
		Message: fc.VerdictMessage,
	}
}

// CheckResponse converts the context into the dry-run API response.
func (fc *FilterContext) CheckResponse() api.CheckResponse {
	return api.CheckResponse{
		Name:    fc.Name,
		Verdict: fc.Verdict,
		Rule:    fc.MatchedRule,
		Message: fc.VerdictMessage,
	}
}
