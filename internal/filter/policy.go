package filter

import (
	"context"

	"github.com/tkingovr/companybook/internal/policy"
)

// PolicyFilter evaluates the name against the naming policy engine.
type PolicyFilter struct {
	engine policy.Engine
}

func NewPolicyFilter(engine policy.Engine) *PolicyFilter {
	return &PolicyFilter{engine: engine}
}

func (f *PolicyFilter) Name() string { return "policy" }

func (f *PolicyFilter) Process(ctx context.Context, fc *FilterContext) error {
	if fc.Halted {
		return nil
	}

	result, err := f.engine.Evaluate(ctx, &policy.EvalInput{Name: fc.Name})
	if err != nil {
		return err
	}

	fc.Verdict = result.Verdict
	fc.MatchedRule = result.Rule
	fc.VerdictMessage = result.Message

	if !fc.Verdict.Admits() {
		fc.Halted = true
	}

	return nil
}
