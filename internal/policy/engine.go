package policy

import "context"

// Engine is the interface for naming policy backends.
type Engine interface {
	// Evaluate checks a name against loaded policies and returns a verdict.
	Evaluate(ctx context.Context, input *EvalInput) (*EvalResult, error)

	// Reload reloads policies from the source file.
	Reload(ctx context.Context) error
}
