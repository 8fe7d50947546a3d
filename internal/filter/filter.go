package filter

import "context"

// Filter is a single step in the admission pipeline that runs before a
// company reaches the store.
type Filter interface {
	// Name returns the filter name for logging.
	Name() string

	// Process processes the filter context. It may modify the context
	// (e.g., normalize the name, set a verdict).
	// Returning an error aborts the filter chain.
	Process(ctx context.Context, fc *FilterContext) error
}
