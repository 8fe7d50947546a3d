package filter

import (
	"context"

	"github.com/tkingovr/companybook/internal/company"
)

// NormalizeFilter trims the name and rejects blank input with a
// *company.ValidationError, aborting the chain.
type NormalizeFilter struct{}

func NewNormalizeFilter() *NormalizeFilter {
	return &NormalizeFilter{}
}

func (f *NormalizeFilter) Name() string { return "normalize" }

func (f *NormalizeFilter) Process(_ context.Context, fc *FilterContext) error {
	name, err := company.NormalizeName(fc.Input)
	if err != nil {
		return err
	}
	fc.Name = name
	return nil
}
