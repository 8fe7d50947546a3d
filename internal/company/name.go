// Package company holds the record rules shared by every store backend
// and the error taxonomy surfaced to callers.
package company

import (
	"strings"

	"github.com/tkingovr/companybook/api"
)

// NormalizeName trims surrounding whitespace and rejects blank names.
func NormalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", &ValidationError{Input: raw}
	}
	return name, nil
}

// New builds a Company with the given store-assigned id.
func New(id int64, raw string) (api.Company, error) {
	name, err := NormalizeName(raw)
	if err != nil {
		return api.Company{}, err
	}
	return api.Company{ID: id, Name: name}, nil
}

// NotificationText returns the title and body shown when a company is added.
func NotificationText(name string) (title, body string) {
	return "New Company Added", "Company added: " + name
}
