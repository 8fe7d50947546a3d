// Package client talks to a running companybook dashboard over its JSON API.
// The CLI uses it when another process owns the store.
package client

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tkingovr/companybook/api"
	"github.com/tkingovr/companybook/internal/company"
)

// Client calls the /api/v1 endpoints of a dashboard.
type Client struct {
	http *resty.Client
}

// New creates a client for the dashboard at addr, either a listen address
// such as ":9090" or a full http URL.
func New(addr string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(BaseURL(addr)).
			SetTimeout(timeout).
			SetHeader("User-Agent", "companybook"),
	}
}

// BaseURL turns a listen address into the URL a local client dials.
func BaseURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimSuffix(addr, "/")
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// Insert adds name through the dashboard.
func (c *Client) Insert(ctx context.Context, name string) (api.Company, error) {
	var rec api.Company
	var failure api.ErrorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(api.CheckRequest{Name: name}).
		SetResult(&rec).
		SetError(&failure).
		Post("/api/v1/companies")
	if err != nil {
		return api.Company{}, fmt.Errorf("posting company: %w", err)
	}
	if resp.IsError() {
		return api.Company{}, remoteError(name, resp.StatusCode(), failure)
	}
	return rec, nil
}

// All returns the dashboard's current snapshot.
func (c *Client) All(ctx context.Context) (api.Snapshot, error) {
	var snap api.Snapshot
	var failure api.ErrorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&snap).
		SetError(&failure).
		Get("/api/v1/companies")
	if err != nil {
		return api.Snapshot{}, fmt.Errorf("fetching companies: %w", err)
	}
	if resp.IsError() {
		return api.Snapshot{}, remoteError("", resp.StatusCode(), failure)
	}
	return snap, nil
}

// remoteError maps an API failure back onto the domain error kinds.
func remoteError(name string, status int, failure api.ErrorResponse) error {
	switch {
	case failure.Kind == "validation" || (status == http.StatusBadRequest && failure.Kind != "request"):
		return &company.ValidationError{Input: name}
	case failure.Kind == "rejected" || status == http.StatusUnprocessableEntity:
		return &company.RejectedError{Name: name, Rule: failure.Rule, Message: failure.Error}
	case failure.Kind == "persistence":
		return company.Persistence("remote insert", fmt.Errorf("server returned %d: %s", status, failure.Error))
	default:
		return fmt.Errorf("server returned %d: %s", status, failure.Error)
	}
}
