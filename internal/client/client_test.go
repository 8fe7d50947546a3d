package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkingovr/companybook/api"
	"github.com/tkingovr/companybook/internal/company"
)

func TestBaseURL(t *testing.T) {
	tests := map[string]string{
		":9090":                  "http://127.0.0.1:9090",
		"0.0.0.0:9090":           "http://127.0.0.1:9090",
		"localhost:8080":         "http://localhost:8080",
		"http://127.0.0.1:9090/": "http://127.0.0.1:9090",
		"https://book.example":   "https://book.example",
	}
	for addr, want := range tests {
		assert.Equal(t, want, BaseURL(addr), "addr %s", addr)
	}
}

func TestClient_Insert(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/companies", r.URL.Path)
		var req api.CheckRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(api.Company{ID: 7, Name: req.Name})
	}))
	defer srv.Close()

	rec, err := New(srv.URL, time.Second).Insert(context.Background(), "Acme Corp")
	require.NoError(t, err)
	assert.Equal(t, api.Company{ID: 7, Name: "Acme Corp"}, rec)
}

func TestClient_All(t *testing.T) {
	want := api.Snapshot{Version: 2, Companies: []api.Company{{ID: 1, Name: "Acme"}, {ID: 2, Name: "Bolt"}}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	snap, err := New(srv.URL, time.Second).All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, snap)
}

func TestClient_ErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   api.ErrorResponse
		target error
	}{
		{"validation", http.StatusBadRequest, api.ErrorResponse{Error: "blank", Kind: "validation"}, company.ErrValidation},
		{"rejected", http.StatusUnprocessableEntity, api.ErrorResponse{Error: "no placeholders", Kind: "rejected", Rule: "block"}, company.ErrRejected},
		{"persistence", http.StatusInternalServerError, api.ErrorResponse{Error: "failed to save company", Kind: "persistence"}, company.ErrPersistence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(tt.body)
			}))
			defer srv.Close()

			_, err := New(srv.URL, time.Second).Insert(context.Background(), "asdf")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}
}

func TestClient_RejectedCarriesRule(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(api.ErrorResponse{Error: "no placeholders", Kind: "rejected", Rule: "block"})
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Insert(context.Background(), "asdf")
	var rej *company.RejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "block", rej.Rule)
	assert.Equal(t, "no placeholders", rej.Message)
	assert.Equal(t, "asdf", rej.Name)
}
