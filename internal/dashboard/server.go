package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/tkingovr/companybook/internal/app"
)

// Server is the web dashboard HTTP server.
type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	app    *app.App
	addr   string
}

// NewServer creates a new dashboard server.
func NewServer(addr string, a *app.App, logger *slog.Logger) *Server {
	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		app:    a,
		addr:   addr,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /", s.handleCompanies)
	s.mux.HandleFunc("POST /companies", s.handleAddCompany)
	s.mux.HandleFunc("GET /companies/stream", s.handleCompaniesStream)
	s.mux.HandleFunc("GET /notifications/stream", s.handleNotificationsStream)
	s.mux.HandleFunc("POST /permission/grant", s.handlePermissionGrant)
	s.mux.HandleFunc("POST /permission/deny", s.handlePermissionDeny)
	s.mux.HandleFunc("GET /policy", s.handlePolicy)
	s.mux.HandleFunc("GET /api/v1/companies", s.handleAPICompanies)
	s.mux.HandleFunc("POST /api/v1/companies", s.handleAPIAddCompany)
	s.mux.HandleFunc("POST /api/v1/check", s.handleAPICheck)
	s.mux.HandleFunc("GET /api/v1/notifications", s.handleAPINotifications)
	s.mux.Handle("GET /metrics", s.app.Metrics.Handler())
}

// ListenAndServe starts the dashboard HTTP server and shuts it down when
// ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts end with ctx so open SSE streams let Shutdown finish
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
		}
	}()

	s.logger.Info("starting dashboard", "addr", s.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler returns the HTTP handler for embedding in other servers.
func (s *Server) Handler() http.Handler {
	return s.mux
}
