package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/tkingovr/companybook/api"
	"github.com/tkingovr/companybook/internal/company"
	"github.com/tkingovr/companybook/internal/permission"
)

const maxBodyBytes = 1 << 16

type bannerData struct {
	Status permission.Status
	Prompt *permission.Prompt
}

type resultData struct {
	Error   string
	Company api.Company
}

func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	snap, err := s.app.Controller.All(r.Context())
	if err != nil {
		s.logger.Error("listing companies", "error", err)
		http.Error(w, "failed to list companies", http.StatusInternalServerError)
		return
	}

	data := map[string]any{
		"Page":       "companies",
		"Show":       showCompanies(r),
		"Snapshot":   snap,
		"Permission": s.banner(),
	}
	renderPage(w, "companies", data)
}

// showCompanies reads the list toggle. It only affects rendering.
func showCompanies(r *http.Request) bool {
	show, _ := strconv.ParseBool(r.URL.Query().Get("show"))
	return show
}

func (s *Server) banner() bannerData {
	b := bannerData{Status: s.app.Gate.Status()}
	if p, ok := s.app.Gate.Prompt(); ok {
		b.Prompt = &p
	}
	return b
}

func (s *Server) handleAddCompany(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	rec, err := s.app.Controller.Insert(r.Context(), r.PostFormValue("name"))

	// Plain form posts fall back to a redirect so the page works without JS
	if r.Header.Get("HX-Request") != "true" {
		if err != nil {
			status, resp := errorResponse(err)
			http.Error(w, resp.Error, status)
			return
		}
		http.Redirect(w, r, "/?show=1", http.StatusSeeOther)
		return
	}

	if err != nil {
		status, resp := errorResponse(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("adding company", "error", err)
		}
		renderFragment(w, http.StatusOK, "result", resultData{Error: resp.Error})
		return
	}
	renderFragment(w, http.StatusOK, "result", resultData{Company: rec})
}

func (s *Server) handleCompaniesStream(w http.ResponseWriter, r *http.Request) {
	ch, cancel := s.app.Controller.ObserveAll(r.Context())
	defer cancel()

	flusher, ok := startStream(w)
	if !ok {
		return
	}

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return
			}
			html, err := fragment("companyList", snap)
			if err != nil {
				s.logger.Error("rendering companies", "error", err)
				return
			}
			writeEvent(w, "companies", html)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) handleNotificationsStream(w http.ResponseWriter, r *http.Request) {
	// Subscribe before the headers go out so nothing is missed
	ch, cancel := s.app.Journal.Subscribe(r.Context())
	defer cancel()

	flusher, ok := startStream(w)
	if !ok {
		return
	}

	for {
		select {
		case n, ok := <-ch:
			if !ok {
				return
			}
			html, err := fragment("toast", n)
			if err != nil {
				s.logger.Error("rendering notification", "error", err)
				return
			}
			writeEvent(w, "notification", html)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func startStream(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return flusher, true
}

// writeEvent writes one SSE event. Every line of data gets its own data
// field so multi-line HTML survives intact.
func writeEvent(w http.ResponseWriter, event, data string) {
	fmt.Fprintf(w, "event: %s\n", event)
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprint(w, "\n")
}

func (s *Server) handlePermissionGrant(w http.ResponseWriter, _ *http.Request) {
	s.resolvePermission(w, s.app.Gate.Grant)
}

func (s *Server) handlePermissionDeny(w http.ResponseWriter, _ *http.Request) {
	s.resolvePermission(w, s.app.Gate.Deny)
}

func (s *Server) resolvePermission(w http.ResponseWriter, decide func() error) {
	if err := decide(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	s.logger.Info("notification permission decided", "status", s.app.Gate.Status())
	// HTMX: return the updated banner
	renderFragment(w, http.StatusOK, "banner", s.banner())
}

func (s *Server) handlePolicy(w http.ResponseWriter, _ *http.Request) {
	policyYAML, err := s.app.Config.MarshalYAML()
	if err != nil {
		http.Error(w, "failed to render policy", http.StatusInternalServerError)
		return
	}

	data := map[string]any{
		"Page":       "policy",
		"PolicyYAML": string(policyYAML),
		"OPAPolicy":  s.app.Config.OPAPolicy,
		"PolicyPath": s.app.Config.PolicyPath,
		"JournalDir": s.app.Journal.Dir(),
	}
	renderPage(w, "policy", data)
}

func (s *Server) handleAPICompanies(w http.ResponseWriter, r *http.Request) {
	snap, err := s.app.Controller.All(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleAPIAddCompany(w http.ResponseWriter, r *http.Request) {
	var req api.CheckRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid request body", Kind: "request"})
		return
	}

	rec, err := s.app.Controller.Insert(r.Context(), req.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleAPICheck(w http.ResponseWriter, r *http.Request) {
	var req api.CheckRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid request body", Kind: "request"})
		return
	}

	resp, err := s.app.Check(r.Context(), req.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAPINotifications(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid limit", Kind: "request"})
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, s.app.Journal.Recent(limit))
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, resp := errorResponse(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, resp)
}

// errorResponse maps domain errors to HTTP: validation 400, rejection 422,
// everything else 500.
func errorResponse(err error) (int, api.ErrorResponse) {
	var rej *company.RejectedError
	switch {
	case errors.Is(err, company.ErrValidation):
		return http.StatusBadRequest, api.ErrorResponse{Error: "Company name must not be blank", Kind: "validation"}
	case errors.As(err, &rej):
		msg := rej.Message
		if msg == "" {
			msg = fmt.Sprintf("%q is not allowed", rej.Name)
		}
		return http.StatusUnprocessableEntity, api.ErrorResponse{Error: msg, Kind: "rejected", Rule: rej.Rule}
	case errors.Is(err, company.ErrPersistence):
		return http.StatusInternalServerError, api.ErrorResponse{Error: "failed to save company", Kind: "persistence"}
	default:
		return http.StatusInternalServerError, api.ErrorResponse{Error: "internal error", Kind: "internal"}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
