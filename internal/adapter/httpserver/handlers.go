package httpserver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/fairyhunter13/company-investigation/internal/config"
	"github.com/fairyhunter13/company-investigation/internal/domain"
	"github.com/fairyhunter13/company-investigation/internal/observability"
	"github.com/fairyhunter13/company-investigation/internal/usecase"
)

// CheckAPI is the slice of the check service the HTTP layer needs.
type CheckAPI interface {
	StartCheck(ctx domain.Context, companyNumber string, depth int) (uuid.UUID, error)
	Checks(ctx domain.Context) ([]domain.Check, error)
	Status(ctx domain.Context, checkID uuid.UUID) (usecase.CheckStatus, error)
	Entities(ctx domain.Context, checkID uuid.UUID) ([]domain.Entity, error)
	Relations(ctx domain.Context, checkID uuid.UUID) ([]usecase.RelationView, error)
	StartMonitoring(ctx domain.Context, companyNumber string) (uuid.UUID, error)
	CancelMonitoring(ctx domain.Context, checkID uuid.UUID) error
}

// Server aggregates the dependencies of the HTTP handlers.
type Server struct {
	Cfg    config.Config
	Checks CheckAPI

	// ReadyChecks are probed by /readyz; each returns an error when its
	// dependency is unavailable.
	ReadyChecks map[string]func(domain.Context) error

	validate *validator.Validate
}

// NewServer constructs a Server.
func NewServer(cfg config.Config, checks CheckAPI, readyChecks map[string]func(domain.Context) error) *Server {
	return &Server{
		Cfg:         cfg,
		Checks:      checks,
		ReadyChecks: readyChecks,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

type startCheckRequest struct {
	CompanyNumber string `json:"company_number" validate:"required,max=10"`
	Depth         int    `json:"depth" validate:"gte=0,lte=10"`
}

type startMonitoringRequest struct {
	CompanyNumber string `json:"company_number" validate:"required,max=10"`
}

type checkCreatedResponse struct {
	ID string `json:"id"`
}

type checkSummaryResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	StartedAt time.Time `json:"started_at"`
}

type checkStatusResponse struct {
	ID            string     `json:"id"`
	Kind          string     `json:"kind"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	HasErroredJob bool       `json:"has_errored_job"`
	NumJobs       int        `json:"num_jobs"`
	NumEntities   int        `json:"num_entities"`
}

type entityResponse struct {
	ID             string  `json:"id"`
	RegistryNumber string  `json:"registry_number"`
	Name           *string `json:"name,omitempty"`
	Kind           string  `json:"kind"`
	Country        *string `json:"country,omitempty"`
	PostalCode     *string `json:"postal_code,omitempty"`
	DateOfOrigin   *string `json:"date_of_origin,omitempty"`
	IsRoot         bool    `json:"is_root"`
}

type relationResponse struct {
	ParentID  string     `json:"parent_id"`
	ChildID   string     `json:"child_id"`
	Kind      string     `json:"kind"`
	StartedOn *time.Time `json:"started_on,omitempty"`
	EndedOn   *time.Time `json:"ended_on,omitempty"`
}

// StartCheckHandler handles POST /v1/checks.
func (s *Server) StartCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startCheckRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, fmt.Errorf("invalid request body: %w", domain.ErrInvalidArgument), nil)
			return
		}
		if err := s.validate.Struct(req); err != nil {
			writeError(w, fmt.Errorf("validation failed: %w", domain.ErrInvalidArgument), err.Error())
			return
		}

		checkID, err := s.Checks.StartCheck(r.Context(), req.CompanyNumber, req.Depth)
		if err != nil {
			observability.LoggerFromContext(r.Context()).Error("start check failed", slog.Any("error", err))
			writeError(w, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, checkCreatedResponse{ID: checkID.String()})
	}
}

// ListChecksHandler handles GET /v1/checks.
func (s *Server) ListChecksHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks, err := s.Checks.Checks(r.Context())
		if err != nil {
			writeError(w, err, nil)
			return
		}
		out := make([]checkSummaryResponse, 0, len(checks))
		for _, c := range checks {
			out = append(out, checkSummaryResponse{
				ID:        c.ID.String(),
				Kind:      string(c.Kind),
				StartedAt: c.StartedAt,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// StatusHandler handles GET /v1/checks/{id}.
func (s *Server) StatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checkID, ok := checkIDFromPath(w, r)
		if !ok {
			return
		}
		status, err := s.Checks.Status(r.Context(), checkID)
		if err != nil {
			writeError(w, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, checkStatusResponse{
			ID:            status.ID.String(),
			Kind:          string(status.Kind),
			StartedAt:     status.StartedAt,
			CompletedAt:   status.CompletedAt,
			HasErroredJob: status.HasErroredJob,
			NumJobs:       status.NumJobs,
			NumEntities:   status.NumEntities,
		})
	}
}

// EntitiesHandler handles GET /v1/checks/{id}/entities.
func (s *Server) EntitiesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checkID, ok := checkIDFromPath(w, r)
		if !ok {
			return
		}
		entities, err := s.Checks.Entities(r.Context(), checkID)
		if err != nil {
			writeError(w, err, nil)
			return
		}
		out := make([]entityResponse, 0, len(entities))
		for _, e := range entities {
			out = append(out, entityResponse{
				ID:             e.ID.String(),
				RegistryNumber: e.RegistryNumber,
				Name:           e.Name,
				Kind:           string(e.Kind),
				Country:        e.Country,
				PostalCode:     e.PostalCode,
				DateOfOrigin:   e.DateOfOrigin,
				IsRoot:         e.IsRoot,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// RelationsHandler handles GET /v1/checks/{id}/relations.
func (s *Server) RelationsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checkID, ok := checkIDFromPath(w, r)
		if !ok {
			return
		}
		relations, err := s.Checks.Relations(r.Context(), checkID)
		if err != nil {
			writeError(w, err, nil)
			return
		}
		out := make([]relationResponse, 0, len(relations))
		for _, rel := range relations {
			out = append(out, relationResponse{
				ParentID:  rel.ParentID.String(),
				ChildID:   rel.ChildID.String(),
				Kind:      string(rel.Kind),
				StartedOn: rel.StartedOn,
				EndedOn:   rel.EndedOn,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// StartMonitoringHandler handles POST /v1/monitoring.
func (s *Server) StartMonitoringHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startMonitoringRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, fmt.Errorf("invalid request body: %w", domain.ErrInvalidArgument), nil)
			return
		}
		if err := s.validate.Struct(req); err != nil {
			writeError(w, fmt.Errorf("validation failed: %w", domain.ErrInvalidArgument), err.Error())
			return
		}

		checkID, err := s.Checks.StartMonitoring(r.Context(), req.CompanyNumber)
		if err != nil {
			observability.LoggerFromContext(r.Context()).Error("start monitoring failed", slog.Any("error", err))
			writeError(w, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, checkCreatedResponse{ID: checkID.String()})
	}
}

// CancelMonitoringHandler handles DELETE /v1/monitoring/{id}.
func (s *Server) CancelMonitoringHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checkID, ok := checkIDFromPath(w, r)
		if !ok {
			return
		}
		if err := s.Checks.CancelMonitoring(r.Context(), checkID); err != nil {
			writeError(w, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HealthzHandler reports process liveness.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyzHandler probes every registered dependency and reports 503 when any
// of them is down.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		failures := map[string]string{}
		for name, probe := range s.ReadyChecks {
			if err := probe(r.Context()); err != nil {
				failures[name] = err.Error()
			}
		}
		if len(failures) > 0 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failures": failures})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func checkIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	checkID, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, fmt.Errorf("malformed check id %q: %w", raw, domain.ErrInvalidArgument), nil)
		return uuid.Nil, false
	}
	return checkID, true
}
