package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/naka-gawa/star-neighbours/internal/domain"
	"github.com/naka-gawa/star-neighbours/internal/usecase"
)

// NeighbourService answers neighbour and quota queries.
type NeighbourService interface {
	Neighbours(ctx context.Context, repo domain.RepositoryID, opts usecase.Options) (*domain.NeighbourResult, error)
	RateLimit(ctx context.Context) (*domain.RateLimit, error)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string      `json:"error"`
	Kind  domain.Kind `json:"kind,omitempty"`
}

// HealthHandler handles GET /health
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// NeighbourHandler handles neighbour-related requests
type NeighbourHandler struct {
	engine   NeighbourService
	defaults usecase.Options
	timeout  time.Duration
	logger   *log.Logger
}

// NewNeighbourHandler creates a new neighbour handler
func NewNeighbourHandler(engine NeighbourService, defaults usecase.Options, timeout time.Duration, logger *log.Logger) *NeighbourHandler {
	return &NeighbourHandler{
		engine:   engine,
		defaults: defaults,
		timeout:  timeout,
		logger:   logger,
	}
}

// Neighbours handles GET /neighbours?repo=owner/name&limit=n
func (h *NeighbourHandler) Neighbours(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("repo")
	if raw == "" {
		h.respondError(w, domain.NewError(domain.KindInvalidInput, "missing repo parameter"))
		return
	}
	repo, err := domain.ParseRepositoryID(raw)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.serveNeighbours(w, r, repo)
}

// StarNeighbours handles GET /repos/{owner}/{repo}/starneighbours
func (h *NeighbourHandler) StarNeighbours(w http.ResponseWriter, r *http.Request) {
	repo, err := domain.ParseRepositoryID(chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "repo"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.serveNeighbours(w, r, repo)
}

// RateLimit handles GET /ratelimit
func (h *NeighbourHandler) RateLimit(w http.ResponseWriter, r *http.Request) {
	limit, err := h.engine.RateLimit(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, limit)
}

func (h *NeighbourHandler) serveNeighbours(w http.ResponseWriter, r *http.Request, repo domain.RepositoryID) {
	opts, err := h.queryOptions(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	result, err := h.engine.Neighbours(ctx, repo, opts)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// queryOptions overlays the optional query parameters on the defaults. The
// configured caps and result size are ceilings: larger values are clamped to them.
// Lower-bound checks are left to the engine.
func (h *NeighbourHandler) queryOptions(r *http.Request) (usecase.Options, error) {
	opts := h.defaults
	q := r.URL.Query()
	for _, p := range []struct {
		name    string
		dst     *int
		ceiling int
	}{
		{"limit", &opts.MaxResults, h.defaults.MaxResults},
		{"minShared", &opts.MinShared, 0},
		{"maxStargazers", &opts.MaxStargazers, h.defaults.MaxStargazers},
		{"maxReposPerStargazer", &opts.MaxReposPerStargazer, h.defaults.MaxReposPerStargazer},
	} {
		value := q.Get(p.name)
		if value == "" {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return opts, domain.WrapError(domain.KindInvalidInput, err, "invalid %s parameter %q", p.name, value)
		}
		if p.ceiling > 0 && n > p.ceiling {
			h.logger.Debug("Clamping query parameter", "name", p.name, "requested", n, "max", p.ceiling)
			n = p.ceiling
		}
		*p.dst = n
	}
	return opts, nil
}

func (h *NeighbourHandler) respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "status", status, "err", err)
	}
	respondJSON(w, status, ErrorResponse{Error: err.Error(), Kind: domain.KindOf(err)})
}

// statusFor maps an engine error to its HTTP status.
func statusFor(err error) int {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return http.StatusServiceUnavailable
	}
	switch domain.KindOf(err) {
	case domain.KindInvalidInput, domain.KindInvalidConfiguration:
		return http.StatusBadRequest
	case domain.KindRepositoryNotFound:
		return http.StatusNotFound
	case domain.KindUpstreamUnavailable, domain.KindRateLimited, domain.KindTransport:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
