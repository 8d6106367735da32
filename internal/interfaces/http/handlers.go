package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
	"github.com/gregleo12/spooky-football-engine/internal/odds"
)

// Handlers carries the endpoint implementations over the query service.
type Handlers struct {
	svc    *Service
	health *HealthChecker
}

func NewHandlers(svc *Service, health *HealthChecker) *Handlers {
	return &Handlers{svc: svc, health: health}
}

// Teams handles GET /api/teams.
func (h *Handlers) Teams(w http.ResponseWriter, r *http.Request) {
	competitionID, err := competitionParam(r)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "bad_request", "competition must be a numeric id")
		return
	}

	b, err := h.svc.Teams(r.Context(), competitionID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeRaw(w, http.StatusOK, b)
}

// Ranking handles GET /api/teams/ranking.
func (h *Handlers) Ranking(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = rankingScopeOverall
	}
	if scope != rankingScopeOverall && scope != rankingScopeEuropean {
		h.writeError(w, r, http.StatusBadRequest, "bad_request", "scope must be overall or european")
		return
	}

	competitionID, err := competitionParam(r)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "bad_request", "competition must be a numeric id")
		return
	}

	b, err := h.svc.Ranking(r.Context(), scope, competitionID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeRaw(w, http.StatusOK, b)
}

// Strength handles GET /api/strength/{team}.
func (h *Handlers) Strength(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Strength(r.Context(), mux.Vars(r)["team"])
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeRaw(w, http.StatusOK, b)
}

// Form handles GET /api/form/{team}.
func (h *Handlers) Form(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Form(r.Context(), mux.Vars(r)["team"])
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeRaw(w, http.StatusOK, b)
}

// Odds handles GET /api/odds/{home}/{away}.
func (h *Handlers) Odds(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	home, away := vars["home"], vars["away"]
	neutral := r.URL.Query().Get("neutral") == "true" || r.URL.Query().Get("neutral") == "1"

	b, err := h.svc.Odds(r.Context(), home, away, neutral)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeRaw(w, http.StatusOK, b)
}

// Coverage handles GET /api/coverage.
func (h *Handlers) Coverage(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Coverage(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeRaw(w, http.StatusOK, b)
}

// LastUpdate handles GET /api/last-update.
func (h *Handlers) LastUpdate(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.LastUpdated(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeRaw(w, http.StatusOK, b)
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.health == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.health.Check(r.Context()))
}

// NotFound answers unrouted paths.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	h.writeError(w, r, http.StatusNotFound, "endpoint_not_found", "the requested endpoint does not exist")
}

func (h *Handlers) writeRaw(w http.ResponseWriter, status int, b []byte) {
	w.WriteHeader(status)
	w.Write(b)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"json_encoding_failed"}`, http.StatusInternalServerError)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: requestIDFrom(r.Context()),
		Timestamp: time.Now().UTC(),
	})
}

// writeDomainError maps the error taxonomy onto HTTP statuses: lookups that
// miss answer 404, refused pairings 422, unavailable dependencies 503 and
// everything else 500.
func (h *Handlers) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var refusal *odds.Refusal
	if errors.As(err, &refusal) {
		missing := make([]string, len(refusal.Missing))
		for i, p := range refusal.Missing {
			missing[i] = string(p)
		}
		h.writeJSON(w, http.StatusUnprocessableEntity, RefusalResponse{
			Error:     "insufficient_coverage",
			Team:      refusal.Team,
			Missing:   missing,
			RequestID: requestIDFrom(r.Context()),
			Timestamp: time.Now().UTC(),
		})
		return
	}

	switch domain.KindOf(err) {
	case domain.KindInvalid:
		h.writeError(w, r, http.StatusNotFound, "not_found", err.Error())
	case domain.KindTransient, domain.KindStorage, domain.KindPermanent:
		h.writeError(w, r, http.StatusServiceUnavailable, "temporarily_unavailable", err.Error())
	default:
		h.writeError(w, r, http.StatusInternalServerError, "internal_error", "an internal error occurred")
	}
}

func competitionParam(r *http.Request) (*int64, error) {
	raw := r.URL.Query().Get("competition")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
