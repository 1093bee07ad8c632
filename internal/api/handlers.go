package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"tripnav/internal/buildinfo"
	"tripnav/internal/model"
	"tripnav/internal/store"
	"tripnav/internal/triperr"
)

// requesterOf extracts the calling member from the request header. Empty
// means an internal/system call.
func requesterOf(r *http.Request) string {
	return r.Header.Get("X-Member-Id")
}

// TripsHandler handles POST /v1/trips (create/replace trip data).
func (s *Server) TripsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
		return
	}
	var data model.TripData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid body", err.Error(), r.URL.Path)
		return
	}
	if err := validateTripData(&data); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid trip data", err.Error(), r.URL.Path)
		return
	}
	id, err := s.Store.CreateTrip(r.Context(), data)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "create trip failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"groupId": id})
}

// TripByIDHandler routes /v1/trips/{id}/optimize, /result, and /progress.
func (s *Server) TripByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/trips/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		writeProblem(w, http.StatusNotFound, "not found", "", r.URL.Path)
		return
	}
	groupID := parts[0]
	switch parts[1] {
	case "optimize":
		s.optimize(w, r, groupID)
	case "result":
		s.result(w, r, groupID)
	case "progress":
		s.ProgressStreamHandler(w, r, groupID)
	default:
		writeProblem(w, http.StatusNotFound, "not found", "", r.URL.Path)
	}
}

func (s *Server) optimize(w http.ResponseWriter, r *http.Request, groupID string) {
	if r.Method != http.MethodPost {
		writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
		return
	}
	var req model.OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeProblem(w, http.StatusBadRequest, "invalid body", err.Error(), r.URL.Path)
		return
	}
	if err := validateOptimizeRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid optimize request", err.Error(), r.URL.Path)
		return
	}

	// requests for the same group are serialized; different groups race
	// freely since they share no mutable state
	lock := s.locks.forGroup(groupID)
	lock.Lock()
	defer lock.Unlock()

	res := s.Pipe.Optimize(r.Context(), groupID, requesterOf(r), req)
	writeJSON(w, statusCodeFor(res), res)
}

func (s *Server) result(w http.ResponseWriter, r *http.Request, groupID string) {
	if r.Method != http.MethodGet {
		writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
		return
	}
	res, err := s.Store.GetResult(r.Context(), groupID)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "no result", "no optimization result for this group yet", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "get result failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// statusCodeFor maps pipeline outcomes onto HTTP codes: degraded results are
// still 200s; only terminal classifications map to 4xx.
func statusCodeFor(res model.OptimizeResult) int {
	if res.Status != model.StatusError || res.Error == nil {
		return http.StatusOK
	}
	switch triperr.Kind(res.Error.Kind) {
	case triperr.KindPermissionDenied:
		return http.StatusForbidden
	case triperr.KindValidation:
		return http.StatusNotFound
	case triperr.KindInsufficientData, triperr.KindInvalidCoordinates, triperr.KindMissingPreferences:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusOK
	}
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Ping(r.Context()); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "store unavailable", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) VersionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Info())
}
