package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/finapp/advisor-engine/internal/catalog"
	"github.com/finapp/advisor-engine/internal/engine"
	"github.com/finapp/advisor-engine/internal/models"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// respondEngineError maps engine and catalog sentinel errors onto HTTP
// statuses. Anything unrecognized is a 500 with the detail kept out of the
// response body.
func respondEngineError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, catalog.ErrUnknownAdvisor):
		respondError(w, http.StatusNotFound, "unknown_advisor", "advisor not found")
	case errors.Is(err, catalog.ErrStepOutOfRange):
		respondError(w, http.StatusBadRequest, "step_out_of_range", "step index out of range")
	case errors.Is(err, engine.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "session_not_found", "session not found")
	case errors.Is(err, engine.ErrMissingRequiredAnswer):
		respondError(w, http.StatusBadRequest, "missing_required_answer", err.Error())
	case errors.Is(err, engine.ErrInvalidOption):
		respondError(w, http.StatusBadRequest, "invalid_option", err.Error())
	case errors.Is(err, engine.ErrOutOfRange):
		respondError(w, http.StatusBadRequest, "out_of_range", err.Error())
	case errors.Is(err, engine.ErrSessionAlreadyComplete):
		respondError(w, http.StatusConflict, "session_complete", "session is already complete")
	case errors.Is(err, engine.ErrSessionNotComplete):
		respondError(w, http.StatusConflict, "session_not_complete", "session is not complete yet")
	case errors.Is(err, engine.ErrStaleSession):
		respondError(w, http.StatusConflict, "stale_session", "session advanced concurrently, reload the current step")
	case errors.Is(err, engine.ErrNoApplicableRecommendation):
		slog.Error("no decision row matched completed session", "error", err)
		respondError(w, http.StatusInternalServerError, "no_applicable_recommendation", "no recommendation applies to this profile")
	default:
		slog.Error(fallback, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", fallback)
	}
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// Advisor handlers

func (s *Server) handleListAdvisors(w http.ResponseWriter, r *http.Request) {
	advisors := s.catalog.List()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"advisors": advisors,
		"total":    len(advisors),
	})
}

func (s *Server) handleGetAdvisor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "advisor id is required")
		return
	}

	def, err := s.catalog.Get(id)
	if err != nil {
		respondEngineError(w, err, "failed to get advisor")
		return
	}

	respondJSON(w, http.StatusOK, def)
}

func (s *Server) handleGetAdvisorStep(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "step index must be an integer")
		return
	}

	step, err := s.catalog.Step(id, index)
	if err != nil {
		respondEngineError(w, err, "failed to get advisor step")
		return
	}

	respondJSON(w, http.StatusOK, step)
}

// Session handlers

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req models.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "user_id is required")
		return
	}

	if req.AdvisorID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "advisor_id is required")
		return
	}

	session, err := s.engine.StartSession(r.Context(), req)
	if err != nil {
		respondEngineError(w, err, "failed to start session")
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "session id is required")
		return
	}

	session, err := s.engine.GetSession(r.Context(), id)
	if err != nil {
		respondEngineError(w, err, "failed to get session")
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "user_id is required")
		return
	}
	advisorID := r.URL.Query().Get("advisor_id")

	limit := 50 // default
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	sessions, err := s.engine.ListSessions(r.Context(), userID, advisorID, limit, offset)
	if err != nil {
		slog.Error("failed to list sessions", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list sessions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"total":    len(sessions),
	})
}

func (s *Server) handleCurrentStep(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "session id is required")
		return
	}

	step, err := s.engine.CurrentStep(r.Context(), id)
	if err != nil {
		respondEngineError(w, err, "failed to get current step")
		return
	}

	respondJSON(w, http.StatusOK, step)
}

func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "session id is required")
		return
	}

	var req models.SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.QuestionID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "question_id is required")
		return
	}

	result, err := s.engine.Submit(r.Context(), id, req)
	if err != nil {
		respondEngineError(w, err, "failed to submit answer")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetInsight(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "session id is required")
		return
	}

	insight, err := s.engine.Insight(r.Context(), id)
	if err != nil {
		respondEngineError(w, err, "failed to get insight")
		return
	}

	respondJSON(w, http.StatusOK, insight)
}
