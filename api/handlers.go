package api

import (
	"fmt"
	"net/http"
)

// handleCreateSession handles POST /api/v1/session.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req SessionCreateRequest
	// An empty body is valid: it just means "use the defaults".
	_ = readJSON(r, &req)

	session, err := s.sessions.CreateSession(req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to create session: %v", err))
		return
	}

	writeJSON(w, http.StatusCreated, SessionCreateResponse{
		SessionID: session.ID,
		CreatedAt: session.CreatedAt,
	})
}

// handleDestroySession handles DELETE /api/v1/session/{id}.
func (s *Server) handleDestroySession(w http.ResponseWriter, r *http.Request, sessionID string) {
	if err := s.sessions.DestroySession(sessionID); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "session destroyed"})
}

// handleStep handles POST /api/v1/session/{id}/step.
func (s *Server) handleStep(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	var req StepRequest
	if err := readJSON(r, &req); err != nil || req.Cycles == 0 {
		writeError(w, http.StatusBadRequest, "cycles must be a positive integer")
		return
	}

	if err := session.Service.Step(req.Cycles); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("step failed: %v", err))
		return
	}

	snap := session.Service.Registers()
	writeJSON(w, http.StatusOK, toRegistersResponse(&snap))
}

// handleGetRegisters handles GET /api/v1/session/{id}/registers.
func (s *Server) handleGetRegisters(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	snap := session.Service.Registers()
	writeJSON(w, http.StatusOK, toRegistersResponse(&snap))
}

// handleGetCache handles GET /api/v1/session/{id}/cache.
func (s *Server) handleGetCache(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	stats := session.Service.CacheStats()
	writeJSON(w, http.StatusOK, CacheResponse{Entries: stats.Entries, Capacity: stats.Capacity})
}

// handleInvalidate handles POST /api/v1/session/{id}/invalidate.
func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	var req InvalidateRequest
	if err := readJSON(r, &req); err != nil || req.End <= req.Start {
		writeError(w, http.StatusBadRequest, "start must be less than end")
		return
	}

	session.Service.Invalidate(req.Start, req.End)
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "range invalidated"})
}
