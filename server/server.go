// Package server exposes the decision pipeline over HTTP plus a websocket
// feed of audit events for the admin dashboard.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/edyhq/decider-go/core"
	"github.com/edyhq/decider-go/decider"
	"github.com/edyhq/decider-go/extract"
)

// Server routes requests to a decider Service.
type Server struct {
	svc       *decider.Service
	extractor extract.Extractor
	hub       *Hub
	mux       *http.ServeMux
}

// New creates the server. extractor may be nil, which disables
// /extract_and_store. hub may be nil, which disables /events; wire the
// same hub into the service with decider.WithAuditNotifier(hub.Publish).
func New(svc *decider.Service, extractor extract.Extractor, hub *Hub) *Server {
	s := &Server{svc: svc, extractor: extractor, hub: hub, mux: http.NewServeMux()}

	s.mux.HandleFunc("POST /extract_and_store", s.handleExtractAndStore)
	s.mux.HandleFunc("POST /process_batch", s.handleProcessBatch)
	s.mux.HandleFunc("GET /memories", s.handleMemories)
	s.mux.HandleFunc("GET /buffered", s.handleBuffered)
	s.mux.HandleFunc("GET /audit", s.handleAudit)
	s.mux.HandleFunc("POST /review", s.handleReview)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if hub != nil {
		s.mux.HandleFunc("GET /events", hub.handleEvents)
	}
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

type extractRequest struct {
	Turns []core.ConversationTurn `json:"turns"`
}

func (s *Server) handleExtractAndStore(w http.ResponseWriter, r *http.Request) {
	if s.extractor == nil {
		writeError(w, http.StatusNotImplemented, "no extractor configured")
		return
	}
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	candidates, err := s.extractor.Extract(r.Context(), req.Turns)
	if err != nil {
		log.Printf("[SERVER] extraction failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	result, err := s.svc.ProcessBatch(r.Context(), candidates)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type batchRequest struct {
	Candidates []*core.CandidateMemory `json:"candidates"`
}

func (s *Server) handleProcessBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	result, err := s.svc.ProcessBatch(r.Context(), req.Candidates)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMemories(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	memories, err := s.svc.StoredMemories(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if memories == nil {
		memories = []*core.StoredMemory{}
	}
	writeJSON(w, http.StatusOK, memories)
}

func (s *Server) handleBuffered(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	memories, err := s.svc.BufferedMemories(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if memories == nil {
		memories = []*core.BufferedMemory{}
	}
	writeJSON(w, http.StatusOK, memories)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	entries, err := s.svc.AuditLog(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []*core.AuditLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type reviewRequest struct {
	MemoryID        string `json:"memory_id"`
	Action          string `json:"action"`
	Notes           string `json:"notes,omitempty"`
	ModifiedContent string `json:"modified_content,omitempty"`
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.MemoryID == "" {
		writeError(w, http.StatusBadRequest, "memory_id is required")
		return
	}
	if req.Action != "approve" && req.Action != "reject" {
		writeError(w, http.StatusBadRequest, "action must be approve or reject")
		return
	}

	err := s.svc.ResolveBuffered(r.Context(), req.MemoryID, req.Action, req.Notes, req.ModifiedContent)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.svc.Health(r.Context())
	status := http.StatusOK
	if health.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 100
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[SERVER] failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
