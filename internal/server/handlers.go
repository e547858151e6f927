package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/docbase-dev/docbase/internal/kb"
)

type searchRequest struct {
	Query      string `json:"query"`
	Limit      int    `json:"limit,omitempty"`
	Technology string `json:"technology,omitempty"`
}

type askRequest struct {
	Question   string `json:"question"`
	Technology string `json:"technology,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	embedderReady := s.embedder.IsReady()
	indexReady := s.catalog.Ready(r.Context())

	status := http.StatusOK
	if !embedderReady || !indexReady {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]bool{
		"embedder": embedderReady,
		"index":    indexReady,
	})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req kb.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := s.ingestor.Ingest(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.catalog.Documents(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if docs == nil {
		docs = []kb.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.ingestor.Remove(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	results, err := s.searcher.Retrieve(r.Context(), req.Query, req.Limit, kb.Filters{Technology: req.Technology})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if results == nil {
		results = []kb.FusedResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	answer, err := s.asker.Ask(r.Context(), req.Question, kb.Filters{Technology: req.Technology})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// writeDomainError maps sentinel errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, kb.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, kb.ErrNotReady):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, kb.ErrIndexUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Printf("server: internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encoding response: %v", err)
	}
}
