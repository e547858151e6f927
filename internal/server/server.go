package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/docbase-dev/docbase/internal/kb"
)

// Config holds server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// Ingestor stores and removes documents.
type Ingestor interface {
	Ingest(ctx context.Context, req kb.IngestRequest) (kb.IngestResult, error)
	Remove(ctx context.Context, docID string) error
}

// Searcher runs hybrid retrieval.
type Searcher interface {
	Retrieve(ctx context.Context, queryText string, limit int, filters kb.Filters) ([]kb.FusedResult, error)
}

// Asker answers questions with citations.
type Asker interface {
	Ask(ctx context.Context, question string, filters kb.Filters) (kb.RAGAnswer, error)
}

// Catalog lists stored documents and reports index health.
type Catalog interface {
	Documents(ctx context.Context) ([]kb.Document, error)
	Ready(ctx context.Context) bool
}

// ReadyChecker reports embedder readiness.
type ReadyChecker interface {
	IsReady() bool
}

// Server is the HTTP front of the knowledge base.
type Server struct {
	cfg        Config
	ingestor   Ingestor
	searcher   Searcher
	asker      Asker
	catalog    Catalog
	embedder   ReadyChecker
	router     chi.Router
	httpServer *http.Server
}

func New(cfg Config, ingestor Ingestor, searcher Searcher, asker Asker, catalog Catalog, embedder ReadyChecker) *Server {
	s := &Server{
		cfg:      cfg,
		ingestor: ingestor,
		searcher: searcher,
		asker:    asker,
		catalog:  catalog,
		embedder: embedder,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Get("/documents", s.handleListDocuments)
		r.Post("/documents", s.handleIngest)
		r.Delete("/documents/{id}", s.handleDelete)
		r.Post("/search", s.handleSearch)
		r.Post("/ask", s.handleAsk)
	})

	r.Get("/ws/ask", s.handleWebSocket)

	return r
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("docbase server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
