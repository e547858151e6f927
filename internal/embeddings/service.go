package embeddings

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/docbase-dev/docbase/internal/kb"
)

// Service wraps a Client with an explicit lifecycle. It is the single shared
// embedding resource of the process: initialized exactly once, then
// read-mostly. Embed calls may run concurrently after readiness.
type Service struct {
	client Client

	mu          sync.Mutex
	initialized bool
	dimensions  int
	readyCh     chan struct{}
}

// NewService creates an uninitialized embedding service around client.
func NewService(client Client) *Service {
	return &Service{
		client:  client,
		readyCh: make(chan struct{}),
	}
}

// Initialize verifies the backing model with a probe embedding and marks the
// service ready. It must be called exactly once; a second call is a usage
// error. Model-load failures are returned loudly, leaving the service not
// ready.
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return fmt.Errorf("embedding service already initialized")
	}
	s.initialized = true
	s.mu.Unlock()

	vecs, err := s.client.Embed(ctx, []string{"readiness probe"})
	if err != nil {
		s.mu.Lock()
		s.initialized = false
		s.mu.Unlock()
		return fmt.Errorf("embedding model %s failed to load: %w", s.client.Name(), err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		s.mu.Lock()
		s.initialized = false
		s.mu.Unlock()
		return fmt.Errorf("embedding model %s returned an empty probe vector", s.client.Name())
	}

	s.mu.Lock()
	s.dimensions = len(vecs[0])
	close(s.readyCh)
	s.mu.Unlock()

	return nil
}

func (s *Service) readyChan() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readyCh
}

// IsReady reports whether Initialize has completed successfully.
func (s *Service) IsReady() bool {
	select {
	case <-s.readyChan():
		return true
	default:
		return false
	}
}

// WaitReady blocks until the service is ready or ctx expires. Callers that
// prefer failing fast should check IsReady or call Embed directly instead.
func (s *Service) WaitReady(ctx context.Context) error {
	select {
	case <-s.readyChan():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for embedder: %w", ctx.Err())
	}
}

// Dimensions returns the verified vector dimension, or 0 before readiness.
func (s *Service) Dimensions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dimensions
}

// Name returns the backing model identifier.
func (s *Service) Name() string {
	return s.client.Name()
}

// Embed maps text to a unit-length vector. Empty or whitespace-only text is
// rejected with kb.ErrInvalidInput; calls before readiness fail with
// kb.ErrNotReady so retrieval callers can degrade to keyword-only.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("embed: %w: empty text", kb.ErrInvalidInput)
	}
	if !s.IsReady() {
		return nil, fmt.Errorf("embed: %w", kb.ErrNotReady)
	}

	vecs, err := s.client.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embed: model returned no vector")
	}

	vec := vecs[0]
	if s.Dimensions() != len(vec) {
		return nil, fmt.Errorf("embed: %w: got %d dimensions, want %d",
			kb.ErrDimensionMismatch, len(vec), s.Dimensions())
	}

	Normalize(vec)
	return vec, nil
}

// Shutdown releases the service. Subsequent Embed calls fail with ErrNotReady.
func (s *Service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		// Replace the closed channel so IsReady flips back to false.
		s.readyCh = make(chan struct{})
		s.initialized = false
		s.dimensions = 0
	}
}

// Normalize scales v to unit length in place. Zero vectors are left as-is.
func Normalize(v []float32) {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}

// CosineSimilarity returns the cosine of the angle between a and b, in
// [-1,1]. For normalized vectors this is the plain dot product.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
