package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/docbase-dev/docbase/internal/kb"
)

type fakeBackend struct {
	docs      []kb.Document
	results   []kb.FusedResult
	answer    kb.RAGAnswer
	ingestErr error
	askErr    error
	ready     bool
	removed   []string
}

func (f *fakeBackend) Ingest(_ context.Context, req kb.IngestRequest) (kb.IngestResult, error) {
	if f.ingestErr != nil {
		return kb.IngestResult{}, f.ingestErr
	}
	if strings.TrimSpace(req.Content) == "" {
		return kb.IngestResult{}, fmt.Errorf("ingest: %w: empty content", kb.ErrInvalidInput)
	}
	return kb.IngestResult{DocumentID: "doc-1", ChunkCount: 2}, nil
}

func (f *fakeBackend) Remove(_ context.Context, docID string) error {
	f.removed = append(f.removed, docID)
	return nil
}

func (f *fakeBackend) Retrieve(_ context.Context, query string, _ int, _ kb.Filters) ([]kb.FusedResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("retrieve: %w: empty query", kb.ErrInvalidInput)
	}
	return f.results, nil
}

func (f *fakeBackend) Ask(_ context.Context, question string, _ kb.Filters) (kb.RAGAnswer, error) {
	if f.askErr != nil {
		return kb.RAGAnswer{}, f.askErr
	}
	if strings.TrimSpace(question) == "" {
		return kb.RAGAnswer{}, fmt.Errorf("ask: %w: empty question", kb.ErrInvalidInput)
	}
	return f.answer, nil
}

func (f *fakeBackend) Documents(context.Context) ([]kb.Document, error) {
	return f.docs, nil
}

func (f *fakeBackend) Ready(context.Context) bool { return f.ready }

func (f *fakeBackend) IsReady() bool { return f.ready }

func newTestServer(f *fakeBackend) *Server {
	return New(Config{Port: 0}, f, f, f, f, f)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := newTestServer(&fakeBackend{ready: true})
	rec := doJSON(t, s.Router(), http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	s := newTestServer(&fakeBackend{ready: false})
	rec := doJSON(t, s.Router(), http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("not-ready status = %d, want 503", rec.Code)
	}

	s = newTestServer(&fakeBackend{ready: true})
	rec = doJSON(t, s.Router(), http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ready status = %d, want 200", rec.Code)
	}

	var body map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body["embedder"] || !body["index"] {
		t.Errorf("readiness body = %v", body)
	}
}

func TestIngestEndpoint(t *testing.T) {
	s := newTestServer(&fakeBackend{ready: true})

	rec := doJSON(t, s.Router(), http.MethodPost, "/api/documents", kb.IngestRequest{
		Title:   "Runbook",
		Content: "Drain the node.",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var res kb.IngestResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.DocumentID != "doc-1" || res.ChunkCount != 2 {
		t.Errorf("result = %+v", res)
	}
}

func TestIngestEndpoint_InvalidInput(t *testing.T) {
	s := newTestServer(&fakeBackend{ready: true})

	rec := doJSON(t, s.Router(), http.MethodPost, "/api/documents", kb.IngestRequest{Title: "x"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty content status = %d, want 400", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/documents", strings.NewReader("{not json"))
	rec2 := httptest.NewRecorder()
	s.Router().ServeHTTP(rec2, req)
	if rec2.Code != http.StatusBadRequest {
		t.Fatalf("malformed JSON status = %d, want 400", rec2.Code)
	}
}

func TestIngestEndpoint_NotReady(t *testing.T) {
	f := &fakeBackend{ingestErr: fmt.Errorf("ingest: %w", kb.ErrNotReady)}
	s := newTestServer(f)

	rec := doJSON(t, s.Router(), http.MethodPost, "/api/documents", kb.IngestRequest{
		Title:   "Runbook",
		Content: "Drain the node.",
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestListDocuments(t *testing.T) {
	f := &fakeBackend{ready: true, docs: []kb.Document{{ID: "d1", Title: "Runbook"}}}
	s := newTestServer(f)

	rec := doJSON(t, s.Router(), http.MethodGet, "/api/documents", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var docs []kb.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &docs); err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].ID != "d1" {
		t.Errorf("docs = %+v", docs)
	}
}

func TestListDocuments_EmptyIsArray(t *testing.T) {
	s := newTestServer(&fakeBackend{ready: true})
	rec := doJSON(t, s.Router(), http.MethodGet, "/api/documents", nil)
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("empty list serialized as %q, want []", got)
	}
}

func TestDeleteDocument(t *testing.T) {
	f := &fakeBackend{ready: true}
	s := newTestServer(f)

	rec := doJSON(t, s.Router(), http.MethodDelete, "/api/documents/doc-42", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(f.removed) != 1 || f.removed[0] != "doc-42" {
		t.Errorf("removed = %v", f.removed)
	}
}

func TestSearchEndpoint(t *testing.T) {
	f := &fakeBackend{ready: true, results: []kb.FusedResult{{ChunkID: "c1", FusedScore: 0.8}}}
	s := newTestServer(f)

	rec := doJSON(t, s.Router(), http.MethodPost, "/api/search", searchRequest{Query: "drain node"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var results []kb.FusedResult
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ChunkID != "c1" {
		t.Errorf("results = %+v", results)
	}

	rec = doJSON(t, s.Router(), http.MethodPost, "/api/search", searchRequest{Query: "  "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank query status = %d, want 400", rec.Code)
	}
}

func TestAskEndpoint(t *testing.T) {
	f := &fakeBackend{ready: true, answer: kb.RAGAnswer{
		AnswerText: "Drain first.",
		Citations:  []kb.Citation{{Title: "Runbook", SourceRef: "https://wiki/runbook", RelevancePct: 91}},
	}}
	s := newTestServer(f)

	rec := doJSON(t, s.Router(), http.MethodPost, "/api/ask", askRequest{Question: "how do I deploy?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var answer kb.RAGAnswer
	if err := json.Unmarshal(rec.Body.Bytes(), &answer); err != nil {
		t.Fatal(err)
	}
	if answer.AnswerText != "Drain first." || len(answer.Citations) != 1 {
		t.Errorf("answer = %+v", answer)
	}
}

func TestWebSocketAsk(t *testing.T) {
	f := &fakeBackend{ready: true, answer: kb.RAGAnswer{AnswerText: "Drain first."}}
	s := newTestServer(f)

	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/ask"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(wsRequest{Type: "ask", Content: "how do I deploy?"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var resp wsResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Type != "answer" || resp.Answer == nil || resp.Answer.AnswerText != "Drain first." {
		t.Errorf("response = %+v", resp)
	}

	// Unknown message types come back as errors on the same connection.
	if err := conn.WriteJSON(wsRequest{Type: "bogus", Content: "x"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Type != "error" {
		t.Errorf("expected error response, got %+v", resp)
	}
}
