package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"docqa-gateway/internal/cache"
	"docqa-gateway/internal/ingest"
	"docqa-gateway/internal/pipeline"
	"docqa-gateway/internal/response"
	"docqa-gateway/internal/visualization"
)

type mockAnswerer struct {
	res   response.AnswerResult
	err   error
	calls int
	last  pipeline.Request
}

func (m *mockAnswerer) Answer(ctx context.Context, req pipeline.Request) (response.AnswerResult, error) {
	m.calls++
	m.last = req
	return m.res, m.err
}

type mockDocuments struct {
	ingestCalls int
	deleteCalls int
	lastScope   string
	lastName    string
	lastData    []byte
	err         error
}

func (m *mockDocuments) Ingest(ctx context.Context, scope, name string, data []byte) (ingest.Result, error) {
	m.ingestCalls++
	m.lastScope, m.lastName, m.lastData = scope, name, data
	if m.err != nil {
		return ingest.Result{}, m.err
	}
	if scope == "" {
		scope = "generated"
	}
	return ingest.Result{DocumentScope: scope, Chunks: 3, Invalidated: 2}, nil
}

func (m *mockDocuments) Delete(ctx context.Context, scope string) (int, error) {
	m.deleteCalls++
	m.lastScope = scope
	return 4, m.err
}

func TestAskHandler(t *testing.T) {
	chart := &visualization.Chart{Type: visualization.Bar, Labels: []string{"Rent", "Bank"}, Values: []float64{500, 500}}
	fake := &mockAnswerer{res: response.AnswerResult{Answer: "Expenses.", Chart: chart}}
	h := NewAskHandler(fake)

	req := httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"Chart expenses","document_scope":"doc-1"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.Ask(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	want := `{"answer":"Expenses.","chart":{"type":"bar","labels":["Rent","Bank"],"values":[500,500]},"table":null}` + "\n"
	if rr.Body.String() != want {
		t.Fatalf("unexpected body:\n got %s\nwant %s", rr.Body.String(), want)
	}
	if fake.calls != 1 || fake.last.DocumentScope != "doc-1" {
		t.Fatalf("pipeline not called as expected: %+v", fake.last)
	}
}

func TestAskHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{"bad json", `{"question":`, nil, http.StatusBadRequest, "invalid_json"},
		{"empty", `{"question":" "}`, pipeline.ErrEmptyQuestion, http.StatusBadRequest, "empty_question"},
		{"too long", `{"question":"x"}`, pipeline.ErrQuestionTooLong, http.StatusBadRequest, "question_too_long"},
		{"timeout", `{"question":"x"}`, context.DeadlineExceeded, http.StatusGatewayTimeout, "gateway_timeout"},
		{"other", `{"question":"x"}`, errors.New("boom"), http.StatusInternalServerError, "internal_server_error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewAskHandler(&mockAnswerer{err: tc.err})
			rr := httptest.NewRecorder()
			h.Ask(rr, httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(tc.body)))

			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body["error"] != tc.code {
				t.Fatalf("unexpected body %q", rr.Body.String())
			}
		})
	}
}

func multipartUpload(t *testing.T, filename, content, scope string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write([]byte(content))
	}
	if scope != "" {
		_ = mw.WriteField("document_scope", scope)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestDocumentHandler_Upload(t *testing.T) {
	docs := &mockDocuments{}
	h := NewDocumentHandler(docs)

	rr := httptest.NewRecorder()
	h.Upload(rr, multipartUpload(t, "report.txt", "revenue 100", "report"))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var res ingest.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.DocumentScope != "report" || res.Chunks != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
	if docs.lastName != "report.txt" || string(docs.lastData) != "revenue 100" {
		t.Fatalf("file not forwarded: %q %q", docs.lastName, docs.lastData)
	}
}

func TestDocumentHandler_UploadErrors(t *testing.T) {
	h := NewDocumentHandler(&mockDocuments{})
	rr := httptest.NewRecorder()
	h.Upload(rr, multipartUpload(t, "", "", "x"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing file: expected 400, got %d", rr.Code)
	}

	cases := map[error]int{
		ingest.ErrUnsupportedType: http.StatusUnsupportedMediaType,
		ingest.ErrNoText:          http.StatusUnprocessableEntity,
		errors.New("store down"):  http.StatusBadGateway,
	}
	for err, status := range cases {
		h := NewDocumentHandler(&mockDocuments{err: err})
		rr := httptest.NewRecorder()
		h.Upload(rr, multipartUpload(t, "a.txt", "x", ""))
		if rr.Code != status {
			t.Fatalf("%v: expected %d, got %d", err, status, rr.Code)
		}
	}
}

func TestDocumentHandler_Delete(t *testing.T) {
	docs := &mockDocuments{}
	h := NewDocumentHandler(docs)

	r := chi.NewRouter()
	r.Delete("/v1/documents/{scope}", h.Delete)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/v1/documents/report", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if docs.deleteCalls != 1 || docs.lastScope != "report" {
		t.Fatalf("delete not forwarded: %+v", docs)
	}
	if !strings.Contains(rr.Body.String(), `"invalidated":4`) {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}

func TestCacheHandler_Stats(t *testing.T) {
	qc := cache.NewQueryCache(nil, time.Minute)
	t.Cleanup(func() { _ = qc.Close() })

	ctx := context.Background()
	qc.Put(ctx, cache.Response, "q:_:abc", []byte("{}"))
	qc.Get(ctx, cache.Response, "q:_:abc")
	qc.Get(ctx, cache.Retrieval, "q:_:missing")

	rr := httptest.NewRecorder()
	NewCacheHandler(qc).Stats(rr, httptest.NewRequest(http.MethodGet, "/v1/cache/stats", nil))

	var stats map[string]cache.NamespaceStats
	if err := json.Unmarshal(rr.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats["response"].Hits != 1 || stats["response"].Size != 1 {
		t.Fatalf("unexpected response stats %+v", stats["response"])
	}
	if stats["retrieval"].Misses != 1 {
		t.Fatalf("unexpected retrieval stats %+v", stats["retrieval"])
	}
}
