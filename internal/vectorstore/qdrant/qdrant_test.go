package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStore_SearchSendsScopeFilter(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	var gotKey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/docs/points/search" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotKey = r.Header.Get("api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":[
			{"score":0.91,"payload":{"document_id":"doc-1","location":"p.2","text":"Revenue grew"}},
			{"score":1.2,"payload":{"document_id":"doc-1","location":"p.4","text":"Clamped"}}
		]}`))
	}))
	defer srv.Close()

	s, err := New(Config{URL: srv.URL + "/", APIKey: "secret", Collection: "docs"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := s.Search(context.Background(), []float32{0.1, 0.2}, 4, "doc-1")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if gotKey != "secret" {
		t.Fatalf("api-key header not sent")
	}
	if _, ok := gotBody["filter"]; !ok {
		t.Fatalf("expected scope filter in request: %v", gotBody)
	}
	if gotBody["limit"].(float64) != 4 {
		t.Fatalf("expected limit 4, got %v", gotBody["limit"])
	}
	if len(got) != 2 || got[0].Text != "Revenue grew" || got[0].Location != "p.2" {
		t.Fatalf("unexpected matches: %+v", got)
	}
	if got[1].Score != 1 {
		t.Fatalf("score should be clamped to 1, got %v", got[1].Score)
	}
}

func TestStore_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s, _ := New(Config{URL: srv.URL, Collection: "docs"})
	if _, err := s.Search(context.Background(), []float32{1}, 2, ""); err == nil {
		t.Fatalf("expected error on 500")
	}
}

func TestPointIDIsStableUUID(t *testing.T) {
	a := PointID("doc-1:0")
	if a != PointID("doc-1:0") {
		t.Fatalf("point id must be deterministic")
	}
	if a == PointID("doc-1:1") {
		t.Fatalf("distinct records must map to distinct ids")
	}
	if len(a) != 36 {
		t.Fatalf("expected canonical UUID, got %q", a)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{Collection: "x"}); err == nil {
		t.Fatalf("expected error without URL")
	}
	if _, err := New(Config{URL: "http://x"}); err == nil {
		t.Fatalf("expected error without collection")
	}
}
