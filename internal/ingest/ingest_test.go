package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"docqa-gateway/internal/cache"
	"docqa-gateway/internal/vectorstore"
)

type fakeEmbedder struct{ err error }

func (f fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1}, nil
}

type recordingStore struct {
	mu      sync.Mutex
	records map[string][]vectorstore.Record
	deletes []string
}

func newRecordingStore() *recordingStore {
	return &recordingStore{records: make(map[string][]vectorstore.Record)}
}

func (s *recordingStore) Search(ctx context.Context, vector []float32, k int, scope string) ([]vectorstore.Match, error) {
	return nil, nil
}

func (s *recordingStore) Upsert(ctx context.Context, records []vectorstore.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.records[r.DocumentID] = append(s.records[r.DocumentID], r)
	}
	return nil
}

func (s *recordingStore) DeleteScope(ctx context.Context, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, scope)
	s.deletes = append(s.deletes, scope)
	return nil
}

func (s *recordingStore) count(scope string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records[scope])
}

type recordingInvalidator struct {
	mu     sync.Mutex
	scopes []string
}

func (r *recordingInvalidator) InvalidateScope(ctx context.Context, scope string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scopes = append(r.scopes, scope)
	return 1
}

func (r *recordingInvalidator) has(scope string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.scopes {
		if s == scope {
			return true
		}
	}
	return false
}

func TestChunkPages(t *testing.T) {
	text := strings.Repeat("word ", 100) // 500 chars
	chunks := ChunkPages([]Page{{Number: 2, Text: text}}, ChunkerConfig{Size: 120, Overlap: 20})

	if len(chunks) < 4 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if len([]rune(c.Text)) > 120 {
			t.Fatalf("chunk exceeds size: %d", len(c.Text))
		}
		if c.Location != "p.2" {
			t.Fatalf("unexpected location %q", c.Location)
		}
		if strings.HasPrefix(c.Text, " ") || strings.HasSuffix(c.Text, " ") {
			t.Fatalf("chunk not trimmed: %q", c.Text)
		}
	}

	plain := ChunkPages([]Page{{Number: 0, Text: "short text"}}, ChunkerConfig{})
	if len(plain) != 1 || plain[0].Location != "offset:0" {
		t.Fatalf("unexpected plain chunks %+v", plain)
	}
}

func TestExtract(t *testing.T) {
	pages, err := Extract("notes.md", []byte("# Balance\n| Account | Amount |"))
	if err != nil || len(pages) != 1 {
		t.Fatalf("unexpected result %v %v", pages, err)
	}

	if _, err := Extract("sheet.xlsx", []byte("x")); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if _, err := Extract("empty.txt", []byte("  \n ")); !errors.Is(err, ErrNoText) {
		t.Fatalf("expected ErrNoText, got %v", err)
	}
	if _, err := Extract("broken.pdf", []byte("not a pdf")); err == nil {
		t.Fatalf("expected error for malformed pdf")
	}
}

func TestIndexer_IngestReplacesAndInvalidates(t *testing.T) {
	store := newRecordingStore()
	inv := &recordingInvalidator{}
	ix := NewIndexer(fakeEmbedder{}, store, inv, ChunkerConfig{Size: 50, Overlap: 10})
	ctx := context.Background()

	res, err := ix.Ingest(ctx, "report", "report.txt", []byte(strings.Repeat("revenue grew ", 20)))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.DocumentScope != "report" || res.Chunks == 0 || store.count("report") != res.Chunks {
		t.Fatalf("unexpected result %+v (stored %d)", res, store.count("report"))
	}
	if !inv.has("report") || !inv.has(cache.GlobalScope) {
		t.Fatalf("expected scope and global invalidation, got %v", inv.scopes)
	}

	res2, err := ix.Ingest(ctx, "report", "report.txt", []byte("short"))
	if err != nil {
		t.Fatalf("re-ingest: %v", err)
	}
	if store.count("report") != res2.Chunks {
		t.Fatalf("re-upload should replace old chunks, have %d", store.count("report"))
	}
}

func TestIndexer_GeneratesScopeAndPropagatesErrors(t *testing.T) {
	ix := NewIndexer(fakeEmbedder{}, newRecordingStore(), nil, ChunkerConfig{})
	res, err := ix.Ingest(context.Background(), "", "a.txt", []byte("hello"))
	if err != nil || res.DocumentScope == "" {
		t.Fatalf("expected generated scope, got %+v %v", res, err)
	}

	ix = NewIndexer(fakeEmbedder{err: errors.New("quota")}, newRecordingStore(), nil, ChunkerConfig{})
	if _, err := ix.Ingest(context.Background(), "x", "a.txt", []byte("hello")); err == nil {
		t.Fatalf("expected embed error")
	}
}

func TestIndexer_Delete(t *testing.T) {
	store := newRecordingStore()
	inv := &recordingInvalidator{}
	ix := NewIndexer(fakeEmbedder{}, store, inv, ChunkerConfig{})

	if _, err := ix.Ingest(context.Background(), "doc", "a.txt", []byte("hello")); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if _, err := ix.Delete(context.Background(), "doc"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if store.count("doc") != 0 {
		t.Fatalf("records not deleted")
	}
}

func TestScopeForPath(t *testing.T) {
	if got := ScopeForPath("/data/docs/annual-report.pdf"); got != "annual-report" {
		t.Fatalf("unexpected scope %q", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestWatcher_IndexesAndRemovesFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "existing.txt"), []byte("cash is 100"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := newRecordingStore()
	inv := &recordingInvalidator{}
	ix := NewIndexer(fakeEmbedder{}, store, inv, ChunkerConfig{})

	w, err := NewWatcher(dir, ix, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Close()
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	waitFor(t, func() bool { return store.count("existing") > 0 })

	path := filepath.Join(dir, "new.md")
	if err := os.WriteFile(path, []byte("equity is 400"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return store.count("new") > 0 })

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return store.count("new") == 0 })

	if err := os.WriteFile(filepath.Join(dir, "ignored.bin"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if store.count("ignored") != 0 {
		t.Fatalf("unsupported file should be ignored")
	}
}
