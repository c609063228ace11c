// Package memory is an in-process vector store for development and tests.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"docqa-gateway/internal/vectorstore"
)

// Store keeps records in memory and scores them by cosine similarity.
type Store struct {
	mu      sync.RWMutex
	records map[string]vectorstore.Record // id -> record
	docs    map[string][]string           // document id -> record ids
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		records: make(map[string]vectorstore.Record),
		docs:    make(map[string][]string),
	}
}

// Upsert saves records, replacing any with the same ID.
func (s *Store) Upsert(_ context.Context, records []vectorstore.Record) error {
	for _, r := range records {
		if r.Text == "" || len(r.Vector) == 0 {
			return vectorstore.ErrInvalidRecord
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if _, exists := s.records[r.ID]; !exists {
			s.docs[r.DocumentID] = append(s.docs[r.DocumentID], r.ID)
		}
		s.records[r.ID] = r
	}
	return nil
}

// Search scores every record in scope against vector.
func (s *Store) Search(ctx context.Context, vector []float32, k int, scope string) ([]vectorstore.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []vectorstore.Match
	score := func(r vectorstore.Record) {
		matches = append(matches, vectorstore.Match{
			Text:       r.Text,
			Score:      vectorstore.ClampScore(cosineSimilarity(vector, r.Vector)),
			DocumentID: r.DocumentID,
			Location:   r.Location,
		})
	}

	if scope != "" {
		for _, id := range s.docs[scope] {
			score(s.records[id])
		}
	} else {
		for _, r := range s.records {
			score(r)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Location < matches[j].Location
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// DeleteScope removes all records for a document.
func (s *Store) DeleteScope(_ context.Context, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.docs[scope] {
		delete(s.records, id)
	}
	delete(s.docs, scope)
	return nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
