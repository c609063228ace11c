// Package vectorstore defines the similarity store port used by retrieval
// and ingestion. Adapters live in subpackages.
package vectorstore

import (
	"context"
	"errors"
)

// ErrInvalidRecord is returned by Upsert for records without text or vector.
var ErrInvalidRecord = errors.New("vectorstore: record needs text and vector")

// Record is one embedded chunk of a document.
type Record struct {
	ID         string
	DocumentID string
	Text       string
	// Location is the page or offset the text came from, e.g. "p.3".
	Location string
	Vector   []float32
}

// Match is a search hit. Score is a similarity in [0,1].
type Match struct {
	Text       string
	Score      float64
	DocumentID string
	Location   string
}

// Store persists embedded chunks and answers similarity queries.
type Store interface {
	// Search returns up to k matches ordered by descending score.
	// An empty scope searches every document.
	Search(ctx context.Context, vector []float32, k int, scope string) ([]Match, error)
	Upsert(ctx context.Context, records []Record) error
	// DeleteScope removes every record of a document.
	DeleteScope(ctx context.Context, scope string) error
}

// ClampScore maps a raw similarity into [0,1].
func ClampScore(s float64) float64 {
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	default:
		return s
	}
}
