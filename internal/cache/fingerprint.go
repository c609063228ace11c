package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// GlobalScope is used when a question is not bound to a document.
const GlobalScope = ""

// globalSegment stands for GlobalScope inside keys. Hex never produces it.
const globalSegment = "_"

// Fingerprint identifies a question within a document scope.
// Two fingerprints are equal iff the normalized text and the scope are equal.
type Fingerprint struct {
	Scope string
	Hash  string
}

// String renders the cache key: q:<SCOPE_SEGMENT>:<HASH_HEX>. The scope is
// hex-encoded so any scope id round-trips through ScopeOfKey.
func (f Fingerprint) String() string {
	return "q:" + ScopeSegment(f.Scope) + ":" + f.Hash
}

// NewFingerprint normalizes question (case-folded, whitespace collapsed),
// hashes it with SHA-256 and binds it to scope.
func NewFingerprint(question, scope string) Fingerprint {
	normalized := NormalizeQuestion(question)
	scope = NormalizeScope(scope)

	sum := sha256.Sum256([]byte(ScopeSegment(scope) + "|q:" + normalized))
	return Fingerprint{
		Scope: scope,
		Hash:  hex.EncodeToString(sum[:]),
	}
}

// NormalizeQuestion lower-cases and collapses runs of whitespace.
func NormalizeQuestion(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// NormalizeScope trims surrounding whitespace; a blank scope is GlobalScope.
func NormalizeScope(scope string) string {
	return strings.TrimSpace(scope)
}

// ScopeSegment encodes scope for use inside a key.
func ScopeSegment(scope string) string {
	if scope == GlobalScope {
		return globalSegment
	}
	return hex.EncodeToString([]byte(scope))
}

// ScopeOfKey extracts the scope from a key built by Fingerprint.String.
func ScopeOfKey(key string) (string, bool) {
	parts := strings.Split(key, ":")
	if len(parts) != 3 || parts[0] != "q" {
		return "", false
	}
	if parts[1] == globalSegment {
		return GlobalScope, true
	}
	raw, err := hex.DecodeString(parts[1])
	if err != nil || len(raw) == 0 {
		return "", false
	}
	return string(raw), true
}
