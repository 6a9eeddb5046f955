// Package document holds the syncdb wire types: documents, revisions,
// conflict sets and the doc-id validation rule shared by the store and the
// HTTP adapter.
package document

import (
	"bytes"
	"encoding/json"
	"regexp"

	"golang.org/x/crypto/blake2b"
)

// docIDPattern is spec §3's doc_id grammar: non-empty, no slashes, drawn
// from a conservative ASCII set so ids round-trip safely through URL path
// segments in the HTTP adapter.
var docIDPattern = regexp.MustCompile(`^[a-zA-Z0-9.%_-]+$`)

// ValidDocID reports whether id satisfies spec §3's doc_id grammar.
func ValidDocID(id string) bool {
	return id != "" && docIDPattern.MatchString(id)
}

// ValidateDocID returns a KindInvalidDocID error if id is malformed.
func ValidateDocID(id string) error {
	if !ValidDocID(id) {
		return Newf(KindInvalidDocID, "invalid doc id %q", id)
	}
	return nil
}

// Document is the unit the store and sync layers exchange: an opaque JSON
// payload stamped with a vector-clock revision. Content == nil denotes a
// tombstone (spec invariant 4).
type Document struct {
	ID           string
	Rev          string
	Content      json.RawMessage
	HasConflicts bool
}

// IsTombstone reports whether d represents a deletion.
func (d *Document) IsTombstone() bool {
	return d == nil || d.Content == nil
}

// SameContentAs reports whether d and other carry byte-identical content,
// used by the store's convergent-edit detection (spec §4.2 "Contents
// byte-equal"). It hashes both payloads with BLAKE2b-256 as a fast-path
// and always confirms with a byte compare before returning true, so a hash
// collision can never manufacture a false positive.
func (d *Document) SameContentAs(other *Document) bool {
	if d.IsTombstone() != other.IsTombstone() {
		return false
	}
	if d.IsTombstone() {
		return true
	}
	if len(d.Content) != len(other.Content) {
		return false
	}
	if contentDigest(d.Content) != contentDigest(other.Content) {
		return false
	}
	return bytes.Equal(d.Content, other.Content)
}

func contentDigest(b []byte) [32]byte {
	return blake2b.Sum256(b)
}

// Revision is one entry of a conflict set: a rev string paired with the
// content (or tombstone) it carried.
type Revision struct {
	Rev     string
	Content json.RawMessage
}

// ConflictSet is the tagged variant spec §9 calls for: a document is either
// Live (exactly one current revision, no conflict) or Conflicted (a
// deterministically chosen winner plus one or more mutually-incomparable
// losers). A ConflictSet is only ever constructed with >=1 Losers; the
// Live state is represented by ConflictSet == nil at the store layer.
type ConflictSet struct {
	Winner Revision
	Losers []Revision
}

// HasConflicts reports whether cs represents an actual conflict (spec
// invariant 5: has_conflicts iff the set has >=2 revisions).
func (cs *ConflictSet) HasConflicts() bool {
	return cs != nil && len(cs.Losers) > 0
}

// AllRevisions returns the winner followed by the losers.
func (cs *ConflictSet) AllRevisions() []Revision {
	if cs == nil {
		return nil
	}
	out := make([]Revision, 0, len(cs.Losers)+1)
	out = append(out, cs.Winner)
	out = append(out, cs.Losers...)
	return out
}
