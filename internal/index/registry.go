package index

import (
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/kazade/syncdb/internal/document"
)

// Definition is a named, ordered list of compiled expressions (spec §3
// "name -> ordered list of expressions").
type Definition struct {
	Name        string
	Expressions []string
	getters     []Getter
}

// NewDefinition parses each expression string and returns the compiled
// Definition, or the first parse error encountered.
func NewDefinition(name string, exprs []string) (*Definition, error) {
	getters := make([]Getter, len(exprs))
	for i, e := range exprs {
		g, err := Parse(e)
		if err != nil {
			return nil, err
		}
		getters[i] = g
	}
	cp := make([]string, len(exprs))
	copy(cp, exprs)
	return &Definition{Name: name, Expressions: cp, getters: getters}, nil
}

// Arity is the number of expressions (and thus the tuple width).
func (d *Definition) Arity() int { return len(d.getters) }

// Keys returns every tuple key doc maps to under this definition: the
// cross-product of each expression's key list (spec §3 "the cross-product
// forms tuple keys"). A document that yields an empty list from any one
// expression contributes no tuple keys at all — it's simply not indexed
// under this index, which is the deliberate total-evaluation behavior
// spec §7 describes.
func (d *Definition) Keys(doc map[string]interface{}) [][]string {
	lists := make([][]string, len(d.getters))
	for i, g := range d.getters {
		lists[i] = g.Get(doc)
		if len(lists[i]) == 0 {
			return nil
		}
	}
	return crossProduct(lists)
}

func crossProduct(lists [][]string) [][]string {
	result := [][]string{{}}
	for _, list := range lists {
		var next [][]string
		for _, prefix := range result {
			for _, v := range list {
				tuple := make([]string, len(prefix)+1)
				copy(tuple, prefix)
				tuple[len(prefix)] = v
				next = append(next, tuple)
			}
		}
		result = next
	}
	return result
}

// entry is one (tuple key, doc id) registration.
type entry struct {
	key   []string
	docID string
}

// Registry owns every index definition and its live entries for one
// database replica.
type Registry struct {
	mu      sync.RWMutex
	defs    map[string]*Definition
	entries map[string][]entry // index name -> sorted entries
}

// NewRegistry returns an empty index registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition), entries: make(map[string][]entry)}
}

// CreateIndex registers name with the given expressions. Idempotent if an
// identical definition already exists; returns KindIndexNameTaken if a
// different one does.
func (r *Registry) CreateIndex(name string, exprs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.defs[name]; ok {
		if reflect.DeepEqual(existing.Expressions, exprs) {
			return nil
		}
		return document.Newf(document.KindIndexNameTaken, "index %q already exists with a different definition", name)
	}
	def, err := NewDefinition(name, exprs)
	if err != nil {
		return err
	}
	r.defs[name] = def
	r.entries[name] = nil
	return nil
}

// DeleteIndex removes name if present; a no-op otherwise.
func (r *Registry) DeleteIndex(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.defs, name)
	delete(r.entries, name)
}

// ListIndexes returns every index name paired with its expression list,
// sorted by name for deterministic output.
func (r *Registry) ListIndexes() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, Definition{Name: d.Name, Expressions: d.Expressions})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// definition looks up a compiled definition, returning KindIndexDoesNotExist.
func (r *Registry) definition(name string) (*Definition, error) {
	d, ok := r.defs[name]
	if !ok {
		return nil, document.Newf(document.KindIndexDoesNotExist, "index %q does not exist", name)
	}
	return d, nil
}

// Index (re)computes doc's tuple keys under every existing index and
// registers docID under each. Callers must call Unindex(docID) first when
// updating an existing document.
func (r *Registry) Index(docID string, doc map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, def := range r.defs {
		for _, key := range def.Keys(doc) {
			r.entries[name] = insertSorted(r.entries[name], entry{key: key, docID: docID})
		}
	}
}

// Unindex removes every entry registered for docID, across all indexes.
func (r *Registry) Unindex(docID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, es := range r.entries {
		out := es[:0:0]
		for _, e := range es {
			if e.docID != docID {
				out = append(out, e)
			}
		}
		r.entries[name] = out
	}
}

func insertSorted(es []entry, e entry) []entry {
	i := sort.Search(len(es), func(i int) bool { return compareEntry(es[i], e) >= 0 })
	es = append(es, entry{})
	copy(es[i+1:], es[i:])
	es[i] = e
	return es
}

func compareEntry(a, b entry) int {
	if c := compareTuple(a.key, b.key); c != 0 {
		return c
	}
	return strings.Compare(a.docID, b.docID)
}

func compareTuple(a, b []string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := strings.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

// GetIndexKeys returns every unique tuple key registered under name,
// sorted ascending.
func (r *Registry) GetIndexKeys(name string) ([][]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, err := r.definition(name); err != nil {
		return nil, err
	}
	var out [][]string
	var last []string
	for _, e := range r.entries[name] {
		if last == nil || compareTuple(e.key, last) != 0 {
			out = append(out, e.key)
			last = e.key
		}
	}
	return out, nil
}

// matcher classifies one component of a get_from_index query value.
type matcher struct {
	literal string
	prefix  string
	isGlob  bool // "*" (bare wildcard) or "prefix*"
	bare    bool // true for a pure "*"
}

func parseMatcher(v string) matcher {
	if v == "*" {
		return matcher{isGlob: true, bare: true}
	}
	if strings.HasSuffix(v, "*") {
		return matcher{isGlob: true, prefix: strings.TrimSuffix(v, "*")}
	}
	return matcher{literal: v}
}

func (m matcher) matches(v string) bool {
	switch {
	case m.bare:
		return true
	case m.isGlob:
		return strings.HasPrefix(v, m.prefix)
	default:
		return v == m.literal
	}
}

// validateGlobbing enforces spec §4.4: a glob or "*" at position i forbids
// any literal in positions > i.
func validateGlobbing(values []string) error {
	globAt := -1
	for i, v := range values {
		m := parseMatcher(v)
		if m.isGlob {
			if globAt == -1 {
				globAt = i
			}
			continue
		}
		if globAt != -1 && i > globAt {
			return document.Newf(document.KindInvalidGlobbing, "literal value at position %d follows a glob at position %d", i, globAt)
		}
	}
	return nil
}

// GetFromIndex returns the doc ids whose tuple key matches values
// (literal, trailing-glob "prefix*", or bare "*" per component), sorted
// by tuple key ascending then doc id (spec §4.4 result ordering).
func (r *Registry) GetFromIndex(name string, values []string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, err := r.definition(name)
	if err != nil {
		return nil, err
	}
	if len(values) != def.Arity() {
		return nil, document.Newf(document.KindInvalidValueForIndex, "index %q has arity %d, got %d values", name, def.Arity(), len(values))
	}
	if err := validateGlobbing(values); err != nil {
		return nil, err
	}
	matchers := make([]matcher, len(values))
	for i, v := range values {
		matchers[i] = parseMatcher(v)
	}
	var out []string
	for _, e := range r.entries[name] {
		if entryMatches(e.key, matchers) {
			out = append(out, e.docID)
		}
	}
	return out, nil
}

func entryMatches(key []string, matchers []matcher) bool {
	for i, m := range matchers {
		if !m.matches(key[i]) {
			return false
		}
	}
	return true
}

// GetRangeFromIndex returns doc ids whose tuple key falls within the
// inclusive range [start, end] (either bound may be a tuple prefix with an
// optional trailing glob in its last supplied position), sorted by tuple
// key ascending then doc id.
func (r *Registry) GetRangeFromIndex(name string, start, end []string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, err := r.definition(name); err != nil {
		return nil, err
	}
	if err := validateGlobbing(start); err != nil {
		return nil, err
	}
	if err := validateGlobbing(end); err != nil {
		return nil, err
	}
	startPrefix, _ := boundPrefix(start)
	endPrefix, endGlob := boundPrefix(end)
	// A bare "*" closing the end bound admits every key that matches the
	// components before it, so keys are compared on that prefix only.
	endBare := len(end) > 0 && end[len(end)-1] == "*"
	var out []string
	for _, e := range r.entries[name] {
		if start != nil && compareTuple(e.key, startPrefix) < 0 {
			continue
		}
		if end != nil {
			if endGlob {
				if compareTupleGlobEnd(e.key, endPrefix) > 0 {
					continue
				}
			} else if endBare {
				k := e.key
				if len(k) > len(endPrefix) {
					k = k[:len(endPrefix)]
				}
				if compareTuple(k, endPrefix) > 0 {
					continue
				}
			} else if compareTuple(e.key, endPrefix) > 0 {
				continue
			}
		}
		out = append(out, e.docID)
	}
	return out, nil
}

// boundPrefix converts a range bound (possibly with a trailing glob) to
// the plain-string tuple prefix used for lexicographic comparison, and
// reports whether the bound's last supplied component was a trailing
// "prefix*" glob (a bare "*" is dropped from the prefix and reported false).
func boundPrefix(bound []string) ([]string, bool) {
	if bound == nil {
		return nil, false
	}
	out := make([]string, len(bound))
	copy(out, bound)
	glob := false
	if n := len(out); n > 0 {
		m := parseMatcher(out[n-1])
		if m.bare {
			out = out[:n-1]
		} else if m.isGlob {
			out[n-1] = m.prefix
			glob = true
		}
	}
	return out, glob
}

// compareTupleGlobEnd compares key against an end bound prefix whose last
// supplied component is a trailing glob: every component before the last
// must match exactly, but the last only needs key's component to start
// with prefix's last component (any longer suffix, e.g. "v23" against
// prefix "v2", still falls inside the range). Matches GetFromIndex's own
// glob semantics so a range ending in the same glob returns the same set.
func compareTupleGlobEnd(key, prefix []string) int {
	n := len(prefix)
	if len(key) < n {
		n = len(key)
	}
	for i := 0; i < n; i++ {
		if i == len(prefix)-1 {
			if strings.HasPrefix(key[i], prefix[i]) {
				return 0
			}
			return strings.Compare(key[i], prefix[i])
		}
		if c := strings.Compare(key[i], prefix[i]); c != 0 {
			return c
		}
	}
	return len(key) - len(prefix)
}
