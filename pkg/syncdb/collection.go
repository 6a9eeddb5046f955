package syncdb

import (
	"encoding/json"

	"github.com/kazade/syncdb/internal/document"
	"github.com/kazade/syncdb/internal/index"
	"github.com/kazade/syncdb/internal/store"
)

// Collection is a thin, name-scoped view over a DB's single document
// namespace, mirroring the teacher's Collection interface shape
// (Insert/Update/Delete/Find/FindAll) adapted to spec §3's CRUD+sync
// operation names.
type Collection struct {
	name string
	db   *store.Database
}

// Create stores content as a brand-new document, generating an id if
// docID is empty.
func (c *Collection) Create(content interface{}, docID string) (*document.Document, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	return c.db.CreateDoc(raw, docID)
}

// Put updates docID, asserting oldRev matches the currently stored
// revision.
func (c *Collection) Put(docID, oldRev string, content interface{}) (string, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return "", err
	}
	return c.db.PutDoc(docID, oldRev, raw)
}

// Delete tombstones docID.
func (c *Collection) Delete(docID, oldRev string) (string, error) {
	return c.db.DeleteDoc(docID, oldRev)
}

// Get returns docID's current winning revision.
func (c *Collection) Get(docID string, includeDeleted bool) (*document.Document, error) {
	return c.db.GetDoc(docID, includeDeleted)
}

// Conflicts returns docID's recorded conflicting revisions.
func (c *Collection) Conflicts(docID string) ([]document.Revision, error) {
	return c.db.GetDocConflicts(docID)
}

// Resolve supersedes resolvedRevs with content.
func (c *Collection) Resolve(docID string, resolvedRevs []string, content interface{}) (string, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return "", err
	}
	return c.db.ResolveDoc(docID, resolvedRevs, raw)
}

// EnsureIndex registers a named index over expressions (spec §7 grammar),
// backfilling every existing live document.
func (c *Collection) EnsureIndex(name string, expressions []string) error {
	return c.db.CreateIndex(name, expressions)
}

func (c *Collection) DropIndex(name string) { c.db.DeleteIndex(name) }

func (c *Collection) Indexes() []index.Definition { return c.db.ListIndexes() }

// Query returns the document ids whose indexed values match values, each
// a literal, a trailing "prefix*" glob, or a bare "*".
func (c *Collection) Query(indexName string, values []string) ([]string, error) {
	return c.db.GetFromIndex(indexName, values)
}

// QueryRange returns the document ids whose indexed values fall within
// [start, end].
func (c *Collection) QueryRange(indexName string, start, end []string) ([]string, error) {
	return c.db.GetRangeFromIndex(indexName, start, end)
}

// Name returns the collection's name.
func (c *Collection) Name() string { return c.name }
