// Package store is the database core: per-replica document storage, the
// conflict table, the transaction log, and the _put_doc_if_newer /
// _validate_source decision procedures that drive both local writes and
// sync exchanges (spec §3, §4.2, §4.3). Grounded on the conflict-resolution
// shape of internal/resolver/crdt_resolver.go and the table layout of
// internal/storage/storage.go in the teacher repo.
package store

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/kazade/syncdb/internal/document"
	"github.com/kazade/syncdb/internal/index"
	"github.com/kazade/syncdb/internal/monitoring"
	"github.com/kazade/syncdb/internal/vclock"
)

// Database is one replica's document store: CRUD over documents, the
// conflict table, the append-only transaction log, and the index registry,
// all serialized behind a single mutex (spec §5 "single-threaded
// cooperative model per replica").
type Database struct {
	mu         sync.Mutex
	replicaUID string
	backend    Backend
	index      *index.Registry
	metrics    *monitoring.Metrics
}

// New returns a Database for replicaUID backed by backend, with an empty
// index registry.
func New(replicaUID string, backend Backend) *Database {
	return &Database{
		replicaUID: replicaUID,
		backend:    backend,
		index:      index.NewRegistry(),
	}
}

// WithMetrics attaches m so future CRUD and sync-ingest calls update its
// counters. Returns db for chaining.
func (db *Database) WithMetrics(m *monitoring.Metrics) *Database {
	db.metrics = m
	return db
}

// ReplicaUID returns this database's own replica identifier.
func (db *Database) ReplicaUID() string { return db.replicaUID }

func (db *Database) generationLocked() int64 {
	return int64(len(db.backend.TxLog()))
}

// Generation returns the current generation (count of transaction-log
// entries, spec §3).
func (db *Database) Generation() int64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.generationLocked()
}

func (db *Database) appendTxLocked(docID string) int64 {
	gen := db.generationLocked() + 1
	db.backend.AppendTxLogEntry(TxLogEntry{
		Generation:    gen,
		DocID:         docID,
		TransactionID: document.NewTransactionID(),
	})
	return gen
}

func decodeForIndex(content json.RawMessage) map[string]interface{} {
	if content == nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(content, &m); err != nil {
		return nil
	}
	return m
}

func (db *Database) reindexLocked(docID string, content json.RawMessage) {
	db.index.Unindex(docID)
	if m := decodeForIndex(content); m != nil {
		db.index.Index(docID, m)
	}
}

// CreateDoc stores content as a brand-new document, either under docID (if
// non-empty, and not already present) or a freshly generated id.
func (db *Database) CreateDoc(content json.RawMessage, docID string) (*document.Document, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if docID == "" {
		docID = document.NewTransactionID()
	} else if err := document.ValidateDocID(docID); err != nil {
		return nil, err
	}
	if _, exists := db.backend.Get(docID); exists {
		return nil, document.Newf(document.KindRevisionConflict, "document %q already exists", docID)
	}

	clk := vclock.New().Increment(db.replicaUID)
	rev := clk.String()
	db.backend.Put(docID, StoredDoc{Rev: rev, Content: content})
	db.appendTxLocked(docID)
	db.reindexLocked(docID, content)
	if db.metrics != nil {
		db.metrics.DocsCreated.Inc()
	}

	return &document.Document{ID: docID, Rev: rev, Content: content}, nil
}

// PutDoc updates docID's content, asserting oldRev matches the currently
// stored revision (spec's optimistic-concurrency contract for local
// writes — distinct from the sync-driven _put_doc_if_newer below).
func (db *Database) PutDoc(docID, oldRev string, content json.RawMessage) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	cur, exists := db.backend.Get(docID)
	if !exists {
		if oldRev != "" {
			return "", document.Newf(document.KindDocumentDoesNotExist, "document %q does not exist", docID)
		}
		cur = StoredDoc{}
	}
	if cur.Conflict.HasConflicts() {
		return "", document.Newf(document.KindConflictedDoc, "document %q has unresolved conflicts", docID)
	}
	if cur.Rev != oldRev {
		return "", document.Newf(document.KindRevisionConflict, "old_rev %q does not match current rev %q", oldRev, cur.Rev)
	}

	clk, err := vclock.Parse(cur.Rev)
	if err != nil && cur.Rev != "" {
		return "", err
	}
	newRev := clk.Increment(db.replicaUID).String()
	db.backend.Put(docID, StoredDoc{Rev: newRev, Content: content})
	db.appendTxLocked(docID)
	db.reindexLocked(docID, content)
	if db.metrics != nil {
		db.metrics.DocsPut.Inc()
	}
	return newRev, nil
}

// DeleteDoc tombstones docID (content becomes nil), asserting oldRev
// matches the current revision.
func (db *Database) DeleteDoc(docID, oldRev string) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	cur, exists := db.backend.Get(docID)
	if !exists {
		return "", document.Newf(document.KindDocumentDoesNotExist, "document %q does not exist", docID)
	}
	if cur.Content == nil {
		return "", document.Newf(document.KindDocumentAlreadyDeleted, "document %q is already deleted", docID)
	}
	if cur.Conflict.HasConflicts() {
		return "", document.Newf(document.KindConflictedDoc, "document %q has unresolved conflicts", docID)
	}
	if cur.Rev != oldRev {
		return "", document.Newf(document.KindRevisionConflict, "old_rev %q does not match current rev %q", oldRev, cur.Rev)
	}

	clk, err := vclock.Parse(cur.Rev)
	if err != nil {
		return "", err
	}
	newRev := clk.Increment(db.replicaUID).String()
	db.backend.Put(docID, StoredDoc{Rev: newRev, Content: nil})
	db.appendTxLocked(docID)
	db.reindexLocked(docID, nil)
	if db.metrics != nil {
		db.metrics.DocsDeleted.Inc()
	}
	return newRev, nil
}

// GetDoc returns docID's current winning revision, or (nil, nil) if the
// document does not exist, or is a tombstone and includeDeleted is false
// (spec §3 "tombstones ... excluded [from get_doc] otherwise").
func (db *Database) GetDoc(docID string, includeDeleted bool) (*document.Document, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	cur, exists := db.backend.Get(docID)
	if !exists {
		return nil, nil
	}
	if cur.Content == nil && !includeDeleted {
		return nil, nil
	}
	return &document.Document{
		ID:           docID,
		Rev:          cur.Rev,
		Content:      cur.Content,
		HasConflicts: cur.Conflict.HasConflicts(),
	}, nil
}

// GetDocConflicts returns docID's recorded conflicting revisions (empty if
// none), or KindDocumentDoesNotExist if docID has never been written.
func (db *Database) GetDocConflicts(docID string) ([]document.Revision, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	cur, exists := db.backend.Get(docID)
	if !exists {
		return nil, document.Newf(document.KindDocumentDoesNotExist, "document %q does not exist", docID)
	}
	if cur.Conflict == nil {
		return nil, nil
	}
	return cur.Conflict.AllRevisions(), nil
}

// ResolveDoc supersedes the revisions in resolvedRevs with content,
// clearing the conflict if resolvedRevs covers every currently recorded
// conflicting revision. Calling it on a document with no conflict, or with
// a rev set that overlaps none of the current conflict, is a no-op that
// returns the current rev without advancing the generation (spec §8
// testable property).
func (db *Database) ResolveDoc(docID string, resolvedRevs []string, content json.RawMessage) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	cur, exists := db.backend.Get(docID)
	if !exists {
		return "", document.Newf(document.KindDocumentDoesNotExist, "document %q does not exist", docID)
	}
	if cur.Conflict == nil {
		return cur.Rev, nil
	}

	resolving := make(map[string]bool, len(resolvedRevs))
	for _, r := range resolvedRevs {
		resolving[r] = true
	}

	all := cur.Conflict.AllRevisions()
	var survivors []document.Revision
	var resolvedSet []document.Revision
	for _, r := range all {
		if resolving[r.Rev] {
			resolvedSet = append(resolvedSet, r)
		} else {
			survivors = append(survivors, r)
		}
	}
	if len(resolvedSet) == 0 {
		return cur.Rev, nil // nothing in resolvedRevs matched; no-op
	}

	if len(survivors) == 0 {
		merged := vclock.New()
		for _, r := range resolvedSet {
			c, err := vclock.Parse(r.Rev)
			if err != nil {
				return "", err
			}
			merged = merged.Maximize(c)
		}
		newRev := merged.Increment(db.replicaUID).String()
		db.backend.Put(docID, StoredDoc{Rev: newRev, Content: content})
		db.appendTxLocked(docID)
		db.reindexLocked(docID, content)
		if db.metrics != nil {
			db.metrics.DocsResolved.Inc()
		}
		return newRev, nil
	}

	// Partial resolution: a new conflicting revision arrived concurrently
	// with the caller's read of the conflict set. Keep the survivors plus
	// the newly resolved content as candidates and pick deterministically.
	candidates := append(survivors, document.Revision{Rev: "", Content: content})
	winner, losers := pickWinner(candidates)
	var cs *document.ConflictSet
	if len(losers) > 0 {
		cs = &document.ConflictSet{Winner: winner, Losers: losers}
	}
	db.backend.Put(docID, StoredDoc{Rev: winner.Rev, Content: winner.Content, Conflict: cs})
	db.appendTxLocked(docID)
	db.reindexLocked(docID, winner.Content)
	if db.metrics != nil {
		db.metrics.DocsResolved.Inc()
	}
	return winner.Rev, nil
}

// pickWinner deterministically selects the winner among mutually
// incomparable candidate revisions: max(rev_string) wins (spec §4.1).
func pickWinner(candidates []document.Revision) (document.Revision, []document.Revision) {
	sorted := make([]document.Revision, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rev > sorted[j].Rev })
	return sorted[0], sorted[1:]
}

// PutDocIfNewer is the sync-side decision procedure (spec §4.2): accept,
// reject, converge, or conflict an incoming revision D against the
// currently stored revision C, optionally validating and recording sync
// progress for a peer (spec §4.3).
func (db *Database) PutDocIfNewer(d *document.Document, saveConflict bool, origin *SyncOrigin) (State, int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	cur, exists := db.backend.Get(d.ID)
	var curRev string
	if exists {
		curRev = cur.Rev
	}

	vD, err := vclock.Parse(d.Rev)
	if err != nil {
		return "", db.generationLocked(), err
	}
	vC, err := vclock.Parse(curRev)
	if err != nil {
		return "", db.generationLocked(), err
	}

	if origin != nil {
		outcome, err := db.validateSourceLocked(origin.PeerUID, origin.PeerGeneration, origin.PeerTransactionID, vC, vD)
		if err != nil {
			return "", db.generationLocked(), err
		}
		if outcome == "superseded" {
			return StateSuperseded, db.generationLocked(), nil
		}
	}

	state, commit := db.decide(exists, cur, curRev, d, vC, vD, saveConflict)

	if commit != nil {
		db.backend.Put(d.ID, *commit)
		db.appendTxLocked(d.ID)
		db.reindexLocked(d.ID, commit.Content)
	}
	if state == StateConflicted && db.metrics != nil {
		db.metrics.RevisionConflicts.Inc()
	}

	if origin != nil {
		db.backend.SetSyncInfo(origin.PeerUID, SyncMark{Generation: origin.PeerGeneration, TransactionID: origin.PeerTransactionID})
	}

	return state, db.generationLocked(), nil
}

// decide implements the core of the §4.2 table. It returns the outcome
// state and, when the local document must change, the StoredDoc to commit
// (nil means no local mutation).
func (db *Database) decide(exists bool, cur StoredDoc, curRev string, d *document.Document, vC, vD vclock.Clock, saveConflict bool) (State, *StoredDoc) {
	if !exists {
		return StateInserted, &StoredDoc{Rev: d.Rev, Content: d.Content}
	}

	if d.Rev == curRev {
		return StateConverged, nil
	}

	switch {
	case vD.IsNewer(vC):
		hadConflict := cur.Conflict.HasConflicts()
		var survivors []document.Revision
		if hadConflict {
			for _, r := range cur.Conflict.AllRevisions() {
				rc, err := vclock.Parse(r.Rev)
				if err != nil || !vD.IsNewer(rc) {
					survivors = append(survivors, r)
				}
			}
		}
		if hadConflict && len(survivors) == 0 {
			return StateSuperseded, &StoredDoc{Rev: d.Rev, Content: d.Content}
		}
		if hadConflict {
			candidates := append(survivors, document.Revision{Rev: d.Rev, Content: d.Content})
			winner, losers := pickWinner(candidates)
			var cs *document.ConflictSet
			if len(losers) > 0 {
				cs = &document.ConflictSet{Winner: winner, Losers: losers}
			}
			return StateInserted, &StoredDoc{Rev: winner.Rev, Content: winner.Content, Conflict: cs}
		}
		return StateInserted, &StoredDoc{Rev: d.Rev, Content: d.Content}

	case vC.IsNewer(vD):
		return StateSuperseded, nil

	case sameContent(cur.Content, d.Content):
		merged := vD.Maximize(vC).Increment(db.replicaUID)
		return StateSuperseded, &StoredDoc{Rev: merged.String(), Content: d.Content}

	default:
		// Concurrent, differing content: genuine conflict. If the caller
		// doesn't want it recorded, the state is still reported as
		// conflicted but the local document is left untouched.
		if !saveConflict {
			return StateConflicted, nil
		}
		return db.conflict(cur, d)
	}
}

func (db *Database) conflict(cur StoredDoc, d *document.Document) (State, *StoredDoc) {
	var candidates []document.Revision
	if cur.Conflict != nil {
		candidates = cur.Conflict.AllRevisions()
	} else {
		candidates = []document.Revision{{Rev: cur.Rev, Content: cur.Content}}
	}
	candidates = append(candidates, document.Revision{Rev: d.Rev, Content: d.Content})
	winner, losers := pickWinner(candidates)
	cs := &document.ConflictSet{Winner: winner, Losers: losers}
	return StateConflicted, &StoredDoc{Rev: winner.Rev, Content: winner.Content, Conflict: cs}
}

func sameContent(a, b json.RawMessage) bool {
	da := &document.Document{Content: a}
	db2 := &document.Document{Content: b}
	return da.SameContentAs(db2)
}

// validateSourceLocked is _validate_source (spec §4.3).
func (db *Database) validateSourceLocked(peerUID string, newGen int64, newTxID string, vC, vD vclock.Clock) (string, error) {
	mark, known := db.backend.SyncInfo(peerUID)
	var oldGen int64
	var oldTxID string
	if known {
		oldGen, oldTxID = mark.Generation, mark.TransactionID
	}

	switch {
	case newGen < oldGen:
		if vC.IsNewer(vD) {
			return "superseded", nil
		}
		return "", document.Newf(document.KindInvalidGeneration, "peer %q reported generation %d, behind previously recorded %d", peerUID, newGen, oldGen)
	case newGen > oldGen:
		return "ok", nil
	default:
		if newTxID == oldTxID {
			return "superseded", nil
		}
		return "", document.Newf(document.KindInvalidTransactionID, "peer %q reported generation %d with mismatched transaction id", peerUID, newGen)
	}
}

// WhatsChanged returns every document touched since generation `since`,
// collapsed to one entry per doc id (its most recent generation and
// transaction id), ascending by generation. Supplemented from
// original_source/u1dbrepo, where whats_changed is a first-class op
// (spec §9).
func (db *Database) WhatsChanged(since int64) []Change {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.whatsChangedLocked(since)
}

func (db *Database) whatsChangedLocked(since int64) []Change {
	latest := make(map[string]Change)
	for _, e := range db.backend.TxLog() {
		if e.Generation <= since {
			continue
		}
		latest[e.DocID] = Change{DocID: e.DocID, Generation: e.Generation, TransactionID: e.TransactionID}
	}
	out := make([]Change, 0, len(latest))
	for _, c := range latest {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Generation < out[j].Generation })
	return out
}

// LastTransactionID returns the transaction id of the most recent
// transaction-log entry, or ("", false) for an empty database.
func (db *Database) LastTransactionID() (string, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	log := db.backend.TxLog()
	if len(log) == 0 {
		return "", false
	}
	return log[len(log)-1].TransactionID, true
}

// TransactionIDAt returns the transaction id recorded at generation gen
// (1-indexed, matching Generation's definition), or ("", false) if gen is
// out of range.
func (db *Database) TransactionIDAt(gen int64) (string, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	log := db.backend.TxLog()
	if gen < 1 || gen > int64(len(log)) {
		return "", false
	}
	return log[gen-1].TransactionID, true
}

// SyncInfo returns the (generation, transaction id) this replica last
// recorded from peerUID, or the zero mark if it has never synced with it.
func (db *Database) SyncInfo(peerUID string) SyncMark {
	db.mu.Lock()
	defer db.mu.Unlock()
	m, _ := db.backend.SyncInfo(peerUID)
	return m
}

// RecordSyncInfo is the local half of record_sync_info: a peer tells us
// what generation/transaction id of OUR data it has seen, recorded under
// its own uid so future sync rounds can skip already-exchanged history.
func (db *Database) RecordSyncInfo(peerUID string, generation int64, transactionID string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.backend.SetSyncInfo(peerUID, SyncMark{Generation: generation, TransactionID: transactionID})
}

// CreateIndex registers a named index and immediately indexes every live
// (non-tombstone) document under it, so indexes stay consistent with the
// live document set from the moment they're created (spec invariant).
func (db *Database) CreateIndex(name string, expressions []string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.index.CreateIndex(name, expressions); err != nil {
		return err
	}
	for _, id := range db.backend.DocIDs() {
		d, _ := db.backend.Get(id)
		if d.Content == nil {
			continue
		}
		if m := decodeForIndex(d.Content); m != nil {
			db.index.Index(id, m)
		}
	}
	return nil
}

func (db *Database) DeleteIndex(name string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.index.DeleteIndex(name)
}

func (db *Database) ListIndexes() []index.Definition {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.index.ListIndexes()
}

func (db *Database) GetIndexKeys(name string) ([][]string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.index.GetIndexKeys(name)
}

func (db *Database) GetFromIndex(name string, values []string) ([]string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.index.GetFromIndex(name, values)
}

func (db *Database) GetRangeFromIndex(name string, start, end []string) ([]string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.index.GetRangeFromIndex(name, start, end)
}
