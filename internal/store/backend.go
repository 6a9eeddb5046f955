package store

import (
	"encoding/json"

	"github.com/kazade/syncdb/internal/document"
)

// StoredDoc is the backend's on-disk representation of one document: its
// current winning revision plus any recorded conflict set.
type StoredDoc struct {
	Rev        string
	Content    json.RawMessage // nil for a tombstone
	Conflict   *document.ConflictSet
	Generation int64 // generation at which this doc was last committed
}

// TxLogEntry is one append-only transaction-log record (spec §3).
type TxLogEntry struct {
	Generation    int64
	DocID         string
	TransactionID string
}

// SyncMark is the highest (generation, transaction id) this replica has
// accepted from one peer (spec §3 "Sync info").
type SyncMark struct {
	Generation    int64
	TransactionID string
}

// Backend is the pluggable persistence interface behind Database (spec §6
// "Any backend must expose the same logical tables"). MemBackend is the
// in-memory reference implementation; a SQL-backed implementation is a
// drop-in replacement as long as it preserves the same semantics.
type Backend interface {
	Get(docID string) (StoredDoc, bool)
	Put(docID string, d StoredDoc)
	DocIDs() []string

	AppendTxLogEntry(e TxLogEntry)
	TxLog() []TxLogEntry

	SyncInfo(peerUID string) (SyncMark, bool)
	SetSyncInfo(peerUID string, mark SyncMark)
	AllSyncInfo() map[string]SyncMark
}

// MemBackend is an in-memory Backend. It performs no locking of its own —
// Database serializes every call through its own mutex, matching spec §5's
// single-threaded-cooperative model.
type MemBackend struct {
	docs     map[string]StoredDoc
	txlog    []TxLogEntry
	syncInfo map[string]SyncMark
}

// NewMemBackend returns an empty in-memory backend.
func NewMemBackend() *MemBackend {
	return &MemBackend{
		docs:     make(map[string]StoredDoc),
		syncInfo: make(map[string]SyncMark),
	}
}

func (b *MemBackend) Get(docID string) (StoredDoc, bool) {
	d, ok := b.docs[docID]
	return d, ok
}

func (b *MemBackend) Put(docID string, d StoredDoc) {
	b.docs[docID] = d
}

func (b *MemBackend) DocIDs() []string {
	out := make([]string, 0, len(b.docs))
	for id := range b.docs {
		out = append(out, id)
	}
	return out
}

func (b *MemBackend) AppendTxLogEntry(e TxLogEntry) {
	b.txlog = append(b.txlog, e)
}

func (b *MemBackend) TxLog() []TxLogEntry {
	return b.txlog
}

func (b *MemBackend) SyncInfo(peerUID string) (SyncMark, bool) {
	m, ok := b.syncInfo[peerUID]
	return m, ok
}

func (b *MemBackend) SetSyncInfo(peerUID string, mark SyncMark) {
	b.syncInfo[peerUID] = mark
}

func (b *MemBackend) AllSyncInfo() map[string]SyncMark {
	out := make(map[string]SyncMark, len(b.syncInfo))
	for k, v := range b.syncInfo {
		out[k] = v
	}
	return out
}
