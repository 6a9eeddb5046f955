// Package synctarget implements the sync-target contract (spec §4.5):
// get_sync_info / record_sync_info / sync_exchange, plus the trace-hook
// interface tests use to interleave a concurrent write mid-exchange.
// Grounded on the teacher's internal/network/network_manager.go Network
// interface and its OnMessage handler-registration pattern.
package synctarget

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kazade/syncdb/internal/document"
	"github.com/kazade/syncdb/internal/store"
	"github.com/kazade/syncdb/internal/tracing"
)

// DocRecord is the wire-shape one document takes in a sync exchange: its
// content at a given generation/transaction id.
type DocRecord struct {
	ID            string
	Rev           string
	Content       json.RawMessage
	Generation    int64
	TransactionID string
}

// TraceState enumerates the sync_exchange suspension points a trace hook
// can observe (spec §4.5, §5 "trace-hook mechanism").
type TraceState int

const (
	TraceBeforeWhatsChanged TraceState = iota
	TraceAfterWhatsChanged
	TraceBeforeGetDocs
	TraceRecordSyncInfo
)

func (s TraceState) String() string {
	switch s {
	case TraceBeforeWhatsChanged:
		return "before whats_changed"
	case TraceAfterWhatsChanged:
		return "after whats_changed"
	case TraceBeforeGetDocs:
		return "before get_docs"
	case TraceRecordSyncInfo:
		return "record_sync_info"
	default:
		return "unknown"
	}
}

// TraceHook is invoked at each TraceState; production targets may leave it
// nil (spec §9 "this is test-only; production targets may no-op it").
type TraceHook func(TraceState)

// Target is the sync-target contract a Synchronizer drives.
type Target interface {
	GetSyncInfo(sourceUID string) (targetUID string, targetGen int64, sourceGen int64, sourceTransID string, err error)
	RecordSyncInfo(sourceUID string, sourceGen int64, sourceTransID string) error
	SyncExchange(docs []DocRecord, sourceUID string, lastKnownGeneration int64, returnDoc func(DocRecord) error) (newGeneration int64, newTransactionID string, err error)
}

// Traceable is implemented by targets that support the trace-hook
// mechanism (the in-process DatabaseTarget; HTTP targets don't need it).
type Traceable interface {
	SetTrace(hook TraceHook)
}

// DatabaseTarget adapts a *store.Database into a Target.
type DatabaseTarget struct {
	db    *store.Database
	trace TraceHook
}

// NewDatabaseTarget returns a Target backed directly by db.
func NewDatabaseTarget(db *store.Database) *DatabaseTarget {
	return &DatabaseTarget{db: db}
}

// SetTrace installs hook, replacing any previously installed one. Pass nil
// to disable tracing.
func (t *DatabaseTarget) SetTrace(hook TraceHook) { t.trace = hook }

func (t *DatabaseTarget) emit(state TraceState) {
	if t.trace != nil {
		t.trace(state)
	}
}

// GetSyncInfo implements Target.
func (t *DatabaseTarget) GetSyncInfo(sourceUID string) (string, int64, int64, string, error) {
	mark := t.db.SyncInfo(sourceUID)
	return t.db.ReplicaUID(), t.db.Generation(), mark.Generation, mark.TransactionID, nil
}

// RecordSyncInfo implements Target.
func (t *DatabaseTarget) RecordSyncInfo(sourceUID string, sourceGen int64, sourceTransID string) error {
	t.emit(TraceRecordSyncInfo)
	t.db.RecordSyncInfo(sourceUID, sourceGen, sourceTransID)
	return nil
}

// SyncExchange implements Target, following spec §4.5's four steps.
func (t *DatabaseTarget) SyncExchange(docs []DocRecord, sourceUID string, lastKnownGeneration int64, returnDoc func(DocRecord) error) (int64, string, error) {
	_, span := tracing.StartSpan(context.Background(), "sync_exchange",
		attribute.String("peer_uid", sourceUID),
		attribute.Int("docs_in", len(docs)),
	)
	defer span.End()

	// Step 1: ingest every incoming doc in the order supplied. A doc that
	// turns out to be superseded by something newer we already hold is
	// NOT marked "seen" — it must be bounced back to the source in step 3
	// so the source learns about our newer revision.
	seen := make(map[string]bool, len(docs))
	for _, rec := range docs {
		d := &document.Document{ID: rec.ID, Rev: rec.Rev, Content: rec.Content}
		state, _, err := t.db.PutDocIfNewer(d, true, &store.SyncOrigin{
			PeerUID:           sourceUID,
			PeerGeneration:    rec.Generation,
			PeerTransactionID: rec.TransactionID,
		})
		if err != nil {
			return 0, "", err
		}
		if state != store.StateSuperseded {
			seen[rec.ID] = true
		}
	}

	// Step 2: what changed locally since last_known_generation, excluding
	// what we just ingested from this very source.
	t.emit(TraceBeforeWhatsChanged)
	changes := t.db.WhatsChanged(lastKnownGeneration)
	t.emit(TraceAfterWhatsChanged)

	t.emit(TraceBeforeGetDocs)
	for _, c := range changes {
		if seen[c.DocID] {
			continue
		}
		d, err := t.db.GetDoc(c.DocID, true)
		if err != nil {
			return 0, "", err
		}
		if d == nil {
			continue
		}
		if err := returnDoc(DocRecord{
			ID:            d.ID,
			Rev:           d.Rev,
			Content:       d.Content,
			Generation:    c.Generation,
			TransactionID: c.TransactionID,
		}); err != nil {
			return 0, "", err
		}
	}

	newGen := t.db.Generation()
	newTxID, _ := t.db.LastTransactionID()
	return newGen, newTxID, nil
}
