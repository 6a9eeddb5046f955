// Package syncclient implements the Synchronizer client driver (spec
// §4.6): it drives one local replica through a sync round against a
// synctarget.Target, which may be an in-process database or a remote HTTP
// peer. Grounded on the teacher's internal/collection/distributed_collection.go
// AttachToNetwork/requestSync/handleSyncResponse flow, rebuilt around
// _put_doc_if_newer instead of the teacher's ApplyOperation.
package syncclient

import (
	"github.com/kazade/syncdb/internal/document"
	"github.com/kazade/syncdb/internal/store"
	"github.com/kazade/syncdb/internal/synctarget"
)

// Synchronizer drives source through one sync round against target.
type Synchronizer struct {
	source *store.Database
	target synctarget.Target
}

// New returns a Synchronizer for the given local source database and
// remote/local target.
func New(source *store.Database, target synctarget.Target) *Synchronizer {
	return &Synchronizer{source: source, target: target}
}

// Sync runs one full exchange and returns the target's post-exchange
// generation.
func (s *Synchronizer) Sync() (int64, error) {
	sourceUID := s.source.ReplicaUID()

	// Step 1.
	targetUID, targetGen, myKnownSrcGen, myKnownSrcTxID, err := s.target.GetSyncInfo(sourceUID)
	if err != nil {
		return 0, err
	}

	// Step 2: validate the target's claimed knowledge of us.
	if myKnownSrcGen > 0 {
		txid, ok := s.source.TransactionIDAt(myKnownSrcGen)
		if ok && txid != myKnownSrcTxID {
			return 0, document.Newf(document.KindInvalidTransactionID,
				"target %q claims to know source generation %d with a transaction id that does not match", targetUID, myKnownSrcGen)
		}
	}

	// Step 3: docs to send, de-duplicated to latest generation per doc,
	// ascending.
	changes := s.source.WhatsChanged(myKnownSrcGen)
	docsToSend := make([]synctarget.DocRecord, 0, len(changes))
	for _, c := range changes {
		d, err := s.source.GetDoc(c.DocID, true)
		if err != nil {
			return 0, err
		}
		if d == nil {
			continue
		}
		docsToSend = append(docsToSend, synctarget.DocRecord{
			ID:            d.ID,
			Rev:           d.Rev,
			Content:       d.Content,
			Generation:    c.Generation,
			TransactionID: c.TransactionID,
		})
	}

	// Step 4: nothing to send and we're already caught up on the target.
	if len(docsToSend) == 0 {
		knownTarget := s.source.SyncInfo(targetUID)
		if knownTarget.Generation == targetGen {
			return targetGen, nil
		}
	}

	sourceGenBefore := s.source.Generation()

	// Step 5.
	newTargetGen, newTargetTxID, err := s.target.SyncExchange(docsToSend, sourceUID, targetGen, func(rec synctarget.DocRecord) error {
		d := &document.Document{ID: rec.ID, Rev: rec.Rev, Content: rec.Content}
		_, _, err := s.source.PutDocIfNewer(d, true, &store.SyncOrigin{
			PeerUID:           targetUID,
			PeerGeneration:    rec.Generation,
			PeerTransactionID: rec.TransactionID,
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	_ = newTargetTxID

	// Step 6: only tell the target what generation we're at if the
	// ingest above taught us nothing new beyond what we already sent it.
	sourceGenAfter := s.source.Generation()
	if sourceGenAfter == sourceGenBefore {
		finalTxID, _ := s.source.LastTransactionID()
		if err := s.target.RecordSyncInfo(sourceUID, sourceGenAfter, finalTxID); err != nil {
			return 0, err
		}
	}

	return newTargetGen, nil
}
