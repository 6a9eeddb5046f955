package httpsync

import (
	"encoding/json"

	"github.com/kazade/syncdb/internal/synctarget"
)

// syncInfoResponse is the GET response body (spec §4.7).
type syncInfoResponse struct {
	TargetReplicaUID        string `json:"target_replica_uid"`
	TargetReplicaGeneration int64  `json:"target_replica_generation"`
	SourceReplicaGeneration int64  `json:"source_replica_generation"`
	SourceTransactionID     string `json:"source_transaction_id"`
}

// recordSyncInfoRequest is the PUT request body.
type recordSyncInfoRequest struct {
	Generation    int64  `json:"generation"`
	TransactionID string `json:"transaction_id"`
}

// streamHeader is the first element of the POST request stream.
type streamHeader struct {
	LastKnownGeneration int64 `json:"last_known_generation"`
}

// streamDocRecord is a per-document element in either direction of the
// POST stream.
type streamDocRecord struct {
	ID            string          `json:"id"`
	Rev           string          `json:"rev"`
	Content       json.RawMessage `json:"content"`
	Generation    int64           `json:"gen"`
	TransactionID string          `json:"trans_id"`
}

func (r streamDocRecord) toRecord() synctarget.DocRecord {
	return synctarget.DocRecord{ID: r.ID, Rev: r.Rev, Content: r.Content, Generation: r.Generation, TransactionID: r.TransactionID}
}

func fromRecord(r synctarget.DocRecord) streamDocRecord {
	return streamDocRecord{ID: r.ID, Rev: r.Rev, Content: r.Content, Generation: r.Generation, TransactionID: r.TransactionID}
}

// responseHeader is the first element of the POST response stream.
type responseHeader struct {
	NewGeneration    int64  `json:"new_generation"`
	NewTransactionID string `json:"new_transaction_id"`
}
