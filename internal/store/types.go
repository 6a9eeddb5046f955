package store

// State is the outcome _put_doc_if_newer reports for one incoming revision
// (spec §4.2).
type State string

const (
	StateInserted   State = "inserted"
	StateSuperseded State = "superseded"
	StateConverged  State = "converged"
	StateConflicted State = "conflicted"
)

// SyncOrigin carries the peer bookkeeping _put_doc_if_newer needs when the
// incoming revision arrives from a sync exchange rather than a local write
// (spec §4.3). Nil for a purely local write.
type SyncOrigin struct {
	PeerUID           string
	PeerGeneration    int64
	PeerTransactionID string
}

// Change is one entry of a WhatsChanged result: the most recent generation
// at which docID was touched, and the transaction id that produced it
// (supplemented from original_source/u1dbrepo's whats_changed).
type Change struct {
	DocID         string
	Generation    int64
	TransactionID string
}
