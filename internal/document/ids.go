package document

import "github.com/google/uuid"

// TransactionIDPrefix marks every transaction id the store mints (spec
// invariant 2: "a recognizable marker").
const TransactionIDPrefix = "T-"

// NewTransactionID mints a fresh, globally-unique transaction id.
func NewTransactionID() string {
	return TransactionIDPrefix + uuid.NewString()
}

// NewReplicaUID mints a fresh replica identifier, stable for the lifetime
// of one database (spec §3 "generated once per database").
func NewReplicaUID() string {
	return uuid.NewString()
}
