package store

import (
	"encoding/json"

	"github.com/kazade/syncdb/internal/security"
)

// EncryptedBackend wraps another Backend, encrypting document content at
// rest with AES-GCM so the wrapped Backend (and whatever it persists to)
// never observes plaintext JSON. Revisions, the transaction log, and sync
// marks pass through unencrypted — only StoredDoc.Content is protected.
type EncryptedBackend struct {
	inner Backend
	enc   *security.ContentEncryption
	key   []byte
}

// NewEncryptedBackend wraps inner, deriving an encryption key from secret
// and salt via PBKDF2. salt should be generated once per database (see
// security.ContentEncryption.GenerateSalt) and persisted alongside it.
func NewEncryptedBackend(inner Backend, secret string, salt []byte) *EncryptedBackend {
	enc := security.NewContentEncryption()
	return &EncryptedBackend{inner: inner, enc: enc, key: enc.DeriveKey(secret, salt)}
}

func (b *EncryptedBackend) Get(docID string) (StoredDoc, bool) {
	d, ok := b.inner.Get(docID)
	if !ok || d.Content == nil {
		return d, ok
	}
	plain, err := b.enc.Decrypt(d.Content, b.key)
	if err != nil {
		return StoredDoc{}, false
	}
	d.Content = json.RawMessage(plain)
	return d, true
}

func (b *EncryptedBackend) Put(docID string, d StoredDoc) {
	if d.Content != nil {
		cipher, err := b.enc.Encrypt(d.Content, b.key)
		if err == nil {
			d.Content = cipher
		}
	}
	b.inner.Put(docID, d)
}

func (b *EncryptedBackend) DocIDs() []string { return b.inner.DocIDs() }

func (b *EncryptedBackend) AppendTxLogEntry(e TxLogEntry) { b.inner.AppendTxLogEntry(e) }
func (b *EncryptedBackend) TxLog() []TxLogEntry           { return b.inner.TxLog() }

func (b *EncryptedBackend) SyncInfo(peerUID string) (SyncMark, bool) { return b.inner.SyncInfo(peerUID) }
func (b *EncryptedBackend) SetSyncInfo(peerUID string, mark SyncMark) {
	b.inner.SetSyncInfo(peerUID, mark)
}
func (b *EncryptedBackend) AllSyncInfo() map[string]SyncMark { return b.inner.AllSyncInfo() }
