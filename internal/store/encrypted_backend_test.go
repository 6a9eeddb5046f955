package store

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/kazade/syncdb/internal/security"
)

func TestEncryptedBackendRoundTrip(t *testing.T) {
	inner := NewMemBackend()
	salt := []byte("0123456789abcdef")
	b := NewEncryptedBackend(inner, "shared-secret", salt)

	b.Put("doc1", StoredDoc{Rev: "A:1", Content: json.RawMessage(`{"x":1}`)})

	got, ok := b.Get("doc1")
	if !ok {
		t.Fatal("expected doc1 to be found")
	}
	if string(got.Content) != `{"x":1}` {
		t.Errorf("got %s", got.Content)
	}

	rawInner, _ := inner.Get("doc1")
	if bytes.Contains(rawInner.Content, []byte(`{"x":1}`)) {
		t.Error("expected the wrapped backend to never see plaintext content")
	}
}

func TestEncryptedBackendWrongKeyFailsDecrypt(t *testing.T) {
	inner := NewMemBackend()
	salt := []byte("0123456789abcdef")
	b := NewEncryptedBackend(inner, "shared-secret", salt)
	b.Put("doc1", StoredDoc{Rev: "A:1", Content: json.RawMessage(`{"x":1}`)})

	enc := security.NewContentEncryption()
	wrongKey := enc.DeriveKey("different-secret", salt)
	other := &EncryptedBackend{inner: inner, enc: enc, key: wrongKey}

	if _, ok := other.Get("doc1"); ok {
		t.Error("expected decryption with the wrong key to fail")
	}
}

func TestEncryptedBackendTombstonePassesThrough(t *testing.T) {
	inner := NewMemBackend()
	b := NewEncryptedBackend(inner, "secret", []byte("0123456789abcdef"))
	b.Put("doc1", StoredDoc{Rev: "A:1", Content: nil})

	got, ok := b.Get("doc1")
	if !ok || got.Content != nil {
		t.Errorf("expected tombstone to round-trip with nil content, got %+v ok=%v", got, ok)
	}
}
