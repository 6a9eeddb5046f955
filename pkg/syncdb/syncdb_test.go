package syncdb

import (
	"testing"

	"github.com/kazade/syncdb/internal/authn"
)

func TestOpen(t *testing.T) {
	db, err := Open(Options{ReplicaUID: "A"})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if db == nil {
		t.Fatal("Open() returned nil DB")
	}

	if _, err := Open(Options{ReplicaUID: ""}); err == nil {
		t.Fatal("Open() should fail with empty ReplicaUID")
	}
}

func TestOpenWithEncryption(t *testing.T) {
	db, err := Open(Options{ReplicaUID: "A", EncryptionSecret: "shared-secret"})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	coll := db.Collection("test")
	if _, err := coll.Create(map[string]interface{}{"x": 1}, "doc1"); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	got, err := coll.Get("doc1", false)
	if err != nil || got == nil {
		t.Fatalf("Get() failed: %v", err)
	}
}

func TestCollectionCreateAndGet(t *testing.T) {
	db, _ := Open(Options{ReplicaUID: "A"})
	coll := db.Collection("test")

	d, err := coll.Create(map[string]interface{}{"data": "value"}, "doc1")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if d.ID != "doc1" {
		t.Errorf("got id %q", d.ID)
	}

	got, err := coll.Get("doc1", false)
	if err != nil || got == nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Rev != d.Rev {
		t.Errorf("got rev %q want %q", got.Rev, d.Rev)
	}
}

func TestSyncWithInProcessTarget(t *testing.T) {
	a, _ := Open(Options{ReplicaUID: "A"})
	b, _ := Open(Options{ReplicaUID: "B"})

	collA := a.Collection("test")
	if _, err := collA.Create(map[string]interface{}{"x": 1}, "doc1"); err != nil {
		t.Fatal(err)
	}

	if _, err := a.SyncWith(b.AsSyncTarget()); err != nil {
		t.Fatalf("SyncWith() failed: %v", err)
	}

	collB := b.Collection("test")
	got, err := collB.Get("doc1", false)
	if err != nil || got == nil {
		t.Fatalf("expected doc1 to have synced to B, err=%v", err)
	}
}

func TestNewServerAllowsAnonymousByDefault(t *testing.T) {
	a, _ := Open(Options{ReplicaUID: "A"})
	handle := NewServer(map[string]*DB{"mydb": a}, authn.AllowAll{})
	if handle.Handler() == nil {
		t.Fatal("expected a non-nil handler")
	}
}
