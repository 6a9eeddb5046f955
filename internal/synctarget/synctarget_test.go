package synctarget

import (
	"encoding/json"
	"testing"

	"github.com/kazade/syncdb/internal/store"
)

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func TestSyncExchangeInsertsWithNothingToReturn(t *testing.T) {
	a := store.New("A", store.NewMemBackend())
	b := store.New("B", store.NewMemBackend())

	d, err := a.CreateDoc(raw(`{"x":1}`), "doc1")
	if err != nil {
		t.Fatal(err)
	}

	targetB := NewDatabaseTarget(b)
	newGen, newTxID, err := targetB.SyncExchange(
		[]DocRecord{{ID: "doc1", Rev: d.Rev, Content: d.Content, Generation: 1, TransactionID: "T-1"}},
		"A", 0,
		func(DocRecord) error { t.Fatal("B has nothing to send back on first sync"); return nil },
	)
	if err != nil {
		t.Fatal(err)
	}
	if newGen != 1 || newTxID == "" {
		t.Errorf("got gen=%d txid=%q", newGen, newTxID)
	}

	got, err := b.GetDoc("doc1", false)
	if err != nil || got == nil {
		t.Fatalf("expected doc1 on B, err=%v", err)
	}
}

func TestSyncExchangeTraceHookOrder(t *testing.T) {
	a := store.New("A", store.NewMemBackend())
	target := NewDatabaseTarget(a)

	var states []TraceState
	target.SetTrace(func(s TraceState) { states = append(states, s) })

	target.SyncExchange(nil, "B", 0, func(DocRecord) error { return nil })

	want := []TraceState{TraceBeforeWhatsChanged, TraceAfterWhatsChanged}
	if len(states) < 2 || states[0] != want[0] || states[1] != want[1] {
		t.Errorf("got %v", states)
	}
}

func TestGetSyncInfoReflectsStoredMark(t *testing.T) {
	a := store.New("A", store.NewMemBackend())
	a.RecordSyncInfo("B", 7, "T-known")
	target := NewDatabaseTarget(a)

	tgtUID, tgtGen, srcGen, srcTxID, err := target.GetSyncInfo("B")
	if err != nil {
		t.Fatal(err)
	}
	if tgtUID != "A" || tgtGen != 0 || srcGen != 7 || srcTxID != "T-known" {
		t.Errorf("got %q %d %d %q", tgtUID, tgtGen, srcGen, srcTxID)
	}
}
