package document

import "testing"

func TestValidDocID(t *testing.T) {
	good := []string{"abc", "abc.def", "a-b_c.d%e", "A1"}
	bad := []string{"", "a/b", "a b", "a?b"}
	for _, id := range good {
		if !ValidDocID(id) {
			t.Errorf("expected %q to be valid", id)
		}
	}
	for _, id := range bad {
		if ValidDocID(id) {
			t.Errorf("expected %q to be invalid", id)
		}
	}
}

func TestSameContentAs(t *testing.T) {
	a := &Document{Content: []byte(`{"a":1}`)}
	b := &Document{Content: []byte(`{"a":1}`)}
	c := &Document{Content: []byte(`{"a":2}`)}
	if !a.SameContentAs(b) {
		t.Error("expected identical content to match")
	}
	if a.SameContentAs(c) {
		t.Error("expected different content to differ")
	}
}

func TestSameContentAsTombstones(t *testing.T) {
	a := &Document{Content: nil}
	b := &Document{Content: nil}
	if !a.SameContentAs(b) {
		t.Error("expected two tombstones to match")
	}
	live := &Document{Content: []byte(`{}`)}
	if a.SameContentAs(live) {
		t.Error("tombstone should not match live content")
	}
}

func TestConflictSetHasConflicts(t *testing.T) {
	var nilSet *ConflictSet
	if nilSet.HasConflicts() {
		t.Error("nil set should report no conflicts")
	}
	oneWinner := &ConflictSet{Winner: Revision{Rev: "a:1"}}
	if oneWinner.HasConflicts() {
		t.Error("winner with no losers should report no conflicts")
	}
	withLoser := &ConflictSet{Winner: Revision{Rev: "a:1"}, Losers: []Revision{{Rev: "b:1"}}}
	if !withLoser.HasConflicts() {
		t.Error("winner with a loser should report conflicts")
	}
	if got := len(withLoser.AllRevisions()); got != 2 {
		t.Errorf("expected 2 revisions, got %d", got)
	}
}

func TestNewTransactionIDPrefix(t *testing.T) {
	id := NewTransactionID()
	if len(id) < len(TransactionIDPrefix) || id[:len(TransactionIDPrefix)] != TransactionIDPrefix {
		t.Errorf("expected transaction id to start with %q, got %q", TransactionIDPrefix, id)
	}
}
