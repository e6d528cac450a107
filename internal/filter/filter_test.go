package filter

import (
	"errors"
	"testing"
)

func TestParseKnownNames(t *testing.T) {
	cases := []struct {
		in   string
		want Filter
	}{
		{"nop", Nop},
		{"bcompress", Bcompress},
		{"bdecompress", Bdecompress},
		{"gcompress", Gcompress},
		{"gdecompress", Gdecompress},
		{"encrypt", Encrypt},
		{"decrypt", Decrypt},
		{"NOP", Nop},
		{"Encrypt", Encrypt},
	}
	for _, c := range cases {
		got, err := Parse(c.in)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("Parse(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseUnknownName(t *testing.T) {
	_, err := Parse("nopp")
	if err == nil {
		t.Fatal("expected error for unknown filter name")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Token != "nopp" {
		t.Fatalf("expected token %q, got %q", "nopp", pe.Token)
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, f := range All {
		parsed, err := Parse(f.String())
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", f.String(), err)
		}
		if parsed != f {
			t.Fatalf("round trip mismatch: %v -> %q -> %v", f, f.String(), parsed)
		}
	}
}

func TestMultiset(t *testing.T) {
	c := Multiset([]Filter{Bcompress, Nop, Gcompress, Encrypt, Nop})
	if c.Get(Nop) != 2 {
		t.Fatalf("nop count = %d, want 2", c.Get(Nop))
	}
	if c.Get(Bcompress) != 1 || c.Get(Gcompress) != 1 || c.Get(Encrypt) != 1 {
		t.Fatalf("unexpected counts: %+v", c)
	}
	if c.Get(Decrypt) != 0 {
		t.Fatalf("decrypt count = %d, want 0", c.Get(Decrypt))
	}
}

func TestAddSub(t *testing.T) {
	a := Multiset([]Filter{Encrypt, Encrypt})
	b := Multiset([]Filter{Encrypt})
	sum := a.Add(b)
	if sum.Get(Encrypt) != 3 {
		t.Fatalf("sum encrypt = %d, want 3", sum.Get(Encrypt))
	}
	diff := sum.Sub(b)
	if diff.Get(Encrypt) != 2 {
		t.Fatalf("diff encrypt = %d, want 2", diff.Get(Encrypt))
	}
}

func TestDominates(t *testing.T) {
	limits := Counts{}.Set(Encrypt, 1).Set(Nop, 3)
	within := Counts{}.Set(Encrypt, 1).Set(Nop, 2)
	if !within.Dominates(limits) {
		t.Fatal("expected within <= limits")
	}
	over := Counts{}.Set(Encrypt, 2)
	if over.Dominates(limits) {
		t.Fatal("expected over > limits to fail dominance")
	}
}
