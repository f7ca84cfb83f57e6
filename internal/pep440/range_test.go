package pep440_test

import (
	"testing"

	"github.com/bilusteknoloji/pvsolve/internal/pep440"
)

func contains(t *testing.T, r pep440.Range, version string) bool {
	t.Helper()

	v, err := pep440.Parse(version)
	if err != nil {
		t.Fatalf("parsing %q: %v", version, err)
	}

	return r.Contains(v)
}

func TestSpecifierOperators(t *testing.T) {
	tests := []struct {
		clause  string
		version string
		want    bool
	}{
		{"==1.2.3", "1.2.3", true},
		{"==1.2.3", "1.2.4", false},
		{"==1.2.*", "1.2.9", true},
		{"==1.2.*", "1.3.0", false},
		{"!=1.2.*", "1.3.0", true},
		{"!=1.2.*", "1.2.0", false},
		{"!=1.2.3", "1.2.3", false},
		{"!=1.2.3", "1.2.4", true},
		{"<1.2.3", "1.2.2", true},
		{"<1.2.3", "1.2.3", false},
		{"<1.0", "1.0.dev1", false},
		{"<=1.2.3", "1.2.3", true},
		{"<=1.2.3", "1.2.4", false},
		{">1.2.3", "1.2.4", true},
		{">1.2.3", "1.2.3", false},
		{">1.0", "1.0.post1", false},
		{">1.0.post1", "1.0.post2", true},
		{">=1.2.3", "1.2.3", true},
		{">=1.2.3", "1.2.2", false},
		{"~=1.2", "1.2.5", true},
		{"~=1.2", "1.3.0", false},
		{"~=1.2.3", "1.2.9", true},
		{"~=1.2.3", "1.3.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.clause+"_"+tt.version, func(t *testing.T) {
			r, err := pep440.FromSpecifier(tt.clause)
			if err != nil {
				t.Fatalf("FromSpecifier(%q): %v", tt.clause, err)
			}

			if got := contains(t, r, tt.version); got != tt.want {
				t.Errorf("FromSpecifier(%q).Contains(%q) = %v, want %v", tt.clause, tt.version, got, tt.want)
			}
		})
	}
}

func TestCompatibleRequiresTwoSegments(t *testing.T) {
	if _, err := pep440.FromSpecifier("~=1"); err == nil {
		t.Error("expected error for ~= with a single release segment")
	}
}

func TestRangeIntersectUnionComplement(t *testing.T) {
	a, _ := pep440.FromSpecifier(">=1.0")
	b, _ := pep440.FromSpecifier("<2.0")

	and := a.Intersect(b)
	if !contains(t, and, "1.5.0") || contains(t, and, "2.0.0") || contains(t, and, "0.9.0") {
		t.Error("intersection bounds incorrect")
	}

	union := a.Union(b)
	if !union.IsFull() {
		t.Error(">=1.0 union <2.0 should cover every version")
	}

	notAnd := and.Complement()
	if contains(t, notAnd, "1.5.0") || !contains(t, notAnd, "2.5.0") {
		t.Error("complement of [1.0,2.0) should exclude 1.5.0 and include 2.5.0")
	}
}

func TestRangeEmptyAndFull(t *testing.T) {
	empty := pep440.Empty()
	if !empty.IsEmpty() {
		t.Error("Empty() should be empty")
	}

	full := pep440.Full()
	if !full.IsFull() || full.IsEmpty() {
		t.Error("Full() should be full and non-empty")
	}

	if !empty.IsDisjoint(full) {
		t.Error("an empty range is disjoint from everything, including full")
	}
}

func TestFromSpecifiersIntersectsClauses(t *testing.T) {
	r, err := pep440.FromSpecifiers(">=1.25,<2.0")
	if err != nil {
		t.Fatalf("FromSpecifiers: %v", err)
	}

	if !contains(t, r, "1.26.0") || contains(t, r, "2.0.0") || contains(t, r, "1.24.0") {
		t.Error("FromSpecifiers did not intersect clauses correctly")
	}
}

func TestLocalVersionSatisfiesPublicRange(t *testing.T) {
	r, err := pep440.FromSpecifiers(">=1.0,<2.0")
	if err != nil {
		t.Fatalf("FromSpecifiers: %v", err)
	}

	if !contains(t, r, "1.5.0+deb10") {
		t.Error("a local version should satisfy the range its public form satisfies")
	}
}
