package lock_test

import (
	"context"
	"testing"

	"github.com/bilusteknoloji/pvsolve/internal/lock"
	"github.com/bilusteknoloji/pvsolve/internal/markers"
	"github.com/bilusteknoloji/pvsolve/internal/pep440"
	"github.com/bilusteknoloji/pvsolve/internal/pubgrub"
	"github.com/bilusteknoloji/pvsolve/internal/requirement"
)

func node(name, version string) pubgrub.NodeKey {
	return pubgrub.NodeKey{
		Pkg:     pubgrub.Base(requirement.Normalize(name)),
		Version: pep440.MustParse(version),
	}
}

func buildTestGraph() *pubgrub.Graph {
	g := &pubgrub.Graph{Nodes: map[pubgrub.NodeKey]bool{}}

	flask := node("flask", "2.0.0")
	werkzeug := node("werkzeug", "2.0.0")

	g.Nodes[flask] = true
	g.Nodes[werkzeug] = true

	g.Edges = append(g.Edges, pubgrub.GraphEdge{
		From:   pubgrub.Root(),
		To:     flask,
		Marker: markers.UniversalTrue(),
	})

	g.Edges = append(g.Edges, pubgrub.GraphEdge{
		From:   pubgrub.Base(requirement.Normalize("flask")),
		To:     werkzeug,
		Marker: markers.UniversalTrue(),
	})

	return g
}

func TestBuildAndRenderRoundTrip(t *testing.T) {
	g := buildTestGraph()

	opts := lock.Options{
		RequiresPythonText:  ">=3.9",
		RequiresPythonRange: pep440.Full(),
		InputDigest:         "deadbeef",
	}

	lf, err := lock.Build(context.Background(), g, nil, opts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(lf.Package) != 2 {
		t.Fatalf("expected 2 packages, got %d", len(lf.Package))
	}

	if lf.Package[0].Name != "flask" || lf.Package[1].Name != "werkzeug" {
		t.Fatalf("packages not sorted by name: %+v", lf.Package)
	}

	if len(lf.Package[0].Dependencies) != 1 || lf.Package[0].Dependencies[0].Name != "werkzeug" {
		t.Fatalf("expected flask -> werkzeug dependency, got %+v", lf.Package[0].Dependencies)
	}

	text, err := lock.Render(lf)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	parsed, err := lock.Parse([]byte(text))
	if err != nil {
		t.Fatalf("Parse: %v\n--- text ---\n%s", err, text)
	}

	if parsed.Manifest.InputDigest != lf.Manifest.InputDigest {
		t.Fatalf("input digest did not round-trip: got %q want %q", parsed.Manifest.InputDigest, lf.Manifest.InputDigest)
	}

	if len(parsed.Package) != len(lf.Package) {
		t.Fatalf("package count did not round-trip: got %d want %d", len(parsed.Package), len(lf.Package))
	}

	for i := range lf.Package {
		if parsed.Package[i].Name != lf.Package[i].Name || parsed.Package[i].Version != lf.Package[i].Version {
			t.Fatalf("package %d did not round-trip: got %+v want %+v", i, parsed.Package[i], lf.Package[i])
		}
	}
}

func TestStaleOnDigestMismatch(t *testing.T) {
	lf := &lock.Lockfile{
		Version:  lock.SchemaVersion,
		Manifest: lock.Manifest{InputDigest: lock.Compute(lock.DigestInputs{RequiresPython: ">=3.9"})},
	}

	if lock.Stale(lf, lock.DigestInputs{RequiresPython: ">=3.9"}) {
		t.Fatal("expected lockfile to be fresh against identical inputs")
	}

	if !lock.Stale(lf, lock.DigestInputs{RequiresPython: ">=3.10"}) {
		t.Fatal("expected lockfile to be stale after requires-python changed")
	}
}

func TestStaleOnSchemaVersionMismatch(t *testing.T) {
	lf := &lock.Lockfile{Version: lock.SchemaVersion - 1}

	if !lock.Stale(lf, lock.DigestInputs{}) {
		t.Fatal("expected lockfile with old schema version to be stale regardless of digest")
	}
}

func TestDigestOrderIndependent(t *testing.T) {
	a := lock.Compute(lock.DigestInputs{RootRequirements: []string{"flask", "requests"}})
	b := lock.Compute(lock.DigestInputs{RootRequirements: []string{"requests", "flask"}})

	if a != b {
		t.Fatalf("digest should be order independent: %q != %q", a, b)
	}
}
