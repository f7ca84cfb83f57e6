package versionmap_test

import (
	"testing"

	"github.com/bilusteknoloji/pvsolve/internal/pep440"
	"github.com/bilusteknoloji/pvsolve/internal/requirement"
	"github.com/bilusteknoloji/pvsolve/internal/simpleapi"
	"github.com/bilusteknoloji/pvsolve/internal/versionmap"
)

func hostTags() versionmap.Tags {
	return versionmap.NewTags(
		versionmap.Tag{Python: "cp312", ABI: "cp312", Platform: "manylinux_2_17_x86_64"},
		versionmap.Tag{Python: "py3", ABI: "none", Platform: "any"},
	)
}

func TestBuildOrdersVersionsDescending(t *testing.T) {
	page := &simpleapi.ProjectPage{
		Name: "widget",
		Files: []simpleapi.File{
			{Filename: "widget-1.0.0-py3-none-any.whl"},
			{Filename: "widget-2.0.0-py3-none-any.whl"},
			{Filename: "widget-1.5.0-py3-none-any.whl"},
		},
	}

	m, err := versionmap.Build(requirement.PackageName("widget"), page, versionmap.BuildOptions{
		Tags:           hostTags(),
		PythonRequired: pep440.Full(),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	got := m.Versions()
	if len(got) != 3 {
		t.Fatalf("Versions() len = %d, want 3", len(got))
	}

	want := []string{"2.0.0", "1.5.0", "1.0.0"}
	for i, v := range got {
		if v.String() != want[i] {
			t.Errorf("Versions()[%d] = %s, want %s", i, v, want[i])
		}
	}
}

func TestBuildDropsIncompatibleWheels(t *testing.T) {
	page := &simpleapi.ProjectPage{
		Files: []simpleapi.File{
			{Filename: "widget-1.0.0-cp39-cp39-win_amd64.whl"},
		},
	}

	m, err := versionmap.Build(requirement.PackageName("widget"), page, versionmap.BuildOptions{
		Tags:           hostTags(),
		PythonRequired: pep440.Full(),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	v := pep440.MustParse("1.0.0")

	cand := m.Candidate(v)
	if cand == nil {
		t.Fatal("Candidate(1.0.0) = nil, want a candidate recording why it was rejected")
	}

	if cand.Selectable() {
		t.Error("candidate with no compatible wheel and no sdist must not be selectable")
	}
}

func TestBuildRespectsPythonRequirement(t *testing.T) {
	page := &simpleapi.ProjectPage{
		Files: []simpleapi.File{
			{Filename: "widget-1.0.0-py3-none-any.whl", RequiresPython: ">=3.11"},
		},
	}

	narrowRange, err := pep440.FromSpecifiers("<3.9")
	if err != nil {
		t.Fatalf("FromSpecifiers: %v", err)
	}

	m, err := versionmap.Build(requirement.PackageName("widget"), page, versionmap.BuildOptions{
		Tags:           hostTags(),
		PythonRequired: narrowRange,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	cand := m.Candidate(pep440.MustParse("1.0.0"))
	if cand.Selectable() {
		t.Error("widget 1.0.0 requires Python >=3.11, incompatible with the active <3.9 requirement; should be marked unselectable")
	}
}

func TestNextCompatibleSkipsUnselectable(t *testing.T) {
	page := &simpleapi.ProjectPage{
		Files: []simpleapi.File{
			{Filename: "widget-1.0.0-py3-none-any.whl"},
			{Filename: "widget-2.0.0-cp20-cp20-win_amd64.whl"}, // incompatible tag
			{Filename: "widget-3.0.0-py3-none-any.whl"},
		},
	}

	m, err := versionmap.Build(requirement.PackageName("widget"), page, versionmap.BuildOptions{
		Tags:           hostTags(),
		PythonRequired: pep440.Full(),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	v, ok := m.NextCompatible(pep440.Full(), nil)
	if !ok {
		t.Fatal("NextCompatible: want a candidate, got none")
	}

	if v.String() != "3.0.0" {
		t.Errorf("NextCompatible = %s, want 3.0.0 (highest selectable)", v)
	}
}
