package selector_test

import (
	"testing"

	"github.com/bilusteknoloji/pvsolve/internal/pep440"
	"github.com/bilusteknoloji/pvsolve/internal/requirement"
	"github.com/bilusteknoloji/pvsolve/internal/selector"
	"github.com/bilusteknoloji/pvsolve/internal/simpleapi"
	"github.com/bilusteknoloji/pvsolve/internal/versionmap"
)

func buildMap(t *testing.T, filenames ...string) *versionmap.Map {
	t.Helper()

	files := make([]simpleapi.File, len(filenames))
	for i, f := range filenames {
		files[i] = simpleapi.File{Filename: f}
	}

	tags := versionmap.NewTags(versionmap.Tag{Python: "py3", ABI: "none", Platform: "any"})

	m, err := versionmap.Build(requirement.PackageName("widget"), &simpleapi.ProjectPage{Files: files}, versionmap.BuildOptions{
		Tags:           tags,
		PythonRequired: pep440.Full(),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	return m
}

func TestSelectHighestPicksNewest(t *testing.T) {
	vm := buildMap(t,
		"widget-1.0.0-py3-none-any.whl",
		"widget-2.0.0-py3-none-any.whl",
	)

	sel := selector.New(selector.Highest, selector.PrereleaseIfNecessary)

	v, ok := sel.Select("widget", pep440.Full(), vm, true, false)
	if !ok || v.String() != "2.0.0" {
		t.Fatalf("Select = %v, %v, want 2.0.0, true", v, ok)
	}
}

func TestSelectLowestPicksOldest(t *testing.T) {
	vm := buildMap(t,
		"widget-1.0.0-py3-none-any.whl",
		"widget-2.0.0-py3-none-any.whl",
	)

	sel := selector.New(selector.Lowest, selector.PrereleaseIfNecessary)

	v, ok := sel.Select("widget", pep440.Full(), vm, true, false)
	if !ok || v.String() != "1.0.0" {
		t.Fatalf("Select = %v, %v, want 1.0.0, true", v, ok)
	}
}

func TestSelectLowestDirectOnlyAppliesToDirectPackages(t *testing.T) {
	vm := buildMap(t,
		"widget-1.0.0-py3-none-any.whl",
		"widget-2.0.0-py3-none-any.whl",
	)

	sel := selector.New(selector.LowestDirect, selector.PrereleaseIfNecessary)

	direct, ok := sel.Select("widget", pep440.Full(), vm, true, false)
	if !ok || direct.String() != "1.0.0" {
		t.Fatalf("direct Select = %v, %v, want 1.0.0, true", direct, ok)
	}

	transitive, ok := sel.Select("widget", pep440.Full(), vm, false, false)
	if !ok || transitive.String() != "2.0.0" {
		t.Fatalf("transitive Select = %v, %v, want 2.0.0, true (LowestDirect falls back to Highest for non-root packages)", transitive, ok)
	}
}

func TestSelectSkipsPrereleaseUnlessNecessary(t *testing.T) {
	vm := buildMap(t,
		"widget-1.0.0a1-py3-none-any.whl",
		"widget-1.0.0-py3-none-any.whl",
	)

	sel := selector.New(selector.Highest, selector.PrereleaseIfNecessary)

	v, ok := sel.Select("widget", pep440.Full(), vm, true, false)
	if !ok || v.String() != "1.0.0" {
		t.Fatalf("Select = %v, %v, want the stable 1.0.0 over the pre-release", v, ok)
	}
}

func TestSelectAllowsPrereleaseWhenNoStableExists(t *testing.T) {
	vm := buildMap(t, "widget-1.0.0a1-py3-none-any.whl")

	sel := selector.New(selector.Highest, selector.PrereleaseIfNecessary)

	v, ok := sel.Select("widget", pep440.Full(), vm, true, false)
	if !ok || v.String() != "1.0.0a1" {
		t.Fatalf("Select = %v, %v, want the pre-release since no stable candidate exists", v, ok)
	}
}

func TestSelectDisallowsPrereleaseEvenIfExplicit(t *testing.T) {
	vm := buildMap(t, "widget-1.0.0a1-py3-none-any.whl")

	sel := selector.New(selector.Highest, selector.PrereleaseDisallow)

	if _, ok := sel.Select("widget", pep440.Full(), vm, true, true); ok {
		t.Fatal("Select: want no candidate under PrereleaseDisallow, got one")
	}
}

func TestSelectPrefersPinnedPreference(t *testing.T) {
	vm := buildMap(t,
		"widget-1.0.0-py3-none-any.whl",
		"widget-2.0.0-py3-none-any.whl",
	)

	sel := selector.New(selector.Highest, selector.PrereleaseIfNecessary).
		WithPreferences(map[requirement.PackageName]pep440.Version{
			"widget": pep440.MustParse("1.0.0"),
		})

	v, ok := sel.Select("widget", pep440.Full(), vm, true, false)
	if !ok || v.String() != "1.0.0" {
		t.Fatalf("Select = %v, %v, want the preferred 1.0.0 even though 2.0.0 is newer", v, ok)
	}
}
