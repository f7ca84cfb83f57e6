package markers_test

import (
	"testing"

	"github.com/bilusteknoloji/pvsolve/internal/markers"
)

func TestEvaluateSimpleClause(t *testing.T) {
	tree, err := markers.Parse(`python_version < "3.10"`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if !tree.Evaluate(markers.Env{PythonVersion: "3.9"}, nil) {
		t.Error("expected 3.9 < 3.10 to hold")
	}

	if tree.Evaluate(markers.Env{PythonVersion: "3.11"}, nil) {
		t.Error("expected 3.11 < 3.10 to fail")
	}
}

func TestEvaluateAndOr(t *testing.T) {
	tree, err := markers.Parse(`sys_platform == "linux" and python_version >= "3.8"`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	env := markers.Env{SysPlatform: "linux", PythonVersion: "3.11"}
	if !tree.Evaluate(env, nil) {
		t.Error("expected clause to hold on linux/3.11")
	}

	env.SysPlatform = "darwin"
	if tree.Evaluate(env, nil) {
		t.Error("expected clause to fail on darwin")
	}
}

func TestExtraEval(t *testing.T) {
	tree := markers.Atom(markers.KeyExtra, markers.OpEqual, "postgres")

	if tree.Evaluate(markers.Env{}, map[string]bool{"postgres": true}) != true {
		t.Error("expected extra to be active")
	}

	if tree.Evaluate(markers.Env{}, nil) != false {
		t.Error("expected extra to be inactive without activation")
	}
}

func TestDisjointStringDomain(t *testing.T) {
	linux, _ := markers.Parse(`sys_platform == "linux"`)
	darwin, _ := markers.Parse(`sys_platform == "darwin"`)

	if !linux.Disjoint(darwin) {
		t.Error("expected sys_platform == linux and == darwin to be disjoint")
	}

	if linux.Disjoint(linux) {
		t.Error("a marker is never disjoint from itself unless unsatisfiable")
	}
}

func TestDisjointVersionRanges(t *testing.T) {
	low, _ := markers.Parse(`python_version < "3.8"`)
	high, _ := markers.Parse(`python_version >= "3.8"`)

	if !low.Disjoint(high) {
		t.Error("expected < 3.8 and >= 3.8 to be disjoint")
	}

	overlapping, _ := markers.Parse(`python_version <= "3.9"`)
	if low.Disjoint(overlapping) {
		t.Error("expected < 3.8 and <= 3.9 to overlap, not be disjoint")
	}
}

func TestDisjointOrBranches(t *testing.T) {
	a, _ := markers.Parse(`sys_platform == "linux" or sys_platform == "darwin"`)
	b, _ := markers.Parse(`sys_platform == "win32"`)

	if !a.Disjoint(b) {
		t.Error("expected {linux,darwin} to be disjoint from win32")
	}
}

func TestSimplifyDropsEntailedAtom(t *testing.T) {
	known, _ := markers.Parse(`python_version >= "3.9"`)
	tree, _ := markers.Parse(`python_version >= "3.8" and sys_platform == "linux"`)

	simplified := tree.Simplify(known)

	if got := simplified.String(); got != `sys_platform == "linux"` {
		t.Errorf("Simplify = %q, want the entailed python_version atom dropped", got)
	}

	env := markers.Env{PythonVersion: "3.10", SysPlatform: "linux"}
	if !simplified.Evaluate(env, nil) {
		t.Error("simplified marker should still evaluate the same as the original for a consistent env")
	}
}

func TestUniversalMarkerOr(t *testing.T) {
	a := markers.UniversalMarker{Pep508: markers.Atom(markers.KeySysPlatform, markers.OpEqual, "linux"), Conflict: markers.True()}
	b := markers.UniversalMarker{Pep508: markers.Atom(markers.KeySysPlatform, markers.OpEqual, "darwin"), Conflict: markers.True()}

	merged := a.Or(b)

	if !merged.Evaluate(markers.Env{SysPlatform: "linux"}, nil) {
		t.Error("OR-ed universal marker should hold on linux")
	}

	if !merged.Evaluate(markers.Env{SysPlatform: "darwin"}, nil) {
		t.Error("OR-ed universal marker should hold on darwin")
	}

	if merged.Evaluate(markers.Env{SysPlatform: "win32"}, nil) {
		t.Error("OR-ed universal marker should not hold on win32")
	}
}
