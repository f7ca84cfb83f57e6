package pyreq_test

import (
	"testing"

	"github.com/bilusteknoloji/pvsolve/internal/pep440"
	"github.com/bilusteknoloji/pvsolve/internal/pyreq"
)

func mustRange(t *testing.T, spec string) pep440.Range {
	t.Helper()

	r, err := pep440.FromSpecifiers(spec)
	if err != nil {
		t.Fatalf("FromSpecifiers(%q): %v", spec, err)
	}

	return r
}

func TestNarrowIntersectsTarget(t *testing.T) {
	tracker := pyreq.New(mustRange(t, ">=3.8"))

	if err := tracker.Narrow("widget", mustRange(t, ">=3.10")); err != nil {
		t.Fatalf("Narrow: %v", err)
	}

	if tracker.Satisfies(pep440.MustParse("3.9")) {
		t.Error("target should have narrowed to exclude 3.9 after widget requires >=3.10")
	}

	if !tracker.Satisfies(pep440.MustParse("3.11")) {
		t.Error("target should still accept 3.11")
	}
}

func TestNarrowToEmptyIsFatalAndLeavesTargetUnchanged(t *testing.T) {
	tracker := pyreq.New(mustRange(t, ">=3.11"))
	before := tracker.Target

	err := tracker.Narrow("widget", mustRange(t, "<3.9"))
	if err == nil {
		t.Fatal("Narrow: want a NarrowError for a disjoint requires-python, got nil")
	}

	if !tracker.Target.IsSubsetOf(before) || !before.IsSubsetOf(tracker.Target) {
		t.Error("a failed Narrow must leave the tracker's target unmodified")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	tracker := pyreq.New(mustRange(t, ">=3.8"))
	clone := tracker.Clone()

	if err := clone.Narrow("widget", mustRange(t, ">=3.10")); err != nil {
		t.Fatalf("Narrow on clone: %v", err)
	}

	if !tracker.Satisfies(pep440.MustParse("3.9")) {
		t.Error("narrowing the clone must not affect the original tracker")
	}

	if clone.Satisfies(pep440.MustParse("3.9")) {
		t.Error("the clone should reflect its own narrowing")
	}
}
