package versionmap_test

import (
	"testing"

	"github.com/bilusteknoloji/pvsolve/internal/versionmap"
)

func TestParseWheelFilename(t *testing.T) {
	wf, err := versionmap.ParseWheelFilename("six-1.17.0-py2.py3-none-any.whl")
	if err != nil {
		t.Fatalf("ParseWheelFilename: %v", err)
	}

	if wf.Name != "six" {
		t.Errorf("Name = %q, want six", wf.Name)
	}

	if wf.Version.String() != "1.17.0" {
		t.Errorf("Version = %s, want 1.17.0", wf.Version)
	}

	if wf.HasBuild {
		t.Error("HasBuild = true, want false for a filename with no build tag")
	}

	// py2.py3-none-any expands to two compatibility tags.
	if len(wf.Tags) != 2 {
		t.Fatalf("Tags = %v, want 2 entries for compressed py2.py3", wf.Tags)
	}
}

func TestParseWheelFilenameWithBuildTag(t *testing.T) {
	wf, err := versionmap.ParseWheelFilename("pkg-1.0-2-py3-none-any.whl")
	if err != nil {
		t.Fatalf("ParseWheelFilename: %v", err)
	}

	if !wf.HasBuild || wf.BuildNum != 2 {
		t.Errorf("BuildNum = %d, HasBuild = %v, want 2, true", wf.BuildNum, wf.HasBuild)
	}
}

func TestParseWheelFilenameRejectsNonWheel(t *testing.T) {
	if _, err := versionmap.ParseWheelFilename("pkg-1.0.tar.gz"); err == nil {
		t.Error("ParseWheelFilename(\"pkg-1.0.tar.gz\"): want error, got nil")
	}
}

func TestTagsPriorityOrdering(t *testing.T) {
	tags := versionmap.NewTags(
		versionmap.Tag{Python: "cp312", ABI: "cp312", Platform: "manylinux_2_17_x86_64"},
		versionmap.Tag{Python: "py3", ABI: "none", Platform: "any"},
	)

	native, ok := tags.Priority(versionmap.Tag{Python: "cp312", ABI: "cp312", Platform: "manylinux_2_17_x86_64"})
	if !ok {
		t.Fatal("native tag should be recognised")
	}

	fallback, ok := tags.Priority(versionmap.Tag{Python: "py3", ABI: "none", Platform: "any"})
	if !ok {
		t.Fatal("universal fallback tag should be recognised")
	}

	if native >= fallback {
		t.Errorf("native priority %d should rank ahead of fallback %d", native, fallback)
	}

	if _, ok := tags.Priority(versionmap.Tag{Python: "cp27", ABI: "cp27m", Platform: "win32"}); ok {
		t.Error("an undeclared tag must report ok=false")
	}
}

func TestTagsBestPicksHighestPriority(t *testing.T) {
	tags := versionmap.NewTags(
		versionmap.Tag{Python: "cp312", ABI: "cp312", Platform: "manylinux_2_17_x86_64"},
		versionmap.Tag{Python: "py3", ABI: "none", Platform: "any"},
	)

	best, ok := tags.Best([]versionmap.Tag{
		{Python: "py3", ABI: "none", Platform: "any"},
		{Python: "cp312", ABI: "cp312", Platform: "manylinux_2_17_x86_64"},
	})
	if !ok {
		t.Fatal("Best: want ok=true")
	}

	nativePriority, _ := tags.Priority(versionmap.Tag{Python: "cp312", ABI: "cp312", Platform: "manylinux_2_17_x86_64"})
	if best != nativePriority {
		t.Errorf("Best = %d, want the native tag's priority %d", best, nativePriority)
	}
}
