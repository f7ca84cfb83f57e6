package requirement_test

import (
	"testing"

	"github.com/bilusteknoloji/pvsolve/internal/requirement"
)

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"Friendly_Bard": "friendly-bard",
		"Friendly.Bard": "friendly-bard",
		"FRIENDLY-BARD": "friendly-bard",
		"friendly--bard": "friendly-bard",
	}

	for in, want := range tests {
		if got := requirement.Normalize(in); string(got) != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseRequirementBasic(t *testing.T) {
	req, err := requirement.ParseRequirement("requests")
	if err != nil {
		t.Fatalf("ParseRequirement: %v", err)
	}

	if req.Name != "requests" {
		t.Errorf("Name = %q, want requests", req.Name)
	}

	if req.Source.Kind != requirement.SourceRegistry || !req.Source.Range.IsFull() {
		t.Errorf("expected unconstrained registry source, got %+v", req.Source)
	}
}

func TestParseRequirementExtrasAndSpecifier(t *testing.T) {
	req, err := requirement.ParseRequirement("requests[security,socks]>=2.0,<3.0")
	if err != nil {
		t.Fatalf("ParseRequirement: %v", err)
	}

	if len(req.Extras) != 2 || req.Extras[0] != "security" || req.Extras[1] != "socks" {
		t.Errorf("Extras = %v, want [security socks]", req.Extras)
	}

	if req.Source.Range.IsFull() || req.Source.Range.IsEmpty() {
		t.Errorf("expected a bounded range, got %+v", req.Source.Range)
	}
}

func TestParseRequirementMarker(t *testing.T) {
	req, err := requirement.ParseRequirement(`importlib-metadata>=3.6.0; python_version < "3.10"`)
	if err != nil {
		t.Fatalf("ParseRequirement: %v", err)
	}

	if req.Name != "importlib-metadata" {
		t.Errorf("Name = %q", req.Name)
	}

	if req.Marker.IsTrue() {
		t.Error("expected a non-trivial marker")
	}
}

func TestConstrainIntersectsRange(t *testing.T) {
	a, _ := requirement.ParseRequirement("pkg>=1.0")
	b, _ := requirement.ParseRequirement("pkg<2.0")

	merged := a.Constrain(b)

	if merged.Source.Range.IsFull() {
		t.Error("expected intersected range to be bounded")
	}
}

func TestOverrideReplacesSource(t *testing.T) {
	a, _ := requirement.ParseRequirement("pkg>=1.0")
	b := requirement.Requirement{Source: requirement.PathSource("/tmp/pkg", true)}

	merged := a.Override(b)

	if merged.Source.Kind != requirement.SourcePath {
		t.Errorf("expected overridden source to be Path, got %v", merged.Source.Kind)
	}
}
