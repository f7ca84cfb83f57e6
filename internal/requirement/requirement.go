package requirement

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/bilusteknoloji/pvsolve/internal/markers"
	"github.com/bilusteknoloji/pvsolve/internal/pep440"
)

// Requirement is a single dependency edge: a package name, the extras
// and dependency groups it activates on the depended-upon package, an
// environment marker gating it, and where it resolves from.
type Requirement struct {
	Name   PackageName
	Extras []string
	Groups []string
	Marker markers.Tree
	Source Source
}

// HasExtra reports whether extra is among r's requested extras.
func (r Requirement) HasExtra(extra string) bool {
	for _, e := range r.Extras {
		if e == extra {
			return true
		}
	}

	return false
}

var extrasRe = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)\s*(\[[^\]]*\])?\s*(.*)$`)

// ParseRequirement parses a PEP 508 dependency specifier, e.g.
//
//	"requests"
//	"requests[security]>=2.0,<3.0"
//	"importlib-metadata>=3.6.0; python_version < \"3.10\""
func ParseRequirement(s string) (Requirement, error) {
	s = strings.TrimSpace(s)

	var marker markers.Tree

	rest := s
	if idx := strings.Index(s, ";"); idx >= 0 {
		rest = strings.TrimSpace(s[:idx])

		m, err := markers.Parse(strings.TrimSpace(s[idx+1:]))
		if err != nil {
			return Requirement{}, fmt.Errorf("requirement: parsing marker in %q: %w", s, err)
		}

		marker = m
	} else {
		marker = markers.True()
	}

	m := extrasRe.FindStringSubmatch(rest)
	if m == nil {
		return Requirement{}, fmt.Errorf("requirement: invalid requirement %q", s)
	}

	name := m[1]
	extras := parseExtras(m[2])
	specifierText := strings.TrimSpace(m[3])
	specifierText = strings.Trim(specifierText, "()")
	specifierText = strings.TrimSpace(specifierText)

	var source Source
	if specifierText == "" {
		source = RegistrySource(pep440.Full(), "")
	} else {
		r, err := pep440.FromSpecifiers(specifierText)
		if err != nil {
			return Requirement{}, fmt.Errorf("requirement: parsing specifier %q: %w", specifierText, err)
		}

		source = RegistrySource(r, "")
	}

	return Requirement{
		Name:   Normalize(name),
		Extras: extras,
		Marker: marker,
		Source: source,
	}, nil
}

func parseExtras(bracketed string) []string {
	bracketed = strings.TrimSpace(bracketed)
	if bracketed == "" {
		return nil
	}

	bracketed = strings.TrimPrefix(bracketed, "[")
	bracketed = strings.TrimSuffix(bracketed, "]")

	var extras []string

	for _, e := range strings.Split(bracketed, ",") {
		e = strings.TrimSpace(e)
		if e != "" {
			extras = append(extras, e)
		}
	}

	sort.Strings(extras)

	return extras
}

// Override replaces r's source outright with other's.C
// ("override wins outright"). Marker, extras and groups are kept from r.
func (r Requirement) Override(other Requirement) Requirement {
	r.Source = other.Source

	return r
}

// Constrain intersects r's registry range with other's.C
// ("constraint intersects"). It is only meaningful when both sources are
// registry-backed; a direct-URL source is left untouched.
func (r Requirement) Constrain(other Requirement) Requirement {
	if r.Source.Kind != SourceRegistry || other.Source.Kind != SourceRegistry {
		return r
	}

	r.Source.Range = r.Source.Range.Intersect(other.Source.Range)

	return r
}
