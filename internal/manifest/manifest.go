// Package manifest parses a pyproject.toml-shaped root manifest into the
// requirement.Requirement model feeding the root of resolution. It
// follows the same table-of-tables PEP 621 shape uv's own Rust config
// loader reads:
// `[project] dependencies`/`optional-dependencies`, `[dependency-groups]`,
// and a `[tool.resolver]` table for this module's own overrides,
// constraints, and declared environments.
package manifest

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/bilusteknoloji/pvsolve/internal/markers"
	"github.com/bilusteknoloji/pvsolve/internal/pep440"
	"github.com/bilusteknoloji/pvsolve/internal/requirement"

	"github.com/BurntSushi/toml"
)

// rawManifest mirrors the subset of a pyproject.toml document this
// package reads. Field names follow PEP 621 and PEP 735 verbatim, aside
// from the `[tool.resolver]` table, which is this module's own.
type rawManifest struct {
	Project struct {
		Name                 string              `toml:"name"`
		RequiresPython       string              `toml:"requires-python"`
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`

	DependencyGroups map[string][]string `toml:"dependency-groups"`

	Tool struct {
		Resolver struct {
			Overrides    []string `toml:"overrides"`
			Constraints  []string `toml:"constraints"`
			Environments []string `toml:"environments"`
			Groups       []string `toml:"groups"`
			Index        string   `toml:"index"`
		} `toml:"resolver"`
	} `toml:"tool"`
}

// Manifest is the parsed, semantically meaningful result: root
// requirements ready for resolver.Service.Resolve, the declared
// requires-python range, declared environments as UniversalMarkers, the
// dependency-group table as metadata.WithGroups expects it, and the
// index URL list the lock digest covers.
type Manifest struct {
	Name           string
	RequiresPython string
	RequiresRange  pep440.Range
	Roots          []requirement.Requirement
	Groups         map[string][]string
	Environments   []markers.UniversalMarker
	IndexURLs      []string
}

// Parse reads a pyproject.toml-shaped document from data, applies
// `[tool.resolver]` overrides and constraints to the root dependencies
//, and
// expands extras/optional-dependencies and dependency-groups into root
// requirements.
func Parse(data []byte) (*Manifest, error) {
	var raw rawManifest
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("manifest: parsing: %w", err)
	}

	requiresRange := pep440.Full()

	if raw.Project.RequiresPython != "" {
		r, err := pep440.FromSpecifiers(raw.Project.RequiresPython)
		if err != nil {
			return nil, fmt.Errorf("manifest: parsing requires-python %q: %w", raw.Project.RequiresPython, err)
		}

		requiresRange = r
	}

	roots, err := parseRequirementBatch(raw.Project.Dependencies)
	if err != nil {
		return nil, err
	}

	for extraName, deps := range raw.Project.OptionalDependencies {
		extraRoots, err := parseRequirementBatch(deps)
		if err != nil {
			return nil, fmt.Errorf("manifest: optional-dependencies[%q]: %w", extraName, err)
		}

		for i := range extraRoots {
			extraRoots[i].Extras = append(extraRoots[i].Extras, extraName)
		}

		roots = append(roots, extraRoots...)
	}

	overrides, err := parseRequirementBatch(raw.Tool.Resolver.Overrides)
	if err != nil {
		return nil, fmt.Errorf("manifest: tool.resolver.overrides: %w", err)
	}

	constraints, err := parseRequirementBatch(raw.Tool.Resolver.Constraints)
	if err != nil {
		return nil, fmt.Errorf("manifest: tool.resolver.constraints: %w", err)
	}

	for _, groupName := range raw.Tool.Resolver.Groups {
		members, ok := raw.DependencyGroups[groupName]
		if !ok {
			return nil, fmt.Errorf("manifest: tool.resolver.groups names undeclared group %q", groupName)
		}

		groupRoots, err := parseRequirementBatch(members)
		if err != nil {
			return nil, fmt.Errorf("manifest: dependency-groups[%q]: %w", groupName, err)
		}

		roots = append(roots, groupRoots...)
	}

	roots = applyOverridesAndConstraints(roots, overrides, constraints)

	var environments []markers.UniversalMarker

	for _, e := range raw.Tool.Resolver.Environments {
		tree, err := markers.Parse(e)
		if err != nil {
			return nil, fmt.Errorf("manifest: tool.resolver.environments %q: %w", e, err)
		}

		environments = append(environments, markers.UniversalMarker{Pep508: tree, Conflict: markers.True()})
	}

	var indexURLs []string
	if raw.Tool.Resolver.Index != "" {
		indexURLs = []string{raw.Tool.Resolver.Index}
	}

	return &Manifest{
		Name:           raw.Project.Name,
		RequiresPython: raw.Project.RequiresPython,
		RequiresRange:  requiresRange,
		Roots:          roots,
		Groups:         raw.DependencyGroups,
		Environments:   environments,
		IndexURLs:      indexURLs,
	}, nil
}

// parseRequirementBatch parses every entry in specs, aggregating every
// parse failure into one *multierror.Error rather than stopping at the
// first.
func parseRequirementBatch(specs []string) ([]requirement.Requirement, error) {
	var out []requirement.Requirement

	var errs *multierror.Error

	for _, s := range specs {
		r, err := requirement.ParseRequirement(s)
		if err != nil {
			errs = multierror.Append(errs, err)

			continue
		}

		out = append(out, r)
	}

	return out, errs.ErrorOrNil()
}

// applyOverridesAndConstraints folds overrides and constraints into
// roots by package name. An override whose name has no
// matching root is appended outright (it still participates in
// resolution); a constraint with no matching root is ignored, per the
// usual pip-style constraints-file semantics: a constraint only narrows
// a dependency that is actually requested.
func applyOverridesAndConstraints(roots, overrides, constraints []requirement.Requirement) []requirement.Requirement {
	byName := map[requirement.PackageName]int{}
	for i, r := range roots {
		byName[r.Name] = i
	}

	for _, ov := range overrides {
		if i, ok := byName[ov.Name]; ok {
			roots[i] = roots[i].Override(ov)
		} else {
			byName[ov.Name] = len(roots)
			roots = append(roots, ov)
		}
	}

	for _, c := range constraints {
		if i, ok := byName[c.Name]; ok {
			roots[i] = roots[i].Constrain(c)
		}
	}

	return roots
}

// RootDigestStrings renders m.Roots as the stable string form the lock
// package's input digest hashes over. Order is irrelevant —
// lock.Compute sorts before hashing — so this just needs a deterministic
// textual form per requirement.
func (m *Manifest) RootDigestStrings() []string {
	out := make([]string, 0, len(m.Roots))
	for _, r := range m.Roots {
		out = append(out, r.Name.String())
	}

	sort.Strings(out)

	return out
}
