// Package selector implements the candidate selector: given a version map and a range, choose the
// next version to try under the active resolution strategy.
package selector

import (
	"github.com/bilusteknoloji/pvsolve/internal/pep440"
	"github.com/bilusteknoloji/pvsolve/internal/requirement"
	"github.com/bilusteknoloji/pvsolve/internal/versionmap"
)

// Strategy selects the iteration order over a version map.
type Strategy int

const (
	// Highest tries the newest compatible version first.
	Highest Strategy = iota
	// Lowest tries the oldest compatible version first.
	Lowest
	// LowestDirect applies Lowest only to root-requested packages;
	// transitive dependencies still use Highest. The implementer policy
	// for pre-releases under this strategy is:
	// a transitive dependency's pre-release eligibility is judged the
	// same way as under Highest (rule (a)/(b)/(c) below, unaffected by
	// the direct package's own strategy), since a pre-release floor on
	// an indirect dependency is rarely what the direct-minimization
	// policy is meant to express. selector_test.go covers the
	// direct/transitive strategy split.
	LowestDirect
)

// PrereleasePolicy controls when a pre-release version is eligible, the
// third input (beyond the user's range) to the pre-release rule.
type PrereleasePolicy int

const (
	// PrereleaseIfNecessary allows a pre-release only when no stable
	// version in range exists, or the range itself mentions one.
	PrereleaseIfNecessary PrereleasePolicy = iota
	// PrereleaseAllow allows pre-releases unconditionally.
	PrereleaseAllow
	// PrereleaseDisallow never selects a pre-release, even if the range
	// explicitly names one (used for `--no-pre` style strict modes).
	PrereleaseDisallow
)

// Selector chooses the next candidate version for a package, given a
// strategy, a pre-release policy, and an optional preference map.
type Selector struct {
	Strategy    Strategy
	Prerelease  PrereleasePolicy
	Preferences map[requirement.PackageName]pep440.Version
}

// New builds a Selector with the given strategy and pre-release policy.
func New(strategy Strategy, prerelease PrereleasePolicy) *Selector {
	return &Selector{Strategy: strategy, Prerelease: prerelease}
}

// WithPreferences attaches a preferred-version map (e.g. from a prior
// lockfile) that is tried before falling back to the strategy order.
func (s *Selector) WithPreferences(prefs map[requirement.PackageName]pep440.Version) *Selector {
	s.Preferences = prefs

	return s
}

// Select returns the next candidate version in vm satisfying r for
// pkg, honoring strategy, pre-release policy, and preferences.
// directRequest marks whether pkg was named directly by the
// root manifest (needed for LowestDirect). specifierMentionsPre should
// be true when the caller's original specifier text names a
// pre-release explicitly (rule (a) of the pre-release policy); the
// Range algebra alone cannot distinguish ">=1.0a1" (explicit) from a
// range that merely happens to include pre-releases as a side effect of
// negation, so this is threaded through rather than re-derived from r.
func (s *Selector) Select(pkg requirement.PackageName, r pep440.Range, vm *versionmap.Map, directRequest, specifierMentionsPre bool) (pep440.Version, bool) {
	if pref, ok := s.Preferences[pkg]; ok && r.Contains(pref) {
		if c := vm.Candidate(pref); c.Selectable() {
			if s.prereleaseEligible(vm, r, pref, specifierMentionsPre) {
				return pref, true
			}
		}
	}

	strategy := s.Strategy
	if strategy == LowestDirect && !directRequest {
		strategy = Highest
	}

	switch strategy {
	case Lowest, LowestDirect:
		return s.selectLowest(r, vm, specifierMentionsPre)
	default:
		return s.selectHighest(r, vm, specifierMentionsPre)
	}
}

func (s *Selector) selectHighest(r pep440.Range, vm *versionmap.Map, specifierMentionsPre bool) (pep440.Version, bool) {
	var after *pep440.Version

	for {
		v, ok := vm.NextCompatible(r, after)
		if !ok {
			return pep440.Version{}, false
		}

		after = &v

		if s.prereleaseEligible(vm, r, v, specifierMentionsPre) {
			return v, true
		}
	}
}

func (s *Selector) selectLowest(r pep440.Range, vm *versionmap.Map, specifierMentionsPre bool) (pep440.Version, bool) {
	var after *pep440.Version

	for {
		v, ok := vm.Lowest(r, after)
		if !ok {
			return pep440.Version{}, false
		}

		after = &v

		if s.prereleaseEligible(vm, r, v, specifierMentionsPre) {
			return v, true
		}
	}
}

// prereleaseEligible implements the three-way pre-release rule:
// eligible iff (a) the specifier names a pre-release explicitly,
// (b) no stable version in r is selectable at all, or (c) the global
// policy allows pre-releases unconditionally.
func (s *Selector) prereleaseEligible(vm *versionmap.Map, r pep440.Range, v pep440.Version, specifierMentionsPre bool) bool {
	if !v.IsPreRelease() {
		return true
	}

	switch s.Prerelease {
	case PrereleaseDisallow:
		return false
	case PrereleaseAllow:
		return true
	}

	if specifierMentionsPre {
		return true
	}

	return !anyStableSelectable(vm, r)
}

func anyStableSelectable(vm *versionmap.Map, r pep440.Range) bool {
	for _, v := range vm.Versions() {
		if v.IsPreRelease() || !r.Contains(v) {
			continue
		}

		if c := vm.Candidate(v); c.Selectable() {
			return true
		}
	}

	return false
}
