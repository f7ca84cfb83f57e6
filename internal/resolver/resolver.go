// Package resolver is the front-end orchestration layer: it wires the
// fork engine, the Python-requirement tracker
//, and the candidate selector behind one Resolve entry point, mirroring the
// teacher's internal/resolver.Service — a Provider-driven Service
// assembled with functional options — but backed by the real PubGrub
// engine instead of a naive BFS.
package resolver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/bilusteknoloji/pvsolve/internal/fork"
	"github.com/bilusteknoloji/pvsolve/internal/markers"
	"github.com/bilusteknoloji/pvsolve/internal/pep440"
	"github.com/bilusteknoloji/pvsolve/internal/pubgrub"
	"github.com/bilusteknoloji/pvsolve/internal/pyreq"
	"github.com/bilusteknoloji/pvsolve/internal/requirement"
	"github.com/bilusteknoloji/pvsolve/internal/resolveerrors"
	"github.com/bilusteknoloji/pvsolve/internal/selector"
	"github.com/bilusteknoloji/pvsolve/internal/versionmap"
)

// Option configures a Service.
type Option func(*Service)

// WithStrategy sets the candidate selection strategy (default Highest).
func WithStrategy(strategy selector.Strategy) Option {
	return func(s *Service) { s.strategy = strategy }
}

// WithPrerelease sets the pre-release eligibility policy (default
// PrereleaseIfNecessary).
func WithPrerelease(policy selector.PrereleasePolicy) Option {
	return func(s *Service) { s.prerelease = policy }
}

// WithPreferences registers a prior lockfile's pins, tried first by the
// selector before falling back to the strategy order.
func WithPreferences(prefs map[requirement.PackageName]pep440.Version) Option {
	return func(s *Service) { s.preferences = prefs }
}

// WithEnvironments declares the environments the resulting universal
// graph must cover; each is evaluated against the
// root markers to detect fork points and validate coverage.
func WithEnvironments(envs []markers.UniversalMarker) Option {
	return func(s *Service) { s.environments = envs }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// Service resolves a manifest's root requirements into a universal
// resolution graph.
type Service struct {
	provider       pubgrub.Provider
	requiresPython pep440.Range

	strategy     selector.Strategy
	prerelease   selector.PrereleasePolicy
	preferences  map[requirement.PackageName]pep440.Version
	environments []markers.UniversalMarker

	logger *slog.Logger
}

// New creates a Service bound to provider, the capability set every
// component below it is parameterised over, and requiresPython, the
// root manifest's declared Python constraint.
func New(provider pubgrub.Provider, requiresPython pep440.Range, opts ...Option) *Service {
	s := &Service{
		provider:       provider,
		requiresPython: requiresPython,
		strategy:       selector.Highest,
		prerelease:     selector.PrereleaseIfNecessary,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Result is a completed resolution: the merged universal graph plus the
// per-fork breakdown that produced it, kept around so the lock package
// can render per-fork resolution-markers tables. Sources carries the
// non-registry source (URL, Git, path) recorded against any root
// requirement that named one, keyed by the package it pins, so the lock
// package can serialize it into the package's Source table entry.
type Result struct {
	Graph   *pubgrub.Graph
	Forks   []fork.Fork
	Sources map[requirement.PackageName]requirement.Source
}

// Resolve builds root requirements from reqs, then runs the fork engine to produce
// the merged universal graph.
func (s *Service) Resolve(ctx context.Context, reqs []requirement.Requirement) (*Result, error) {
	roots, pins, sources, err := rootsFromRequirements(reqs)
	if err != nil {
		return nil, fmt.Errorf("resolver: building root requirements: %w", err)
	}

	s.logger.Debug("starting resolution",
		slog.Int("roots", len(roots)),
		slog.Int("environments", len(s.environments)),
		slog.Int("pinned_sources", len(pins)),
	)

	sel := selector.New(s.strategy, s.prerelease)
	if s.preferences != nil {
		sel = sel.WithPreferences(s.preferences)
	}

	tracker := pyreq.New(s.requiresPython)

	provider := s.provider
	if len(pins) > 0 {
		provider = &pinnedProvider{Provider: provider, pins: pins}
	}

	engine := fork.New(provider, sel, tracker)

	graph, forks, err := engine.Resolve(ctx, roots, s.environments)
	if err != nil {
		return nil, fmt.Errorf("resolver: resolving: %w", err)
	}

	s.logger.Debug("resolution complete",
		slog.Int("forks", len(forks)),
		slog.Int("nodes", len(graph.Nodes)),
		slog.Int("edges", len(graph.Edges)),
	)

	return &Result{Graph: graph, Forks: forks, Sources: sources}, nil
}

// rootsFromRequirements lowers each requirement.Requirement to one or
// more pubgrub.RootRequirement: one for the base package, plus one per
// declared extra and dependency group, each a distinct virtual node so
// the solver keeps them pinned to the base package's chosen version.
//
// A requirement sourced from a URL, Git repository, or local path has no
// index to ask for candidate versions, so it is pinned up front to a
// synthetic version derived from the source descriptor itself, and
// recorded in pins/sources so the caller can special-case its provider
// lookups and serialize the real source into the lockfile. Two root
// requirements naming the same package from disagreeing direct sources
// are rejected outright rather than silently picking one.
func rootsFromRequirements(reqs []requirement.Requirement) (
	roots []pubgrub.RootRequirement,
	pins map[requirement.PackageName]pep440.Version,
	sources map[requirement.PackageName]requirement.Source,
	err error,
) {
	pins = map[requirement.PackageName]pep440.Version{}
	sources = map[requirement.PackageName]requirement.Source{}

	for _, req := range reqs {
		marker := markers.UniversalMarker{Pep508: req.Marker, Conflict: markers.True()}

		reqRange := req.Source.Range

		if req.Source.Kind != requirement.SourceRegistry {
			if existing, ok := sources[req.Name]; ok && existing.ConflictsWith(req.Source) {
				return nil, nil, nil, resolveerrors.PolicyError{
					Kind:   resolveerrors.ConflictingDirectURL,
					Detail: fmt.Sprintf("%s: conflicting direct sources %s and %s", req.Name, existing, req.Source),
				}
			}

			pin := pinVersionFor(req.Source)
			pins[req.Name] = pin
			sources[req.Name] = req.Source
			reqRange = pep440.Singleton(pin)
		}

		roots = append(roots, pubgrub.RootRequirement{
			Pkg:    pubgrub.Base(req.Name),
			Range:  reqRange,
			Marker: marker,
		})

		for _, extra := range req.Extras {
			roots = append(roots, pubgrub.RootRequirement{
				Pkg:    pubgrub.WithExtra(req.Name, extra),
				Range:  reqRange,
				Marker: marker,
			})
		}

		for _, group := range req.Groups {
			roots = append(roots, pubgrub.RootRequirement{
				Pkg:    pubgrub.WithGroup(req.Name, group),
				Range:  reqRange,
				Marker: marker,
			})
		}
	}

	return roots, pins, sources, nil
}

// pinVersionFor derives a deterministic PEP 440 version for a
// non-registry source: a zero public release with a local-version label
// fingerprinting the source descriptor, so the same URL/Git ref/path
// always pins to the same synthetic version across runs.
func pinVersionFor(src requirement.Source) pep440.Version {
	return pep440.MustParse("0+" + sourceFingerprint(src))
}

func sourceFingerprint(src requirement.Source) string {
	sum := sha256.Sum256([]byte(src.String()))
	return hex.EncodeToString(sum[:])[:16]
}

// pinnedProvider wraps a pubgrub.Provider so that packages named in pins
// resolve to their single pinned version with no further dependencies,
// rather than being looked up against the registry. A direct source's
// real transitive dependencies would require fetching and building it;
// that is out of scope here, so a pinned package is treated as a leaf.
type pinnedProvider struct {
	pubgrub.Provider
	pins map[requirement.PackageName]pep440.Version
}

func (p *pinnedProvider) Versions(ctx context.Context, name requirement.PackageName) (pubgrub.VersionsResponse, error) {
	if v, ok := p.pins[name]; ok {
		return pubgrub.VersionsResponse{Map: versionmap.Pinned(name, v)}, nil
	}

	return p.Provider.Versions(ctx, name)
}

func (p *pinnedProvider) Dependencies(ctx context.Context, pkg pubgrub.Package, version pep440.Version) ([]pubgrub.Dependency, error) {
	if _, ok := p.pins[pkg.Name]; ok && pkg.IsBase() {
		return nil, nil
	}

	return p.Provider.Dependencies(ctx, pkg, version)
}
