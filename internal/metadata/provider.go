package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/bilusteknoloji/pvsolve/internal/async"
	"github.com/bilusteknoloji/pvsolve/internal/markers"
	"github.com/bilusteknoloji/pvsolve/internal/pep440"
	"github.com/bilusteknoloji/pvsolve/internal/pubgrub"
	"github.com/bilusteknoloji/pvsolve/internal/requirement"
	"github.com/bilusteknoloji/pvsolve/internal/resolveerrors"
	"github.com/bilusteknoloji/pvsolve/internal/simpleapi"
	"github.com/bilusteknoloji/pvsolve/internal/versionmap"
)

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithCache attaches a persistent cache for listings and metadata bytes.
// Without one, every run re-fetches from the index.
func WithCache(c *Cache) Option {
	return func(p *Provider) { p.cache = c }
}

// WithGroups registers dependency-group definitions (PEP 735-shaped:
// group name to member requirement strings) discovered from the root
// manifest, since — unlike extras — groups are never published by a
// third-party project's own metadata.
func WithGroups(groups map[string][]string) Option {
	return func(p *Provider) { p.groups = groups }
}

// Provider is the production pubgrub.Provider: it fetches
// simple-index listings and wheel METADATA over internal/simpleapi,
// classifies them with internal/versionmap, and answers Dependencies by
// parsing Requires-Dist. Concurrent requests for the same package
// collapse through an async.OnceMap.
type Provider struct {
	client simpleapi.Client
	tags   versionmap.Tags
	pyReq  pep440.Range

	cache  *Cache
	groups map[string][]string

	once   *async.OnceMap
	logger *slog.Logger
}

// New creates a Provider. tags is the active environment's wheel tag
// preference order; pyReq is the target interpreter's requires-python
// range, narrowing which versions are selectable.
func New(client simpleapi.Client, tags versionmap.Tags, pyReq pep440.Range, opts ...Option) *Provider {
	p := &Provider{
		client: client,
		tags:   tags,
		pyReq:  pyReq,
		once:   async.NewOnceMap(nil),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

var _ pubgrub.Provider = (*Provider)(nil)

// Versions implements pubgrub.Provider.
func (p *Provider) Versions(ctx context.Context, name requirement.PackageName) (pubgrub.VersionsResponse, error) {
	key := "versions:" + name.String()

	v, _, err := p.once.Do(key, func() (any, error) {
		return p.fetchVersions(ctx, name)
	})
	if err != nil {
		return pubgrub.VersionsResponse{}, err
	}

	return v.(pubgrub.VersionsResponse), nil
}

func (p *Provider) fetchVersions(ctx context.Context, name requirement.PackageName) (pubgrub.VersionsResponse, error) {
	page, err := p.fetchProject(ctx, name.String())
	if err != nil {
		if unavail := classifyProviderError(err); unavail != nil {
			return pubgrub.VersionsResponse{Unavailable: unavail}, nil
		}

		return pubgrub.VersionsResponse{}, err
	}

	vm, err := versionmap.Build(name, page, versionmap.BuildOptions{
		Tags:           p.tags,
		PythonRequired: p.pyReq,
		Pin:            pep440.Full(),
		// Building a source distribution to read its metadata is out of
		// scope (sdist build orchestration is a Non-goal), so only
		// wheel-bearing versions are ever selectable here.
		NoBuild: true,
	})
	if err != nil {
		return pubgrub.VersionsResponse{}, err
	}

	return pubgrub.VersionsResponse{Map: vm}, nil
}

func (p *Provider) fetchProject(ctx context.Context, name string) (*simpleapi.ProjectPage, error) {
	cacheKey := "project:" + name

	if p.cache != nil {
		if raw, ok := p.cache.Get(cacheKey); ok {
			var page simpleapi.ProjectPage
			if err := unmarshalPage(raw, &page); err == nil {
				return &page, nil
			}
		}
	}

	page, err := p.client.FetchProject(ctx, name)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		if raw, err := marshalPage(page); err == nil {
			if err := p.cache.Put(cacheKey, raw); err != nil {
				p.logger.Debug("failed to persist project page", slog.String("package", name), slog.String("error", err.Error()))
			}
		}
	}

	return page, nil
}

// Dependencies implements pubgrub.Provider: it resolves pkg's declared
// requirements at version, splitting a base package's unconditional
// dependencies from an extra node's incremental ones.
func (p *Provider) Dependencies(ctx context.Context, pkg pubgrub.Package, version pep440.Version) ([]pubgrub.Dependency, error) {
	if pkg.Kind == pubgrub.KindGroup {
		return p.groupDependencies(pkg)
	}

	meta, err := p.fetchCoreMetadata(ctx, pkg.Name, version)
	if err != nil {
		return nil, err
	}

	var out []pubgrub.Dependency

	if pkg.Kind == pubgrub.KindExtra {
		out = append(out, pubgrub.Dependency{
			Pkg:    pubgrub.Base(pkg.Name),
			Range:  pep440.Singleton(version),
			Marker: markers.UniversalTrue(),
		})
	}

	for _, raw := range meta.RequiresDist {
		req, gateExtra, ok, err := parseRequiresDistEntry(raw)
		if err != nil {
			p.logger.Debug("skipping unparseable Requires-Dist entry",
				slog.String("package", pkg.Name.String()), slog.String("entry", raw), slog.String("error", err.Error()))

			continue
		}

		if !ok {
			continue
		}

		switch pkg.Kind {
		case pubgrub.KindExtra:
			if gateExtra != pkg.Extra {
				continue
			}
		default:
			if gateExtra != "" {
				continue // only surfaces through its extra's virtual node
			}
		}

		out = append(out, requiresDistDependencies(pkg, version, req)...)
	}

	return out, nil
}

func (p *Provider) groupDependencies(pkg pubgrub.Package) ([]pubgrub.Dependency, error) {
	members, ok := p.groups[pkg.Group]
	if !ok {
		return nil, fmt.Errorf("metadata: unknown dependency group %q", pkg.Group)
	}

	out := make([]pubgrub.Dependency, 0, len(members))

	for _, raw := range members {
		req, err := requirement.ParseRequirement(raw)
		if err != nil {
			return nil, fmt.Errorf("metadata: parsing group %q member %q: %w", pkg.Group, raw, err)
		}

		if req.Source.Kind != requirement.SourceRegistry {
			continue // direct-URL/VCS/path group members are wired at manifest level, not here
		}

		out = append(out, pubgrub.Dependency{
			Pkg:    pubgrub.Base(req.Name),
			Range:  req.Source.Range,
			Marker: markers.UniversalMarker{Pep508: req.Marker, Conflict: markers.True()},
		})
	}

	return out, nil
}

func (p *Provider) fetchCoreMetadata(ctx context.Context, name requirement.PackageName, version pep440.Version) (*coreMetadata, error) {
	vr, err := p.Versions(ctx, name)
	if err != nil {
		return nil, err
	}

	if vr.Map == nil {
		return nil, fmt.Errorf("metadata: %s has no version map", name)
	}

	cand := vr.Map.Candidate(version)
	if cand == nil || len(cand.Wheels) == 0 {
		return nil, resolveerrors.MetadataError{
			Kind: resolveerrors.MissingMetadata,
			Dist: fmt.Sprintf("%s %s", name, version),
		}
	}

	wheel := cand.Wheels[0]
	cacheKey := "metadata:" + wheel.URL

	if p.cache != nil {
		if raw, ok := p.cache.Get(cacheKey); ok {
			return parseCoreMetadata(raw)
		}
	}

	raw, err := p.client.FetchMetadata(ctx, simpleapi.File{URL: wheel.URL, Filename: wheel.Filename})
	if err != nil {
		return nil, resolveerrors.MetadataError{Kind: resolveerrors.MissingMetadata, Dist: wheel.Filename, Err: err}
	}

	if p.cache != nil {
		if err := p.cache.Put(cacheKey, raw); err != nil {
			p.logger.Debug("failed to persist metadata", slog.String("artifact", wheel.Filename), slog.String("error", err.Error()))
		}
	}

	meta, err := parseCoreMetadata(raw)
	if err != nil {
		return nil, resolveerrors.MetadataError{Kind: resolveerrors.InvalidMetadata, Dist: wheel.Filename, Err: err}
	}

	return meta, nil
}

var extraMarkerRe = regexp.MustCompile(`extra\s*==\s*['"]([^'"]+)['"]`)

// parseRequiresDistEntry parses one Requires-Dist line into a
// requirement.Requirement, also reporting the extra name it's gated on
// ("" for an unconditional or purely-environment-gated dependency). ok
// is false for an entry whose specifier or marker cannot be parsed at
// all (treated as absent rather than fatal, mirroring a per-candidate
// metadata defect).
func parseRequiresDistEntry(raw string) (req requirement.Requirement, gateExtra string, ok bool, err error) {
	req, err = requirement.ParseRequirement(raw)
	if err != nil {
		return requirement.Requirement{}, "", false, err
	}

	if req.Source.Kind != requirement.SourceRegistry {
		return requirement.Requirement{}, "", false, nil
	}

	if idx := strings.Index(raw, ";"); idx >= 0 {
		if m := extraMarkerRe.FindStringSubmatch(raw[idx+1:]); m != nil {
			gateExtra = m[1]
		}
	}

	return req, gateExtra, true, nil
}

// requiresDistDependencies lowers one parsed Requires-Dist requirement
// into its dependency edges. A requirement naming extras of its own
// target package (e.g. "pkg[extra_b]; extra == 'all'" on pkg itself)
// activates the matching WithExtra virtual nodes rather than just the
// base package, so an extra that pulls in another extra of the same
// package keeps propagating instead of dead-ending at the base node;
// such self-referential entries (an extra requiring a sub-extra of the
// same package) pin the sub-extra to the exact version already decided
// for pkg rather than its own range, since both must resolve to one
// version.
func requiresDistDependencies(pkg pubgrub.Package, version pep440.Version, req requirement.Requirement) []pubgrub.Dependency {
	marker := markers.UniversalMarker{Pep508: req.Marker, Conflict: markers.True()}
	selfRef := req.Name == pkg.Name

	var out []pubgrub.Dependency

	if !selfRef || len(req.Extras) == 0 {
		out = append(out, pubgrub.Dependency{
			Pkg:    pubgrub.Base(req.Name),
			Range:  req.Source.Range,
			Marker: marker,
		})
	}

	for _, extra := range req.Extras {
		r := req.Source.Range
		if selfRef {
			r = pep440.Singleton(version)
		}

		out = append(out, pubgrub.Dependency{
			Pkg:    pubgrub.WithExtra(req.Name, extra),
			Range:  r,
			Marker: marker,
		})
	}

	return out
}

// classifyProviderError maps a resolveerrors.ProviderError into a
// package-wide Unavailable reason, so a single project's transport
// failure is absorbed as "this package is unavailable" rather than
// aborting the whole resolution.
func classifyProviderError(err error) *versionmap.PackageUnavailable {
	var pe resolveerrors.ProviderError
	if !asProviderError(err, &pe) {
		return nil
	}

	switch pe.Kind {
	case resolveerrors.ProviderNotFound:
		return &versionmap.PackageUnavailable{Kind: versionmap.UnavailableNotFound}
	case resolveerrors.ProviderOffline:
		return &versionmap.PackageUnavailable{Kind: versionmap.UnavailableOffline}
	case resolveerrors.ProviderNoIndex:
		return &versionmap.PackageUnavailable{Kind: versionmap.UnavailableNoIndex}
	default:
		return nil
	}
}

func asProviderError(err error, target *resolveerrors.ProviderError) bool {
	return errors.As(err, target)
}

func marshalPage(page *simpleapi.ProjectPage) ([]byte, error) {
	return json.Marshal(page)
}

func unmarshalPage(data []byte, page *simpleapi.ProjectPage) error {
	return json.Unmarshal(data, page)
}
