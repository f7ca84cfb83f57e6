package pubgrub

import (
	"context"

	"github.com/bilusteknoloji/pvsolve/internal/markers"
	"github.com/bilusteknoloji/pvsolve/internal/pep440"
	"github.com/bilusteknoloji/pvsolve/internal/requirement"
	"github.com/bilusteknoloji/pvsolve/internal/versionmap"
)

// Dependency is one requirement a chosen (package, version) declares,
// already lowered to the virtual-package vocabulary the solver decides
// over.
type Dependency struct {
	Pkg    Package
	Range  pep440.Range
	Marker markers.UniversalMarker
}

// VersionsResponse collapses a Found/NotFound/NoIndex/Offline provider
// outcome into a Go-idiomatic (value, ok, err) shape: a
// nil map with Unavailable set distinguishes "legitimately nothing here"
// from a transport failure the caller should treat as per-candidate.
type VersionsResponse struct {
	Map         *versionmap.Map
	Unavailable *versionmap.PackageUnavailable
}

// Provider is the capability set the solver is parameterised over:
// versions and per-version dependencies. It has no index-locations
// method. A production implementation lives in internal/metadata; a
// test implementation serves an in-memory registry (pubgrubtest).
type Provider interface {
	// Versions returns the version map for a base package name.
	Versions(ctx context.Context, name requirement.PackageName) (VersionsResponse, error)
	// Dependencies returns the dependency list for one resolved
	// (package, version), already split across base/extra/group virtual
	// nodes.
	Dependencies(ctx context.Context, pkg Package, version pep440.Version) ([]Dependency, error)
}
