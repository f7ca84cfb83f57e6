// Package lock implements the canonical lockfile serialisation: a deterministic, round-trippable
// textual form of a resolved universal graph, with an input digest for
// staleness detection. Rendering and parsing go through
// github.com/BurntSushi/toml, a table-of-tables TOML document.
package lock

// SchemaVersion is embedded in every lockfile produced by this package.
// A lockfile whose Version disagrees with SchemaVersion is treated as
// stale, never silently migrated.
const SchemaVersion = 1

// Lockfile is the top-level document: schema version,
// declared requires-python, supported environments, resolution markers,
// the resolved package array, and the trailing manifest digest table.
type Lockfile struct {
	Version           int       `toml:"version"`
	RequiresPython    string    `toml:"requires-python"`
	Environments      []string  `toml:"environments,omitempty"`
	ResolutionMarkers []string  `toml:"resolution-markers,omitempty"`
	SupportedMarkers  []string  `toml:"supported-markers,omitempty"`
	Package           []Package `toml:"package"`
	Manifest          Manifest  `toml:"manifest"`
}

// Package is one resolved distribution: one version of a name (a name
// resolved to different versions in different forks gets one entry per
// version), its source, its dependency edges, and its artifacts.
type Package struct {
	Name                 string                  `toml:"name"`
	Version              string                  `toml:"version"`
	Source               Source                  `toml:"source"`
	ResolutionMarkers    []string                `toml:"resolution-markers,omitempty"`
	Dependencies         []Dependency            `toml:"dependencies,omitempty"`
	OptionalDependencies map[string][]Dependency `toml:"optional-dependencies,omitempty"`
	DependencyGroups     map[string][]Dependency `toml:"dependency-groups,omitempty"`
	Wheels               []Wheel                 `toml:"wheels,omitempty"`
	Sdist                *Sdist                  `toml:"sdist,omitempty"`
}

// Dependency is one edge out of a Package, gated by an optional
// rendered PEP 508 marker (empty means unconditional).
type Dependency struct {
	Name    string `toml:"name"`
	Version string `toml:"version,omitempty"`
	Extra   string `toml:"extra,omitempty"`
	Marker  string `toml:"marker,omitempty"`
}

// SourceKind mirrors requirement.SourceKind in the lockfile's textual
// vocabulary.
type SourceKind string

const (
	SourceRegistry SourceKind = "registry"
	SourceURL      SourceKind = "url"
	SourceGit      SourceKind = "git"
	SourcePath     SourceKind = "path"
)

// Source records where a resolved package came from.
type Source struct {
	Kind         SourceKind `toml:"kind"`
	Index        string     `toml:"index,omitempty"`
	URL          string     `toml:"url,omitempty"`
	Subdirectory string     `toml:"subdirectory,omitempty"`
	Repository   string     `toml:"repository,omitempty"`
	Rev          string     `toml:"rev,omitempty"`
	Path         string     `toml:"path,omitempty"`
	Editable     bool       `toml:"editable,omitempty"`
}

// Wheel is one resolved wheel artifact, hash sorted lexicographically
// among any others on the same package.
type Wheel struct {
	URL  string `toml:"url"`
	Hash string `toml:"hash"`
	Size int64  `toml:"size,omitempty"`
}

// Sdist is the resolved source-distribution artifact, if any.
type Sdist struct {
	URL  string `toml:"url"`
	Hash string `toml:"hash"`
	Size int64  `toml:"size,omitempty"`
}

// Manifest is the trailing `[manifest]` table: the digest of the inputs
// that produced this lockfile.
type Manifest struct {
	InputDigest string `toml:"input-digest"`
}
