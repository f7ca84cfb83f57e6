package requirement

import (
	"fmt"

	"github.com/bilusteknoloji/pvsolve/internal/pep440"
)

// SourceKind discriminates the four shapes a requirement's origin can
// take.source".
type SourceKind int

const (
	SourceRegistry SourceKind = iota
	SourceURL
	SourceGit
	SourcePath
)

func (k SourceKind) String() string {
	switch k {
	case SourceRegistry:
		return "registry"
	case SourceURL:
		return "url"
	case SourceGit:
		return "git"
	case SourcePath:
		return "path"
	default:
		return "unknown"
	}
}

// ArchiveKind distinguishes a direct URL pointing at a pre-built wheel
// from one pointing at a source archive.
type ArchiveKind int

const (
	ArchiveUnknown ArchiveKind = iota
	ArchiveWheel
	ArchiveSdist
)

// GitReference selects what to check out from a Git source. Exactly one
// field should be set; the zero value means the repository's default
// branch.
type GitReference struct {
	Branch string
	Tag    string
	Rev    string
}

// Source is the union of possible requirement origins. Kind determines
// which of the following fields are meaningful.
type Source struct {
	Kind SourceKind

	// SourceRegistry
	Range     pep440.Range
	IndexHint string

	// SourceURL
	URL          string
	Subdirectory string
	Archive      ArchiveKind

	// SourceGit
	Repository string
	Reference  GitReference

	// SourcePath
	Path     string
	Editable bool
}

// RegistrySource builds a registry-backed source from a version range.
func RegistrySource(r pep440.Range, indexHint string) Source {
	return Source{Kind: SourceRegistry, Range: r, IndexHint: indexHint}
}

// URLSource builds a direct-URL source.
func URLSource(url, subdirectory string, archive ArchiveKind) Source {
	return Source{Kind: SourceURL, URL: url, Subdirectory: subdirectory, Archive: archive}
}

// GitSource builds a VCS source.
func GitSource(repository string, ref GitReference, subdirectory string) Source {
	return Source{Kind: SourceGit, Repository: repository, Reference: ref, Subdirectory: subdirectory}
}

// PathSource builds a local-path source.
func PathSource(path string, editable bool) Source {
	return Source{Kind: SourcePath, Path: path, Editable: editable}
}

// String renders a Source for diagnostics: enough of its identifying
// fields to tell two conflicting sources apart in an error message, and
// stable enough to fingerprint for a synthetic pin version.
func (s Source) String() string {
	switch s.Kind {
	case SourceURL:
		return fmt.Sprintf("url:%s#%s", s.URL, s.Subdirectory)
	case SourceGit:
		return fmt.Sprintf("git:%s@%s/%s/%s#%s", s.Repository, s.Reference.Branch, s.Reference.Tag, s.Reference.Rev, s.Subdirectory)
	case SourcePath:
		return fmt.Sprintf("path:%s editable=%t", s.Path, s.Editable)
	default:
		return "registry"
	}
}

// ConflictsWith reports whether two sources for the same package, in the
// same fork, cannot both be honoured —.C, a differing direct
// URL for one package within one fork is an error, not a backtrack
// signal.
func (s Source) ConflictsWith(other Source) bool {
	if s.Kind != other.Kind {
		return s.Kind != SourceRegistry && other.Kind != SourceRegistry
	}

	switch s.Kind {
	case SourceURL:
		return s.URL != other.URL || s.Subdirectory != other.Subdirectory
	case SourceGit:
		return s.Repository != other.Repository || s.Reference != other.Reference
	case SourcePath:
		return s.Path != other.Path
	default:
		return false
	}
}
