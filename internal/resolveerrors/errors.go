// Package resolveerrors defines the error taxonomy shared by every
// resolution component. Per-candidate errors (Provider, Metadata, Build)
// are absorbed by the solver and only resurface once a candidate pool is
// exhausted; Resolver, Policy and Cache errors are fatal and abort
// resolution immediately.
package resolveerrors

import "fmt"

// ProviderErrorKind classifies a metadata-provider failure.
type ProviderErrorKind int

const (
	ProviderTransport ProviderErrorKind = iota
	ProviderParse
	ProviderStructural
	ProviderOffline
	ProviderNoIndex
	ProviderNotFound
)

func (k ProviderErrorKind) String() string {
	switch k {
	case ProviderTransport:
		return "transport error"
	case ProviderParse:
		return "parse error"
	case ProviderStructural:
		return "invalid structure"
	case ProviderOffline:
		return "offline"
	case ProviderNoIndex:
		return "no index"
	case ProviderNotFound:
		return "not found"
	default:
		return "unknown provider error"
	}
}

// ProviderError wraps a failure talking to a simple index. It is
// per-candidate: the solver records it as an unavailability reason on the
// version map and continues with the next candidate.
type ProviderError struct {
	Kind    ProviderErrorKind
	Package string
	Err     error
}

func (e ProviderError) Error() string {
	return fmt.Sprintf("%s for %s: %v", e.Kind, e.Package, e.Err)
}

func (e ProviderError) Unwrap() error { return e.Err }

// MetadataErrorKind classifies a per-artifact metadata failure.
type MetadataErrorKind int

const (
	MissingMetadata MetadataErrorKind = iota
	InvalidMetadata
	InconsistentMetadata
	InvalidStructure
)

func (k MetadataErrorKind) String() string {
	switch k {
	case MissingMetadata:
		return "missing metadata"
	case InvalidMetadata:
		return "invalid metadata"
	case InconsistentMetadata:
		return "inconsistent metadata"
	case InvalidStructure:
		return "invalid structure"
	default:
		return "unknown metadata error"
	}
}

// MetadataError reports that a single artifact's metadata could not be
// trusted. Per-candidate: the owning version is marked unselectable.
type MetadataError struct {
	Kind MetadataErrorKind
	Dist string
	Err  error
}

func (e MetadataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Dist, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Dist)
}

func (e MetadataError) Unwrap() error { return e.Err }

// BuildError reports that building a source distribution to obtain its
// metadata failed or timed out. Per-candidate.
type BuildError struct {
	Fingerprint string
	Err         error
	TimedOut    bool
}

func (e BuildError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("build %s timed out: %v", e.Fingerprint, e.Err)
	}

	return fmt.Sprintf("build %s failed: %v", e.Fingerprint, e.Err)
}

func (e BuildError) Unwrap() error { return e.Err }

// NoSolutionError is fatal: no assignment satisfies the manifest's
// requirements. Chain is an opaque, already-rendered derivation chain
// (see internal/pubgrub/derivation.go); kept as a string here so this
// package has no dependency on internal/pubgrub.
type NoSolutionError struct {
	Chain string
}

func (e NoSolutionError) Error() string {
	return "no solution found: " + e.Chain
}

// PolicyErrorKind classifies a policy violation.
type PolicyErrorKind int

const (
	HashMismatch PolicyErrorKind = iota
	YankedSelected
	ConflictingDirectURL
)

func (k PolicyErrorKind) String() string {
	switch k {
	case HashMismatch:
		return "hash mismatch"
	case YankedSelected:
		return "yanked version selected"
	case ConflictingDirectURL:
		return "conflicting direct URL"
	default:
		return "unknown policy error"
	}
}

// PolicyError is fatal: a hash failed `require-hashes`, a yanked version
// was selected under strict mode, or two forks disagree on a direct URL
// for the same package.
type PolicyError struct {
	Kind   PolicyErrorKind
	Detail string
}

func (e PolicyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// CacheError is fatal: the on-disk metadata cache or lockfile is
// unreadable or corrupt. RemediationHint suggests the bucket to prune.
type CacheError struct {
	Bucket          string
	Err             error
	RemediationHint string
}

func (e CacheError) Error() string {
	msg := fmt.Sprintf("cache error in bucket %s: %v", e.Bucket, e.Err)
	if e.RemediationHint != "" {
		msg += " (" + e.RemediationHint + ")"
	}

	return msg
}

func (e CacheError) Unwrap() error { return e.Err }
