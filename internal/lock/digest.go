package lock

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// DigestInputs is everything the lockfile's staleness digest covers:
// the normalised manifest, declared environments, Python requirement, and
// index URL list. Root requirements and index URLs are sorted before hashing so
// that reordering a manifest's declarations (which carries no semantic
// meaning) never changes the digest.
type DigestInputs struct {
	RootRequirements []string
	Environments     []string
	RequiresPython   string
	IndexURLs        []string
}

// Compute renders a stable digest of in, independent of slice order
// within each field.
func Compute(in DigestInputs) string {
	roots := append([]string(nil), in.RootRequirements...)
	sort.Strings(roots)

	envs := append([]string(nil), in.Environments...)
	sort.Strings(envs)

	indexes := append([]string(nil), in.IndexURLs...)
	sort.Strings(indexes)

	var b strings.Builder

	fmt.Fprintf(&b, "requires-python=%s\n", in.RequiresPython)
	fmt.Fprintf(&b, "environments=%s\n", strings.Join(envs, "|"))
	fmt.Fprintf(&b, "indexes=%s\n", strings.Join(indexes, "|"))
	fmt.Fprintf(&b, "roots=%s\n", strings.Join(roots, "|"))

	sum := sha256.Sum256([]byte(b.String()))

	return hex.EncodeToString(sum[:])
}

// Stale reports whether lf was produced from inputs other than in.
// If the digest disagrees with the current inputs, the lockfile is
// considered stale. A lockfile whose schema Version doesn't match
// SchemaVersion is always stale, regardless of digest.
func Stale(lf *Lockfile, in DigestInputs) bool {
	if lf.Version != SchemaVersion {
		return true
	}

	return lf.Manifest.InputDigest != Compute(in)
}
