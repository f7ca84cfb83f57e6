// Package requirement models a single dependency requirement: a package
// name, its extras/groups, an environment marker, and a source (registry
// range, direct URL, VCS reference, or local path).
package requirement

import "strings"

// PackageName is a PEP 503 normalised package identifier: lowercased,
// with runs of [-_.] collapsed to a single hyphen.
type PackageName string

// Normalize implements PEP 503 package-name normalisation.
func Normalize(name string) PackageName {
	name = strings.ToLower(name)

	var b strings.Builder

	prevHyphen := false

	for i := range len(name) {
		switch name[i] {
		case '-', '_', '.':
			if !prevHyphen {
				b.WriteByte('-')
				prevHyphen = true
			}
		default:
			b.WriteByte(name[i])
			prevHyphen = false
		}
	}

	return PackageName(b.String())
}

func (n PackageName) String() string { return string(n) }
