// Package versionmap builds, per package, the ordered set of candidate
// versions with their per-version compatibility, yank state, hashes, and
// artifact kinds.
package versionmap

import "strings"

// Tag is one PEP 425 wheel compatibility tag: python-abi-platform.
type Tag struct {
	Python   string
	ABI      string
	Platform string
}

func (t Tag) String() string {
	return t.Python + "-" + t.ABI + "-" + t.Platform
}

// Tags is an environment's ordered set of supported wheel tags, most
// preferred first, the way `packaging.tags.sys_tags()` orders them for
// the running interpreter: exact interpreter/ABI pairs before the
// generic "none-any" fallback. Its only externally meaningful property
// is the order itself; lower index means higher priority.
type Tags struct {
	ordered []Tag
}

// NewTags builds a Tags from an explicit, already-prioritised tag list.
func NewTags(ordered ...Tag) Tags {
	return Tags{ordered: ordered}
}

// Priority reports tag's position in the environment's preference order.
// Lower is better; ok is false if the environment does not support the
// tag at all.
func (t Tags) Priority(tag Tag) (int, bool) {
	for i, want := range t.ordered {
		if want == tag {
			return i, true
		}
	}

	return 0, false
}

// Best returns the highest-priority (lowest index) of the tags a wheel
// declares compatibility with, or ok=false if none match.
func (t Tags) Best(tags []Tag) (priority int, ok bool) {
	best := -1

	for _, tag := range tags {
		if p, tagOK := t.Priority(tag); tagOK {
			if best == -1 || p < best {
				best = p
				ok = true
			}
		}
	}

	return best, ok
}

// expandCompressed expands a PEP 425 "compressed tag set" — dot-separated
// alternatives in any of the three components — into the full cartesian
// product of concrete tags, per PEP 425's compressed-tag-set rule (the
// same expansion google-deps.dev/util/pypi.ParseWheelName performs).
func expandCompressed(pyTag, abiTag, platTag string) []Tag {
	pys := strings.Split(pyTag, ".")
	abis := strings.Split(abiTag, ".")
	plats := strings.Split(platTag, ".")

	out := make([]Tag, 0, len(pys)*len(abis)*len(plats))

	for _, py := range pys {
		for _, abi := range abis {
			for _, plat := range plats {
				out = append(out, Tag{Python: py, ABI: abi, Platform: plat})
			}
		}
	}

	return out
}
