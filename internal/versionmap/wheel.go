package versionmap

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/bilusteknoloji/pvsolve/internal/pep440"
)

// WheelFilename is a parsed wheel filename per the wheel-filename spec:
// name-version(-build)?-pytag-abitag-plattag.whl.
type WheelFilename struct {
	Name     string
	Version  pep440.Version
	BuildNum int
	BuildTag string
	HasBuild bool
	Tags     []Tag
}

// ParseWheelFilename parses a.whl filename, grounded on
// deps.dev/util/pypi.ParseWheelName's field layout, rewritten against
// this module's pep440.Version and Tag types; compressed tag sets are
// expanded into concrete Tags by expandCompressed.
func ParseWheelFilename(filename string) (WheelFilename, error) {
	if !strings.HasSuffix(filename, ".whl") {
		return WheelFilename{}, fmt.Errorf("versionmap: %q is not a wheel filename", filename)
	}

	trimmed := strings.TrimSuffix(filename, ".whl")
	parts := strings.Split(trimmed, "-")

	if len(parts) != 5 && len(parts) != 6 {
		return WheelFilename{}, fmt.Errorf("versionmap: wheel filename %q has %d dash-separated parts, want 5 or 6", filename, len(parts))
	}

	ver, err := pep440.Parse(parts[1])
	if err != nil {
		return WheelFilename{}, fmt.Errorf("versionmap: parsing version in wheel filename %q: %w", filename, err)
	}

	wf := WheelFilename{Name: parts[0], Version: ver}

	if len(parts) == 6 {
		buildTag := parts[2]

		split := strings.IndexFunc(buildTag, func(r rune) bool { return !unicode.IsDigit(r) })
		if split == 0 {
			return WheelFilename{}, fmt.Errorf("versionmap: wheel filename %q has a build tag %q not starting with a digit", filename, buildTag)
		}

		if split == -1 {
			split = len(buildTag)
		}

		num, err := strconv.Atoi(buildTag[:split])
		if err != nil {
			return WheelFilename{}, fmt.Errorf("versionmap: invalid build number in %q: %w", filename, err)
		}

		wf.HasBuild = true
		wf.BuildNum = num
		wf.BuildTag = buildTag[split:]
	}

	n := len(parts)
	wf.Tags = expandCompressed(parts[n-3], parts[n-2], parts[n-1])

	return wf, nil
}
