package versionmap

import (
	"sort"

	"github.com/bilusteknoloji/pvsolve/internal/simpleapi"
)

// YankReason is the PEP 691 "yanked" signal: a release should be avoided
// unless explicitly pinned.
type YankReason struct {
	Reason string
}

// Artifact is one downloadable file for a version.
type Artifact struct {
	Filename       string
	URL            string
	Hashes         map[string]string
	RequiresPython string // raw specifier text; "" means unconstrained
	Size           int64
	UploadTime     string
	Yanked         *YankReason

	// Wheel-only fields, zero for an sdist artifact.
	IsWheel  bool
	Tags     []Tag
	Priority int // environment tag priority; lower is better, set by classify
}

func artifactFromFile(f simpleapi.File) Artifact {
	a := Artifact{
		Filename:       f.Filename,
		URL:            f.URL,
		Hashes:         f.Hashes,
		RequiresPython: f.RequiresPython,
		Size:           f.Size,
		UploadTime:     f.UploadTime,
	}

	if f.Yanked.Yanked {
		a.Yanked = &YankReason{Reason: f.Yanked.Reason}
	}

	return a
}

func sortWheelsByPriority(wheels []Artifact) {
	sort.SliceStable(wheels, func(i, j int) bool {
		return wheels[i].Priority < wheels[j].Priority
	})
}
