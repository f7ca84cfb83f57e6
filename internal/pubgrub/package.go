// Package pubgrub implements the conflict-driven clause learning
// resolver over versioned packages: a PubGrub-style solver
// parameterised by a Provider capability set, operating over virtual
// packages so that extras and dependency groups resolve to exactly one
// version of their base package.
package pubgrub

import "github.com/bilusteknoloji/pvsolve/internal/requirement"

// Kind discriminates the four virtual-package shapes a Package can take.
type Kind int

const (
	KindBase Kind = iota
	KindExtra
	KindGroup
	KindProxy
	KindRoot
)

// Package is the unit the solver makes decisions about. The zero value
// is never valid except as a map key sentinel; use Base/WithExtra/WithGroup/Root.
type Package struct {
	Name  requirement.PackageName
	Kind  Kind
	Extra string
	Group string
}

// Root is the synthetic node every resolution starts from.
func Root() Package { return Package{Kind: KindRoot} }

// Base constructs the plain-package virtual node.
func Base(name requirement.PackageName) Package { return Package{Name: name, Kind: KindBase} }

// WithExtra constructs the virtual node for one extra of name. An extra
// node depends on the base node at the same version plus the extra's
// incremental requirements, which is how this keeps extras
// pinned to exactly one version of their base.
func WithExtra(name requirement.PackageName, extra string) Package {
	return Package{Name: name, Kind: KindExtra, Extra: extra}
}

// WithGroup constructs the virtual node for one dependency group of name.
func WithGroup(name requirement.PackageName, group string) Package {
	return Package{Name: name, Kind: KindGroup, Group: group}
}

func (p Package) String() string {
	switch p.Kind {
	case KindRoot:
		return "<root>"
	case KindExtra:
		return string(p.Name) + "[" + p.Extra + "]"
	case KindGroup:
		return string(p.Name) + ":" + p.Group
	default:
		return string(p.Name)
	}
}

// IsBase reports whether p is the plain (non-extra, non-group) package
// node that holds the actual resolved version.
func (p Package) IsBase() bool { return p.Kind == KindBase }
