package core

import (
	version "github.com/hashicorp/go-version"
)

// Ordering ranks version labels to pick the highest when a package has no
// explicit "latest" key.
type Ordering interface {
	// Less reports whether label a ranks below label b.
	Less(a, b string) bool
}

// LexicographicOrdering compares labels as plain strings, so "10.0" ranks
// below "9.0". It is the default.
type LexicographicOrdering struct{}

func (LexicographicOrdering) Less(a, b string) bool {
	return a < b
}

// SemanticOrdering compares labels as versions. Labels that do not parse
// rank below every label that does and compare lexicographically among
// themselves.
type SemanticOrdering struct{}

func (SemanticOrdering) Less(a, b string) bool {
	va, errA := version.NewVersion(a)
	vb, errB := version.NewVersion(b)
	switch {
	case errA != nil && errB != nil:
		return a < b
	case errA != nil:
		return true
	case errB != nil:
		return false
	}
	if c := va.Compare(vb); c != 0 {
		return c < 0
	}
	return a < b
}

// Highest returns the highest label under o, or false if labels is empty.
func Highest(o Ordering, labels []string) (string, bool) {
	if len(labels) == 0 {
		return "", false
	}
	best := labels[0]
	for _, l := range labels[1:] {
		if o.Less(best, l) {
			best = l
		}
	}
	return best, true
}

// ResolveLatest returns the explicit "latest" label when present, otherwise
// the highest other label under o.
func ResolveLatest(o Ordering, v Versions) (string, bool) {
	if latest, ok := v.Latest(); ok {
		return latest, true
	}
	return Highest(o, v.labels)
}
