package pep440

import "sort"

// interval is a half-open version interval [Lo, Hi). Hi may be the
// posInf sentinel for an unbounded-above interval; Lo may be negInf.
type interval struct {
	Lo Version
	Hi Version
}

func (iv interval) empty() bool {
	return Compare(iv.Lo, iv.Hi) >= 0
}

// Range is a finite union of disjoint, non-adjacent half-open version
// intervals — the value every specifier operator lowers to.
// The zero Range is empty.
type Range struct {
	intervals []interval
}

// Empty returns the range satisfying no version.
func Empty() Range { return Range{} }

// Full returns the range satisfying every version.
func Full() Range {
	return Range{intervals: []interval{{Lo: negInf, Hi: posInf}}}
}

// Singleton returns the half-open range [v, v.Next()), used for `==v`.
func Singleton(v Version) Range {
	return Range{intervals: []interval{{Lo: v, Hi: v.Next()}}}
}

// IsEmpty reports whether r contains no version.
func (r Range) IsEmpty() bool { return len(r.intervals) == 0 }

// IsFull reports whether r contains every version.
func (r Range) IsFull() bool {
	return len(r.intervals) == 1 && r.intervals[0].Lo.infinity == -1 && r.intervals[0].Hi.infinity == 1
}

// Contains reports whether v satisfies r. Per PEP 440's equality
// carve-out, a version's local label is ignored for range membership:
// 1.2.3+local satisfies the same ranges as 1.2.3.
func (r Range) Contains(v Version) bool {
	v = v.WithoutLocal()

	for _, iv := range r.intervals {
		if Compare(v, iv.Lo) >= 0 && Compare(v, iv.Hi) < 0 {
			return true
		}
	}

	return false
}

// normalise sorts intervals and merges overlapping or touching ones.
func normalise(intervals []interval) []interval {
	filtered := intervals[:0]

	for _, iv := range intervals {
		if !iv.empty() {
			filtered = append(filtered, iv)
		}
	}

	if len(filtered) == 0 {
		return nil
	}

	sort.Slice(filtered, func(i, j int) bool {
		return Compare(filtered[i].Lo, filtered[j].Lo) < 0
	})

	out := []interval{filtered[0]}

	for _, iv := range filtered[1:] {
		last := &out[len(out)-1]
		if Compare(iv.Lo, last.Hi) <= 0 {
			if Compare(iv.Hi, last.Hi) > 0 {
				last.Hi = iv.Hi
			}

			continue
		}

		out = append(out, iv)
	}

	return out
}

// Intersect returns the range satisfying both r and other.
func (r Range) Intersect(other Range) Range {
	var out []interval

	for _, a := range r.intervals {
		for _, b := range other.intervals {
			lo, hi := a.Lo, a.Hi
			if Compare(b.Lo, lo) > 0 {
				lo = b.Lo
			}

			if Compare(b.Hi, hi) < 0 {
				hi = b.Hi
			}

			if Compare(lo, hi) < 0 {
				out = append(out, interval{Lo: lo, Hi: hi})
			}
		}
	}

	return Range{intervals: normalise(out)}
}

// Union returns the range satisfying either r or other.
func (r Range) Union(other Range) Range {
	combined := append(append([]interval(nil), r.intervals...), other.intervals...)

	return Range{intervals: normalise(combined)}
}

// Complement returns the range satisfying every version not in r.
func (r Range) Complement() Range {
	if r.IsEmpty() {
		return Full()
	}

	var out []interval

	cursor := negInf
	for _, iv := range r.intervals {
		if Compare(cursor, iv.Lo) < 0 {
			out = append(out, interval{Lo: cursor, Hi: iv.Lo})
		}

		cursor = iv.Hi
	}

	if Compare(cursor, posInf) < 0 {
		out = append(out, interval{Lo: cursor, Hi: posInf})
	}

	return Range{intervals: normalise(out)}
}

// IsDisjoint reports whether r and other share no version.
func (r Range) IsDisjoint(other Range) bool {
	return r.Intersect(other).IsEmpty()
}

// IsSubsetOf reports whether every version in r also satisfies other.
func (r Range) IsSubsetOf(other Range) bool {
	return r.Intersect(other.Complement()).IsEmpty()
}

// LowerBound returns the lowest version r admits, for callers that need
// a single representative floor rather than the full interval union
// (e.g. rendering a requires-python range as a `python_version >= X`
// marker clause at lockfile write-time). ok is false when r is empty or
// unbounded below.
func (r Range) LowerBound() (v Version, ok bool) {
	if len(r.intervals) == 0 {
		return Version{}, false
	}

	lo := r.intervals[0].Lo
	if Compare(lo, negInf) == 0 {
		return Version{}, false
	}

	return lo, true
}
