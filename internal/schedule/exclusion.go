package schedule

import (
	"slices"
	"sort"
	"time"
)

// DefaultTolerance is the proximity within which two instants count as the
// same exclusion.
const DefaultTolerance = 60 * time.Second

// ExclusionSet matches candidate instants against a schedule's exdates.
type ExclusionSet struct {
	instants  []time.Time
	tolerance time.Duration
}

// NewExclusionSet builds a set from exdates. Candidates within tolerance of
// an exdate, inclusive, are excluded. A negative tolerance is treated as zero.
// The input slice is copied and not modified.
func NewExclusionSet(exdates []time.Time, tolerance time.Duration) ExclusionSet {
	if tolerance < 0 {
		tolerance = 0
	}
	instants := slices.Clone(exdates)
	slices.SortFunc(instants, func(a, b time.Time) int { return a.Compare(b) })
	return ExclusionSet{instants: instants, tolerance: tolerance}
}

// Contains reports whether t is within tolerance of any exdate.
func (e ExclusionSet) Contains(t time.Time) bool {
	lo := t.Add(-e.tolerance)
	// First exdate not before the window start.
	i := sort.Search(len(e.instants), func(i int) bool { return !e.instants[i].Before(lo) })
	return i < len(e.instants) && !e.instants[i].After(t.Add(e.tolerance))
}

// Len returns the number of exdates.
func (e ExclusionSet) Len() int {
	return len(e.instants)
}

// Predicate adapts the set for NextOccurrence.
func (e ExclusionSet) Predicate() Excluded {
	if len(e.instants) == 0 {
		return nil
	}
	return e.Contains
}
