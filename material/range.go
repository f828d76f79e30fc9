// Package material assigns native material IDs to external material
// identifiers.
//
// IDs are handed out from reserved ranges. A Reserver obtains disjoint
// ranges, preferably from the native engine; a Mapping assigns IDs within
// a range to external identifiers; a Manager ties both together behind a
// lookup cache and owns its reservations as managed resources.
package material

import (
	"errors"
	"fmt"
	"time"
)

// Material errors.
var (
	// ErrInvalidCount is returned when a reservation size is outside [1, 1,000,000].
	ErrInvalidCount = errors.New("material: invalid reservation count")

	// ErrRangeExhausted is returned when a mapping has no free IDs left.
	ErrRangeExhausted = errors.New("material: reserved ID range exhausted")

	// ErrInvalidMaterial is returned for an empty external identifier.
	ErrInvalidMaterial = errors.New("material: empty material identifier")

	// ErrNotInitialized is returned when a Manager is used before Initialize
	// or after Dispose.
	ErrNotInitialized = errors.New("material: manager not initialized")
)

// Range is a reserved block of consecutive material IDs.
// EndID is inclusive: EndID == StartID + Count - 1.
type Range struct {
	StartID    uint32
	EndID      uint32
	Count      uint32
	ReservedAt time.Time
}

// NewRange returns the range of count IDs starting at start.
func NewRange(start, count uint32, at time.Time) Range {
	return Range{StartID: start, EndID: start + count - 1, Count: count, ReservedAt: at}
}

// Contains reports whether id lies within r.
func (r Range) Contains(id uint32) bool {
	return r.Count > 0 && id >= r.StartID && id <= r.EndID
}

// Overlaps reports whether r and o share at least one ID.
func (r Range) Overlaps(o Range) bool {
	if r.Count == 0 || o.Count == 0 {
		return false
	}
	return r.StartID <= o.EndID && o.StartID <= r.EndID
}

// String formats the range as [start, end].
func (r Range) String() string {
	return fmt.Sprintf("[%d, %d]", r.StartID, r.EndID)
}

// Conflict describes two overlapping ranges by their index in the input.
type Conflict struct {
	A, B         int
	OverlapStart uint32
	OverlapEnd   uint32
}

// Validation is the result of ValidateRanges.
type Validation struct {
	HasConflicts  bool
	TotalReserved uint64
	Conflicts     []Conflict
}

// ValidateRanges tests every pair of ranges for overlap. Each conflict
// carries the exact intersection of the two ranges.
func ValidateRanges(ranges []Range) Validation {
	var v Validation
	for i, a := range ranges {
		v.TotalReserved += uint64(a.Count)
		for j := i + 1; j < len(ranges); j++ {
			b := ranges[j]
			if !a.Overlaps(b) {
				continue
			}
			v.Conflicts = append(v.Conflicts, Conflict{
				A:            i,
				B:            j,
				OverlapStart: max(a.StartID, b.StartID),
				OverlapEnd:   min(a.EndID, b.EndID),
			})
		}
	}
	v.HasConflicts = len(v.Conflicts) > 0
	return v
}
