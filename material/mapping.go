package material

import (
	"fmt"
	"maps"
)

// Mapping is a bidirectional map between external material identifiers
// and native IDs drawn from one reserved range.
//
// The two maps are always inverse of each other, NextAvailable never
// exceeds Range.EndID+1, and an assigned pair never changes.
// A Mapping is not safe for concurrent mutation; Manager serializes access.
type Mapping struct {
	ExternalToNative map[string]uint32
	NativeToExternal map[uint32]string
	Range            Range
	NextAvailable    uint32
}

// NewMapping returns an empty mapping over r.
func NewMapping(r Range) *Mapping {
	return &Mapping{
		ExternalToNative: make(map[string]uint32),
		NativeToExternal: make(map[uint32]string),
		Range:            r,
		NextAvailable:    r.StartID,
	}
}

// CreateMapping assigns IDs from r to every material that is not mapped yet.
//
// When existing is given, its pairs are carried over unchanged and only
// new materials receive IDs. If r differs from existing's range, new IDs
// come from r. existing itself is never modified. If r runs out of IDs
// the call fails with ErrRangeExhausted and no mapping is returned.
func CreateMapping(materials []string, r Range, existing *Mapping) (*Mapping, error) {
	if r.Count == 0 {
		return nil, fmt.Errorf("%w: empty range", ErrInvalidCount)
	}
	var out *Mapping
	if existing != nil {
		out = existing.Clone()
		if out.Range != r {
			out.Range = r
			out.NextAvailable = r.StartID
		}
	} else {
		out = NewMapping(r)
	}
	for _, ext := range materials {
		if _, err := out.assign(ext); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// assign returns the ID of ext, allocating the next free one if needed.
func (m *Mapping) assign(ext string) (uint32, error) {
	if ext == "" {
		return 0, ErrInvalidMaterial
	}
	if id, ok := m.ExternalToNative[ext]; ok {
		return id, nil
	}
	for m.NextAvailable-m.Range.StartID < m.Range.Count {
		id := m.NextAvailable
		m.NextAvailable++
		// IDs from an earlier, overlapping range are never handed out twice.
		if _, taken := m.NativeToExternal[id]; taken {
			continue
		}
		m.ExternalToNative[ext] = id
		m.NativeToExternal[id] = ext
		return id, nil
	}
	return 0, fmt.Errorf("%w: %s has no room for %q", ErrRangeExhausted, m.Range, ext)
}

// Lookup returns the native ID assigned to ext.
func (m *Mapping) Lookup(ext string) (uint32, bool) {
	id, ok := m.ExternalToNative[ext]
	return id, ok
}

// External returns the external identifier assigned to id.
func (m *Mapping) External(id uint32) (string, bool) {
	ext, ok := m.NativeToExternal[id]
	return ext, ok
}

// Len returns the number of assigned pairs.
func (m *Mapping) Len() int {
	return len(m.ExternalToNative)
}

// Remaining returns how many IDs of the current range are still unassigned.
func (m *Mapping) Remaining() uint32 {
	return m.Range.Count - (m.NextAvailable - m.Range.StartID)
}

// Clone returns a deep copy.
func (m *Mapping) Clone() *Mapping {
	out := NewMapping(m.Range)
	out.NextAvailable = m.NextAvailable
	maps.Copy(out.ExternalToNative, m.ExternalToNative)
	maps.Copy(out.NativeToExternal, m.NativeToExternal)
	return out
}
