// Package ids defines the opaque identifiers used throughout the engine:
// ZoneId for isolation boundaries and TabId for individual browsing contexts.
// Both wrap a UUID but callers must treat them as opaque, comparable handles.
package ids

import (
	"github.com/google/uuid"
)

// ZoneId uniquely identifies a Zone for the lifetime of the process.
type ZoneId struct {
	u uuid.UUID
}

// NewZoneId creates a new, randomly generated ZoneId.
func NewZoneId() ZoneId {
	return ZoneId{u: uuid.New()}
}

// ParseZoneId parses s as a ZoneId. Malformed input falls back to a fresh
// random id rather than erroring, mirroring how the engine treats an
// unparsable persisted zone reference: create a new identity instead of
// refusing to start.
func ParseZoneId(s string) ZoneId {
	u, err := uuid.Parse(s)
	if err != nil {
		return NewZoneId()
	}
	return ZoneId{u: u}
}

func (z ZoneId) String() string { return z.u.String() }

// IsZero reports whether z is the zero-value ZoneId (never produced by
// NewZoneId; useful as a "not set" sentinel in structs).
func (z ZoneId) IsZero() bool { return z.u == uuid.Nil }

// TabId uniquely identifies a Tab for the lifetime of the process.
type TabId struct {
	u uuid.UUID
}

// NewTabId creates a new, randomly generated TabId.
func NewTabId() TabId {
	return TabId{u: uuid.New()}
}

// ParseTabId parses s as a TabId, falling back to a fresh random id on
// malformed input (see ParseZoneId).
func ParseTabId(s string) TabId {
	u, err := uuid.Parse(s)
	if err != nil {
		return NewTabId()
	}
	return TabId{u: u}
}

func (t TabId) String() string { return t.u.String() }

func (t TabId) IsZero() bool { return t.u == uuid.Nil }

// Seed returns a stable 64-bit value derived from the id, suitable for
// seeding a deterministic PRNG (e.g. to derive a zone's display color).
func (z ZoneId) Seed() uint64 {
	b := z.u[:]
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}
