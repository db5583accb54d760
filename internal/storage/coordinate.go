package storage

import "fmt"

// Coordinate locates a record, or a region of records, in the
// (primary, secondary) hyperspace. A mask bit that is clear matches every
// value in that bit position; a mask bit that is set requires the
// corresponding hash bit to match exactly.
type Coordinate struct {
	PrimaryMask   uint32
	PrimaryHash   uint32
	SecondaryMask uint32
	SecondaryHash uint32
}

// NewCoordinate builds a Coordinate from its four components.
func NewCoordinate(primaryMask, primaryHash, secondaryMask, secondaryHash uint32) Coordinate {
	return Coordinate{
		PrimaryMask:   primaryMask,
		PrimaryHash:   primaryHash,
		SecondaryMask: secondaryMask,
		SecondaryHash: secondaryHash,
	}
}

// Contains reports whether every record matching b also matches a — that
// is, whether b's region lies entirely within a's.
func (a Coordinate) Contains(b Coordinate) bool {
	return a.PrimaryContains(b) &&
		(a.SecondaryMask&(a.SecondaryHash^b.SecondaryHash)) == 0
}

// PrimaryContains is Contains restricted to the primary half of the
// hyperspace. Shard routing for reads and deletes only ever needs the
// primary half, since a key alone (without a value) cannot be resolved to a
// secondary hash.
func (a Coordinate) PrimaryContains(b Coordinate) bool {
	return (a.PrimaryMask & (a.PrimaryHash ^ b.PrimaryHash)) == 0
}

// Intersects reports whether a and b's regions overlap: whether some record
// could match both. Unlike Contains, this is symmetric.
func (a Coordinate) Intersects(b Coordinate) bool {
	m := a.PrimaryMask & b.PrimaryMask
	if m&(a.PrimaryHash^b.PrimaryHash) != 0 {
		return false
	}
	m = a.SecondaryMask & b.SecondaryMask
	return m&(a.SecondaryHash^b.SecondaryHash) == 0
}

// Filename returns the canonical on-disk filename for the shard covering
// this coordinate: four 8-hex-digit, zero-padded, lowercase fields.
func (c Coordinate) Filename() string {
	return fmt.Sprintf("%08x-%08x-%08x-%08x",
		c.PrimaryMask, c.PrimaryHash, c.SecondaryMask, c.SecondaryHash)
}

// TmpFilename returns the filename used for a shard that is being built as
// the replacement for this coordinate (clean or split in progress).
func (c Coordinate) TmpFilename() string {
	return c.Filename() + "-tmp"
}

func (c Coordinate) String() string {
	return c.Filename()
}
