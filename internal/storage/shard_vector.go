package storage

// ShardVector is an immutable, copy-on-write ordered list of
// (Coordinate, *Shard) pairs. Disk never mutates a ShardVector in place;
// every structural change (Replace, Replace4) produces a new ShardVector
// and Disk swaps its pointer to it with an atomic store, so readers that
// already captured the old pointer keep working against a consistent view.
type ShardVector struct {
	coords []Coordinate
	shards []*Shard
}

// NewShardVector builds a ShardVector from parallel coordinate/shard
// slices. The slices are not retained; callers may reuse them.
func NewShardVector(coords []Coordinate, shards []*Shard) *ShardVector {
	v := &ShardVector{
		coords: make([]Coordinate, len(coords)),
		shards: make([]*Shard, len(shards)),
	}
	copy(v.coords, coords)
	copy(v.shards, shards)
	return v
}

// Size returns the number of (coordinate, shard) pairs.
func (v *ShardVector) Size() int {
	if v == nil {
		return 0
	}
	return len(v.coords)
}

// Coordinate returns the coordinate at index i.
func (v *ShardVector) Coordinate(i int) Coordinate {
	return v.coords[i]
}

// Shard returns the shard at index i.
func (v *ShardVector) Shard(i int) *Shard {
	return v.shards[i]
}

// Replace returns a new ShardVector with index i's shard and coordinate
// swapped for coord/shard, leaving every other slot and the overall order
// unchanged. Used after a clean_shard rewrite, where one shard is replaced
// in place by a fresh one covering the same coordinate.
func (v *ShardVector) Replace(i int, coord Coordinate, shard *Shard) *ShardVector {
	out := &ShardVector{
		coords: make([]Coordinate, len(v.coords)),
		shards: make([]*Shard, len(v.shards)),
	}
	copy(out.coords, v.coords)
	copy(out.shards, v.shards)
	out.coords[i] = coord
	out.shards[i] = shard
	return out
}

// Replace4 returns a new ShardVector with index i removed and the four
// coordinate/shard pairs produced by splitting it appended at the end, in
// the given order; every other entry keeps its relative order. Disk.flush
// routes a put by scanning from the highest index down, so the newest,
// narrowest shards are tried first. The four children's coordinates are
// pairwise disjoint and together cover exactly the parent's former region,
// so at most one of them ever contains() a given point.
func (v *ShardVector) Replace4(i int, coords [4]Coordinate, shards [4]*Shard) *ShardVector {
	n := len(v.coords)
	out := &ShardVector{
		coords: make([]Coordinate, 0, n+3),
		shards: make([]*Shard, 0, n+3),
	}
	out.coords = append(out.coords, v.coords[:i]...)
	out.shards = append(out.shards, v.shards[:i]...)
	out.coords = append(out.coords, v.coords[i+1:]...)
	out.shards = append(out.shards, v.shards[i+1:]...)
	out.coords = append(out.coords, coords[:]...)
	out.shards = append(out.shards, shards[:]...)
	return out
}
