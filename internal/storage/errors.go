package storage

import "errors"

// Errors returned from shard and disk operations. Capacity errors
// (ErrDataFull, ErrHashFull, ErrSearchFull) are internal signals consumed by
// Disk.flush to trigger a clean or split; they never escape a Disk's public
// API.
var (
	// ErrKeyNotFound is returned when a key doesn't exist.
	ErrKeyNotFound = errors.New("key not found")

	// ErrWrongArity is returned when a put's value does not match the
	// disk's configured arity.
	ErrWrongArity = errors.New("wrong arity")

	// ErrDataFull is returned when a shard's data segment has no room for
	// the record being written.
	ErrDataFull = errors.New("shard data segment is full")

	// ErrHashFull is returned when a shard's hash table has no empty slot
	// left to probe into.
	ErrHashFull = errors.New("shard hash table is full")

	// ErrSearchFull is returned when a shard's search log has no room for
	// another entry.
	ErrSearchFull = errors.New("shard search log is full")

	// ErrSyncFailed is returned when an msync of a shard's mapping fails.
	ErrSyncFailed = errors.New("shard sync failed")

	// ErrDropFailed is returned when one or more shard files could not be
	// removed during Disk.Drop.
	ErrDropFailed = errors.New("drop failed")

	// ErrSplitFailed is returned when a full shard can neither be cleaned
	// nor split: it already covers a single point in both halves of the
	// hyperspace, or building one of its four child shards failed.
	ErrSplitFailed = errors.New("split failed")

	// ErrCorruptShard is returned by Fsck when a shard's on-disk invariants
	// are violated, and by CreateShard/OpenShard when a ShardConfig
	// describes an impossible layout.
	ErrCorruptShard = errors.New("corrupt shard")
)

// isFullErr reports whether err is one of the shard capacity errors that
// Disk.flush must react to by cleaning or splitting the offending shard.
func isFullErr(err error) bool {
	return err == ErrDataFull || err == ErrHashFull || err == ErrSearchFull
}
