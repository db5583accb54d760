// Package storage implements a hyperspace-partitioned on-disk key/value
// storage engine.
//
// Records are keyed by an opaque byte string and carry an ordered list of
// attribute byte strings (the "value"). Records are routed by two 32-bit
// hash coordinates — a primary hash derived from the key and a secondary
// hash derived from the value — into a dynamic collection of fixed-size
// memory-mapped files called shards.
//
// Architecture:
//
//	┌───────────────────────────────────────────────────────────────────┐
//	│                              Disk                                 │
//	├───────────────────────────────────────────────────────────────────┤
//	│  Write path:  Client → WAL (in-memory FIFO) → (flush) → Shard    │
//	│  Read path:   Client → ShardVector (snapshot) → WAL (overlay)    │
//	├───────────────────────────────────────────────────────────────────┤
//	│  Background:  flush drains the WAL; full shards are cleaned      │
//	│               (stale space reclaimed) or split four ways         │
//	└───────────────────────────────────────────────────────────────────┘
//
// Key components:
//   - Coordinate: a mask+hash region in the (primary, secondary) hyperspace
//   - Shard: a fixed-size mmap'd file holding a hash table, search log, and
//     append-only data segment for one hyperspace region
//   - ShardVector: an immutable, copy-on-write ordered set of (Coordinate,
//     Shard) pairs
//   - WAL: a lock-free multi-producer/single-consumer FIFO absorbing writes
//     before they land in a shard
//   - Disk: the supervisor tying the above together — routing, flush,
//     preallocation, cleaning, and splitting
package storage
