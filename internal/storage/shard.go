package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
)

// Shard is a fixed-size memory-mapped file holding one region of the
// hyperspace: an open-addressed hash table for point lookups, an
// append-only search log that makes stale-space accounting and snapshots
// possible, and an append-only data segment holding the actual records.
//
// A Shard may be read (Get) concurrently with being mutated (Put/Del), but
// at most one goroutine may mutate a given Shard at a time. This is safe
// because a hash-table slot, once assigned to a (primary_hash, key) pair,
// is never reassigned to a different pair for the life of the shard: a
// reader racing a writer either sees the old offset or the new one, both
// always valid.
type Shard struct {
	cfg  ShardConfig
	file *os.File
	data []byte

	hashTableSize    int64
	indexSegmentSize int64

	dataOffset   atomic.Int64
	searchOffset atomic.Int64
}

// CreateShard unlinks any existing file named name under dir, creates a
// fresh zero-filled file of cfg.FileSize bytes, fsyncs it, and maps it
// read/write.
func CreateShard(dir, name string, cfg ShardConfig) (*Shard, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	path := filepath.Join(dir, name)
	_ = os.Remove(path)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("storage: create shard %s: %w", name, err)
	}

	if err := zeroFill(f, cfg.FileSize); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("storage: zero-fill shard %s: %w", name, err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("storage: fsync shard %s: %w", name, err)
	}

	s, err := newMappedShard(f, cfg)
	if err != nil {
		os.Remove(path)
		return nil, err
	}

	s.dataOffset.Store(s.indexSegmentSize)
	return s, nil
}

// OpenShard maps an existing shard file and reconstructs its in-memory
// cursors by scanning the search log (grounded on
// original_source/hyperdisk/shard.cc: shard::open).
func OpenShard(dir, name string, cfg ShardConfig) (*Shard, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("storage: open shard %s: %w", name, err)
	}

	s, err := newMappedShard(f, cfg)
	if err != nil {
		return nil, err
	}

	s.dataOffset.Store(s.indexSegmentSize)
	searchOffset := int64(0)
	lastOffset := int64(0)
	for searchOffset < int64(cfg.SearchIndexEntries) {
		word1 := s.searchLogWord(searchOffset, 1)
		offset := int64(uint32(word1))
		if offset == 0 {
			break
		}
		lastOffset = offset
		searchOffset++
	}
	s.searchOffset.Store(searchOffset)

	if searchOffset > 0 {
		keySize := s.dataKeySize(lastOffset)
		value := s.dataValue(lastOffset, keySize)
		size := recordSize(s.dataKey(lastOffset, keySize), value)
		s.dataOffset.Store(alignUp8(lastOffset + size))
	}

	return s, nil
}

func newMappedShard(f *os.File, cfg ShardConfig) (*Shard, error) {
	data, err := mmapFile(int(f.Fd()), cfg.FileSize)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("storage: mmap shard: %w", err)
	}

	return &Shard{
		cfg:              cfg,
		file:             f,
		data:             data,
		hashTableSize:    cfg.hashTableSize(),
		indexSegmentSize: cfg.indexSegmentSize(),
	}, nil
}

func zeroFill(f *os.File, size int64) error {
	const chunk = 1 << 20 // 1 MiB
	buf := make([]byte, chunk)
	var written int64
	for written < size {
		n := chunk
		if rem := size - written; rem < int64(n) {
			n = int(rem)
		}
		w, err := f.Write(buf[:n])
		if err != nil {
			return err
		}
		written += int64(w)
	}
	return nil
}

// Close unmaps and closes the shard's underlying file. It does not remove
// the file from disk.
func (s *Shard) Close() error {
	err := munmapFile(s.data)
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// hash table / search log word access.

func (s *Shard) hashTableWord(slot int64) uint64 {
	off := slot * hashTableEntrySize
	return s.readUint64(off)
}

func (s *Shard) setHashTableWord(slot int64, word uint64) {
	off := slot * hashTableEntrySize
	s.writeUint64(off, word)
}

// searchLogWord returns word 0 ((secondary_hash<<32)|primary_hash) or word 1
// ((invalidator_offset<<32)|data_offset) of search log entry i.
func (s *Shard) searchLogWord(i int64, word int) uint64 {
	off := s.hashTableSize + i*searchLogEntrySize + int64(word)*8
	return s.readUint64(off)
}

func (s *Shard) setSearchLogWord(i int64, word int, v uint64) {
	off := s.hashTableSize + i*searchLogEntrySize + int64(word)*8
	s.writeUint64(off, v)
}

// hashSlot returns the table slot index for a probe offset off from start,
// wrapped into [0, HashTableEntries).
func (s *Shard) hashSlot(probe int64) int64 {
	n := int64(s.cfg.HashTableEntries)
	return probe % n
}

// hashLookup probes the hash table starting at primaryHash mod H, stopping
// either at a slot whose stored key matches key, or at the first slot whose
// raw word is entirely zero. A tombstoned slot (offset's invalid bit set)
// is never treated as empty, so probing continues past it; hashLookup
// never reassigns a slot once claimed by a (primary_hash, key) pair.
func (s *Shard) hashLookup(primaryHash uint32, key []byte) (slot int64, word uint64) {
	n := int64(s.cfg.HashTableEntries)
	start := int64(primaryHash) % n

	for off := int64(0); off < n; off++ {
		bucket := s.hashSlot(start + off)
		entry := s.hashTableWord(bucket)
		thisHash := uint32(entry)
		thisOffset := uint32(entry>>32) &^ uint32(hashOffsetInvalid)

		if thisHash == primaryHash && thisOffset != 0 {
			if s.dataKeyEquals(int64(thisOffset), key) {
				return bucket, entry
			}
		}

		if uint32(entry>>32) == 0 {
			return bucket, entry
		}
	}

	// Reached only when every slot is held by some other key: Put reports
	// this as ErrHashFull, and for a lookup-only caller (Get/Del) it means
	// the key is not present.
	return -1, 0
}

// Get looks up key by its primary hash.
func (s *Shard) Get(primaryHash uint32, key []byte) (value [][]byte, version uint64, err error) {
	slot, word := s.hashLookup(primaryHash, key)
	if slot < 0 {
		return nil, 0, ErrKeyNotFound
	}

	tableOffset := uint32(word >> 32)
	if tableOffset == 0 || tableOffset&uint32(hashOffsetInvalid) != 0 {
		return nil, 0, ErrKeyNotFound
	}

	off := int64(tableOffset)
	version = s.dataVersion(off)
	keySize := s.dataKeySize(off)
	value = s.dataValue(off, keySize)
	return value, version, nil
}

// Put inserts or overwrites key with value at version, routed by
// (primaryHash, secondaryHash).
func (s *Shard) Put(primaryHash, secondaryHash uint32, key []byte, value [][]byte, version uint64) error {
	dataOffset := s.dataOffset.Load()
	size := recordSize(key, value)
	if dataOffset+size > s.cfg.FileSize {
		return ErrDataFull
	}

	searchOffset := s.searchOffset.Load()
	if searchOffset >= int64(s.cfg.SearchIndexEntries) {
		return ErrSearchFull
	}

	slot, word := s.hashLookup(primaryHash, key)
	if slot < 0 {
		return ErrHashFull
	}
	priorOffset := uint32(word >> 32)

	end := s.writeRecord(dataOffset, key, value, version)
	newDataOffset := alignUp8(end)

	if priorOffset != 0 && priorOffset&uint32(hashOffsetInvalid) == 0 {
		s.invalidateSearchLog(int64(priorOffset), dataOffset)
	}

	s.setSearchLogWord(searchOffset, 0, (uint64(secondaryHash)<<32)|uint64(primaryHash))
	s.setSearchLogWord(searchOffset, 1, uint64(dataOffset))
	s.setHashTableWord(slot, (uint64(dataOffset)<<32)|uint64(primaryHash))

	s.searchOffset.Store(searchOffset + 1)

	if dataOffset>>22 != newDataOffset>>22 {
		_ = s.Async()
	}

	s.dataOffset.Store(newDataOffset)
	return nil
}

// Del removes key, routed by primaryHash. Returns ErrKeyNotFound if the key
// is absent or already tombstoned.
func (s *Shard) Del(primaryHash uint32, key []byte) error {
	slot, word := s.hashLookup(primaryHash, key)
	if slot < 0 {
		return ErrKeyNotFound
	}

	tableOffset := uint32(word >> 32)
	if tableOffset == 0 || tableOffset&uint32(hashOffsetInvalid) != 0 {
		return ErrKeyNotFound
	}

	dataOffset := s.dataOffset.Load()
	if dataOffset+8 > s.cfg.FileSize {
		return ErrDataFull
	}

	s.invalidateSearchLog(int64(tableOffset), dataOffset)
	s.writeUint64(dataOffset, 0)
	s.dataOffset.Store(dataOffset + 8)

	s.setHashTableWord(slot, (uint64(tableOffset)|hashOffsetInvalid)<<32|uint64(primaryHash))
	return nil
}

// invalidateSearchLog marks the live search-log entry whose data_offset is
// toInvalidate as stale, recording invalidateWith as its invalidator. Log
// entries are appended in strictly increasing data_offset order, so a
// binary search over the live prefix [0, searchOffset) locates it in
// O(log S).
func (s *Shard) invalidateSearchLog(toInvalidate, invalidateWith int64) {
	n := s.searchOffset.Load()
	i := sort.Search(int(n), func(i int) bool {
		return int64(uint32(s.searchLogWord(int64(i), 1))) >= toInvalidate
	})
	if i >= int(n) {
		return
	}
	idx := int64(i)
	if int64(uint32(s.searchLogWord(idx, 1))) != toInvalidate {
		return
	}
	s.setSearchLogWord(idx, 1, (uint64(invalidateWith)<<32)|uint64(toInvalidate))
}

// StaleSpace returns 0-100, the greater of the percentage of the data
// segment occupied by invalidated records and the percentage of search log
// entries that are invalidated.
func (s *Shard) StaleSpace() int {
	n := s.searchOffset.Load()
	dataOffset := s.dataOffset.Load()

	var staleBytes, staleCount int64
	for i := int64(0); i < n; i++ {
		word1 := s.searchLogWord(i, 1)
		offset := int64(uint32(word1))
		invalidator := int64(uint32(word1 >> 32))

		var next int64
		if i+1 < n {
			next = int64(uint32(s.searchLogWord(i+1, 1)))
		} else {
			next = dataOffset
		}

		if invalidator != 0 {
			staleBytes += next - offset
			staleCount++
		}
	}

	dataPct := 100 * float64(staleBytes) / float64(s.cfg.dataSegmentSize())
	countPct := 100 * float64(staleCount) / float64(s.cfg.SearchIndexEntries)
	return int(maxFloat(dataPct, countPct))
}

// UsedSpace returns 0-100, the greater of the data segment's fill
// percentage and the search log's fill percentage.
func (s *Shard) UsedSpace() int {
	dataOffset := s.dataOffset.Load()
	searchOffset := s.searchOffset.Load()

	dataPct := 100 * float64(dataOffset-s.indexSegmentSize) / float64(s.cfg.dataSegmentSize())
	countPct := 100 * float64(searchOffset) / float64(s.cfg.SearchIndexEntries)
	return int(maxFloat(dataPct, countPct))
}

// FreeSpace is 100 - UsedSpace.
func (s *Shard) FreeSpace() int {
	return 100 - s.UsedSpace()
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Async requests an asynchronous msync of the shard's mapping.
func (s *Shard) Async() error {
	if err := msyncAsync(s.data); err != nil {
		return ErrSyncFailed
	}
	return nil
}

// Sync performs a synchronous msync of the shard's mapping.
func (s *Shard) Sync() error {
	if err := msyncSync(s.data); err != nil {
		return ErrSyncFailed
	}
	return nil
}

// liveRecord is one decoded live entry from a shard's search log.
type liveRecord struct {
	primaryHash   uint32
	secondaryHash uint32
	key           []byte
	value         [][]byte
	version       uint64
}

// liveRecordsAt decodes every live search-log entry in [0, n) in append
// order. Snapshot and CopyTo both need this eagerly-captured view: the
// bound n must be read by the caller before any concurrent mutation is
// allowed to move the shard's append cursor, so that a record invalidated
// or inserted after the bound was captured doesn't change what the walk
// sees partway through.
func (s *Shard) liveRecordsAt(n int64) []liveRecord {
	out := make([]liveRecord, 0, n)
	for i := int64(0); i < n; i++ {
		word0 := s.searchLogWord(i, 0)
		word1 := s.searchLogWord(i, 1)
		invalidator := uint32(word1 >> 32)
		if invalidator != 0 {
			continue
		}

		offset := int64(uint32(word1))
		primaryHash := uint32(word0)
		secondaryHash := uint32(word0 >> 32)
		keySize := s.dataKeySize(offset)

		out = append(out, liveRecord{
			primaryHash:   primaryHash,
			secondaryHash: secondaryHash,
			key:           s.dataKey(offset, keySize),
			value:         s.dataValue(offset, keySize),
			version:       s.dataVersion(offset),
		})
	}
	return out
}

// Snapshot captures the shard's current search offset and returns an
// iterator over every record that was live at that instant. The liveness
// decision is made now, eagerly, not lazily during iteration: records
// invalidated by a Put/Del that happens after Snapshot returns are still
// included, and records that only become live after Snapshot returns are
// not.
func (s *Shard) Snapshot() *ShardSnapshot {
	n := s.searchOffset.Load()
	return &ShardSnapshot{records: s.liveRecordsAt(n)}
}

// CopyTo copies every live record whose (UINT32_MAX, primary_hash,
// UINT32_MAX, secondary_hash) point-coordinate intersects target into dst.
// dst must be a freshly created, zero-filled shard; CopyTo rebuilds its
// hash table and search log from scratch as it appends.
func (s *Shard) CopyTo(target Coordinate, dst *Shard) error {
	n := s.searchOffset.Load()
	for _, rec := range s.liveRecordsAt(n) {
		point := NewCoordinate(^uint32(0), rec.primaryHash, ^uint32(0), rec.secondaryHash)
		if !point.Intersects(target) {
			continue
		}
		if err := dst.Put(rec.primaryHash, rec.secondaryHash, rec.key, rec.value, rec.version); err != nil {
			return err
		}
	}
	return nil
}

// Fsck walks the shard's hash table and search log, verifying that every
// live search-log entry has exactly one matching hash-table slot pointing
// at its offset. It is a debug-mode diagnostic, not part of the normal
// operational path.
func (s *Shard) Fsck() error {
	n := s.searchOffset.Load()
	for i := int64(0); i < n; i++ {
		word0 := s.searchLogWord(i, 0)
		word1 := s.searchLogWord(i, 1)
		if uint32(word1>>32) != 0 {
			continue // tombstoned entry, nothing to cross-check
		}

		offset := int64(uint32(word1))
		primaryHash := uint32(word0)
		keySize := s.dataKeySize(offset)
		key := s.dataKey(offset, keySize)

		slot, slotWord := s.hashLookup(primaryHash, key)
		if slot < 0 {
			return fmt.Errorf("%w: no hash slot for live search log entry %d", ErrCorruptShard, i)
		}
		slotOffset := uint32(slotWord>>32) &^ uint32(hashOffsetInvalid)
		if int64(slotOffset) != offset {
			return fmt.Errorf("%w: slot for entry %d points at stale offset", ErrCorruptShard, i)
		}

		for off := int64(1); off < int64(s.cfg.HashTableEntries); off++ {
			other := s.hashTableWord(s.hashSlot(slot + off))
			if uint32(other>>32) == 0 {
				break
			}
			otherOffset := uint32(other>>32) &^ uint32(hashOffsetInvalid)
			if uint32(other) == primaryHash && s.dataKeyEquals(int64(otherOffset), key) {
				return fmt.Errorf("%w: key of entry %d holds a second hash slot", ErrCorruptShard, i)
			}
		}
	}
	return nil
}
