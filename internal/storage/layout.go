package storage

// Shard on-disk layout constants. The values below are production sizes;
// they are exposed via ShardConfig so tests can shrink them to exercise
// full/split paths without writing gigabytes of zeros.
//
// Layout:
//
//	offset 0          hashTableSize      indexSegmentSize         fileSize
//	 ├──── hash table ─┼──── search log ──┼──────── data segment ──────┤
const (
	// DefaultFileSize is the fixed size of a shard file (256 MiB).
	DefaultFileSize = 256 << 20

	// DefaultHashTableEntries is the number of 64-bit slots in a shard's
	// open-addressed hash table.
	DefaultHashTableEntries = 1 << 16

	// DefaultSearchIndexEntries is the number of 16-byte entries in a
	// shard's search log.
	DefaultSearchIndexEntries = 1 << 16

	hashTableEntrySize  = 8  // one uint64 word per slot
	searchLogEntrySize  = 16 // two uint64 words per entry
	dataRecordHeaderMin = 8 + 4 + 2 // version + key_size + arity

	// hashOffsetInvalid is OR'd into a hash-table slot's offset word to
	// mark the slot's most recent search-log entry as stale, while still
	// retaining the slot's primary_hash so that linear probing continues
	// past it.
	hashOffsetInvalid = uint64(1) << 31
)

// ShardConfig bundles the tunables of one shard's on-disk layout. Values are
// fixed for the lifetime of a shard file; Disk uses one ShardConfig for
// every shard it creates.
type ShardConfig struct {
	// FileSize is the total size of a shard file in bytes.
	FileSize int64
	// HashTableEntries is the number of slots in the hash table.
	HashTableEntries int
	// SearchIndexEntries is the number of entries in the search log.
	SearchIndexEntries int
}

// DefaultShardConfig returns the production-sized shard layout.
func DefaultShardConfig() ShardConfig {
	return ShardConfig{
		FileSize:           DefaultFileSize,
		HashTableEntries:   DefaultHashTableEntries,
		SearchIndexEntries: DefaultSearchIndexEntries,
	}
}

func (c ShardConfig) hashTableSize() int64 {
	return int64(c.HashTableEntries) * hashTableEntrySize
}

func (c ShardConfig) searchLogSize() int64 {
	return int64(c.SearchIndexEntries) * searchLogEntrySize
}

func (c ShardConfig) indexSegmentSize() int64 {
	return c.hashTableSize() + c.searchLogSize()
}

func (c ShardConfig) dataSegmentSize() int64 {
	return c.FileSize - c.indexSegmentSize()
}

func (c ShardConfig) validate() error {
	if c.FileSize <= 0 || c.HashTableEntries <= 0 || c.SearchIndexEntries <= 0 {
		return ErrCorruptShard
	}
	if c.indexSegmentSize() >= c.FileSize {
		return ErrCorruptShard
	}
	return nil
}

// alignUp8 rounds off up to the next multiple of 8, the data segment's fixed
// record alignment.
func alignUp8(off int64) int64 {
	return (off + 7) &^ 7
}
