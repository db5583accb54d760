package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testShardConfig() ShardConfig {
	return ShardConfig{
		FileSize:           1 << 16,
		HashTableEntries:   64,
		SearchIndexEntries: 64,
	}
}

func TestShard_PutGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := CreateShard(dir, "shard-a", testShardConfig())
	require.NoError(t, err)
	defer s.Close()

	key := []byte("hello")
	value := [][]byte{[]byte("world")}

	require.NoError(t, s.Put(42, 99, key, value, 1))

	got, version, err := s.Get(42, key)
	require.NoError(t, err)
	require.Equal(t, uint64(1), version)
	require.Equal(t, value, got)
}

func TestShard_GetMissingKey(t *testing.T) {
	dir := t.TempDir()
	s, err := CreateShard(dir, "shard-b", testShardConfig())
	require.NoError(t, err)
	defer s.Close()

	_, _, err = s.Get(1, []byte("nope"))
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestShard_DelRemovesKey(t *testing.T) {
	dir := t.TempDir()
	s, err := CreateShard(dir, "shard-c", testShardConfig())
	require.NoError(t, err)
	defer s.Close()

	key := []byte("k")
	require.NoError(t, s.Put(7, 8, key, [][]byte{[]byte("v")}, 1))
	require.NoError(t, s.Del(7, key))

	_, _, err = s.Get(7, key)
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestShard_DelMissingKeyReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	s, err := CreateShard(dir, "shard-d", testShardConfig())
	require.NoError(t, err)
	defer s.Close()

	err = s.Del(1, []byte("absent"))
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestShard_OverwriteInvalidatesPriorSearchLogEntry(t *testing.T) {
	dir := t.TempDir()
	s, err := CreateShard(dir, "shard-e", testShardConfig())
	require.NoError(t, err)
	defer s.Close()

	key := []byte("k")
	require.NoError(t, s.Put(5, 1, key, [][]byte{[]byte("v1")}, 1))
	require.NoError(t, s.Put(5, 2, key, [][]byte{[]byte("v2")}, 2))

	value, version, err := s.Get(5, key)
	require.NoError(t, err)
	require.Equal(t, uint64(2), version)
	require.Equal(t, [][]byte{[]byte("v2")}, value)

	require.Greater(t, s.StaleSpace(), 0)
}

func TestShard_NeverReassignsASlotAcrossDeleteAndReinsert(t *testing.T) {
	dir := t.TempDir()
	s, err := CreateShard(dir, "shard-f", testShardConfig())
	require.NoError(t, err)
	defer s.Close()

	keyA := []byte("a")
	keyB := []byte("collide")

	slotA, _ := s.hashLookup(5, keyA)
	require.NoError(t, s.Put(5, 0, keyA, [][]byte{[]byte("1")}, 1))
	require.NoError(t, s.Del(5, keyA))
	require.NoError(t, s.Put(5, 0, keyB, [][]byte{[]byte("2")}, 2))

	slotB, _ := s.hashLookup(5, keyB)
	require.NotEqual(t, slotA, slotB, "keyB must probe past keyA's tombstoned slot, not reuse it")

	_, _, err = s.Get(5, keyA)
	require.ErrorIs(t, err, ErrKeyNotFound)

	value, _, err := s.Get(5, keyB)
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("2")}, value)

	require.NoError(t, s.Put(5, 0, keyA, [][]byte{[]byte("3")}, 3))
	value, _, err = s.Get(5, keyA)
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("3")}, value)
}

func TestShard_DataFullRejectsFurtherPuts(t *testing.T) {
	dir := t.TempDir()
	cfg := ShardConfig{
		FileSize:           512 + int64((&ShardConfig{HashTableEntries: 8, SearchIndexEntries: 8}).indexSegmentSize()),
		HashTableEntries:   8,
		SearchIndexEntries: 8,
	}
	s, err := CreateShard(dir, "shard-g", cfg)
	require.NoError(t, err)
	defer s.Close()

	var lastErr error
	for i := 0; i < 100; i++ {
		key := []byte{byte(i)}
		lastErr = s.Put(uint32(i), uint32(i), key, [][]byte{make([]byte, 64)}, uint64(i))
		if lastErr != nil {
			break
		}
	}
	require.Error(t, lastErr)
	require.ErrorIs(t, lastErr, ErrDataFull)
}

func TestShard_OpenReconstructsCursorsFromSearchLog(t *testing.T) {
	dir := t.TempDir()
	cfg := testShardConfig()

	s, err := CreateShard(dir, "shard-h", cfg)
	require.NoError(t, err)

	require.NoError(t, s.Put(1, 1, []byte("a"), [][]byte{[]byte("1")}, 1))
	require.NoError(t, s.Put(2, 2, []byte("bb"), [][]byte{[]byte("22")}, 2))
	require.NoError(t, s.Sync())
	require.NoError(t, s.Close())

	reopened, err := OpenShard(dir, "shard-h", cfg)
	require.NoError(t, err)
	defer reopened.Close()

	value, version, err := reopened.Get(1, []byte("a"))
	require.NoError(t, err)
	require.Equal(t, uint64(1), version)
	require.Equal(t, [][]byte{[]byte("1")}, value)

	value, version, err = reopened.Get(2, []byte("bb"))
	require.NoError(t, err)
	require.Equal(t, uint64(2), version)
	require.Equal(t, [][]byte{[]byte("22")}, value)

	require.NoError(t, reopened.Put(3, 3, []byte("c"), [][]byte{[]byte("3")}, 3))
}

func TestShard_SnapshotIsFixedAtCreation(t *testing.T) {
	dir := t.TempDir()
	s, err := CreateShard(dir, "shard-i", testShardConfig())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put(1, 1, []byte("a"), [][]byte{[]byte("1")}, 1))

	snap := s.Snapshot()
	require.NoError(t, s.Put(2, 2, []byte("b"), [][]byte{[]byte("2")}, 2))

	count := 0
	for snap.Next() {
		count++
		require.Equal(t, []byte("a"), snap.Key())
	}
	require.Equal(t, 1, count)
	require.Equal(t, 1, snap.Len())
}

func TestShard_CopyToOnlyCopiesIntersectingLiveRecords(t *testing.T) {
	dir := t.TempDir()
	cfg := testShardConfig()

	src, err := CreateShard(dir, "shard-src", cfg)
	require.NoError(t, err)
	defer src.Close()

	// Two live keys whose primary hashes differ in bit 0.
	require.NoError(t, src.Put(0, 0, []byte("even"), [][]byte{[]byte("e")}, 1))
	require.NoError(t, src.Put(1, 0, []byte("odd"), [][]byte{[]byte("o")}, 2))

	dst, err := CreateShard(dir, "shard-dst", cfg)
	require.NoError(t, err)
	defer dst.Close()

	target := NewCoordinate(1, 0, 0, 0) // bit 0 clear
	require.NoError(t, src.CopyTo(target, dst))

	value, _, err := dst.Get(0, []byte("even"))
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("e")}, value)

	_, _, err = dst.Get(1, []byte("odd"))
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestShard_Fsck(t *testing.T) {
	dir := t.TempDir()
	s, err := CreateShard(dir, "shard-j", testShardConfig())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put(1, 1, []byte("a"), [][]byte{[]byte("1")}, 1))
	require.NoError(t, s.Put(1, 1, []byte("a"), [][]byte{[]byte("2")}, 2))
	require.NoError(t, s.Del(1, []byte("a")))

	require.NoError(t, s.Fsck())
}
