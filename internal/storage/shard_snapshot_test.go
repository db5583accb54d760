package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShardSnapshot_IteratesAllLiveRecords(t *testing.T) {
	dir := t.TempDir()
	s, err := CreateShard(dir, "snap-a", testShardConfig())
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < 5; i++ {
		key := []byte{byte('a' + i)}
		require.NoError(t, s.Put(uint32(i), uint32(i), key, [][]byte{{byte(i)}}, uint64(i)+1))
	}

	snap := s.Snapshot()
	require.Equal(t, 5, snap.Len())

	seen := map[byte]bool{}
	for snap.Next() {
		require.Len(t, snap.Key(), 1)
		seen[snap.Key()[0]] = true
	}
	require.Len(t, seen, 5)
	require.False(t, snap.Next())
}

func TestShardSnapshot_ExcludesTombstonedRecords(t *testing.T) {
	dir := t.TempDir()
	s, err := CreateShard(dir, "snap-b", testShardConfig())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put(1, 1, []byte("a"), [][]byte{[]byte("1")}, 1))
	require.NoError(t, s.Put(2, 2, []byte("b"), [][]byte{[]byte("2")}, 2))
	require.NoError(t, s.Del(1, []byte("a")))

	snap := s.Snapshot()
	require.Equal(t, 1, snap.Len())
	require.True(t, snap.Next())
	require.Equal(t, []byte("b"), snap.Key())
}

func TestShardSnapshot_EmptyShardYieldsNothing(t *testing.T) {
	dir := t.TempDir()
	s, err := CreateShard(dir, "snap-c", testShardConfig())
	require.NoError(t, err)
	defer s.Close()

	snap := s.Snapshot()
	require.Equal(t, 0, snap.Len())
	require.False(t, snap.Next())
}
