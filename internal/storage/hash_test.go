package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestXXHasher_Deterministic(t *testing.T) {
	h := XXHasher{}
	a := h.Hash([]byte("hello"))
	b := h.Hash([]byte("hello"))
	require.Equal(t, a, b)
}

func TestSecondaryHash_VariesWithValue(t *testing.T) {
	h := XXHasher{}
	a := secondaryHash(h, [][]byte{[]byte("v1")})
	b := secondaryHash(h, [][]byte{[]byte("v2")})
	require.NotEqual(t, a, b)
}

func TestSecondaryHash_IgnoresKey(t *testing.T) {
	d := &Disk{hasher: XXHasher{}}
	value := [][]byte{[]byte("same-value")}
	a := d.GetCoordinatePut([]byte("key-a"), value).SecondaryHash
	b := d.GetCoordinatePut([]byte("key-b"), value).SecondaryHash
	require.Equal(t, a, b, "secondaryHash must depend only on value, not on key")
}

func TestPrimaryHash_IgnoresValue(t *testing.T) {
	d := &Disk{hasher: XXHasher{}}
	key := []byte("k")
	a := d.GetCoordinatePut(key, [][]byte{[]byte("v1")}).PrimaryHash
	b := d.GetCoordinatePut(key, [][]byte{[]byte("v2")}).PrimaryHash
	require.Equal(t, a, b)
}
