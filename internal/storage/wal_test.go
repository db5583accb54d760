package storage

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWAL_EmptyInitially(t *testing.T) {
	w := NewWAL()
	require.True(t, w.Empty())
	require.Equal(t, int64(0), w.Len())
	require.Nil(t, w.Oldest())
}

func TestWAL_PutEntryThenRemoveOldestIsFIFO(t *testing.T) {
	w := NewWAL()
	w.PutEntry(1, 2, []byte("a"), [][]byte{[]byte("1")}, 1)
	w.PutEntry(3, 4, []byte("b"), [][]byte{[]byte("2")}, 2)

	require.Equal(t, int64(2), w.Len())

	first := w.Oldest()
	require.Equal(t, "put", first.Op())
	require.Equal(t, []byte("a"), first.Key())

	w.RemoveOldest()
	require.Equal(t, int64(1), w.Len())

	second := w.Oldest()
	require.Equal(t, []byte("b"), second.Key())

	w.RemoveOldest()
	require.True(t, w.Empty())
}

func TestWAL_DelEntryHasNoValue(t *testing.T) {
	w := NewWAL()
	w.DelEntry(9, []byte("k"))

	e := w.Oldest()
	require.Equal(t, "del", e.Op())
	require.Equal(t, []byte("k"), e.Key())
	require.Nil(t, e.Value())
}

func TestWAL_RemoveOldestOnEmptyIsNoop(t *testing.T) {
	w := NewWAL()
	w.RemoveOldest()
	require.True(t, w.Empty())
	require.Equal(t, int64(0), w.Len())
}

func TestWAL_IteratorSnapshotsTailAtCreation(t *testing.T) {
	w := NewWAL()
	w.PutEntry(1, 1, []byte("a"), [][]byte{[]byte("1")}, 1)

	it := w.Iterate()
	w.PutEntry(2, 2, []byte("b"), [][]byte{[]byte("2")}, 2)

	var keys [][]byte
	for it.Next() {
		keys = append(keys, it.Entry().Key())
	}
	require.Equal(t, [][]byte{[]byte("a")}, keys)
}

func TestWAL_IteratorSeesEntriesRemovedDuringIteration(t *testing.T) {
	w := NewWAL()
	w.PutEntry(1, 1, []byte("a"), [][]byte{[]byte("1")}, 1)
	w.PutEntry(2, 2, []byte("b"), [][]byte{[]byte("2")}, 2)

	it := w.Iterate()
	w.RemoveOldest()

	var keys [][]byte
	for it.Next() {
		keys = append(keys, it.Entry().Key())
	}
	require.Equal(t, [][]byte{[]byte("a"), []byte("b")}, keys)
}

func TestWAL_ConcurrentAppendsPreserveAllEntries(t *testing.T) {
	w := NewWAL()
	const producers = 8
	const perProducer = 200

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				w.PutEntry(uint32(p), uint32(i), []byte{byte(p)}, [][]byte{{byte(i)}}, uint64(i))
			}
		}(p)
	}
	wg.Wait()

	require.Equal(t, int64(producers*perProducer), w.Len())

	count := 0
	for it := w.Iterate(); it.Next(); {
		count++
	}
	require.Equal(t, producers*perProducer, count)
}
