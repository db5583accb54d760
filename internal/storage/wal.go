package storage

import "sync/atomic"

// walOp identifies the kind of mutation a WALEntry records.
type walOp int

const (
	walPut walOp = iota
	walDel
)

// WALEntry is one pending mutation sitting in the write-ahead log, waiting
// for Disk.flush to apply it to a shard. Unlike the on-disk WAL this
// replaces, entries never touch a file: the log exists purely to decouple
// the caller's Put/Del from the single-mutator shard-write path, and to let
// readers see their own writes before a flush has run.
type WALEntry struct {
	op      walOp
	key     []byte
	value   [][]byte
	version uint64

	primaryHash   uint32
	secondaryHash uint32

	next atomic.Pointer[WALEntry]
}

// Op reports whether this entry is a put or a delete.
func (e *WALEntry) Op() string {
	if e.op == walDel {
		return "del"
	}
	return "put"
}

// Key returns the entry's key.
func (e *WALEntry) Key() []byte { return e.key }

// Value returns the entry's attribute list. Empty for a delete.
func (e *WALEntry) Value() [][]byte { return e.value }

// Version returns the entry's version. Zero for a delete.
func (e *WALEntry) Version() uint64 { return e.version }

// PrimaryHash returns the entry's primary routing hash.
func (e *WALEntry) PrimaryHash() uint32 { return e.primaryHash }

// SecondaryHash returns the entry's secondary routing hash. Zero for a
// delete, which routes on primary hash alone.
func (e *WALEntry) SecondaryHash() uint32 { return e.secondaryHash }

// WAL is an in-memory, lock-free, multiple-producer/single-consumer FIFO.
// Any number of goroutines may call Append concurrently; Oldest,
// RemoveOldest, and Empty are for the exclusive use of Disk's single flush
// worker. Iterate may be called by any number of concurrent readers and
// never blocks a producer.
//
// The queue is the classic Michael-Scott lock-free queue, restricted here
// to a single consumer: producers race only against each other on the tail
// pointer, and the consumer advances the head pointer alone.
type WAL struct {
	head   atomic.Pointer[WALEntry]
	tail   atomic.Pointer[WALEntry]
	length atomic.Int64
}

// NewWAL returns an empty WAL.
func NewWAL() *WAL {
	sentinel := &WALEntry{}
	w := &WAL{}
	w.head.Store(sentinel)
	w.tail.Store(sentinel)
	return w
}

// Append enqueues e. Safe for concurrent use by multiple producers.
func (w *WAL) Append(e *WALEntry) {
	e.next.Store(nil)
	for {
		tail := w.tail.Load()
		next := tail.next.Load()
		if next == nil {
			if tail.next.CompareAndSwap(nil, e) {
				w.tail.CompareAndSwap(tail, e)
				break
			}
			continue
		}
		// Another producer linked a node but hasn't advanced tail yet; help
		// it along before retrying our own insert.
		w.tail.CompareAndSwap(tail, next)
	}
	w.length.Add(1)
}

// PutEntry builds and appends a put entry.
func (w *WAL) PutEntry(primaryHash, secondaryHash uint32, key []byte, value [][]byte, version uint64) {
	w.Append(&WALEntry{
		op:            walPut,
		key:           key,
		value:         value,
		version:       version,
		primaryHash:   primaryHash,
		secondaryHash: secondaryHash,
	})
}

// DelEntry builds and appends a delete entry.
func (w *WAL) DelEntry(primaryHash uint32, key []byte) {
	w.Append(&WALEntry{
		op:          walDel,
		key:         key,
		primaryHash: primaryHash,
	})
}

// Len returns the approximate number of entries currently queued. It is
// exact with a single consumer and no concurrent Appends, and is the basis
// for Disk's WAL backpressure high/low water marks.
func (w *WAL) Len() int64 {
	return w.length.Load()
}

// Empty reports whether the queue has no entries.
func (w *WAL) Empty() bool {
	return w.head.Load().next.Load() == nil
}

// Oldest returns the first unconsumed entry without removing it, or nil if
// the queue is empty. Single-consumer only.
func (w *WAL) Oldest() *WALEntry {
	return w.head.Load().next.Load()
}

// RemoveOldest drops the first unconsumed entry. It is a no-op on an empty
// queue. Single-consumer only.
func (w *WAL) RemoveOldest() {
	old := w.head.Load()
	next := old.next.Load()
	if next == nil {
		return
	}
	w.head.Store(next)
	w.length.Add(-1)
}

// WALIterator is a read-only snapshot walk over a WAL, used by Get to
// overlay unflushed writes on top of shard contents. The snapshot's
// endpoint is fixed at Iterate time; entries appended afterward are not
// visited, and entries removed by the flush worker during the walk remain
// reachable because RemoveOldest only ever advances WAL.head, never frees
// or mutates the nodes an in-flight iterator still holds.
type WALIterator struct {
	cur      *WALEntry
	end      *WALEntry
	finished bool
}

// Iterate returns an iterator over every entry queued at the moment of the
// call, oldest first.
func (w *WAL) Iterate() *WALIterator {
	return &WALIterator{cur: w.head.Load(), end: w.tail.Load()}
}

// Next advances the iterator and reports whether an entry is available.
func (it *WALIterator) Next() bool {
	if it.finished || it.cur == it.end {
		it.finished = true
		return false
	}
	next := it.cur.next.Load()
	if next == nil {
		it.finished = true
		return false
	}
	it.cur = next
	if it.cur == it.end {
		it.finished = true
	}
	return true
}

// Entry returns the iterator's current entry.
func (it *WALIterator) Entry() *WALEntry {
	return it.cur
}
