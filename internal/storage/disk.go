package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Disk supervises a directory of shards: routing Gets, Puts, and Dels,
// draining the write-ahead log into shards in the background, and keeping
// shards healthy by cleaning stale space or splitting a shard that has
// filled up.
//
// Exactly one goroutine mutates the shard vector or any individual shard's
// contents at a time — flush, clean, and split all serialize through
// mutateMu. Reads never block on that mutex: Get snapshots the WAL's
// iterator cursor before snapshotting the shard vector pointer, closing
// the race against a concurrent flush without taking a lock.
type Disk struct {
	id     string
	dir    string
	cfg    DiskConfig
	hasher Hasher
	log    *slog.Logger
	stats  StatsRecorder

	vector atomic.Pointer[ShardVector]
	wal    *WAL

	mutateMu sync.Mutex

	sparesMu     sync.Mutex
	spares       []spareShard
	spareCounter uint64

	group  *errgroup.Group
	cancel context.CancelFunc
	closed atomic.Bool
}

type spareShard struct {
	name  string
	shard *Shard
}

// DiskConfig bundles Disk's tunables.
type DiskConfig struct {
	// Arity is the number of columns per record, the key included: every
	// record's value must carry Arity-1 attributes. A Put whose value has a
	// different length is rejected with ErrWrongArity.
	Arity int
	// Shard is the on-disk layout new shards are created with.
	Shard ShardConfig
	// MaxSpareShards caps the spare-shard pool Preallocate maintains.
	MaxSpareShards int
	// StaleSpaceCleanThreshold is the StaleSpace() percentage at or above
	// which a full shard is cleaned in place rather than split.
	StaleSpaceCleanThreshold int
	// WALHighWatermark is the queued-entry count at which Put/Del start
	// blocking callers until the flush worker catches up.
	WALHighWatermark int64
	// WALLowWatermark is the queued-entry count flush must drain down to
	// before blocked callers are released.
	WALLowWatermark int64
	// FlushBatchSize is the maximum number of WAL entries one flush pass
	// applies before yielding.
	FlushBatchSize int
}

// DefaultDiskConfig returns production-sized defaults.
func DefaultDiskConfig(arity int) DiskConfig {
	return DiskConfig{
		Arity:                    arity,
		Shard:                    DefaultShardConfig(),
		MaxSpareShards:           16,
		StaleSpaceCleanThreshold: 30,
		WALHighWatermark:         4096,
		WALLowWatermark:          1024,
		FlushBatchSize:           100,
	}
}

// Open opens the shard files in dir, or creates a fresh single shard
// spanning the whole hyperspace if dir is empty. It starts a background
// flush loop that runs until the returned Disk is closed.
func Open(dir string, cfg DiskConfig, hasher Hasher, log *slog.Logger, stats StatsRecorder) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create disk directory: %w", err)
	}

	if log == nil {
		log = slog.Default()
	}
	if stats == nil {
		stats = noopStats{}
	}

	id := uuid.NewString()
	d := &Disk{
		id:     id,
		dir:    dir,
		cfg:    cfg,
		hasher: hasher,
		log:    log.With("component", "disk", "dir", dir, "disk_id", id),
		stats:  stats,
		wal:    NewWAL(),
	}

	coords, shards, spares, spareCounter, err := d.loadShards()
	if err != nil {
		return nil, err
	}
	d.spares = spares
	d.spareCounter = spareCounter

	if len(coords) == 0 {
		start := NewCoordinate(0, 0, 0, 0)
		s, err := d.createShard(start)
		if err != nil {
			return nil, err
		}
		coords = []Coordinate{start}
		shards = []*Shard{s}
	}

	d.vector.Store(NewShardVector(coords, shards))

	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)
	d.cancel = cancel
	d.group = group
	group.Go(func() error { return d.flushLoop(gctx) })

	return d, nil
}

func (d *Disk) loadShards() ([]Coordinate, []*Shard, []spareShard, uint64, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, nil, nil, 0, fmt.Errorf("storage: read disk directory: %w", err)
	}

	var coords []Coordinate
	var shards []*Shard
	var spares []spareShard
	var maxSpareN uint64

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasSuffix(name, "-tmp") {
			continue
		}

		if strings.HasPrefix(name, "spare-") {
			n, err := strconv.ParseUint(strings.TrimPrefix(name, "spare-"), 10, 64)
			if err != nil {
				continue
			}
			s, err := OpenShard(d.dir, name, d.cfg.Shard)
			if err != nil {
				d.log.Warn("skipping unreadable spare shard", "name", name, "error", err)
				continue
			}
			spares = append(spares, spareShard{name: name, shard: s})
			if n+1 > maxSpareN {
				maxSpareN = n + 1
			}
			continue
		}

		coord, ok := parseCoordinateFilename(name)
		if !ok {
			continue
		}
		s, err := OpenShard(d.dir, name, d.cfg.Shard)
		if err != nil {
			return nil, nil, nil, 0, fmt.Errorf("storage: open shard %s: %w", name, err)
		}
		coords = append(coords, coord)
		shards = append(shards, s)
	}

	return coords, shards, spares, maxSpareN, nil
}

func parseCoordinateFilename(name string) (Coordinate, bool) {
	parts := strings.Split(name, "-")
	if len(parts) != 4 {
		return Coordinate{}, false
	}
	vals := make([]uint64, 4)
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 16, 32)
		if err != nil {
			return Coordinate{}, false
		}
		vals[i] = v
	}
	return NewCoordinate(uint32(vals[0]), uint32(vals[1]), uint32(vals[2]), uint32(vals[3])), true
}

// Close stops the background flush loop and unmaps every shard. It does
// not drain any WAL entries still queued.
func (d *Disk) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	d.cancel()
	_ = d.group.Wait()

	var firstErr error
	vec := d.vector.Load()
	for i := 0; i < vec.Size(); i++ {
		if err := vec.Shard(i).Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.sparesMu.Lock()
	for _, sp := range d.spares {
		if err := sp.shard.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.sparesMu.Unlock()
	return firstErr
}

// ID returns a per-open identifier, stable for the lifetime of this Disk
// handle, suitable for correlating log lines and metric labels across an
// open/close cycle.
func (d *Disk) ID() string {
	return d.id
}

// GetCoordinate returns the point coordinate for a bare key, used to route
// reads and deletes.
func (d *Disk) GetCoordinate(key []byte) Coordinate {
	return NewCoordinate(^uint32(0), primaryHash(d.hasher, key), 0, 0)
}

// GetCoordinatePut returns the point coordinate for a key/value pair, used
// to route inserts.
func (d *Disk) GetCoordinatePut(key []byte, value [][]byte) Coordinate {
	return NewCoordinate(^uint32(0), primaryHash(d.hasher, key), ^uint32(0), secondaryHash(d.hasher, value))
}

// Get looks up key, overlaying any unflushed WAL writes on top of shard
// contents. The WAL's iterator cursor is captured before the shard vector
// pointer is loaded, so a flush racing this call cannot make the two views
// inconsistent: either this call sees an entry in the WAL and never needs
// the shard result, or it doesn't, in which case the entry (if any) was
// already applied to a shard before the vector snapshot was taken.
func (d *Disk) Get(key []byte) ([][]byte, uint64, error) {
	coord := d.GetCoordinate(key)
	it := d.wal.Iterate()
	vec := d.vector.Load()

	shardRes := ErrKeyNotFound
	var shardValue [][]byte
	var shardVersion uint64

	for i := 0; i < vec.Size(); i++ {
		if !vec.Coordinate(i).PrimaryContains(coord) {
			continue
		}
		value, version, err := vec.Shard(i).Get(coord.PrimaryHash, key)
		if err == nil {
			shardValue, shardVersion, shardRes = value, version, nil
			break
		}
	}

	found := false
	walRes := error(ErrKeyNotFound)
	var walValue [][]byte
	var walVersion uint64

	for it.Next() {
		e := it.Entry()
		if !bytes.Equal(e.Key(), key) {
			continue
		}
		entryCoord := NewCoordinate(^uint32(0), e.PrimaryHash(), 0, 0)
		if !entryCoord.PrimaryContains(coord) {
			continue
		}
		found = true
		if e.op == walPut {
			walValue, walVersion, walRes = e.Value(), e.Version(), nil
		} else {
			walRes = ErrKeyNotFound
		}
	}

	if found {
		return walValue, walVersion, walRes
	}
	return shardValue, shardVersion, shardRes
}

// Put queues an insert of key/value at version. The write lands in a shard
// asynchronously via the background flush loop; Put blocks only if the WAL
// has backed up past its high watermark, and that wait is cancelable via ctx.
func (d *Disk) Put(ctx context.Context, key []byte, value [][]byte, version uint64) error {
	if len(value)+1 != d.cfg.Arity {
		return ErrWrongArity
	}
	if err := d.waitForWALRoom(ctx); err != nil {
		return err
	}
	ph := primaryHash(d.hasher, key)
	sh := secondaryHash(d.hasher, value)
	d.wal.PutEntry(ph, sh, key, value, version)
	d.stats.WALDepth(d.wal.Len())
	return nil
}

// Del queues a delete of key.
func (d *Disk) Del(ctx context.Context, key []byte) error {
	if err := d.waitForWALRoom(ctx); err != nil {
		return err
	}
	ph := primaryHash(d.hasher, key)
	d.wal.DelEntry(ph, key)
	d.stats.WALDepth(d.wal.Len())
	return nil
}

// waitForWALRoom applies hysteresis: once the queue crosses the high
// watermark, a caller blocks until flush has drained it all the way down to
// the low watermark, rather than the instant it dips back under High. Without
// that gap, a flush loop running concurrently with steady producers would
// release and re-block callers on nearly every iteration.
func (d *Disk) waitForWALRoom(ctx context.Context) error {
	if d.wal.Len() < d.cfg.WALHighWatermark {
		return nil
	}
	for d.wal.Len() > d.cfg.WALLowWatermark {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			runtime.Gosched()
		}
	}
	return nil
}

// Async requests an asynchronous msync of every shard.
func (d *Disk) Async() error {
	vec := d.vector.Load()
	var err error
	for i := 0; i < vec.Size(); i++ {
		if serr := vec.Shard(i).Async(); serr != nil {
			err = ErrSyncFailed
		}
	}
	return err
}

// Sync synchronously msyncs every shard.
func (d *Disk) Sync() error {
	vec := d.vector.Load()
	var err error
	for i := 0; i < vec.Size(); i++ {
		if serr := vec.Shard(i).Sync(); serr != nil {
			err = ErrSyncFailed
		}
	}
	return err
}

// Drop closes and removes every shard file and the disk directory itself.
// It first stops the background flush loop, so no spare shard is created
// while the directory is being emptied; a later Close is a no-op.
func (d *Disk) Drop() error {
	if d.closed.CompareAndSwap(false, true) {
		d.cancel()
		_ = d.group.Wait()
	}

	d.mutateMu.Lock()
	defer d.mutateMu.Unlock()

	vec := d.vector.Load()
	failed := false
	for i := 0; i < vec.Size(); i++ {
		coord := vec.Coordinate(i)
		_ = vec.Shard(i).Close()
		if err := os.Remove(filepath.Join(d.dir, coord.Filename())); err != nil {
			failed = true
		}
	}

	d.sparesMu.Lock()
	for _, sp := range d.spares {
		_ = sp.shard.Close()
		if err := os.Remove(filepath.Join(d.dir, sp.name)); err != nil {
			failed = true
		}
	}
	d.sparesMu.Unlock()

	if failed {
		return ErrDropFailed
	}
	if err := os.Remove(d.dir); err != nil {
		return ErrDropFailed
	}
	return nil
}

// Snapshot returns one ShardSnapshot per shard currently in the shard
// vector, covering every live record as of this call. There is no
// disk-wide rolling snapshot: a caller that needs one composes these.
func (d *Disk) Snapshot() []*ShardSnapshot {
	vec := d.vector.Load()
	out := make([]*ShardSnapshot, vec.Size())
	for i := 0; i < vec.Size(); i++ {
		out[i] = vec.Shard(i).Snapshot()
	}
	return out
}

// flushLoop drains the WAL into shards until ctx is cancelled.
func (d *Disk) flushLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := d.flush(); err != nil {
			d.log.Error("flush failed", "error", err)
		}
		if err := d.preallocate(); err != nil {
			d.log.Warn("preallocate failed", "error", err)
		}

		if d.wal.Empty() {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Millisecond):
			}
		}
	}
}

// flush applies up to cfg.FlushBatchSize queued WAL entries to shards. It
// returns without blocking if another mutation (a concurrent clean or
// split, or a concurrent flush) already holds mutateMu — the caller is
// expected to retry on its own schedule, and skipping a pass costs little
// since several producers are typically enqueueing concurrently anyway.
func (d *Disk) flush() error {
	if !d.mutateMu.TryLock() {
		return nil
	}
	defer d.mutateMu.Unlock()

	for i := 0; i < d.cfg.FlushBatchSize && !d.wal.Empty(); i++ {
		e := d.wal.Oldest()
		if e == nil {
			break
		}

		deleted := false
		vec := d.vector.Load()
		primaryCoord := NewCoordinate(^uint32(0), e.PrimaryHash(), 0, 0)

		for i := 0; !deleted && i < vec.Size(); i++ {
			if !vec.Coordinate(i).PrimaryContains(primaryCoord) {
				continue
			}
			switch err := vec.Shard(i).Del(e.PrimaryHash(), e.Key()); err {
			case nil:
				deleted = true
			case ErrKeyNotFound:
			default:
				if isFullErr(err) {
					if derr := d.dealWithFullShard(i); derr != nil {
						return derr
					}
					return nil
				}
				return err
			}
		}

		if e.op == walPut {
			inserted := false
			pointCoord := NewCoordinate(^uint32(0), e.PrimaryHash(), ^uint32(0), e.SecondaryHash())
			vec = d.vector.Load()

			// Routing a put scans from the highest index down, mirroring
			// the original engine this is ported from.
			for i := vec.Size() - 1; !inserted && i >= 0; i-- {
				if !vec.Coordinate(i).Contains(pointCoord) {
					continue
				}
				err := vec.Shard(i).Put(e.PrimaryHash(), e.SecondaryHash(), e.Key(), e.Value(), e.Version())
				switch err {
				case nil:
					inserted = true
				default:
					if isFullErr(err) {
						if derr := d.dealWithFullShard(i); derr != nil {
							return derr
						}
						return nil
					}
					return err
				}
			}
		}

		d.wal.RemoveOldest()
		d.stats.WALDepth(d.wal.Len())
	}

	return nil
}

// dealWithFullShard decides whether a shard that just reported DataFull,
// HashFull, or SearchFull should be cleaned in place or split four ways.
func (d *Disk) dealWithFullShard(i int) error {
	vec := d.vector.Load()
	shard := vec.Shard(i)
	coord := vec.Coordinate(i)

	if shard.StaleSpace() >= d.cfg.StaleSpaceCleanThreshold {
		return d.cleanShard(i)
	}
	if coord.PrimaryMask == ^uint32(0) && coord.SecondaryMask == ^uint32(0) {
		// The shard already spans a single point in both halves of the
		// hyperspace and cannot be split any further.
		return ErrSplitFailed
	}
	return d.splitShard(i)
}

// cleanShard rewrites shard i into a fresh, compacted file covering the
// same coordinate, reclaiming space occupied by invalidated records.
func (d *Disk) cleanShard(i int) error {
	vec := d.vector.Load()
	coord := vec.Coordinate(i)
	old := vec.Shard(i)

	fresh, err := d.createTmpShard(coord)
	if err != nil {
		return err
	}

	if err := old.CopyTo(coord, fresh); err != nil {
		_ = fresh.Close()
		_ = os.Remove(filepath.Join(d.dir, coord.TmpFilename()))
		return err
	}

	if err := os.Rename(
		filepath.Join(d.dir, coord.TmpFilename()),
		filepath.Join(d.dir, coord.Filename()),
	); err != nil {
		_ = fresh.Close()
		return fmt.Errorf("storage: rename cleaned shard: %w", err)
	}

	newVec := vec.Replace(i, coord, fresh)
	d.vector.Store(newVec)

	_ = old.Close()
	d.stats.ShardCleaned()
	return nil
}

// splitShard splits shard i into four narrower shards, choosing split bits
// by minimizing the zeros/ones imbalance each candidate bit would leave
// behind, first over the secondary hash and then, within each secondary
// half, over the primary hash.
func (d *Disk) splitShard(i int) error {
	vec := d.vector.Load()
	coord := vec.Coordinate(i)
	old := vec.Shard(i)

	secondaryZeros, secondaryOnes := secondaryBitCounts(old, coord)
	secondarySplit := whichToSplit(coord.SecondaryMask, secondaryZeros, secondaryOnes)
	secondaryBit := uint32(1) << secondarySplit

	lowerZeros, lowerOnes, upperZeros, upperOnes := primaryBitCounts(old, coord, secondaryBit)
	primaryLowerSplit := whichToSplit(coord.PrimaryMask, lowerZeros, lowerOnes)
	primaryUpperSplit := whichToSplit(coord.PrimaryMask, upperZeros, upperOnes)
	primaryLowerBit := uint32(1) << primaryLowerSplit
	primaryUpperBit := uint32(1) << primaryUpperSplit

	coords := [4]Coordinate{
		NewCoordinate(coord.PrimaryMask|primaryLowerBit, coord.PrimaryHash,
			coord.SecondaryMask|secondaryBit, coord.SecondaryHash),
		NewCoordinate(coord.PrimaryMask|primaryUpperBit, coord.PrimaryHash,
			coord.SecondaryMask|secondaryBit, coord.SecondaryHash|secondaryBit),
		NewCoordinate(coord.PrimaryMask|primaryLowerBit, coord.PrimaryHash|primaryLowerBit,
			coord.SecondaryMask|secondaryBit, coord.SecondaryHash),
		NewCoordinate(coord.PrimaryMask|primaryUpperBit, coord.PrimaryHash|primaryUpperBit,
			coord.SecondaryMask|secondaryBit, coord.SecondaryHash|secondaryBit),
	}

	var shards [4]*Shard
	for k, c := range coords {
		s, err := d.createShard(c)
		if err != nil {
			for j := 0; j < k; j++ {
				_ = shards[j].Close()
				_ = os.Remove(filepath.Join(d.dir, coords[j].Filename()))
			}
			return ErrSplitFailed
		}
		if err := old.CopyTo(c, s); err != nil {
			for j := 0; j < k; j++ {
				_ = shards[j].Close()
				_ = os.Remove(filepath.Join(d.dir, coords[j].Filename()))
			}
			_ = s.Close()
			_ = os.Remove(filepath.Join(d.dir, c.Filename()))
			return ErrSplitFailed
		}
		shards[k] = s
	}

	newVec := vec.Replace4(i, coords, shards)
	d.vector.Store(newVec)

	_ = old.Close()
	_ = os.Remove(filepath.Join(d.dir, coord.Filename()))
	d.stats.ShardSplit()
	return nil
}

// secondaryBitCounts tallies, for every secondary-hash bit not already
// fixed by coord's mask, how many of shard's live records have that bit
// set versus clear.
func secondaryBitCounts(shard *Shard, coord Coordinate) (zeros, ones [32]int) {
	snap := shard.Snapshot()
	for snap.Next() {
		sh := snap.SecondaryHash()
		for bit := 1; bit < 32; bit++ {
			mask := uint32(1) << uint(bit)
			if coord.SecondaryMask&mask != 0 {
				continue
			}
			if sh&mask != 0 {
				ones[bit]++
			} else {
				zeros[bit]++
			}
		}
	}
	return
}

// primaryBitCounts tallies primary-hash bit imbalance separately for
// records on each side of secondaryBit, matching the two child coordinates
// that side of the split will produce.
func primaryBitCounts(shard *Shard, coord Coordinate, secondaryBit uint32) (lowerZeros, lowerOnes, upperZeros, upperOnes [32]int) {
	snap := shard.Snapshot()
	for snap.Next() {
		ph := snap.PrimaryHash()
		sh := snap.SecondaryHash()
		upper := sh&secondaryBit != 0

		for bit := 1; bit < 32; bit++ {
			mask := uint32(1) << uint(bit)
			if coord.PrimaryMask&mask != 0 {
				continue
			}
			set := ph&mask != 0
			switch {
			case upper && set:
				upperOnes[bit]++
			case upper && !set:
				upperZeros[bit]++
			case !upper && set:
				lowerOnes[bit]++
			case !upper && !set:
				lowerZeros[bit]++
			}
		}
	}
	return
}

// whichToSplit picks the clear bit (ignoring bit 0, which is never chosen)
// in mask whose zeros/ones imbalance among candidate values is smallest —
// the split expected to divide live records most evenly.
func whichToSplit(mask uint32, zeros, ones [32]int) int {
	bestDiff := int(^uint(0) >> 1) // max int
	bestPos := 0

	for i := 1; i < 32; i++ {
		if mask&(1<<uint(i)) != 0 {
			continue
		}
		diff := ones[i] - zeros[i]
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			bestPos = i
			bestDiff = diff
		}
	}
	return bestPos
}

// preallocate tops up the spare-shard pool so that createShard rarely has
// to pay the cost of zero-filling a fresh file on the hot path. Each shard
// adds to the target count by its free and stale percentages: nothing when
// at most 25% is free; one when at most 50% is free, or when 30% or more is
// stale; otherwise two when at most 75% is free and four above that. The
// pool is never grown past MaxSpareShards.
func (d *Disk) preallocate() error {
	d.sparesMu.Lock()
	existing := len(d.spares)
	d.sparesMu.Unlock()

	if existing >= d.cfg.MaxSpareShards {
		return nil
	}

	vec := d.vector.Load()
	target := 0
	for i := 0; i < vec.Size(); i++ {
		shard := vec.Shard(i)
		free := shard.FreeSpace()
		stale := shard.StaleSpace()

		switch {
		case free <= 25:
			target += 0
		case free <= 50:
			target += 1
		case free <= 75:
			if stale >= 30 {
				target += 1
			} else {
				target += 2
			}
		default:
			if stale >= 30 {
				target += 1
			} else {
				target += 4
			}
		}
	}

	toCreate := target - existing
	if toCreate <= 0 {
		return nil
	}
	if existing+toCreate > d.cfg.MaxSpareShards {
		toCreate = d.cfg.MaxSpareShards - existing
	}

	for i := 0; i < toCreate; i++ {
		d.sparesMu.Lock()
		n := d.spareCounter
		d.spareCounter++
		d.sparesMu.Unlock()

		name := fmt.Sprintf("spare-%d", n)
		s, err := CreateShard(d.dir, name, d.cfg.Shard)
		if err != nil {
			return err
		}

		d.sparesMu.Lock()
		d.spares = append(d.spares, spareShard{name: name, shard: s})
		d.sparesMu.Unlock()
	}

	return nil
}

// createShard returns a shard file for coord, reusing and renaming a spare
// from the pool when one is available instead of paying the cost of
// zero-filling a fresh file.
func (d *Disk) createShard(coord Coordinate) (*Shard, error) {
	return d.createNamed(coord.Filename())
}

// createTmpShard is createShard for the -tmp file a clean or split builds
// before it is renamed into place.
func (d *Disk) createTmpShard(coord Coordinate) (*Shard, error) {
	return d.createNamed(coord.TmpFilename())
}

func (d *Disk) createNamed(name string) (*Shard, error) {
	d.sparesMu.Lock()
	var spare spareShard
	haveSpare := len(d.spares) > 0
	if haveSpare {
		spare = d.spares[0]
		d.spares = d.spares[1:]
	}
	d.sparesMu.Unlock()

	if haveSpare {
		if err := os.Rename(filepath.Join(d.dir, spare.name), filepath.Join(d.dir, name)); err != nil {
			return nil, fmt.Errorf("storage: rename spare shard: %w", err)
		}
		return spare.shard, nil
	}

	return CreateShard(d.dir, name, d.cfg.Shard)
}
