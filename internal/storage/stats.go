package storage

// StatsRecorder receives Disk's operational signals. Disk depends only on
// this narrow interface, not on any concrete metrics backend — the
// internal/metrics package provides a Prometheus-backed implementation,
// and tests can supply their own.
type StatsRecorder interface {
	// WALDepth reports the current number of entries queued in the WAL.
	WALDepth(n int64)
	// ShardCleaned reports that a full shard was rewritten in place to
	// reclaim stale space.
	ShardCleaned()
	// ShardSplit reports that a full shard was split into four.
	ShardSplit()
}

type noopStats struct{}

func (noopStats) WALDepth(int64)   {}
func (noopStats) ShardCleaned()    {}
func (noopStats) ShardSplit()      {}
