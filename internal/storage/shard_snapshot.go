package storage

// ShardSnapshot iterates the records that were live in a Shard at the
// instant Shard.Snapshot was called. The set of records is fixed at
// creation — it does not track subsequent Puts or Dels against the shard
// that produced it.
type ShardSnapshot struct {
	records []liveRecord
	pos     int
}

// Next advances the iterator and reports whether a record is available.
// Call Next before the first Key/Value/Version/PrimaryHash/SecondaryHash.
func (s *ShardSnapshot) Next() bool {
	if s.pos >= len(s.records) {
		return false
	}
	s.pos++
	return true
}

func (s *ShardSnapshot) current() liveRecord {
	return s.records[s.pos-1]
}

// Key returns the current record's key.
func (s *ShardSnapshot) Key() []byte { return s.current().key }

// Value returns the current record's attribute list.
func (s *ShardSnapshot) Value() [][]byte { return s.current().value }

// Version returns the current record's version.
func (s *ShardSnapshot) Version() uint64 { return s.current().version }

// PrimaryHash returns the current record's primary hash.
func (s *ShardSnapshot) PrimaryHash() uint32 { return s.current().primaryHash }

// SecondaryHash returns the current record's secondary hash.
func (s *ShardSnapshot) SecondaryHash() uint32 { return s.current().secondaryHash }

// Len reports the total number of records in the snapshot.
func (s *ShardSnapshot) Len() int { return len(s.records) }
