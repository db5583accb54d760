package storage

import (
	"bytes"
	"encoding/binary"
)

// Record encoding, shard data segment:
//
//	version:u64  key_size:u32  key_bytes  arity:u16  [attr_size:u32 attr_bytes]*
//
// A delete consumes only an 8-byte placeholder (no key_size/arity follow).
// All integers are little-endian; shard files are not portable between
// machines of differing endianness, and this is a deliberate simplicity
// trade-off rather than an oversight.

func recordSize(key []byte, value [][]byte) int64 {
	size := int64(8 + 4 + len(key) + 2)
	for _, attr := range value {
		size += 4 + int64(len(attr))
	}
	return size
}

func (s *Shard) readUint16(off int64) uint16 {
	return binary.LittleEndian.Uint16(s.data[off : off+2])
}

func (s *Shard) readUint32(off int64) uint32 {
	return binary.LittleEndian.Uint32(s.data[off : off+4])
}

func (s *Shard) readUint64(off int64) uint64 {
	return binary.LittleEndian.Uint64(s.data[off : off+8])
}

func (s *Shard) writeUint16(off int64, v uint16) {
	binary.LittleEndian.PutUint16(s.data[off:off+2], v)
}

func (s *Shard) writeUint32(off int64, v uint32) {
	binary.LittleEndian.PutUint32(s.data[off:off+4], v)
}

func (s *Shard) writeUint64(off int64, v uint64) {
	binary.LittleEndian.PutUint64(s.data[off:off+8], v)
}

// dataVersion reads the version field of the record at off.
func (s *Shard) dataVersion(off int64) uint64 {
	return s.readUint64(off)
}

// dataKeySize reads the key_size field of the record at off.
func (s *Shard) dataKeySize(off int64) uint32 {
	return s.readUint32(off + 8)
}

// dataKeyOffset returns the byte offset of the key bytes of the record at
// off.
func (s *Shard) dataKeyOffset(off int64) int64 {
	return off + 8 + 4
}

// dataKey returns a copy of the key bytes of the record at off, given its
// key size.
func (s *Shard) dataKey(off int64, keySize uint32) []byte {
	start := s.dataKeyOffset(off)
	key := make([]byte, keySize)
	copy(key, s.data[start:start+int64(keySize)])
	return key
}

// dataKeyEquals compares the key bytes of the record at off against key,
// without allocating.
func (s *Shard) dataKeyEquals(off int64, key []byte) bool {
	keySize := s.dataKeySize(off)
	if int(keySize) != len(key) {
		return false
	}
	start := s.dataKeyOffset(off)
	return bytes.Equal(s.data[start:start+int64(keySize)], key)
}

// dataValue decodes the attribute list of the record at off, given the
// preceding key's size.
func (s *Shard) dataValue(off int64, keySize uint32) [][]byte {
	cur := s.dataKeyOffset(off) + int64(keySize)
	arity := s.readUint16(cur)
	cur += 2
	value := make([][]byte, arity)
	for i := uint16(0); i < arity; i++ {
		size := s.readUint32(cur)
		cur += 4
		attr := make([]byte, size)
		copy(attr, s.data[cur:cur+int64(size)])
		value[i] = attr
		cur += int64(size)
	}
	return value
}

// writeRecord writes a full put record at off and returns the offset just
// past its last byte (not yet 8-byte aligned).
func (s *Shard) writeRecord(off int64, key []byte, value [][]byte, version uint64) int64 {
	s.writeUint64(off, version)
	off += 8
	s.writeUint32(off, uint32(len(key)))
	off += 4
	copy(s.data[off:off+int64(len(key))], key)
	off += int64(len(key))
	s.writeUint16(off, uint16(len(value)))
	off += 2
	for _, attr := range value {
		s.writeUint32(off, uint32(len(attr)))
		off += 4
		copy(s.data[off:off+int64(len(attr))], attr)
		off += int64(len(attr))
	}
	return off
}
