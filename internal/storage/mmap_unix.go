//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly || solaris || aix

package storage

import "golang.org/x/sys/unix"

// mmapFile maps the whole of f (which must already be FileSize bytes long)
// read/write, shared with the backing file. The shard's hash table, search
// log, and data segment are all views into the returned slice.
func mmapFile(fd int, size int64) ([]byte, error) {
	return unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

func munmapFile(data []byte) error {
	return unix.Munmap(data)
}

func msyncAsync(data []byte) error {
	return unix.Msync(data, unix.MS_ASYNC)
}

func msyncSync(data []byte) error {
	return unix.Msync(data, unix.MS_SYNC)
}
