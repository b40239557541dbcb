package store

import (
	"os"
	"sync"
	"syscall"
)

// MMapDirectory serves reads out of a read-only mmap(2) mapping of the
// file instead of a pooled descriptor; bufferedInput still copies each
// window out of the mapping.
// Writes still go through a plain *os.File, mmap has nothing to offer an
// append-only writer.
type MMapDirectory struct {
	fs *FSDirectory
}

// NewMMapDirectory opens root the same way FSDirectory does; only Open
// behaves differently, mapping the file read-only instead of pooling
// descriptors.
func NewMMapDirectory(root string, handlePoolSize int) (*MMapDirectory, error) {
	fs, err := NewFSDirectory(root, handlePoolSize)
	if err != nil {
		return nil, err
	}
	return &MMapDirectory{fs: fs}, nil
}

func (d *MMapDirectory) Create(name string) (IndexOutput, error) { return d.fs.Create(name) }

func (d *MMapDirectory) Open(name string, advice Advice) (IndexInput, error) {
	f, err := os.Open(d.fs.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	size := fi.Size()
	if size == 0 {
		f.Close()
		in := &mmapInput{shared: new(mmapShared)}
		in.bufferedInput = newBufferedInput(in, 0, advice.bufferSize())
		return in, nil
	}
	data, err := syscall.Mmap(int(f.Fd()), 0, int(size), syscall.PROT_READ, syscall.MAP_SHARED)
	f.Close()
	if err != nil {
		return nil, err
	}
	shared := &mmapShared{data: data, refs: 1}
	in := &mmapInput{shared: shared, owner: true}
	in.bufferedInput = newBufferedInput(in, size, advice.bufferSize())
	return in, nil
}

func (d *MMapDirectory) Exists(name string) bool               { return d.fs.Exists(name) }
func (d *MMapDirectory) Length(name string) (int64, error)     { return d.fs.Length(name) }
func (d *MMapDirectory) Mtime(name string) (int64, error)      { return d.fs.Mtime(name) }
func (d *MMapDirectory) Remove(name string) error               { return d.fs.Remove(name) }
func (d *MMapDirectory) Rename(oldName, newName string) error   { return d.fs.Rename(oldName, newName) }
func (d *MMapDirectory) Sync(name string) error                 { return d.fs.Sync(name) }
func (d *MMapDirectory) Visit(f func(name string) error) error  { return d.fs.Visit(f) }
func (d *MMapDirectory) MakeLock(name string) Lock               { return d.fs.MakeLock(name) }
func (d *MMapDirectory) Close() error                            { return d.fs.Close() }

// mmapShared is the underlying mapping, refcounted across Dup/Reopen so it
// is unmapped exactly once.
type mmapShared struct {
	mu     sync.Mutex
	data   []byte
	refs   int
	closed bool
}

func (s *mmapShared) ref() {
	s.mu.Lock()
	s.refs++
	s.mu.Unlock()
}

func (s *mmapShared) unref() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs--
	if s.refs <= 0 && !s.closed && s.data != nil {
		s.closed = true
		syscall.Munmap(s.data)
	}
}

type mmapInput struct {
	*bufferedInput
	shared *mmapShared
	owner  bool
	closed bool
}

func (in *mmapInput) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(in.shared.data)) {
		return 0, ErrOutOfRange
	}
	n := copy(p, in.shared.data[off:])
	if n < len(p) {
		return n, nil
	}
	return n, nil
}

func (in *mmapInput) Dup() (IndexInput, error) {
	in.shared.ref()
	dup := &mmapInput{shared: in.shared, owner: true}
	dup.bufferedInput = newBufferedInput(dup, in.Length(), in.bufSize)
	return dup, nil
}

func (in *mmapInput) Reopen() (IndexInput, error) {
	return in.Dup()
}

func (in *mmapInput) Close() error {
	if in.closed {
		return nil
	}
	in.closed = true
	if in.owner {
		in.shared.unref()
	}
	return nil
}
