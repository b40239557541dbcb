package store

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"syscall"
)

// FSDirectory stores files as ordinary OS files under a root path. Each
// open IndexInput keeps its own pooled *os.File (see handlepool.go) so
// Reopen never contends with other readers on a single descriptor.
type FSDirectory struct {
	root string

	mu    sync.Mutex
	pools map[string]*handlePool

	handlePoolSize int
}

// NewFSDirectory opens root (creating it if necessary) as an FSDirectory.
// handlePoolSize bounds the number of pooled duplicate descriptors per
// open file; 0 selects defaultHandlePoolSize.
func NewFSDirectory(root string, handlePoolSize int) (*FSDirectory, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FSDirectory{
		root:           root,
		pools:          make(map[string]*handlePool),
		handlePoolSize: handlePoolSize,
	}, nil
}

func (d *FSDirectory) path(name string) string {
	return filepath.Join(d.root, name)
}

func (d *FSDirectory) Create(name string) (IndexOutput, error) {
	f, err := os.OpenFile(d.path(name), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	return &fsOutput{bufferedOutput: newBufferedOutput(f, 1024), f: f}, nil
}

func (d *FSDirectory) pool(name string) *handlePool {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pools[name]
	if !ok {
		p = newHandlePool(d.path(name), d.handlePoolSize)
		d.pools[name] = p
	}
	return p
}

func (d *FSDirectory) Open(name string, advice Advice) (IndexInput, error) {
	p := d.pool(name)
	f, pooled, err := p.acquire()
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		p.release(f, pooled)
		return nil, err
	}
	in := &fsInput{
		pool:   p,
		f:      f,
		pooled: pooled,
	}
	in.bufferedInput = newBufferedInput(in, fi.Size(), advice.bufferSize())
	return in, nil
}

func (d *FSDirectory) Exists(name string) bool {
	_, err := os.Stat(d.path(name))
	return err == nil
}

func (d *FSDirectory) Length(name string) (int64, error) {
	fi, err := os.Stat(d.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return fi.Size(), nil
}

func (d *FSDirectory) Mtime(name string) (int64, error) {
	fi, err := os.Stat(d.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return fi.ModTime().UnixNano(), nil
}

func (d *FSDirectory) Remove(name string) error {
	d.mu.Lock()
	if p, ok := d.pools[name]; ok {
		p.closeAll()
		delete(d.pools, name)
	}
	d.mu.Unlock()
	if err := os.Remove(d.path(name)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (d *FSDirectory) Rename(oldName, newName string) error {
	d.mu.Lock()
	if p, ok := d.pools[oldName]; ok {
		p.closeAll()
		delete(d.pools, oldName)
	}
	d.mu.Unlock()
	return os.Rename(d.path(oldName), d.path(newName))
}

func (d *FSDirectory) Sync(name string) error {
	f, err := os.Open(d.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	defer f.Close()
	return f.Sync()
}

func (d *FSDirectory) Visit(f func(name string) error) error {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := f(e.Name()); err != nil {
			return err
		}
	}
	return nil
}

func (d *FSDirectory) MakeLock(name string) Lock {
	return &fsLock{path: d.path(name)}
}

func (d *FSDirectory) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for name, p := range d.pools {
		p.closeAll()
		delete(d.pools, name)
	}
	return nil
}

type fsOutput struct {
	*bufferedOutput
	f      *os.File
	closed bool
}

func (o *fsOutput) Close() error {
	if o.closed {
		return nil
	}
	o.closed = true
	if err := o.flush(); err != nil {
		o.f.Close()
		return err
	}
	return o.f.Close()
}

// fsInput implements io.ReaderAt over its pooled *os.File so bufferedInput
// can seek and re-fill its window without the caller ever calling
// f.Seek directly, which would race with other holders of the same
// descriptor.
type fsInput struct {
	*bufferedInput
	pool   *handlePool
	f      *os.File
	pooled bool
	shared bool
	closed bool
}

func (in *fsInput) ReadAt(p []byte, off int64) (int, error) {
	return in.f.ReadAt(p, off)
}

// Dup shares in.f with the new cursor; the dup's Close is a no-op since
// ownership of the descriptor stays with in.
func (in *fsInput) Dup() (IndexInput, error) {
	dup := &fsInput{pool: in.pool, f: in.f, shared: true}
	dup.bufferedInput = newBufferedInput(dup, in.Length(), in.bufSize)
	return dup, nil
}

func (in *fsInput) Reopen() (IndexInput, error) {
	f, pooled, err := in.pool.acquire()
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		in.pool.release(f, pooled)
		return nil, err
	}
	dup := &fsInput{pool: in.pool, f: f, pooled: pooled}
	dup.bufferedInput = newBufferedInput(dup, fi.Size(), in.bufSize)
	return dup, nil
}

func (in *fsInput) Close() error {
	if in.closed {
		return nil
	}
	in.closed = true
	if in.shared {
		return nil
	}
	in.pool.release(in.f, in.pooled)
	return nil
}

// fsLock is a cross-process advisory lock implemented with flock(2) over a
// sentinel file, refusing re-acquisition by the same handle the way
// spec.md §4.1 requires.
type fsLock struct {
	path   string
	f      *os.File
	locked bool
}

func (l *fsLock) Lock() error {
	if l.locked {
		return ErrLockHeld
	}
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return ErrLockHeld
	}
	l.f = f
	l.locked = true
	return nil
}

// IsLocked reports the actual on-disk lock state, not just whether this
// particular Lock value is the holder: a probe file is opened and a
// non-blocking exclusive flock is attempted and immediately released.
// Failure to acquire it means some other handle (this process or
// another) currently holds it.
func (l *fsLock) IsLocked() bool {
	if l.locked {
		return true
	}
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return false
	}
	defer f.Close()
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		return true
	}
	syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	return false
}

func (l *fsLock) Unlock() error {
	if !l.locked {
		return ErrLockHeld
	}
	err := syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	l.f.Close()
	l.f = nil
	l.locked = false
	return err
}

var _ io.ReaderAt = (*fsInput)(nil)
