package store

import "sync"

// TrackingDirectory decorates a Directory, recording every filename it
// creates (and, if configured, opens) so a SegmentWriter can later hand
// its whole working set to a segment_meta or drop it on reset without
// walking the underlying directory listing. Per spec.md §5 ("Tracking
// directories").
type TrackingDirectory struct {
	Directory
	trackOpens bool

	mu      sync.Mutex
	created map[string]struct{}
}

// NewTrackingDirectory wraps under. trackOpens additionally records names
// passed to Open, not just Create.
func NewTrackingDirectory(under Directory, trackOpens bool) *TrackingDirectory {
	return &TrackingDirectory{
		Directory:  under,
		trackOpens: trackOpens,
		created:    make(map[string]struct{}),
	}
}

func (d *TrackingDirectory) Create(name string) (IndexOutput, error) {
	out, err := d.Directory.Create(name)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.created[name] = struct{}{}
	d.mu.Unlock()
	return out, nil
}

func (d *TrackingDirectory) Open(name string, advice Advice) (IndexInput, error) {
	in, err := d.Directory.Open(name, advice)
	if err != nil {
		return nil, err
	}
	if d.trackOpens {
		d.mu.Lock()
		d.created[name] = struct{}{}
		d.mu.Unlock()
	}
	return in, nil
}

// SwapTracked atomically exchanges the tracked set with an empty one and
// returns what was tracked, transferring ownership to the caller (per
// spec.md's "swap_tracked(set) atomically exchanges the tracked set").
func (d *TrackingDirectory) SwapTracked() map[string]struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	old := d.created
	d.created = make(map[string]struct{})
	return old
}

// Tracked returns a snapshot of the currently tracked names without
// clearing them.
func (d *TrackingDirectory) Tracked() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.created))
	for n := range d.created {
		names = append(names, n)
	}
	return names
}

// RefTrackingDirectory additionally holds a reference count per tracked
// file in a directory-wide table (index_file_refs in spec.md §7), so the
// Cleaner cannot remove a file while a reader or in-progress writer still
// holds it. A ref is only granted after confirming the file still exists,
// so a caller racing the cleaner gets an honest failure instead of a
// dangling reference.
type RefTrackingDirectory struct {
	*TrackingDirectory
	refs *fileRefs
}

// NewRefTrackingDirectory wraps under, sharing refs (typically one table
// per underlying Directory, shared by every writer/reader on it).
func NewRefTrackingDirectory(under Directory, refs *fileRefs, trackOpens bool) *RefTrackingDirectory {
	return &RefTrackingDirectory{
		TrackingDirectory: NewTrackingDirectory(under, trackOpens),
		refs:              refs,
	}
}

func (d *RefTrackingDirectory) Create(name string) (IndexOutput, error) {
	out, err := d.TrackingDirectory.Create(name)
	if err != nil {
		return nil, err
	}
	d.refs.incRef(name)
	return &refCountedOutput{IndexOutput: out, refs: d.refs, name: name}, nil
}

func (d *RefTrackingDirectory) Open(name string, advice Advice) (IndexInput, error) {
	if !d.refs.incRefIfExists(d.Directory, name) {
		return nil, ErrNotFound
	}
	in, err := d.TrackingDirectory.Open(name, advice)
	if err != nil {
		d.refs.decRef(name)
		return nil, err
	}
	return &refCountedInput{IndexInput: in, refs: d.refs, name: name}, nil
}

type refCountedOutput struct {
	IndexOutput
	refs    *fileRefs
	name    string
	closed  bool
}

func (o *refCountedOutput) Close() error {
	if o.closed {
		return nil
	}
	o.closed = true
	err := o.IndexOutput.Close()
	o.refs.decRef(o.name)
	return err
}

type refCountedInput struct {
	IndexInput
	refs   *fileRefs
	name   string
	closed bool
}

func (in *refCountedInput) Close() error {
	if in.closed {
		return nil
	}
	in.closed = true
	err := in.IndexInput.Close()
	in.refs.decRef(in.name)
	return err
}

// fileRefs is a directory-wide filename -> refcount table, shared by every
// RefTrackingDirectory over the same underlying Directory so the Cleaner
// can consult a single source of truth.
type fileRefs struct {
	mu     sync.Mutex
	counts map[string]int
}

func newFileRefs() *fileRefs {
	return &fileRefs{counts: make(map[string]int)}
}

func (r *fileRefs) incRef(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[name]++
}

// incRefIfExists takes a ref only if dir still lists the file, closing the
// race window against a concurrent cleaner removing it between the
// existence check and the ref being recorded.
func (r *fileRefs) incRefIfExists(dir Directory, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !dir.Exists(name) {
		return false
	}
	r.counts[name]++
	return true
}

func (r *fileRefs) decRef(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts[name] <= 1 {
		delete(r.counts, name)
		return
	}
	r.counts[name]--
}

// Referenced reports every filename currently holding at least one ref.
func (r *fileRefs) Referenced() map[string]struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]struct{}, len(r.counts))
	for n := range r.counts {
		out[n] = struct{}{}
	}
	return out
}
