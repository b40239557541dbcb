package store

import "github.com/goedderz/iresearch/metrics"

// Acceptor adjudicates borderline cleanup decisions the reference count
// and published file sets can't resolve on their own, e.g. keeping a file
// a caller knows is about to be re-referenced. Returning true keeps the
// file.
type Acceptor func(name string) bool

// Cleaner is a directory-level garbage collector. It removes any file not
// present in the union of: files with an outstanding ref (via fileRefs),
// any published segment's file set, and the current segments file — per
// spec.md §7 ("Cleaner: run on demand ... removes files not in the union
// of ...").
type Cleaner struct {
	dir      Directory
	refs     *fileRefs
	acceptor Acceptor
}

// NewCleaner builds a Cleaner over dir, consulting refs for outstanding
// references. acceptor may be nil, in which case nothing beyond the
// computed live set is kept.
func NewCleaner(dir Directory, refs *fileRefs, acceptor Acceptor) *Cleaner {
	return &Cleaner{dir: dir, refs: refs, acceptor: acceptor}
}

// Clean walks dir's listing and removes every file absent from live and
// from refs, unless acceptor vetoes the removal. It returns the names
// actually removed.
func (c *Cleaner) Clean(live map[string]struct{}) ([]string, error) {
	referenced := c.refs.Referenced()

	var candidates []string
	err := c.dir.Visit(func(name string) error {
		if _, ok := live[name]; ok {
			return nil
		}
		if _, ok := referenced[name]; ok {
			return nil
		}
		if c.acceptor != nil && c.acceptor(name) {
			return nil
		}
		candidates = append(candidates, name)
		return nil
	})
	if err != nil {
		return nil, err
	}

	removed := make([]string, 0, len(candidates))
	for _, name := range candidates {
		if err := c.dir.Remove(name); err != nil {
			continue
		}
		removed = append(removed, name)
	}

	metrics.Default.CleanerFilesRemovedTotal.Add(float64(len(removed)))
	if len(removed) > 0 {
		metrics.Default.CleanerRunsTotal.WithLabelValues("removed").Inc()
	} else {
		metrics.Default.CleanerRunsTotal.WithLabelValues("noop").Inc()
	}
	return removed, nil
}
