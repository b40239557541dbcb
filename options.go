// Package iresearch ties the storage, term-dictionary, columnstore and
// query packages together under one set of tuning knobs. It carries no
// search logic of its own; it is the ambient configuration surface a host
// application loads once at startup.
package iresearch

import (
	"fmt"
	"os"

	"github.com/goedderz/iresearch/termdict"
	"gopkg.in/yaml.v3"
)

// Options carries every tuning knob this engine exposes. Every field has a
// default matching spec.md §6; a zero Options is not itself meaningful,
// callers should start from DefaultOptions and override selectively.
type Options struct {
	// HandlePoolSize bounds the per-input duplicate OS handle pool Reopen
	// draws from (§4.1, §5). Default 8.
	HandlePoolSize int `yaml:"handlePoolSize"`
	// WriteBufferSize is validated and loaded with the other knobs, but no
	// Directory in this module reads it: their IndexOutputs use a fixed
	// 1 KiB write buffer. Default 1 KiB.
	WriteBufferSize int `yaml:"writeBufferSize"`
	// MinBlockSize and MaxBlockSize size the burst-trie writer's blocks
	// (§6). Defaults 25 and 48.
	MinBlockSize int `yaml:"minBlockSize"`
	MaxBlockSize int `yaml:"maxBlockSize"`
}

// DefaultOptions matches spec.md §6's defaults exactly.
func DefaultOptions() Options {
	return Options{
		HandlePoolSize:  8,
		WriteBufferSize: 1024,
		MinBlockSize:    25,
		MaxBlockSize:    48,
	}
}

// Validate reports whether o's knobs are in a usable range, independent of
// whether they were hand-built or loaded from YAML.
func (o Options) Validate() error {
	if o.HandlePoolSize <= 0 {
		return fmt.Errorf("iresearch: handlePoolSize must be positive, got %d", o.HandlePoolSize)
	}
	if o.WriteBufferSize <= 0 {
		return fmt.Errorf("iresearch: writeBufferSize must be positive, got %d", o.WriteBufferSize)
	}
	if o.MinBlockSize <= 0 || o.MaxBlockSize <= 0 {
		return fmt.Errorf("iresearch: block sizes must be positive, got min=%d max=%d", o.MinBlockSize, o.MaxBlockSize)
	}
	if o.MinBlockSize >= o.MaxBlockSize {
		return fmt.Errorf("iresearch: minBlockSize (%d) must be less than maxBlockSize (%d)", o.MinBlockSize, o.MaxBlockSize)
	}
	return nil
}

// TermDictConfig projects the burst-trie sizing knobs out of o.
func (o Options) TermDictConfig() termdict.Config {
	return termdict.Config{MinBlockSize: o.MinBlockSize, MaxBlockSize: o.MaxBlockSize}
}

// LoadOptions reads YAML-encoded Options from path over DefaultOptions,
// so any field the file omits keeps its default; a field set explicitly
// to zero stays zero and fails Validate. An empty path returns
// DefaultOptions untouched.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	if path == "" {
		return opts, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("iresearch: reading options file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("iresearch: parsing options file %s: %w", path, err)
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}
