// Package persistence stores the strategy setting and holding blobs as YAML
// files with read-modify-write semantics: every save loads the file, merges
// in the caller's entries, and writes back, so entries for strategies not
// currently loaded survive.
package persistence

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dufanyin/optionrunner/internal/domain"
)

// document is the on-disk envelope: `{metadata: {...}, data: {<name>: ...}}`.
type document[T any] struct {
	Metadata metadata     `yaml:"metadata"`
	Data     map[string]T `yaml:"data"`
}

type metadata struct {
	SavedAt string `yaml:"saved_at"`
	Version int    `yaml:"version"`
}

const documentVersion = 1

// BlobFile is one durable YAML blob keyed by strategy name. All operations
// serialize through a per-file mutex; a missing file reads as empty.
type BlobFile[T any] struct {
	mu   sync.Mutex
	path string
}

// NewBlobFile constructs a BlobFile at path. The file is created lazily on
// first save.
func NewBlobFile[T any](path string) *BlobFile[T] {
	return &BlobFile[T]{path: path}
}

// Path returns the file location.
func (f *BlobFile[T]) Path() string { return f.path }

// Load reads every entry. A missing file yields an empty map, not an error.
func (f *BlobFile[T]) Load() (map[string]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

func (f *BlobFile[T]) load() (map[string]T, error) {
	raw, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return make(map[string]T), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrPersistenceIO, f.path, err)
	}

	var doc document[T]
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrPersistenceIO, f.path, err)
	}
	if doc.Data == nil {
		doc.Data = make(map[string]T)
	}
	return doc.Data, nil
}

// Merge folds entries into the file, preserving names it does not mention,
// and returns the full post-merge contents.
func (f *BlobFile[T]) Merge(entries map[string]T) (map[string]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	existing, err := f.load()
	if err != nil {
		return nil, err
	}
	for name, entry := range entries {
		existing[name] = entry
	}
	if err := f.write(existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// Delete removes names from the file. Unknown names are ignored.
func (f *BlobFile[T]) Delete(names ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	existing, err := f.load()
	if err != nil {
		return err
	}
	for _, name := range names {
		delete(existing, name)
	}
	return f.write(existing)
}

func (f *BlobFile[T]) write(data map[string]T) error {
	doc := document[T]{
		Metadata: metadata{SavedAt: time.Now().Format(time.RFC3339), Version: documentVersion},
		Data:     data,
	}
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", domain.ErrPersistenceIO, f.path, err)
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: mkdir %s: %v", domain.ErrPersistenceIO, dir, err)
		}
	}
	if err := os.WriteFile(f.path, raw, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", domain.ErrPersistenceIO, f.path, err)
	}
	return nil
}
