package persistence

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dufanyin/optionrunner/internal/domain"
)

type record struct {
	Note  string `yaml:"note"`
	Count int    `yaml:"count"`
}

func tempBlob(t *testing.T) *BlobFile[record] {
	t.Helper()
	return NewBlobFile[record](filepath.Join(t.TempDir(), "blob.yaml"))
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	f := tempBlob(t)
	got, err := f.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty map, got %d entries", len(got))
	}
}

func TestMergePreservesUnmentionedEntries(t *testing.T) {
	f := tempBlob(t)

	if _, err := f.Merge(map[string]record{
		"alpha": {Note: "first", Count: 1},
		"beta":  {Note: "second", Count: 2},
	}); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	merged, err := f.Merge(map[string]record{"beta": {Note: "updated", Count: 20}})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if merged["alpha"].Note != "first" {
		t.Errorf("alpha entry lost on merge: %+v", merged["alpha"])
	}
	if merged["beta"].Count != 20 {
		t.Errorf("beta not updated: %+v", merged["beta"])
	}

	reloaded, err := f.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(reloaded) != 2 {
		t.Fatalf("expected 2 entries on disk, got %d", len(reloaded))
	}
}

func TestDeleteRemovesOnlyNamed(t *testing.T) {
	f := tempBlob(t)
	if _, err := f.Merge(map[string]record{"a": {}, "b": {}}); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if err := f.Delete("a", "missing"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err := f.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := got["a"]; ok {
		t.Error("a not deleted")
	}
	if _, ok := got["b"]; !ok {
		t.Error("b should survive")
	}
}

func TestCorruptFileReportsIOError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte(":\n\t- not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}
	f := NewBlobFile[record](path)
	if _, err := f.Load(); !errors.Is(err, domain.ErrPersistenceIO) {
		t.Fatalf("expected persistence io error, got %v", err)
	}
}
