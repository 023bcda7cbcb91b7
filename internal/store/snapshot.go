// Package store persists the vector index and its aligned passage sequence
// as a pair of snapshot files under a data directory. Both files are written
// through a temp-file-then-rename sequence so readers never observe a
// partially written artifact, and ingestion serializes through an advisory
// file lock.
package store

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"bookrag/internal/domain"
	"bookrag/internal/index"
)

const (
	vectorsFile  = "vectors.gob"
	passagesFile = "passages.gob"
	lockFile     = "ingest.lock"
)

// ErrSnapshotInconsistent reports a snapshot whose two artifacts do not form
// a coherent pair: exactly one file present, or the vector count differing
// from the passage count. Such a snapshot is never repaired silently.
var ErrSnapshotInconsistent = errors.New("store: snapshot artifacts are inconsistent")

// Store reads and writes the snapshot pair under a single directory.
type Store struct {
	dir string
}

// New creates a store rooted at dir. The directory is created lazily on the
// first write.
func New(dir string) *Store { return &Store{dir: dir} }

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

type vectorsSnapshot struct {
	Dimension int
	Vectors   [][]float32
}

type passagesSnapshot struct {
	Passages []domain.Passage
}

// Load reads the current snapshot. When both artifacts are absent it returns
// a fresh empty index of dimension dim. When exactly one is absent the pair
// is inconsistent and loading fails hard. A stored dimension differing from
// dim means the configured embedding model no longer matches the index and
// is equally fatal.
func (s *Store) Load(dim int) (*index.Flat, []domain.Passage, error) {
	vecPath := filepath.Join(s.dir, vectorsFile)
	pasPath := filepath.Join(s.dir, passagesFile)
	vecExists := fileExists(vecPath)
	pasExists := fileExists(pasPath)
	switch {
	case !vecExists && !pasExists:
		idx, err := index.New(dim)
		if err != nil {
			return nil, nil, err
		}
		return idx, nil, nil
	case vecExists != pasExists:
		return nil, nil, fmt.Errorf("%w: exactly one of %s and %s exists in %s",
			ErrSnapshotInconsistent, vectorsFile, passagesFile, s.dir)
	}

	var vs vectorsSnapshot
	if err := decodeFile(vecPath, &vs); err != nil {
		return nil, nil, fmt.Errorf("store: read %s: %w", vectorsFile, err)
	}
	var ps passagesSnapshot
	if err := decodeFile(pasPath, &ps); err != nil {
		return nil, nil, fmt.Errorf("store: read %s: %w", passagesFile, err)
	}
	if len(vs.Vectors) != len(ps.Passages) {
		return nil, nil, fmt.Errorf("%w: %d vectors but %d passages",
			ErrSnapshotInconsistent, len(vs.Vectors), len(ps.Passages))
	}
	if vs.Dimension != dim {
		return nil, nil, fmt.Errorf("store: snapshot dimension %d does not match embedder dimension %d",
			vs.Dimension, dim)
	}
	idx, err := index.FromVectors(vs.Dimension, vs.Vectors)
	if err != nil {
		return nil, nil, err
	}
	return idx, ps.Passages, nil
}

// Save replaces the snapshot with the given index and passages. The two
// sequences must be aligned. Each artifact is written to a temp file and
// renamed into place, vectors first.
func (s *Store) Save(idx *index.Flat, passages []domain.Passage) error {
	if idx.Count() != len(passages) {
		return fmt.Errorf("%w: %d vectors but %d passages", ErrSnapshotInconsistent, idx.Count(), len(passages))
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	vs := vectorsSnapshot{Dimension: idx.Dimension(), Vectors: idx.Vectors()}
	if err := encodeFile(filepath.Join(s.dir, vectorsFile), vs); err != nil {
		return fmt.Errorf("store: write %s: %w", vectorsFile, err)
	}
	if err := encodeFile(filepath.Join(s.dir, passagesFile), passagesSnapshot{Passages: passages}); err != nil {
		return fmt.Errorf("store: write %s: %w", passagesFile, err)
	}
	return nil
}

// LockIngest acquires the single-writer ingestion lock, retrying until the
// timeout elapses. The returned func releases the lock.
func (s *Store) LockIngest(timeout time.Duration) (func(), error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, err
	}
	lockPath := filepath.Join(s.dir, lockFile)
	l := flock.New(lockPath)
	deadline := time.Now().Add(timeout)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return nil, fmt.Errorf("store: cannot acquire ingest lock: %w", err)
		}
		if locked {
			return func() { _ = l.Unlock() }, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("store: another ingestion is in progress (lock: %s)", lockPath)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func encodeFile(path string, v any) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func decodeFile(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(v)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
