package vectorindex

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Snapshot layout: the vectors live in a gob-encoded index file, the
// documents in a JSON store file next to it. Both must be present and
// consistent for a load to succeed.
const (
	indexFileName = "index.gob"
	storeFileName = "store.json"
)

type snapshotVectors struct {
	Dim     int
	Vectors [][]float32
}

// Save writes a full snapshot of the index into dir, creating the
// directory if needed and overwriting any previous snapshot.
func (idx *Index) Save(dir string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	indexFile, err := os.Create(filepath.Join(dir, indexFileName))
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	defer indexFile.Close()

	snap := snapshotVectors{Dim: idx.dim, Vectors: idx.vectors}
	if err := gob.NewEncoder(indexFile).Encode(&snap); err != nil {
		return fmt.Errorf("failed to encode vectors: %w", err)
	}

	storeFile, err := os.Create(filepath.Join(dir, storeFileName))
	if err != nil {
		return fmt.Errorf("failed to create store file: %w", err)
	}
	defer storeFile.Close()

	if err := json.NewEncoder(storeFile).Encode(idx.docs); err != nil {
		return fmt.Errorf("failed to encode documents: %w", err)
	}
	return nil
}

// Load reconstructs an index from a snapshot directory. It returns
// ErrNoSnapshot when the index file does not exist, and a descriptive
// error when the snapshot is present but unreadable or inconsistent.
func Load(dir string) (*Index, error) {
	indexFile, err := os.Open(filepath.Join(dir, indexFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("failed to open index file: %w", err)
	}
	defer indexFile.Close()

	var snap snapshotVectors
	if err := gob.NewDecoder(indexFile).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode vectors: %w", err)
	}

	storeFile, err := os.Open(filepath.Join(dir, storeFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open store file: %w", err)
	}
	defer storeFile.Close()

	var docs []Document
	if err := json.NewDecoder(storeFile).Decode(&docs); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}

	if len(docs) != len(snap.Vectors) {
		return nil, fmt.Errorf("snapshot is inconsistent: %d vectors, %d documents", len(snap.Vectors), len(docs))
	}
	for _, vec := range snap.Vectors {
		if len(vec) != snap.Dim {
			return nil, fmt.Errorf("snapshot is inconsistent: vector of dimension %d in a %d-dimensional index", len(vec), snap.Dim)
		}
	}

	return &Index{
		dim:     snap.Dim,
		vectors: snap.Vectors,
		docs:    docs,
	}, nil
}
