// Package vectorindex implements an append-only vector index with
// brute-force cosine similarity search and directory-based snapshots.
//
// The index deliberately has no delete or in-place update primitive:
// callers that need to supersede an entry append a newer one. This mirrors
// the behavior of flat ANN index structures, which lack cheap point
// deletion.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

var (
	// ErrEmptyVector is returned when an empty vector is added or searched.
	ErrEmptyVector = errors.New("vector must not be empty")

	// ErrDimensionMismatch is returned when a vector's dimension does not
	// match the dimension established by the first Add.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrNoSnapshot is returned by Load when no snapshot exists at the path.
	ErrNoSnapshot = errors.New("no index snapshot at path")
)

// Document is the payload stored alongside each vector.
type Document struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

// Match is a single search result.
type Match struct {
	Document Document
	Score    float64
}

// Index stores (vector, document) tuples and answers top-k similarity
// queries. Entries can only be appended, never removed or rewritten.
type Index struct {
	mu      sync.RWMutex
	dim     int
	vectors [][]float32
	docs    []Document
}

// New creates an empty index. The dimension is fixed by the first Add.
func New() *Index {
	return &Index{}
}

// Len returns the number of stored entries.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}

// Dimension returns the vector dimension, or 0 before the first Add.
func (idx *Index) Dimension() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dim
}

// Documents returns a copy of every stored document in insertion order.
func (idx *Index) Documents() []Document {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]Document, len(idx.docs))
	copy(out, idx.docs)
	return out
}

// Add appends a vector and its document to the index.
func (idx *Index) Add(ctx context.Context, vector []float32, doc Document) error {
	if len(vector) == 0 {
		return ErrEmptyVector
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.dim == 0 {
		idx.dim = len(vector)
	} else if len(vector) != idx.dim {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, idx.dim, len(vector))
	}

	stored := make([]float32, len(vector))
	copy(stored, vector)

	idx.vectors = append(idx.vectors, stored)
	idx.docs = append(idx.docs, doc)
	return nil
}

// Search returns up to k entries ranked by cosine similarity to the query
// vector, best match first.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]Match, error) {
	if len(query) == 0 {
		return nil, ErrEmptyVector
	}
	if k <= 0 {
		k = 1
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.docs) == 0 {
		return nil, nil
	}
	if len(query) != idx.dim {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, idx.dim, len(query))
	}

	matches := make([]Match, 0, len(idx.docs))
	for i, vec := range idx.vectors {
		matches = append(matches, Match{
			Document: idx.docs[i],
			Score:    cosine(query, vec),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
