package embedding

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
)

const defaultMemoSize = 1024

// CachedService memoizes embeddings by exact input text. Lookup keys repeat
// heavily (the same subject name is embedded on every cache probe), so a
// small LRU in front of the HTTP service saves most of the round trips.
type CachedService struct {
	inner Service
	memo  *lru.Cache
}

// NewCachedService wraps inner with an LRU memo of the given size.
func NewCachedService(inner Service, size int) (*CachedService, error) {
	if size <= 0 {
		size = defaultMemoSize
	}
	memo, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &CachedService{inner: inner, memo: memo}, nil
}

// Embed implements the Service interface
func (s *CachedService) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := s.memo.Get(text); ok {
		return cached.([]float32), nil
	}

	vector, err := s.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	s.memo.Add(text, vector)
	return vector, nil
}

// EmbedBatch implements the Service interface. Only fully memoized batches
// skip the HTTP call; mixed batches go through as-is.
func (s *CachedService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	allCached := len(texts) > 0
	for i, text := range texts {
		cached, ok := s.memo.Get(text)
		if !ok {
			allCached = false
			break
		}
		vectors[i] = cached.([]float32)
	}
	if allCached {
		return vectors, nil
	}

	vectors, err := s.inner.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	for i, text := range texts {
		s.memo.Add(text, vectors[i])
	}
	return vectors, nil
}
