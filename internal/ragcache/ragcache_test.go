package ragcache

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andluizsouza/ai-agent-personalization/internal/vectorindex"
)

const fakeDim = 8

// fakeEmbedder returns a deterministic pseudo-random unit vector per text,
// so identical texts always embed identically across instances. Individual
// texts can be pinned to explicit vectors or forced to fail.
type fakeEmbedder struct {
	overrides map[string][]float32
	fail      map[string]bool
	failAll   bool
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{
		overrides: make(map[string][]float32),
		fail:      make(map[string]bool),
	}
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.failAll || f.fail[text] {
		return nil, errors.New("embedding unavailable")
	}
	if v, ok := f.overrides[text]; ok {
		return v, nil
	}
	return hashVector(text), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func hashVector(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	state := h.Sum64() | 1

	vec := make([]float32, fakeDim)
	var norm float64
	for i := range vec {
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		vec[i] = float32(int64(state%2000)-1000) / 1000
		norm += float64(vec[i]) * float64(vec[i])
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

// unitVector is a one-hot vector, handy for pinning similarity order.
func unitVector(i int) []float32 {
	vec := make([]float32, fakeDim)
	vec[i] = 1
	return vec
}

func newTestManager(t *testing.T, ttlDays int) (*Manager, *fakeEmbedder) {
	t.Helper()
	embedder := newFakeEmbedder()
	m := New(Config{
		IndexPath: filepath.Join(t.TempDir(), "index"),
		TTLDays:   ttlDays,
	}, embedder)
	return m, embedder
}

func TestFreshIndexBootstrap(t *testing.T) {
	m, _ := newTestManager(t, 30)
	ctx := context.Background()

	// The bootstrap entry makes the index non-empty but must never be
	// surfaced as cached content.
	assert.Equal(t, 1, m.index.Len())

	entry, status := m.Lookup(ctx, "anything", "", 1)
	assert.Nil(t, entry)
	assert.Equal(t, StatusMiss, status)

	stats := m.Statistics(ctx)
	assert.Equal(t, 0, stats.TotalEntries)
	assert.Equal(t, 30, stats.TTLDays)
}

func TestInsertThenLookupHit(t *testing.T) {
	m, _ := newTestManager(t, 30)
	ctx := context.Background()

	ok := m.Insert(ctx, "Modern Times Beer", "https://moderntimesbeer.com", "summary text", "micro")
	require.True(t, ok)

	entry, status := m.Lookup(ctx, "Modern Times Beer", "Modern Times Beer", 1)
	require.Equal(t, StatusHit, status)
	require.NotNil(t, entry)
	assert.Equal(t, "summary text", entry.Content)
	assert.Equal(t, "Modern Times Beer", entry.SubjectName)
	assert.Equal(t, "https://moderntimesbeer.com", entry.ReferenceURL)
	assert.Equal(t, "micro", entry.Category)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestSubjectNameMismatchIsMiss(t *testing.T) {
	m, embedder := newTestManager(t, 30)
	ctx := context.Background()

	// Force the stored entry to rank first for the query regardless of
	// textual similarity.
	embedder.overrides["Stone Brewing"] = unitVector(0)
	embedder.overrides["anything-similar"] = unitVector(0)

	require.True(t, m.Insert(ctx, "Stone Brewing", "https://stonebrewing.com", "stone summary", "regional"))

	entry, status := m.Lookup(ctx, "anything-similar", "Totally Different Name", 1)
	assert.Nil(t, entry)
	assert.Equal(t, StatusMiss, status)
}

func TestSubjectNameMatchDirection(t *testing.T) {
	m, _ := newTestManager(t, 30)
	ctx := context.Background()

	require.True(t, m.Insert(ctx, "Modern Times Beer", "https://moderntimesbeer.com", "summary", "micro"))

	// Asked name contained in stored name: hit.
	entry, status := m.Lookup(ctx, "Modern Times Beer", "Modern Times", 1)
	assert.Equal(t, StatusHit, status)
	assert.NotNil(t, entry)

	// Asked name longer than stored name: the reverse direction is not
	// matched.
	entry, status = m.Lookup(ctx, "Modern Times Beer", "Modern Times Beer Extra Words", 1)
	assert.Nil(t, entry)
	assert.Equal(t, StatusMiss, status)

	// Case is ignored.
	entry, status = m.Lookup(ctx, "Modern Times Beer", "modern times", 1)
	assert.Equal(t, StatusHit, status)
	assert.NotNil(t, entry)
}

func TestTTLClassification(t *testing.T) {
	ctx := context.Background()
	insertedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name       string
		age        time.Duration
		wantStatus Status
	}{
		{"29 days old", 29 * 24 * time.Hour, StatusHit},
		{"exactly 30 days old", 30 * 24 * time.Hour, StatusHit},
		{"31 days old", 31 * 24 * time.Hour, StatusStale},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, _ := newTestManager(t, 30)
			m.now = func() time.Time { return insertedAt }
			require.True(t, m.Insert(ctx, "Stone Brewing", "https://stonebrewing.com", "stone summary", "regional"))

			m.now = func() time.Time { return insertedAt.Add(tc.age) }
			entry, status := m.Lookup(ctx, "Stone Brewing", "Stone Brewing", 1)
			assert.Equal(t, tc.wantStatus, status)

			// Stale lookups still return the entry so callers can show a
			// possibly outdated answer.
			require.NotNil(t, entry)
			assert.Equal(t, "stone summary", entry.Content)
		})
	}
}

func TestMissingCreatedAtIsStaleWithoutEntry(t *testing.T) {
	m, _ := newTestManager(t, 30)
	ctx := context.Background()

	doc := vectorindex.Document{
		Text: "orphaned summary",
		Metadata: map[string]string{
			metaSubjectName: "Orphan Brewing",
			metaEntryKind:   kindContent,
		},
	}
	require.NoError(t, m.index.Add(ctx, hashVector("Orphan Brewing"), doc))

	entry, status := m.Lookup(ctx, "Orphan Brewing", "Orphan Brewing", 1)
	assert.Nil(t, entry)
	assert.Equal(t, StatusStale, status)
}

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index")
	embedder := newFakeEmbedder()

	a := New(Config{IndexPath: path, TTLDays: 30}, embedder)
	require.True(t, a.Insert(ctx, "Ballast Point", "https://ballastpoint.com", "ballast summary", "regional"))
	require.True(t, a.Persist())

	b := New(Config{IndexPath: path, TTLDays: 30}, embedder)
	entry, status := b.Lookup(ctx, "Ballast Point", "Ballast Point", 1)
	require.Equal(t, StatusHit, status)
	require.NotNil(t, entry)
	assert.Equal(t, "ballast summary", entry.Content)
}

func TestAppendOnlyUpdates(t *testing.T) {
	m, _ := newTestManager(t, 30)
	ctx := context.Background()

	require.True(t, m.Insert(ctx, "Stone Brewing", "https://stonebrewing.com", "first summary", "regional"))
	require.True(t, m.Refresh(ctx, "Stone Brewing", "https://stonebrewing.com", "second summary", "regional"))

	// Both entries stay in the index; which one lookup returns is not
	// guaranteed, only the count is.
	stats := m.Statistics(ctx)
	assert.Equal(t, 2, stats.TotalEntries)

	entry, status := m.Lookup(ctx, "Stone Brewing", "Stone Brewing", 1)
	assert.Equal(t, StatusHit, status)
	require.NotNil(t, entry)
	assert.Contains(t, []string{"first summary", "second summary"}, entry.Content)
}

func TestStatisticsClassifiesByTTL(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, 30)
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	m.now = func() time.Time { return start }
	require.True(t, m.Insert(ctx, "Old Brewing", "https://old.example.com", "old", "micro"))

	m.now = func() time.Time { return start.Add(40 * 24 * time.Hour) }
	require.True(t, m.Insert(ctx, "New Brewing", "https://new.example.com", "new", "micro"))

	stats := m.Statistics(ctx)
	assert.Equal(t, 2, stats.TotalEntries)
	assert.Equal(t, 1, stats.ValidEntries)
	assert.Equal(t, 1, stats.StaleEntries)
}

func TestEmbeddingFailureDegrades(t *testing.T) {
	m, embedder := newTestManager(t, 30)
	ctx := context.Background()

	require.True(t, m.Insert(ctx, "Stone Brewing", "https://stonebrewing.com", "summary", "regional"))

	embedder.failAll = true

	entry, status := m.Lookup(ctx, "Stone Brewing", "Stone Brewing", 1)
	assert.Nil(t, entry)
	assert.Equal(t, StatusMiss, status)

	assert.False(t, m.Insert(ctx, "Other Brewing", "https://other.example.com", "summary", "micro"))

	stats := m.Statistics(ctx)
	assert.Equal(t, 0, stats.TotalEntries)
	assert.Equal(t, 30, stats.TTLDays)
}

func TestPersistFailureReturnsFalse(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "occupied")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0o644))

	embedder := newFakeEmbedder()
	m := New(Config{IndexPath: filepath.Join(blocker, "index"), TTLDays: 30}, embedder)
	assert.False(t, m.Persist())
}

func TestCorruptSnapshotFallsBackToFreshIndex(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index")
	require.NoError(t, os.MkdirAll(path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "index.gob"), []byte("corrupt"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(path, "store.json"), []byte("corrupt"), 0o644))

	m := New(Config{IndexPath: path, TTLDays: 30}, newFakeEmbedder())
	assert.Equal(t, 1, m.index.Len())

	entry, status := m.Lookup(ctx, "anything", "", 1)
	assert.Nil(t, entry)
	assert.Equal(t, StatusMiss, status)
}

func TestLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index")
	embedder := newFakeEmbedder()
	day0 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	m := New(Config{IndexPath: path, TTLDays: 30}, embedder)
	m.now = func() time.Time { return day0 }
	require.True(t, m.Insert(ctx, "Modern Times Beer", "https://moderntimesbeer.com", "summary", "micro"))
	require.True(t, m.Persist())

	m.now = func() time.Time { return day0.Add(29 * 24 * time.Hour) }
	_, status := m.Lookup(ctx, "Modern Times Beer", "Modern Times Beer", 1)
	assert.Equal(t, StatusHit, status)

	m.now = func() time.Time { return day0.Add(31 * 24 * time.Hour) }
	entry, status := m.Lookup(ctx, "Modern Times Beer", "Modern Times Beer", 1)
	assert.Equal(t, StatusStale, status)
	assert.NotNil(t, entry)

	// Deleting the snapshot directory resets the cache to a bootstrap-only
	// index on next construction.
	require.NoError(t, os.RemoveAll(path))
	fresh := New(Config{IndexPath: path, TTLDays: 30}, embedder)
	entry, status = fresh.Lookup(ctx, "Modern Times Beer", "Modern Times Beer", 1)
	assert.Nil(t, entry)
	assert.Equal(t, StatusMiss, status)
	assert.Equal(t, 0, fresh.Statistics(ctx).TotalEntries)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "CACHE_HIT", StatusHit.String())
	assert.Equal(t, "CACHE_STALE", StatusStale.String())
	assert.Equal(t, "CACHE_MISS", StatusMiss.String())
}
