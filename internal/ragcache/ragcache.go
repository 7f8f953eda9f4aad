// Package ragcache implements the semantic web-knowledge cache: a vector
// index of content summaries keyed by subject-name embeddings, with
// TTL-based staleness classification and explicit snapshot persistence.
//
// The cache is advisory infrastructure. None of its operations return an
// error: lookup failures degrade to a miss, write failures to false, so an
// unavailable cache can never break the surrounding feature.
package ragcache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/andluizsouza/ai-agent-personalization/internal/embedding"
	"github.com/andluizsouza/ai-agent-personalization/internal/metrics"
	"github.com/andluizsouza/ai-agent-personalization/internal/vectorindex"
)

// Metadata keys stored with every index document.
const (
	metaSubjectName  = "subject_name"
	metaReferenceURL = "reference_url"
	metaCategory     = "category"
	metaCreatedAt    = "created_at"
	metaEntryKind    = "entry_kind"
)

// Entry kinds. A system entry is the bootstrap placeholder and is never
// surfaced as cached content.
const (
	kindSystem  = "system"
	kindContent = "content"
)

const (
	bootstrapText = "initialization"

	// Statistics are approximated with a broad similarity search rather
	// than an exhaustive scan; counts silently undercap at the sample size.
	statsQuery      = "brewery"
	statsSampleSize = 100
)

// Status classifies the outcome of a cache lookup.
type Status int

const (
	StatusMiss Status = iota
	StatusHit
	StatusStale
)

func (s Status) String() string {
	switch s {
	case StatusHit:
		return "CACHE_HIT"
	case StatusStale:
		return "CACHE_STALE"
	default:
		return "CACHE_MISS"
	}
}

// Entry is a cached content summary returned by Lookup.
type Entry struct {
	SubjectName  string
	ReferenceURL string
	Content      string
	Category     string
	CreatedAt    time.Time
}

// Stats describes the cache contents as sampled by Statistics.
type Stats struct {
	TotalEntries int    `json:"total_entries"`
	ValidEntries int    `json:"valid_entries"`
	StaleEntries int    `json:"stale_entries"`
	TTLDays      int    `json:"ttl_days"`
	IndexPath    string `json:"index_path"`
}

// Config holds cache configuration.
type Config struct {
	IndexPath string
	TTLDays   int
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		IndexPath: "data/faiss_index",
		TTLDays:   30,
	}
}

// Manager owns the vector index and answers "do we have a recent enough
// summary of X?" by approximate textual match. It is constructed once and
// passed explicitly to its callers; the process entry point owns the single
// instance for the lifetime of the process.
type Manager struct {
	cfg      Config
	embedder embedding.Service
	index    *vectorindex.Index
	logger   zerolog.Logger
	now      func() time.Time
}

// New constructs a Manager against the configured snapshot path. An
// existing snapshot is loaded; a corrupt or missing one falls through to a
// fresh index seeded with a single system bootstrap entry, so the index is
// never empty after construction.
func New(cfg Config, embedder embedding.Service) *Manager {
	if cfg.IndexPath == "" {
		cfg.IndexPath = DefaultConfig().IndexPath
	}
	if cfg.TTLDays <= 0 {
		cfg.TTLDays = DefaultConfig().TTLDays
	}

	m := &Manager{
		cfg:      cfg,
		embedder: embedder,
		logger:   log.With().Str("component", "ragcache").Logger(),
		now:      time.Now,
	}
	m.index = m.loadOrCreate()
	return m
}

func (m *Manager) loadOrCreate() *vectorindex.Index {
	idx, err := vectorindex.Load(m.cfg.IndexPath)
	if err == nil {
		m.logger.Info().Str("path", m.cfg.IndexPath).Int("entries", idx.Len()).
			Msg("loaded existing index snapshot")
		return idx
	}
	if !errors.Is(err, vectorindex.ErrNoSnapshot) {
		m.logger.Warn().Err(err).Str("path", m.cfg.IndexPath).
			Msg("failed to load index snapshot, creating a fresh one")
	}

	idx = vectorindex.New()
	vector, err := m.embedder.Embed(context.Background(), bootstrapText)
	if err != nil {
		// Without an embedding the bootstrap entry cannot be indexed;
		// lookups against the empty index still degrade to a miss.
		m.logger.Error().Err(err).Msg("failed to embed bootstrap entry")
		return idx
	}
	doc := vectorindex.Document{
		Text: bootstrapText,
		Metadata: map[string]string{
			metaEntryKind: kindSystem,
			metaCreatedAt: m.now().Format(time.RFC3339Nano),
		},
	}
	if err := idx.Add(context.Background(), vector, doc); err != nil {
		m.logger.Error().Err(err).Msg("failed to index bootstrap entry")
	}
	m.logger.Info().Str("path", m.cfg.IndexPath).Msg("created new index")
	return idx
}

// Lookup searches the cache for a summary of queryText. When subjectName is
// non-empty the top match must contain it (case-insensitively) in its stored
// subject name; a mismatched top hit is treated identically to no hit, with
// no fallback to the second-nearest neighbor.
//
// The returned entry is non-nil for StatusHit, and for StatusStale when the
// stored entry carries a creation timestamp; a stale entry without one
// yields (nil, StatusStale).
func (m *Manager) Lookup(ctx context.Context, queryText, subjectName string, topK int) (*Entry, Status) {
	entry, status := m.lookup(ctx, queryText, subjectName, topK)
	metrics.CacheLookups.WithLabelValues(status.String()).Inc()
	return entry, status
}

func (m *Manager) lookup(ctx context.Context, queryText, subjectName string, topK int) (*Entry, Status) {
	if topK <= 0 {
		topK = 1
	}

	vector, err := m.embedder.Embed(ctx, queryText)
	if err != nil {
		m.logger.Error().Err(err).Str("query", queryText).Msg("embedding failed, treating as miss")
		return nil, StatusMiss
	}

	matches, err := m.index.Search(ctx, vector, topK)
	if err != nil {
		m.logger.Error().Err(err).Str("query", queryText).Msg("index search failed, treating as miss")
		return nil, StatusMiss
	}
	if len(matches) == 0 {
		m.logger.Debug().Str("query", queryText).Msg("cache miss: no results")
		return nil, StatusMiss
	}

	top := matches[0].Document
	if top.Metadata[metaEntryKind] == kindSystem {
		m.logger.Debug().Str("query", queryText).Msg("cache miss: top result is the bootstrap entry")
		return nil, StatusMiss
	}

	if subjectName != "" {
		cachedName := strings.ToLower(top.Metadata[metaSubjectName])
		if !strings.Contains(cachedName, strings.ToLower(subjectName)) {
			m.logger.Debug().Str("asked", subjectName).Str("cached", cachedName).
				Msg("cache miss: subject name mismatch on top result")
			return nil, StatusMiss
		}
	}

	createdRaw, ok := top.Metadata[metaCreatedAt]
	if !ok || createdRaw == "" {
		m.logger.Warn().Str("subject", top.Metadata[metaSubjectName]).
			Msg("cached entry has no creation timestamp, treating as stale")
		return nil, StatusStale
	}

	entry := &Entry{
		SubjectName:  top.Metadata[metaSubjectName],
		ReferenceURL: top.Metadata[metaReferenceURL],
		Content:      top.Text,
		Category:     top.Metadata[metaCategory],
	}

	createdAt, err := time.Parse(time.RFC3339Nano, createdRaw)
	if err != nil {
		m.logger.Warn().Err(err).Str("created_at", createdRaw).
			Msg("invalid creation timestamp, treating as stale")
		return entry, StatusStale
	}
	entry.CreatedAt = createdAt

	if m.isValid(createdAt) {
		m.logger.Info().Str("subject", entry.SubjectName).Msg("cache hit")
		return entry, StatusHit
	}
	m.logger.Info().Str("subject", entry.SubjectName).Msg("cache stale")
	return entry, StatusStale
}

// isValid applies the TTL rule: an entry is valid while its age in whole
// days does not exceed the configured TTL.
func (m *Manager) isValid(createdAt time.Time) bool {
	ageDays := int(m.now().Sub(createdAt).Hours() / 24)
	return ageDays <= m.cfg.TTLDays
}

// Insert embeds subjectName (the lookup key, not the content) and appends a
// content entry stamped with the current time. It never searches for or
// removes prior entries for the same subject: repeated inserts accumulate,
// and lookup is not guaranteed to return the newest one since ranking is by
// vector similarity, not recency.
func (m *Manager) Insert(ctx context.Context, subjectName, referenceURL, content, category string) bool {
	ok := m.insert(ctx, subjectName, referenceURL, content, category)
	outcome := metrics.OutcomeOK
	if !ok {
		outcome = metrics.OutcomeFailed
	}
	metrics.CacheInserts.WithLabelValues(outcome).Inc()
	return ok
}

func (m *Manager) insert(ctx context.Context, subjectName, referenceURL, content, category string) bool {
	if category == "" {
		category = "unknown"
	}

	vector, err := m.embedder.Embed(ctx, subjectName)
	if err != nil {
		m.logger.Error().Err(err).Str("subject", subjectName).Msg("failed to embed cache entry")
		return false
	}

	doc := vectorindex.Document{
		Text: content,
		Metadata: map[string]string{
			metaSubjectName:  subjectName,
			metaReferenceURL: referenceURL,
			metaCategory:     category,
			metaCreatedAt:    m.now().Format(time.RFC3339Nano),
			metaEntryKind:    kindContent,
		},
	}
	if err := m.index.Add(ctx, vector, doc); err != nil {
		m.logger.Error().Err(err).Str("subject", subjectName).Msg("failed to add cache entry")
		return false
	}

	m.logger.Info().Str("subject", subjectName).Str("url", referenceURL).Msg("added to cache")
	return true
}

// Refresh is semantically identical to Insert: the index has no in-place
// update, so refreshing appends a new entry with a fresh timestamp and the
// old one stays behind. The separate name only signals caller intent.
func (m *Manager) Refresh(ctx context.Context, subjectName, referenceURL, content, category string) bool {
	m.logger.Info().Str("subject", subjectName).Msg("refreshing cache entry")
	return m.Insert(ctx, subjectName, referenceURL, content, category)
}

// Persist writes the full index snapshot to the configured path,
// overwriting any previous snapshot. Persistence is explicit: entries added
// since the last successful Persist are lost on process restart.
func (m *Manager) Persist() bool {
	if err := m.index.Save(m.cfg.IndexPath); err != nil {
		m.logger.Error().Err(err).Str("path", m.cfg.IndexPath).Msg("failed to save index snapshot")
		metrics.CachePersists.WithLabelValues(metrics.OutcomeFailed).Inc()
		return false
	}
	m.logger.Info().Str("path", m.cfg.IndexPath).Msg("saved index snapshot")
	metrics.CachePersists.WithLabelValues(metrics.OutcomeOK).Inc()
	return true
}

// Statistics approximates cache contents by classifying the results of a
// broad similarity search. The index has no "list all" primitive, so counts
// undercount once the true entry count exceeds the sample width; on any
// failure the counts are zero and only TTLDays and IndexPath are populated.
func (m *Manager) Statistics(ctx context.Context) Stats {
	stats := Stats{
		TTLDays:   m.cfg.TTLDays,
		IndexPath: m.cfg.IndexPath,
	}

	vector, err := m.embedder.Embed(ctx, statsQuery)
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to embed statistics query")
		return stats
	}
	matches, err := m.index.Search(ctx, vector, statsSampleSize)
	if err != nil {
		m.logger.Error().Err(err).Msg("statistics search failed")
		return stats
	}

	for _, match := range matches {
		meta := match.Document.Metadata
		if meta[metaEntryKind] != kindContent {
			continue
		}
		stats.TotalEntries++

		createdAt, err := time.Parse(time.RFC3339Nano, meta[metaCreatedAt])
		if err == nil && m.isValid(createdAt) {
			stats.ValidEntries++
		} else {
			stats.StaleEntries++
		}
	}
	return stats
}
