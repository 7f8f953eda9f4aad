// Package webexplorer retrieves website content summaries, serving them
// from the semantic cache when fresh and falling back to a grounded-search
// summarizer when the cache misses or has gone stale.
package webexplorer

import (
	"context"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/andluizsouza/ai-agent-personalization/internal/metrics"
	"github.com/andluizsouza/ai-agent-personalization/internal/ragcache"
)

// Source tags where a summary came from.
type Source string

const (
	SourceCacheHit  Source = "cache_hit"
	SourceWebSearch Source = "web_search"
	SourceError     Source = "error"
)

// ErrorCode identifies the failure modes surfaced to callers.
type ErrorCode string

const (
	ErrCodeInvalidURL      ErrorCode = "INVALID_URL"
	ErrCodeGroundingFailed ErrorCode = "GROUNDING_FAILED"
)

// Cache is the slice of the semantic cache the explorer depends on.
type Cache interface {
	Lookup(ctx context.Context, queryText, subjectName string, topK int) (*ragcache.Entry, ragcache.Status)
	Insert(ctx context.Context, subjectName, referenceURL, content, category string) bool
	Refresh(ctx context.Context, subjectName, referenceURL, content, category string) bool
	Persist() bool
}

// Summarizer produces free-text content for a subject via grounded search.
type Summarizer interface {
	Summarize(ctx context.Context, subjectName, address, url string) (string, error)
}

// Result is the outcome of a summary request.
type Result struct {
	SubjectName string        `json:"subject_name"`
	URL         string        `json:"url"`
	Summary     string        `json:"summary"`
	Source      Source        `json:"source"`
	CacheStatus string        `json:"cache_status"`
	Category    string        `json:"category"`
	Duration    time.Duration `json:"-"`
	Err         ErrorCode     `json:"error,omitempty"`
}

// Explorer coordinates the cache-first summary flow.
type Explorer struct {
	cache      Cache
	summarizer Summarizer
	logger     zerolog.Logger
}

// New creates an Explorer over the given cache and summarizer.
func New(cache Cache, summarizer Summarizer) *Explorer {
	return &Explorer{
		cache:      cache,
		summarizer: summarizer,
		logger:     log.With().Str("component", "webexplorer").Logger(),
	}
}

// WebsiteSummary returns a summary for the subject, from cache when a fresh
// entry exists, otherwise from grounded search. A newly computed summary is
// written back to the cache and the snapshot is persisted; a persistence
// failure is logged but never masks the freshly computed content.
func (e *Explorer) WebsiteSummary(ctx context.Context, subjectName, rawURL, category, address string) Result {
	start := time.Now()
	result := e.websiteSummary(ctx, subjectName, rawURL, category, address)
	result.Duration = time.Since(start)
	metrics.SummaryRequests.WithLabelValues(string(result.Source)).Inc()
	return result
}

func (e *Explorer) websiteSummary(ctx context.Context, subjectName, rawURL, category, address string) Result {
	if category == "" {
		category = "unknown"
	}

	if !isValidURL(rawURL) {
		e.logger.Warn().Str("subject", subjectName).Str("url", rawURL).Msg("invalid or missing URL")
		return Result{
			SubjectName: subjectName,
			URL:         rawURL,
			Summary:     "Website URL unavailable or invalid.",
			Source:      SourceError,
			CacheStatus: "N/A",
			Category:    category,
			Err:         ErrCodeInvalidURL,
		}
	}

	entry, status := e.cache.Lookup(ctx, subjectName, subjectName, 1)
	if status == ragcache.StatusHit && entry != nil {
		e.logger.Info().Str("subject", subjectName).Msg("serving summary from cache")
		return Result{
			SubjectName: subjectName,
			URL:         rawURL,
			Summary:     entry.Content,
			Source:      SourceCacheHit,
			CacheStatus: status.String(),
			Category:    category,
		}
	}

	e.logger.Info().Str("subject", subjectName).Stringer("cache_status", status).
		Msg("cache cannot serve, falling back to grounded search")

	summary, err := e.summarizer.Summarize(ctx, subjectName, address, rawURL)
	if err != nil {
		e.logger.Error().Err(err).Str("subject", subjectName).Msg("grounded search failed")
		return Result{
			SubjectName: subjectName,
			URL:         rawURL,
			Summary:     "Could not generate a summary for " + subjectName + ".",
			Source:      SourceWebSearch,
			CacheStatus: status.String(),
			Category:    category,
			Err:         ErrCodeGroundingFailed,
		}
	}

	var stored bool
	if status == ragcache.StatusStale {
		stored = e.cache.Refresh(ctx, subjectName, rawURL, summary, category)
	} else {
		stored = e.cache.Insert(ctx, subjectName, rawURL, summary, category)
	}
	if stored {
		if !e.cache.Persist() {
			e.logger.Warn().Str("subject", subjectName).Msg("failed to persist cache snapshot")
		}
	} else {
		e.logger.Warn().Str("subject", subjectName).Msg("failed to store summary in cache")
	}

	return Result{
		SubjectName: subjectName,
		URL:         rawURL,
		Summary:     summary,
		Source:      SourceWebSearch,
		CacheStatus: status.String(),
		Category:    category,
	}
}

// isValidURL requires an absolute URL with both a scheme and a host.
func isValidURL(raw string) bool {
	if raw == "" {
		return false
	}
	parsed, err := url.Parse(raw)
	return err == nil && parsed.Scheme != "" && parsed.Host != ""
}
