package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const groundedPrompt = `You are a craft beer industry specialist. Research current information about the brewery below.

Brewery: %s
Address: %s
Website: %s

Based on what you find, write a concise summary (3 sentences maximum) covering:
- The kind of brewery (micro, regional, brewpub, etc.)
- The main beer styles it produces
- What sets it apart

If you cannot find enough information, say so clearly.

Summary:`

// GroundedSummarizer produces short content summaries backed by search
// grounding: the model answers from live search results rather than its
// training data.
type GroundedSummarizer struct {
	client *Client
	logger zerolog.Logger
}

// NewGroundedSummarizer wraps a chat client for grounded summarization.
func NewGroundedSummarizer(client *Client) *GroundedSummarizer {
	return &GroundedSummarizer{
		client: client,
		logger: log.With().Str("component", "grounded-summarizer").Logger(),
	}
}

// Summarize asks the model for a grounded summary of the subject. The call
// blocks until the model responds; callers bound its cost.
func (g *GroundedSummarizer) Summarize(ctx context.Context, subjectName, address, url string) (string, error) {
	g.logger.Info().Str("subject", subjectName).Str("url", url).Msg("requesting grounded summary")

	resp, err := g.client.GenerateContent(ctx, Request{
		Contents: []Content{{
			Role:  RoleUser,
			Parts: []Part{{Text: fmt.Sprintf(groundedPrompt, subjectName, address, url)}},
		}},
		Tools:       []Tool{{GoogleSearch: &GoogleSearch{}}},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("grounded summary failed: %w", err)
	}

	summary := strings.TrimSpace(resp.Text)
	if summary == "" {
		return "", ErrEmptyResponse
	}

	g.logger.Info().Str("subject", subjectName).Int("chars", len(summary)).Msg("grounded summary generated")
	return summary, nil
}
