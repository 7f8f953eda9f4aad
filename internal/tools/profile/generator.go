package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/andluizsouza/ai-agent-personalization/internal/llm"
)

const sqlGenerationPrompt = `You are a SQL expert. Given the database schema and a question, write a single SQLite SELECT query that answers it.

Schema:
%s

Question: %s

Rules:
- Output only the SQL query, no explanation and no markdown fences.
- The query must be a single SELECT statement.
- Use LOWER() for case-insensitive text comparisons.

SQL:`

// LLMGenerator generates SQL through the chat model.
type LLMGenerator struct {
	client *llm.Client
}

// NewLLMGenerator wraps a chat client as a SQLGenerator.
func NewLLMGenerator(client *llm.Client) *LLMGenerator {
	return &LLMGenerator{client: client}
}

// GenerateSQL implements the SQLGenerator interface.
func (g *LLMGenerator) GenerateSQL(ctx context.Context, schema, question string) (string, error) {
	resp, err := g.client.GenerateContent(ctx, llm.Request{
		Contents: []llm.Content{{
			Role:  llm.RoleUser,
			Parts: []llm.Part{{Text: fmt.Sprintf(sqlGenerationPrompt, schema, question)}},
		}},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("SQL generation failed: %w", err)
	}
	return stripCodeFences(resp.Text), nil
}

// stripCodeFences removes markdown code fences the model sometimes wraps
// its answer in despite the prompt.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```sql")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
