// Package agent orchestrates the brewery recommendation workflow: a
// planner drives the chat model through function calling over the three
// registered tools, recording a chain-of-thought trace of every tool
// execution.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/andluizsouza/ai-agent-personalization/internal/llm"
)

// maxIterations bounds the function-calling loop. A well-behaved plan
// needs at most a handful of tool rounds; anything beyond this is the
// model looping.
const maxIterations = 10

const plannerPrompt = `You are a beer sommelier assistant for a beverage distributor.
Your job is to recommend new breweries to business clients based on their purchase profile.

Follow this plan:
1. Retrieve the client profile with get_client_profile.
2. Search for new breweries in the client's city and state, matching their
   preferred brewery types and excluding breweries already in their purchase
   history, with search_breweries.
3. Present one brewery as the main suggestion, with its address and website.
4. Ask the user if they want a detailed summary of the suggested brewery's
   website before fetching it.
5. Only if the user confirms, call get_website_summary for the suggested
   brewery and present the summary.

Rules:
- Never invent brewery data; only use what the tools return.
- If the client profile is not found, ask the user for their postal code and
  business name, then retry.
- Be concise and friendly. Answer in the language the user writes in.`

// Tool is one callable capability exposed to the model.
type Tool interface {
	Declaration() llm.FunctionDeclaration
	Call(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error)
}

// ChatModel is the slice of the chat client the planner depends on.
type ChatModel interface {
	GenerateContent(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// ToolExecution is one entry of the chain-of-thought trace.
type ToolExecution struct {
	Tool        string                 `json:"tool"`
	Timestamp   time.Time              `json:"timestamp"`
	Input       map[string]interface{} `json:"input"`
	Duration    time.Duration          `json:"execution_time"`
	Status      string                 `json:"status"`
	CacheStatus string                 `json:"cache_status,omitempty"`
}

// RunResult carries the planner's answer and its execution metadata.
type RunResult struct {
	Response       string          `json:"response"`
	ClientID       string          `json:"client_id"`
	Duration       time.Duration   `json:"execution_time"`
	ToolCalls      int             `json:"tool_calls"`
	ChainOfThought []ToolExecution `json:"chain_of_thought"`
	Status         string          `json:"status"`
}

// Metrics aggregates planner executions.
type Metrics struct {
	TotalDuration   time.Duration  `json:"total_execution_time"`
	TotalToolCalls  int            `json:"total_tool_calls"`
	ToolsBreakdown  map[string]int `json:"tools_breakdown"`
	CacheHitRate    float64        `json:"cache_hit_rate"`
	AvgToolDuration time.Duration  `json:"avg_tool_execution_time"`
}

// Planner drives the recommendation plan through function calling.
type Planner struct {
	model  ChatModel
	tools  map[string]Tool
	decls  []llm.FunctionDeclaration
	logger zerolog.Logger

	executionLog  []ToolExecution
	totalDuration time.Duration
}

// New creates a Planner over the chat model and tool set.
func New(model ChatModel, tools ...Tool) *Planner {
	p := &Planner{
		model:  model,
		tools:  make(map[string]Tool, len(tools)),
		logger: log.With().Str("component", "planner").Logger(),
	}
	for _, t := range tools {
		decl := t.Declaration()
		p.tools[decl.Name] = t
		p.decls = append(p.decls, decl)
	}
	return p
}

// Run executes the plan for one user turn. Errors from the model surface
// as a RunResult with status "error"; tool errors are reported back to the
// model, which decides how to recover.
func (p *Planner) Run(ctx context.Context, clientID, userMessage string) RunResult {
	start := time.Now()
	p.executionLog = nil

	input := fmt.Sprintf("Client ID: %s. Execute the recommendation plan.", clientID)
	if userMessage != "" {
		input = fmt.Sprintf("Client ID: %s\n\nUser message: %s", clientID, userMessage)
	}

	contents := []llm.Content{{
		Role:  llm.RoleUser,
		Parts: []llm.Part{{Text: input}},
	}}

	p.logger.Info().Str("client_id", clientID).Msg("starting planner execution")

	var finalText string
	for i := 0; i < maxIterations; i++ {
		resp, err := p.model.GenerateContent(ctx, llm.Request{
			SystemInstruction: plannerPrompt,
			Contents:          contents,
			Tools:             []llm.Tool{{FunctionDeclarations: p.decls}},
			Temperature:       0,
		})
		if err != nil {
			p.logger.Error().Err(err).Msg("planner execution failed")
			return RunResult{
				Response:       "Failed to execute the recommendation plan: " + err.Error(),
				ClientID:       clientID,
				Duration:       time.Since(start),
				ToolCalls:      len(p.executionLog),
				ChainOfThought: p.executionLog,
				Status:         "error",
			}
		}

		if len(resp.FunctionCalls) == 0 {
			finalText = resp.Text
			break
		}

		// Echo the model's tool request, then answer it in a user turn.
		var callParts, responseParts []llm.Part
		for _, call := range resp.FunctionCalls {
			call := call
			callParts = append(callParts, llm.Part{FunctionCall: &call})
			responseParts = append(responseParts, llm.Part{
				FunctionResponse: &llm.FunctionResponse{
					Name:     call.Name,
					Response: p.dispatch(ctx, call),
				},
			})
		}
		contents = append(contents,
			llm.Content{Role: llm.RoleModel, Parts: callParts},
			llm.Content{Role: llm.RoleUser, Parts: responseParts},
		)
	}

	duration := time.Since(start)
	p.totalDuration += duration

	if finalText == "" {
		p.logger.Warn().Int("iterations", maxIterations).Msg("planner hit the iteration limit")
		return RunResult{
			Response:       "The plan did not converge; please try again.",
			ClientID:       clientID,
			Duration:       duration,
			ToolCalls:      len(p.executionLog),
			ChainOfThought: p.executionLog,
			Status:         "error",
		}
	}

	p.logger.Info().Dur("duration", duration).Int("tool_calls", len(p.executionLog)).
		Msg("planner execution completed")
	return RunResult{
		Response:       finalText,
		ClientID:       clientID,
		Duration:       duration,
		ToolCalls:      len(p.executionLog),
		ChainOfThought: p.executionLog,
		Status:         "success",
	}
}

// dispatch runs one tool call and records it in the chain-of-thought
// trace. Unknown tools and tool errors are returned to the model as error
// payloads rather than aborting the plan.
func (p *Planner) dispatch(ctx context.Context, call llm.FunctionCall) map[string]interface{} {
	start := time.Now()
	entry := ToolExecution{
		Tool:      call.Name,
		Timestamp: start,
		Input:     call.Args,
		Status:    "success",
	}

	tool, ok := p.tools[call.Name]
	if !ok {
		entry.Status = "error"
		entry.Duration = time.Since(start)
		p.executionLog = append(p.executionLog, entry)
		p.logger.Error().Str("tool", call.Name).Msg("model requested an unknown tool")
		return map[string]interface{}{"error": "UNKNOWN_TOOL", "message": "no tool named " + call.Name}
	}

	p.logger.Info().Str("tool", call.Name).Interface("args", call.Args).Msg("tool called")
	result, err := tool.Call(ctx, call.Args)
	entry.Duration = time.Since(start)
	if err != nil {
		entry.Status = "error"
		p.executionLog = append(p.executionLog, entry)
		p.logger.Error().Err(err).Str("tool", call.Name).Msg("tool execution failed")
		return map[string]interface{}{"error": "TOOL_ERROR", "message": err.Error()}
	}

	if status, ok := result["cache_status"].(string); ok {
		entry.CacheStatus = status
	}
	p.executionLog = append(p.executionLog, entry)
	return result
}

// ChainOfThought returns the trace of the most recent run.
func (p *Planner) ChainOfThought() []ToolExecution {
	return p.executionLog
}

// Metrics aggregates the most recent run into performance metrics.
func (p *Planner) Metrics() Metrics {
	m := Metrics{
		TotalDuration:  p.totalDuration,
		TotalToolCalls: len(p.executionLog),
		ToolsBreakdown: make(map[string]int),
	}
	if len(p.executionLog) == 0 {
		return m
	}

	var totalToolTime time.Duration
	var summaryCalls, cacheHits int
	for _, e := range p.executionLog {
		m.ToolsBreakdown[e.Tool]++
		totalToolTime += e.Duration
		if e.Tool == "get_website_summary" {
			summaryCalls++
			if e.CacheStatus == "CACHE_HIT" {
				cacheHits++
			}
		}
	}
	if summaryCalls > 0 {
		m.CacheHitRate = float64(cacheHits) / float64(summaryCalls)
	}
	m.AvgToolDuration = totalToolTime / time.Duration(len(p.executionLog))
	return m
}

// toMap flattens a tool result struct into the map shape the chat API
// expects in a functionResponse.
func toMap(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode tool result: %w", err)
	}
	return out, nil
}
