// Package llm provides a client for the Google Generative Language chat
// API, covering plain generation, function calling, and grounded search.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Common errors
var (
	ErrAPIKeyNotSet    = errors.New("Google API key not set")
	ErrEmptyResponse   = errors.New("model returned no candidates")
	ErrGenerateContent = errors.New("content generation failed")
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-2.5-flash"
	defaultTimeout = 60 // seconds
)

// Roles accepted by the chat API. Function responses are carried in a user
// turn.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Part is one piece of a chat message.
type Part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// FunctionCall is a tool invocation requested by the model.
type FunctionCall struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args,omitempty"`
}

// FunctionResponse carries a tool result back to the model.
type FunctionResponse struct {
	Name     string                 `json:"name"`
	Response map[string]interface{} `json:"response"`
}

// Content is a single chat turn.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Schema is a JSON-schema fragment describing function parameters.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// FunctionDeclaration describes one callable tool to the model.
type FunctionDeclaration struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Parameters  *Schema `json:"parameters,omitempty"`
}

// Tool groups capabilities offered to the model for one request.
type Tool struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations,omitempty"`
	GoogleSearch         *GoogleSearch         `json:"googleSearch,omitempty"`
}

// GoogleSearch enables search grounding for a request.
type GoogleSearch struct{}

// Request is a single generateContent call.
type Request struct {
	SystemInstruction string
	Contents          []Content
	Tools             []Tool
	Temperature       float64
}

// Response is the parsed model output: accumulated text plus any function
// calls the model requested.
type Response struct {
	Text          string
	FunctionCalls []FunctionCall
}

// Config holds the client configuration.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	Timeout     int // in seconds
}

// Client calls the generateContent endpoint synchronously.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a chat client. The API key is required.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}, nil
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateRequest struct {
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	Contents          []Content         `json:"contents"`
	Tools             []Tool            `json:"tools,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content Content `json:"content"`
	} `json:"candidates"`
}

// GenerateContent performs one synchronous generateContent call.
func (c *Client) GenerateContent(ctx context.Context, req Request) (*Response, error) {
	payload := generateRequest{
		Contents: req.Contents,
		Tools:    req.Tools,
		GenerationConfig: &generationConfig{
			Temperature: req.Temperature,
		},
	}
	if req.SystemInstruction != "" {
		payload.SystemInstruction = &Content{
			Parts: []Part{{Text: req.SystemInstruction}},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.config.BaseURL, c.config.Model, c.config.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerateContent, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrGenerateContent, httpResp.StatusCode, string(respBody))
	}

	var parsed generateResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Candidates) == 0 {
		return nil, ErrEmptyResponse
	}

	resp := &Response{}
	for _, p := range parsed.Candidates[0].Content.Parts {
		if p.Text != "" {
			resp.Text += p.Text
		}
		if p.FunctionCall != nil {
			resp.FunctionCalls = append(resp.FunctionCalls, *p.FunctionCall)
		}
	}
	return resp, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.config.Model
}
