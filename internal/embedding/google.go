package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultBaseURL   = "https://generativelanguage.googleapis.com"
	defaultTimeout   = 30 // seconds
	defaultBatchSize = 32
)

// GoogleService implements the Service interface using the Generative
// Language embedContent endpoints.
type GoogleService struct {
	config     Config
	httpClient *http.Client
}

// NewGoogleService creates a new GoogleService. When cfg has no API key,
// configuration is loaded from the environment.
func NewGoogleService(cfg Config) (*GoogleService, error) {
	if cfg.APIKey == "" {
		loadedCfg, err := LoadConfig()
		if err != nil {
			return nil, err
		}
		loadedCfg.BaseURL = cfg.BaseURL
		if cfg.Model != "" {
			loadedCfg.Model = cfg.Model
		}
		cfg = *loadedCfg
	}

	if cfg.Model == "" {
		cfg.Model = ModelEmbedding001
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = defaultBatchSize
	}

	return &GoogleService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}, nil
}

// Embed implements the Service interface
func (s *GoogleService) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrInvalidInput
	}

	url := fmt.Sprintf("%s/v1beta/%s:embedContent?key=%s", s.config.BaseURL, s.config.Model, s.config.APIKey)
	body := embedRequest{
		Model:   string(s.config.Model),
		Content: content{Parts: []part{{Text: text}}},
	}

	var resp embedResponse
	if err := s.post(ctx, url, body, &resp); err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if len(resp.Embedding.Values) == 0 {
		return nil, ErrEmbeddingFailed
	}
	return resp.Embedding.Values, nil
}

// EmbedBatch implements the Service interface. Large inputs are split into
// MaxBatchSize chunks embedded concurrently.
func (s *GoogleService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrInvalidInput
	}
	for _, text := range texts {
		if text == "" {
			return nil, ErrInvalidInput
		}
	}

	results := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)

	for start := 0; start < len(texts); start += s.config.MaxBatchSize {
		end := start + s.config.MaxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		start, end := start, end

		g.Go(func() error {
			vectors, err := s.embedChunk(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("batch %d-%d failed: %w", start, end, err)
			}
			copy(results[start:], vectors)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *GoogleService) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	url := fmt.Sprintf("%s/v1beta/%s:batchEmbedContents?key=%s", s.config.BaseURL, s.config.Model, s.config.APIKey)

	reqs := make([]embedRequest, len(texts))
	for i, text := range texts {
		reqs[i] = embedRequest{
			Model:   string(s.config.Model),
			Content: content{Parts: []part{{Text: text}}},
		}
	}

	var resp batchEmbedResponse
	if err := s.post(ctx, url, batchEmbedRequest{Requests: reqs}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrEmbeddingFailed, len(texts), len(resp.Embeddings))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		vectors[i] = e.Values
	}
	return vectors, nil
}

func (s *GoogleService) post(ctx context.Context, url string, reqBody, respBody interface{}) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API returned error status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type embedRequest struct {
	Model   string  `json:"model"`
	Content content `json:"content"`
}

type embedValues struct {
	Values []float32 `json:"values"`
}

type embedResponse struct {
	Embedding embedValues `json:"embedding"`
}

type batchEmbedRequest struct {
	Requests []embedRequest `json:"requests"`
}

type batchEmbedResponse struct {
	Embeddings []embedValues `json:"embeddings"`
}
