package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)
	return client, server
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, ErrAPIKeyNotSet)
}

func TestGenerateContentText(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "models/gemini-2.5-flash:generateContent")

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "hello", req.Contents[0].Parts[0].Text)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{{
				"content": map[string]interface{}{
					"role":  "model",
					"parts": []map[string]interface{}{{"text": "hi there"}},
				},
			}},
		})
	})

	resp, err := client.GenerateContent(context.Background(), Request{
		Contents: []Content{{Role: RoleUser, Parts: []Part{{Text: "hello"}}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Text)
	assert.Empty(t, resp.FunctionCalls)
}

func TestGenerateContentFunctionCall(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{{
				"content": map[string]interface{}{
					"role": "model",
					"parts": []map[string]interface{}{{
						"functionCall": map[string]interface{}{
							"name": "get_client_profile",
							"args": map[string]interface{}{"client_id": "CLT-001"},
						},
					}},
				},
			}},
		})
	})

	resp, err := client.GenerateContent(context.Background(), Request{
		Contents: []Content{{Role: RoleUser, Parts: []Part{{Text: "who am I"}}}},
	})
	require.NoError(t, err)
	require.Len(t, resp.FunctionCalls, 1)
	assert.Equal(t, "get_client_profile", resp.FunctionCalls[0].Name)
	assert.Equal(t, "CLT-001", resp.FunctionCalls[0].Args["client_id"])
}

func TestGenerateContentErrorStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "invalid key"}}`, http.StatusForbidden)
	})

	_, err := client.GenerateContent(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrGenerateContent)
}

func TestGenerateContentNoCandidates(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"candidates": []interface{}{}})
	})

	_, err := client.GenerateContent(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGroundedSummarizer(t *testing.T) {
	var gotTools []Tool
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotTools = req.Tools

		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{{
				"content": map[string]interface{}{
					"role":  "model",
					"parts": []map[string]interface{}{{"text": "  A fine microbrewery.  "}},
				},
			}},
		})
	})

	summarizer := NewGroundedSummarizer(client)
	summary, err := summarizer.Summarize(context.Background(), "Stone Brewing", "Escondido, CA", "https://stonebrewing.com")
	require.NoError(t, err)
	assert.Equal(t, "A fine microbrewery.", summary)

	require.Len(t, gotTools, 1)
	assert.NotNil(t, gotTools[0].GoogleSearch)
}

func TestGroundedSummarizerEmptyText(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{{
				"content": map[string]interface{}{
					"role":  "model",
					"parts": []map[string]interface{}{{"text": "   "}},
				},
			}},
		})
	})

	summarizer := NewGroundedSummarizer(client)
	_, err := summarizer.Summarize(context.Background(), "Stone Brewing", "", "https://stonebrewing.com")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
