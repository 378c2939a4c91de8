package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"researchpal-backend/pkg/config"
)

func testGenerator(baseURL string) *OpenAI {
	cfg := &config.Config{}
	cfg.Generator.BaseURL = baseURL
	cfg.Generator.APIKey = "test-key"
	cfg.Generator.Model = "test-model"
	cfg.Generator.Timeout = 5 * time.Second
	return NewOpenAI(cfg)
}

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "test-model", req.Model)
		require.Contains(t, req.Messages[0].Content, "Pixel 9")

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		})
	}))
}

func TestGenerate(t *testing.T) {
	srv := chatServer(t, `{"executive_summary":"ok"}`)
	defer srv.Close()

	raw, err := testGenerator(srv.URL).Generate(context.Background(), "Pixel 9")
	require.NoError(t, err)
	require.JSONEq(t, `{"executive_summary":"ok"}`, string(raw))
}

func TestGenerateStripsCodeFence(t *testing.T) {
	srv := chatServer(t, "```json\n{\"executive_summary\":\"ok\"}\n```")
	defer srv.Close()

	raw, err := testGenerator(srv.URL).Generate(context.Background(), "Pixel 9")
	require.NoError(t, err)
	require.JSONEq(t, `{"executive_summary":"ok"}`, string(raw))
}

func TestGenerateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limit exceeded"},
		})
	}))
	defer srv.Close()

	_, err := testGenerator(srv.URL).Generate(context.Background(), "Pixel 9")
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limit exceeded")
}

func TestGenerateNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	_, err := testGenerator(srv.URL).Generate(context.Background(), "Pixel 9")
	require.Error(t, err)
}

func TestStripFences(t *testing.T) {
	require.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	require.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	require.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
}
