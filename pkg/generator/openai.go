package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"researchpal-backend/pkg/config"

	"go.uber.org/fx"
)

var Module = fx.Module("generator",
	fx.Provide(func(cfg *config.Config) Generator {
		return NewOpenAI(cfg)
	}),
)

const reportPrompt = `Create a comprehensive 8-section product intelligence report for %q.

Return ONLY valid JSON with these exact sections:
1. "executive_summary": Brief 2-3 line overview
2. "product_overview": Key features, specifications, price range
3. "market_position": Brand reputation, market share, positioning
4. "customer_sentiment": Overall user satisfaction, common complaints/praise
5. "competitive_analysis": Top 3 competitors and how this product compares
6. "technical_specs": Detailed specifications and technical details
7. "pricing_analysis": Price trends, value proposition, alternatives
8. "recommendation": Final verdict with pros/cons and who should buy it

Make it comprehensive, source-backed (mention review sources), and actionable. Focus on factual information.`

// OpenAI implements Generator against any OpenAI-compatible chat-completions
// endpoint.
type OpenAI struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

func NewOpenAI(cfg *config.Config) *OpenAI {
	return &OpenAI{
		baseURL: strings.TrimSuffix(cfg.Generator.BaseURL, "/"),
		apiKey:  cfg.Generator.APIKey,
		model:   cfg.Generator.Model,
		http:    &http.Client{Timeout: cfg.Generator.Timeout},
	}
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (g *OpenAI) Generate(ctx context.Context, product string) (json.RawMessage, error) {
	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "user", Content: fmt.Sprintf(reportPrompt, product)},
		},
		MaxTokens: 2000,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generation request: %w", err)
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("generation response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := resp.Status
		if out.Error != nil {
			msg = out.Error.Message
		}
		return nil, fmt.Errorf("generation failed: %s", msg)
	}

	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("generation returned no choices")
	}

	return json.RawMessage(stripFences(out.Choices[0].Message.Content)), nil
}

// stripFences removes a markdown code fence wrapper that some models emit
// around JSON output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
