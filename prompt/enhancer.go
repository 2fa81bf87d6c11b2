package prompt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Enhancer is the opaque text-transform collaborator: it rewrites a raw prompt
// into a richer one. Best effort, no caller-visible retry semantics.
type Enhancer interface {
	Enhance(ctx context.Context, originalPrompt string) (string, error)
}

const enhanceSystemInstruction = `You are a world-class, creative AI art prompt engineer. Your goal is to take the user's simple prompt and transform it into a highly detailed, visually descriptive, and effective core narrative prompt for a photorealistic image generation model. You must add detail about the scene, mood, and subject (e.g., textures, environment). Do NOT include any instructions about camera angle, realism level, style, or color palette, as these will be added later by the user's controls. Your response MUST be only the refined prompt text, with no introductory or concluding sentences, and no markdown formatting.`

const (
	geminiDefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	geminiDefaultModel   = "gemini-2.5-flash"
	geminiDefaultTimeout = 15 * time.Second
	geminiMaxTries       = 3
)

var ErrEnhancerDisabled = errors.New("prompt enhancer is not configured")

type GeminiOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

type GeminiEnhancer struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewGeminiEnhancer(opts GeminiOptions) (*GeminiEnhancer, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = geminiDefaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = geminiDefaultModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: geminiDefaultTimeout}
	}
	return &GeminiEnhancer{
		apiKey:  opts.APIKey,
		model:   model,
		baseURL: baseURL,
		client:  client,
	}, nil
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature float64 `json:"temperature,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *GeminiEnhancer) Enhance(ctx context.Context, originalPrompt string) (string, error) {
	if strings.TrimSpace(originalPrompt) == "" {
		return "", errors.New("prompt is missing")
	}

	payload := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: originalPrompt}},
		}},
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: enhanceSystemInstruction}},
		},
		GenerationConfig: &geminiGenerationConfig{Temperature: 0.8},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal enhance request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, url.QueryEscape(g.apiKey))

	operation := func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return "", backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := g.client.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", err
		}
		if resp.StatusCode >= 500 {
			return "", fmt.Errorf("gemini returned status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return "", backoff.Permanent(fmt.Errorf("gemini returned status %d", resp.StatusCode))
		}

		var parsed geminiResponse
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return "", backoff.Permanent(fmt.Errorf("decode enhance response: %w", err))
		}
		text := parsed.text()
		if text == "" {
			return "", backoff.Permanent(errors.New("llm returned an empty response"))
		}
		return text, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = 5 * time.Second
	return backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(geminiMaxTries))
}

func (r geminiResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String())
}

// DisabledEnhancer stands in when no API key is configured.
type DisabledEnhancer struct{}

func (DisabledEnhancer) Enhance(ctx context.Context, originalPrompt string) (string, error) {
	return "", ErrEnhancerDisabled
}

var (
	_ Enhancer = (*GeminiEnhancer)(nil)
	_ Enhancer = DisabledEnhancer{}
)
