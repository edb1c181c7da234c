package infra

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"
)

const (
	GeminiName         = "gemini"
	geminiDefaultURL   = "https://generativelanguage.googleapis.com"
	geminiDefaultModel = "gemini-2.5-flash"
)

type GeminiOptions struct {
	BaseURL         string
	Model           string
	APIKey          string
	Temperature     float64
	TopK            int
	TopP            float64
	MaxOutputTokens int
	Timeout         time.Duration
	HTTPClient      *http.Client
}

func (o *GeminiOptions) defaults() {
	if o.BaseURL == "" {
		o.BaseURL = geminiDefaultURL
	}
	if o.Model == "" {
		o.Model = geminiDefaultModel
	}
	if o.Temperature == 0 {
		o.Temperature = 0.3
	}
	if o.TopK <= 0 {
		o.TopK = 40
	}
	if o.TopP == 0 {
		o.TopP = 0.8
	}
	if o.MaxOutputTokens <= 0 {
		o.MaxOutputTokens = 2048
	}
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
}

// GeminiClient implementa domain.Invoker para generateContent.
type GeminiClient struct {
	url    string
	apiKey string
	cfg    geminiGenerationConfig
	do     doFunc
}

func NewGeminiClient(opts GeminiOptions) (*GeminiClient, error) {
	opts.defaults()
	if opts.APIKey == "" {
		return nil, errors.New("gemini: missing api key")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &GeminiClient{
		url:    joinURL(opts.BaseURL, "/v1beta/models/"+url.PathEscape(opts.Model)+":generateContent"),
		apiKey: opts.APIKey,
		cfg: geminiGenerationConfig{
			Temperature:     opts.Temperature,
			TopK:            opts.TopK,
			TopP:            opts.TopP,
			MaxOutputTokens: opts.MaxOutputTokens,
		},
		do: hc.Do,
	}, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (c *GeminiClient) Invoke(ctx context.Context, prompt string) (string, error) {
	req := geminiRequest{
		Contents:         []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: c.cfg,
	}
	h := http.Header{}
	h.Set("x-goog-api-key", c.apiKey)

	var resp geminiResponse
	if err := postJSON(ctx, c.do, GeminiName, c.url, h, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return usableText(GeminiName, "")
	}
	return usableText(GeminiName, resp.Candidates[0].Content.Parts[0].Text)
}
