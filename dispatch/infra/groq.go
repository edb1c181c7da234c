package infra

import (
	"context"
	"errors"
	"net/http"
	"time"
)

const (
	GroqName         = "groq"
	groqDefaultURL   = "https://api.groq.com/openai/v1"
	groqDefaultModel = "llama-3.3-70b-versatile"
	groqSystemPrompt = "You are a helpful assistant that converts lecture transcripts into well-structured Markdown notes."
)

// GroqOptions configura o cliente OpenAI-compatible da Groq.
type GroqOptions struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	HTTPClient  *http.Client
}

func (o *GroqOptions) defaults() {
	if o.BaseURL == "" {
		o.BaseURL = groqDefaultURL
	}
	if o.Model == "" {
		o.Model = groqDefaultModel
	}
	if o.Temperature == 0 {
		o.Temperature = 0.3
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 4096
	}
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
}

// GroqClient implementa domain.Invoker para chat completions.
type GroqClient struct {
	url    string
	apiKey string
	model  string
	temp   float64
	max    int
	do     doFunc
}

func NewGroqClient(opts GroqOptions) (*GroqClient, error) {
	opts.defaults()
	if opts.APIKey == "" {
		return nil, errors.New("groq: missing api key")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &GroqClient{
		url:    joinURL(opts.BaseURL, "/chat/completions"),
		apiKey: opts.APIKey,
		model:  opts.Model,
		temp:   opts.Temperature,
		max:    opts.MaxTokens,
		do:     hc.Do,
	}, nil
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type groqResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Invoke: uma única chamada, sem retry.
func (c *GroqClient) Invoke(ctx context.Context, prompt string) (string, error) {
	req := groqRequest{
		Model: c.model,
		Messages: []groqMessage{
			{Role: "system", Content: groqSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: c.temp,
		MaxTokens:   c.max,
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.apiKey)

	var resp groqResponse
	if err := postJSON(ctx, c.do, GroqName, c.url, h, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return usableText(GroqName, "")
	}
	return usableText(GroqName, resp.Choices[0].Message.Content)
}
