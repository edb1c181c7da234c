package infra

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"notes-gateway/dispatch/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGroq(t *testing.T, h http.HandlerFunc) *GroqClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewGroqClient(GroqOptions{BaseURL: srv.URL, APIKey: "k"})
	require.NoError(t, err)
	return c
}

func TestGroqClient_Success(t *testing.T) {
	var got groqRequest
	c := newGroq(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"# Notes"}}]}`))
	})

	text, err := c.Invoke(context.Background(), "transcript")
	require.NoError(t, err)
	assert.Equal(t, "# Notes", text)

	assert.Equal(t, groqDefaultModel, got.Model)
	assert.Equal(t, 4096, got.MaxTokens)
	assert.InDelta(t, 0.3, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "transcript", got.Messages[1].Content)
}

func TestGroqClient_Classification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"429", http.StatusTooManyRequests, `{"error":"slow down"}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, domain.ErrRateLimited)
		}},
		{"500", http.StatusInternalServerError, "boom", func(t *testing.T, err error) {
			var pe *domain.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, 500, pe.Status)
			assert.Equal(t, "boom", pe.Body)
			assert.Equal(t, GroqName, pe.Provider)
		}},
		{"401", http.StatusUnauthorized, "bad key", func(t *testing.T, err error) {
			assert.Equal(t, domain.KindProviderError, domain.KindOf(err))
		}},
		{"blank", http.StatusOK, `{"choices":[{"message":{"content":"  \n"}}]}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, domain.ErrEmptyResponse)
		}},
		{"no choices", http.StatusOK, `{"choices":[]}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, domain.ErrEmptyResponse)
		}},
		{"malformed", http.StatusOK, `not json`, func(t *testing.T, err error) {
			var pe *domain.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, 200, pe.Status)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newGroq(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := c.Invoke(context.Background(), "x")
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestGroqClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c, err := NewGroqClient(GroqOptions{BaseURL: srv.URL, APIKey: "k"})
	require.NoError(t, err)

	_, err = c.Invoke(context.Background(), "x")
	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 0, pe.Status)
	assert.False(t, errors.Is(err, domain.ErrRateLimited))
}

func TestGroqClient_ClientTimeoutIsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c, err := NewGroqClient(GroqOptions{BaseURL: srv.URL, APIKey: "k", Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = c.Invoke(context.Background(), "x")
	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 0, pe.Status)
	assert.Equal(t, domain.KindProviderError, domain.KindOf(err))
}

func TestGroqClient_RequiresKey(t *testing.T) {
	_, err := NewGroqClient(GroqOptions{})
	require.Error(t, err)
}

func TestGeminiClient_SuccessAndRequestShape(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "g-key", r.Header.Get("x-goog-api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"## Resumo"}]}}]}`))
	}))
	defer srv.Close()

	c, err := NewGeminiClient(GeminiOptions{BaseURL: srv.URL, APIKey: "g-key"})
	require.NoError(t, err)

	text, err := c.Invoke(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "## Resumo", text)
	assert.Equal(t, 40, got.GenerationConfig.TopK)
	assert.Equal(t, 2048, got.GenerationConfig.MaxOutputTokens)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "prompt", got.Contents[0].Parts[0].Text)
}

func TestGeminiClient_RateLimitedAndEmpty(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusTooManyRequests)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c, err := NewGeminiClient(GeminiOptions{BaseURL: srv.URL, APIKey: "k"})
	require.NoError(t, err)

	_, err = c.Invoke(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	status.Store(http.StatusOK)
	_, err = c.Invoke(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrEmptyResponse)
}

func TestInvoker_ContextCancelPassesThrough(t *testing.T) {
	c := newGroq(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Invoke(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.KindCancelled, domain.KindOf(err))
}
