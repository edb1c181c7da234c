package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"notes-gateway/dispatch/domain"
)

// Corpo de erro do upstream é truncado: só serve para diagnóstico.
const maxErrorBody = 4 << 10

type doFunc func(*http.Request) (*http.Response, error)

// postJSON faz uma única troca JSON com o provedor e classifica o desfecho:
//   - 429 -> domain.ErrRateLimited
//   - outro status fora de 2xx -> *domain.ProviderError com o corpo truncado
//   - falha de transporte ou JSON inválido -> *domain.ProviderError (Status 0 se não houve resposta)
//
// Erros de ctx passam direto para o chamador enxergar o cancelamento.
func postJSON(ctx context.Context, do doFunc, provider, url string, header http.Header, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return &domain.ProviderError{Provider: provider, Err: fmt.Errorf("encode request: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &domain.ProviderError{Provider: provider, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &domain.ProviderError{Provider: provider, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%s: %w", provider, domain.ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &domain.ProviderError{
			Provider: provider,
			Status:   resp.StatusCode,
			Body:     strings.TrimSpace(string(b)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &domain.ProviderError{
			Provider: provider,
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("decode response: %w", err),
		}
	}
	return nil
}

// usableText devolve ErrEmptyResponse quando o provedor respondeu sem texto.
func usableText(provider, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %w", provider, domain.ErrEmptyResponse)
	}
	return text, nil
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
