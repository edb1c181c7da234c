package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrRateLimited: o provedor sinalizou throttling (HTTP 429). Único erro com retry.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmptyResponse: resposta bem formada mas sem texto utilizável. Sem retry.
	ErrEmptyResponse = errors.New("empty response")
	// ErrRetriesExhausted: ErrRateLimited persistiu depois de MaxRetries tentativas.
	ErrRetriesExhausted = errors.New("retries exhausted")
	// ErrSourceFetch: a fonte de conteúdo não entregou o texto do item.
	ErrSourceFetch = errors.New("source fetch failed")
	// ErrNoProviders: nenhum provedor tem credencial. Fatal para o lote inteiro.
	ErrNoProviders = errors.New("no llm provider credentials configured")
)

// ProviderError é uma falha não transitória do provedor (status != 2xx e != 429,
// falha de transporte ou corpo indecifrável). Status 0 indica que não houve resposta HTTP.
type ProviderError struct {
	Provider string
	Status   int
	Body     string
	Err      error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	case e.Body != "":
		return fmt.Sprintf("%s upstream %d: %s", e.Provider, e.Status, e.Body)
	default:
		return fmt.Sprintf("%s upstream %d", e.Provider, e.Status)
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

// KindOf mapeia um erro para a taxonomia usada nos resultados.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	// Timeout do cliente HTTP também casa com DeadlineExceeded, mas chega
	// embrulhado em ProviderError: é falha do provedor, não do lote.
	var pe *ProviderError
	if errors.As(err, &pe) {
		return KindProviderError
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	if errors.Is(err, ErrRateLimited) {
		return KindRateLimited
	}
	if errors.Is(err, ErrEmptyResponse) {
		return KindEmptyResponse
	}
	if errors.Is(err, ErrSourceFetch) {
		return KindSourceFetchFailed
	}
	return KindUnknown
}
