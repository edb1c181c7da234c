package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"notes-gateway/dispatch/domain"
)

// HTTPSource busca o texto bruto em GET {base}/{id}, que responde JSON {title, text}.
type HTTPSource struct {
	base string
	do   doFunc
}

func NewHTTPSource(base string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	hc := &http.Client{Timeout: timeout}
	return &HTTPSource{base: strings.TrimRight(base, "/"), do: hc.Do}
}

type sourcePayload struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

func (s *HTTPSource) Fetch(ctx context.Context, id string) (domain.WorkItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+"/"+url.PathEscape(id), nil)
	if err != nil {
		return domain.WorkItem{}, fmt.Errorf("%s: %w: %v", id, domain.ErrSourceFetch, err)
	}
	resp, err := s.do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.WorkItem{}, ctxErr
		}
		return domain.WorkItem{}, fmt.Errorf("%s: %w: %v", id, domain.ErrSourceFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return domain.WorkItem{}, fmt.Errorf("%s: %w: status %d", id, domain.ErrSourceFetch, resp.StatusCode)
	}
	var p sourcePayload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return domain.WorkItem{}, fmt.Errorf("%s: %w: %v", id, domain.ErrSourceFetch, err)
	}
	if strings.TrimSpace(p.Text) == "" {
		return domain.WorkItem{}, fmt.Errorf("%s: %w: no captions", id, domain.ErrSourceFetch)
	}
	return domain.WorkItem{ID: id, Title: p.Title, RawText: p.Text}, nil
}

// StaticSource é uma fonte em memória (testes e CLI).
type StaticSource map[string]domain.WorkItem

func (s StaticSource) Fetch(_ context.Context, id string) (domain.WorkItem, error) {
	w, ok := s[id]
	if !ok {
		return domain.WorkItem{}, fmt.Errorf("%s: %w: unknown item", id, domain.ErrSourceFetch)
	}
	return w, nil
}
