package application

import (
	"sync"

	"notes-gateway/dispatch/domain"
)

// Collector é um ProgressSink em memória. Pode ser lido de outra goroutine.
type Collector struct {
	mu       sync.Mutex
	results  []domain.Result
	summary  domain.Summary
	err      error
	finished bool
}

func (c *Collector) Item(r domain.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

func (c *Collector) Finish(s domain.Summary, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary = s
	c.err = err
	c.finished = true
}

func (c *Collector) Results() []domain.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Result, len(c.results))
	copy(out, c.results)
	return out
}

// Summary devolve o resumo final e se o lote já terminou.
func (c *Collector) Summary() (domain.Summary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summary, c.finished
}

func (c *Collector) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
