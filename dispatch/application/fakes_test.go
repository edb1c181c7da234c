package application

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"notes-gateway/dispatch/domain"
)

type scriptedInvoker struct {
	calls atomic.Int32
	fn    func(n int, prompt string) (string, error)
}

func (s *scriptedInvoker) Invoke(_ context.Context, prompt string) (string, error) {
	n := int(s.calls.Add(1))
	return s.fn(n, prompt)
}

func (s *scriptedInvoker) Calls() int { return int(s.calls.Load()) }

func always(text string, err error) *scriptedInvoker {
	return &scriptedInvoker{fn: func(int, string) (string, error) { return text, err }}
}

func newProvider(name string, inv domain.Invoker, maxRetries int) *Provider {
	return &Provider{
		Config: domain.ProviderConfig{
			Name:              name,
			MaxRetries:        maxRetries,
			BaseBackoff:       4 * time.Second,
			BackoffMultiplier: 1.5,
		},
		Invoker: inv,
	}
}

// sleeps registra os backoffs sem dormir de verdade.
type sleeps struct {
	mu  sync.Mutex
	got []time.Duration
}

func (s *sleeps) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.got = append(s.got, d)
	s.mu.Unlock()
	return ctx.Err()
}

// chanPool é um semáforo simples baseado em channel.
type chanPool struct {
	sem chan struct{}
}

func newChanPool(max int) *chanPool { return &chanPool{sem: make(chan struct{}, max)} }

func (p *chanPool) Acquire(ctx context.Context) (func(), error) {
	select {
	case p.sem <- struct{}{}:
		return func() { <-p.sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type observerSpy struct {
	mu       sync.Mutex
	calls    map[domain.ErrorKind]int
	backoffs int
}

func (o *observerSpy) ObserveCall(_ string, kind domain.ErrorKind, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.calls == nil {
		o.calls = make(map[domain.ErrorKind]int)
	}
	o.calls[kind]++
}

func (o *observerSpy) ObserveBackoff(string, time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.backoffs++
}

type statsSpy struct {
	mu     sync.Mutex
	events []domain.StatsEvent
}

func (s *statsSpy) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}
