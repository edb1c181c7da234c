package infra

import (
	"context"
	"sync"

	"notes-gateway/dispatch/domain"
)

type Counters struct {
	Succeeded int64
	Failed    int64
	Skipped   int64
}

// MemoryStatsStore é uma implementação simples em memória.
// Útil para testes e desenvolvimento.
//
// Não faz expiração e não é indicada para produção.
type MemoryStatsStore struct {
	mu         sync.Mutex
	total      Counters
	byProvider map[string]int64
	byKind     map[domain.ErrorKind]int64
	byItem     map[string]Counters

	trackItems bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackItems(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackItems = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		byProvider: make(map[string]int64),
		byKind:     make(map[domain.ErrorKind]int64),
		byItem:     make(map[string]Counters),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var c Counters
	switch {
	case ev.Skipped:
		c.Skipped = 1
	case ev.Success:
		c.Succeeded = 1
		s.byProvider[ev.Provider]++
	default:
		c.Failed = 1
		s.byKind[ev.Kind]++
	}
	s.total.add(c)
	if s.trackItems && ev.ItemID != "" {
		it := s.byItem[ev.ItemID]
		it.add(c)
		s.byItem[ev.ItemID] = it
	}
	return nil
}

func (c *Counters) add(o Counters) {
	c.Succeeded += o.Succeeded
	c.Failed += o.Failed
	c.Skipped += o.Skipped
}

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *MemoryStatsStore) ByProvider() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.byProvider))
	for k, v := range s.byProvider {
		out[k] = v
	}
	return out
}

func (s *MemoryStatsStore) ByKind() map[domain.ErrorKind]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.ErrorKind]int64, len(s.byKind))
	for k, v := range s.byKind {
		out[k] = v
	}
	return out
}

func (s *MemoryStatsStore) ByItem() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byItem))
	for k, v := range s.byItem {
		out[k] = v
	}
	return out
}
