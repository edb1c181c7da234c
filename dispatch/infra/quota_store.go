package infra

import (
	"context"
	"sync"
	"time"

	"notes-gateway/dispatch/domain"

	"golang.org/x/time/rate"
)

// QuotaStore é um token bucket (x/time/rate) por cliente, com cache e limpeza
// periódica de clientes inativos.
type QuotaStore struct {
	mu           sync.Mutex
	entries      map[domain.ClientKey]*quotaEntry
	limit        rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type quotaEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type QuotaOption func(*QuotaStore)

func WithIdleTTL(d time.Duration) QuotaOption {
	return func(s *QuotaStore) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) QuotaOption {
	return func(s *QuotaStore) { s.cleanupEvery = d }
}

// NewQuotaStore cria a cota: `perMinute` lotes por minuto com rajada `burst`.
func NewQuotaStore(perMinute float64, burst int, opts ...QuotaOption) *QuotaStore {
	s := &QuotaStore{
		entries:      make(map[domain.ClientKey]*quotaEntry),
		limit:        rate.Limit(perMinute / 60),
		burst:        burst,
		idleTTL:      30 * time.Minute,
		cleanupEvery: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get implementa domain.QuotaStore.
func (s *QuotaStore) Get(key domain.ClientKey) domain.QuotaLimiter {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[key]; ok {
		ent.lastSeen = now
		return bucket{ent.lim}
	}

	lim := rate.NewLimiter(s.limit, s.burst)
	s.entries[key] = &quotaEntry{lim: lim, lastSeen: now}
	return bucket{lim}
}

func (s *QuotaStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *QuotaStore) Cleanup() {
	cutoff := time.Now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor inicia uma goroutine que limpa clientes inativos periodicamente.
// Pare cancelando o contexto.
func (s *QuotaStore) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}

type bucket struct{ lim *rate.Limiter }

// Admit consome um token se houver; senão devolve a espera até o próximo.
func (b bucket) Admit(now time.Time) (bool, time.Duration) {
	r := b.lim.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d
	}
	return true, 0
}
