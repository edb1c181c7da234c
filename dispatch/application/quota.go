package application

import (
	"time"

	"notes-gateway/dispatch/domain"
)

// Quota aplica a cota de lotes por cliente, sem saber nada sobre HTTP.
type Quota struct {
	Store domain.QuotaStore
	// MinRetryAfter é o piso do Retry-After devolvido (padrão 1s).
	MinRetryAfter time.Duration
	Now           func() time.Time
}

func (q Quota) Decide(key domain.ClientKey) domain.QuotaDecision {
	if q.Store == nil {
		return domain.QuotaDecision{Allowed: true}
	}
	lim := q.Store.Get(key)
	if lim == nil {
		return domain.QuotaDecision{Allowed: true}
	}

	now := time.Now
	if q.Now != nil {
		now = q.Now
	}
	ok, wait := lim.Admit(now())
	if ok {
		return domain.QuotaDecision{Allowed: true}
	}

	floor := q.MinRetryAfter
	if floor <= 0 {
		floor = time.Second
	}
	if wait < floor {
		wait = floor
	}
	return domain.QuotaDecision{Allowed: false, RetryAfter: wait}
}
