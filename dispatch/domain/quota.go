package domain

import "time"

// ClientKey identifica quem submete lotes (API key, IP).
type ClientKey string

// QuotaLimiter decide se um cliente pode submeter mais um lote agora.
// Quando nega, informa em quanto tempo haverá saldo.
type QuotaLimiter interface {
	Admit(now time.Time) (ok bool, wait time.Duration)
}

// QuotaStore obtém um limiter por cliente. A implementação pode manter cache, TTL etc.
type QuotaStore interface {
	Get(ClientKey) QuotaLimiter
}

type QuotaDecision struct {
	Allowed bool
	// RetryAfter é o valor do header Retry-After quando bloquear. 0 = sem recomendação.
	RetryAfter time.Duration
}
