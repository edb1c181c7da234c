package dispatch

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"notes-gateway/dispatch/application"
	"notes-gateway/dispatch/domain"
)

type KeyFunc func(r *http.Request) domain.ClientKey

type QuotaOptions struct {
	Store              domain.QuotaStore
	KeyFn              KeyFunc
	KeyHeader          string
	TrustXForwardedFor bool
	Logger             *slog.Logger
}

// ClientKeyFunc identifica o cliente pelo header (se presente), depois pelo
// primeiro IP do X-Forwarded-For (se confiável) e por fim pelo RemoteAddr.
func ClientKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) domain.ClientKey {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return domain.ClientKey(v)
			}
		}

		if trustXFF {
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return domain.ClientKey(ip)
				}
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return domain.ClientKey(host)
		}
		if r.RemoteAddr != "" {
			return domain.ClientKey(r.RemoteAddr)
		}
		return "unknown"
	}
}

// QuotaMiddleware limita quantos lotes cada cliente pode submeter por minuto.
// Sem Store a cota fica desligada.
func QuotaMiddleware(opts QuotaOptions) func(next http.Handler) http.Handler {
	if opts.Store == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.KeyFn == nil {
		opts.KeyFn = ClientKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	q := application.Quota{Store: opts.Store}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)
			dec := q.Decide(key)
			if !dec.Allowed {
				secs := int(math.Ceil(dec.RetryAfter.Seconds()))
				log.Info("batch quota exceeded", "client", string(key), "retry_after", dec.RetryAfter)
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
