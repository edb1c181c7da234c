package dispatch

import (
	"log/slog"
	"net/http"
	"time"

	"notes-gateway/dispatch/application"
	"notes-gateway/dispatch/infra"
)

type AdmissionOptions struct {
	MaxBatches     int
	RejectStatus   int
	AcquireTimeout time.Duration
	Logger         *slog.Logger
}

// AdmissionMiddleware limita quantos lotes rodam ao mesmo tempo no processo.
// Sem vaga dentro do AcquireTimeout a request recebe RejectStatus (503 por padrão).
func AdmissionMiddleware(opts AdmissionOptions) func(next http.Handler) http.Handler {
	if opts.MaxBatches <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	adm := application.Admission{
		Pool:           infra.NewSlotPool(opts.MaxBatches),
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, err := adm.Acquire(r.Context())
			if err != nil {
				log.Warn("batch rejected", "reason", "no free batch slot", "err", err)
				if opts.RejectStatus == http.StatusServiceUnavailable || opts.RejectStatus == http.StatusTooManyRequests {
					w.Header().Set("Retry-After", "1")
				}
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
