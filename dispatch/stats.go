package dispatch

import (
	"encoding/json"
	"net/http"

	"notes-gateway/dispatch/domain"
	"notes-gateway/dispatch/infra"
)

type statsResponse struct {
	Succeeded  int64                      `json:"succeeded"`
	Failed     int64                      `json:"failed"`
	Skipped    int64                      `json:"skipped"`
	ByProvider map[string]int64           `json:"byProvider"`
	ByKind     map[domain.ErrorKind]int64 `json:"byKind"`
}

// StatsHandler expõe os contadores do processo (desde o start) em JSON.
func StatsHandler(mem *infra.MemoryStatsStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		total := mem.Total()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(statsResponse{
			Succeeded:  total.Succeeded,
			Failed:     total.Failed,
			Skipped:    total.Skipped,
			ByProvider: mem.ByProvider(),
			ByKind:     mem.ByKind(),
		})
	})
}
