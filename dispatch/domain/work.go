package domain

// WorkItem é uma unidade de entrada (uma aula/vídeo). Imutável depois de criado.
type WorkItem struct {
	ID      string
	Title   string
	RawText string
}

// Fallback é a renderização degradada usada quando nenhum provedor respondeu:
// título como heading e o texto bruto logo abaixo.
func (w WorkItem) Fallback() string {
	return "# " + w.Title + "\n\n" + w.RawText
}

// ErrorKind classifica a falha de um item. Vazio significa sucesso.
type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindRateLimited       ErrorKind = "rate_limited"
	KindProviderError     ErrorKind = "provider_error"
	KindEmptyResponse     ErrorKind = "empty_response"
	KindExhausted         ErrorKind = "all_providers_exhausted"
	KindSourceFetchFailed ErrorKind = "source_fetch_failed"
	KindCancelled         ErrorKind = "cancelled"
	KindUnknown           ErrorKind = "unknown"
)

// Attempt resume como um provedor tratou um item (quantas chamadas, como terminou).
type Attempt struct {
	Provider string    `json:"provider"`
	Calls    int       `json:"calls"`
	Kind     ErrorKind `json:"kind,omitempty"`
}

// Result é produzido exatamente uma vez por WorkItem e não muda depois de entregue.
// Skipped indica modo "somente legendas": nenhum provedor foi chamado.
type Result struct {
	ItemID    string    `json:"itemId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Success   bool      `json:"success"`
	Provider  string    `json:"provider,omitempty"`
	ErrorKind ErrorKind `json:"errorKind,omitempty"`
	Error     string    `json:"error,omitempty"`
	Skipped   bool      `json:"skipped,omitempty"`
	Attempts  []Attempt `json:"attempts,omitempty"`
}

// Summary agrega os resultados de um lote.
type Summary struct {
	Total      int            `json:"total"`
	Completed  int            `json:"completed"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	Skipped    int            `json:"skipped"`
	ByProvider map[string]int `json:"byProvider,omitempty"`
	ByKind     map[string]int `json:"byKind,omitempty"`
}

// Add contabiliza um resultado no resumo.
func (s *Summary) Add(r Result) {
	s.Completed++
	switch {
	case r.Skipped:
		s.Skipped++
		s.Succeeded++
	case r.Success:
		s.Succeeded++
		if s.ByProvider == nil {
			s.ByProvider = make(map[string]int)
		}
		s.ByProvider[r.Provider]++
	default:
		s.Failed++
		if s.ByKind == nil {
			s.ByKind = make(map[string]int)
		}
		s.ByKind[string(r.ErrorKind)]++
	}
}
