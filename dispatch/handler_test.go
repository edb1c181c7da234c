package dispatch

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"notes-gateway/dispatch/application"
	"notes-gateway/dispatch/domain"
)

// fakeGroq responde 429 nas primeiras `throttled` chamadas e registra o início de cada uma.
type fakeGroq struct {
	throttled int32
	calls     atomic.Int32

	mu     sync.Mutex
	starts []time.Time
}

func (f *fakeGroq) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.starts = append(f.starts, time.Now())
	f.mu.Unlock()

	if f.calls.Add(1) <= f.throttled {
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}
	_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"# notes"}}]}`))
}

func testConfig(groqURL, geminiURL string) Config {
	policy := func(name string) domain.ProviderConfig {
		return domain.ProviderConfig{
			Name:              name,
			MinInterval:       20 * time.Millisecond,
			MaxConcurrent:     2,
			MaxRetries:        3,
			BaseBackoff:       time.Millisecond,
			BackoffMultiplier: 1.5,
		}
	}
	cfg := Config{ProviderTimeout: 5 * time.Second, BatchMaxConcurrency: 10}
	if groqURL != "" {
		cfg.Groq = ProviderSettings{APIKey: "gk", BaseURL: groqURL, Policy: policy("groq")}
	}
	if geminiURL != "" {
		cfg.Gemini = ProviderSettings{APIKey: "mk", BaseURL: geminiURL, Policy: policy("gemini")}
	}
	return cfg
}

func newTestHandler(t *testing.T, cfg Config) *BatchHandler {
	t.Helper()
	providers, err := BuildProviders(cfg)
	if err != nil {
		t.Fatalf("build providers: %v", err)
	}
	return &BatchHandler{
		Dispatcher:         NewDispatcher(cfg, providers, Options{}),
		Template:           application.DefaultTemplate(),
		DefaultConcurrency: 2,
		NewID:              func() string { return "batch-1" },
	}
}

func readEvents(t *testing.T, body string) []ProgressEvent {
	t.Helper()
	var out []ProgressEvent
	sc := bufio.NewScanner(strings.NewReader(body))
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev ProgressEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("bad event %q: %v", line, err)
		}
		out = append(out, ev)
	}
	return out
}

// itemEvents separa os eventos de item concluído dos anúncios de início.
func itemEvents(events []ProgressEvent) (started, done []ProgressEvent) {
	for _, ev := range events {
		switch ev.CaptionStatus {
		case CaptionFetching:
			started = append(started, ev)
		case CaptionDone, CaptionError:
			done = append(done, ev)
		}
	}
	return started, done
}

func postBatch(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/batches", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

const threeLectures = `{"items":[
	{"id":"1","title":"Aula 1","text":"a"},
	{"id":"2","title":"Aula 2","text":"b"},
	{"id":"3","title":"Aula 3","text":"c"}]}`

func TestBatchHandler_StreamsEveryItemAndPacesProvider(t *testing.T) {
	groq := &fakeGroq{throttled: 2}
	srv := httptest.NewServer(groq)
	defer srv.Close()

	h := newTestHandler(t, testConfig(srv.URL, ""))
	w := postBatch(h, threeLectures)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("unexpected content type %q", got)
	}
	if w.Header().Get("X-Batch-Id") != "batch-1" {
		t.Fatalf("expected batch id header")
	}

	events := readEvents(t, w.Body.String())
	// start + 3 anúncios + 3 itens + fim
	if len(events) != 8 {
		t.Fatalf("expected 8 events, got %d: %s", len(events), w.Body.String())
	}
	started, done := itemEvents(events)
	if len(started) != 3 || len(done) != 3 {
		t.Fatalf("expected 3 started and 3 done events, got %d and %d", len(started), len(done))
	}
	for _, ev := range started {
		if ev.LLMStatus != LLMPending || ev.Content != "" {
			t.Fatalf("unexpected started event %+v", ev)
		}
	}
	for _, ev := range done {
		if ev.LLMStatus != LLMDone || ev.LLMProvider != "groq" || ev.Content != "# notes" {
			t.Fatalf("unexpected item event %+v", ev)
		}
	}
	last := events[len(events)-1]
	if last.Status != StatusCompleted || last.Progress != 100 || last.Summary == nil || last.Summary.Succeeded != 3 {
		t.Fatalf("unexpected final event %+v", last)
	}

	groq.mu.Lock()
	starts := append([]time.Time(nil), groq.starts...)
	groq.mu.Unlock()
	if len(starts) != 5 {
		t.Fatalf("expected 5 provider calls (2 throttled), got %d", len(starts))
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	for i := 1; i < len(starts); i++ {
		if gap := starts[i].Sub(starts[i-1]); gap < 15*time.Millisecond {
			t.Fatalf("calls %d and %d only %s apart", i-1, i, gap)
		}
	}
}

func TestBatchHandler_FallsBackToSecondProvider(t *testing.T) {
	groq := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer groq.Close()
	gemini := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"gemini notes"}]}}]}`))
	}))
	defer gemini.Close()

	h := newTestHandler(t, testConfig(groq.URL, gemini.URL))
	events := readEvents(t, postBatch(h, `{"items":[{"id":"1","title":"T","text":"x"}]}`).Body.String())

	_, done := itemEvents(events)
	item := done[0]
	if item.LLMProvider != "gemini" || item.Content != "gemini notes" {
		t.Fatalf("expected gemini to serve the item, got %+v", item)
	}
	if len(item.Attempts) != 2 || item.Attempts[0].Kind != domain.KindProviderError {
		t.Fatalf("unexpected attempts %+v", item.Attempts)
	}
}

func TestBatchHandler_AllProvidersFailDegradesToCaptions(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer down.Close()

	cfg := testConfig(down.URL, down.URL)
	cfg.Groq.Policy.MaxRetries = 0
	cfg.Gemini.Policy.MaxRetries = 0
	h := newTestHandler(t, cfg)
	events := readEvents(t, postBatch(h, `{"items":[{"id":"1","title":"Intro","text":"raw"}]}`).Body.String())

	_, done := itemEvents(events)
	item := done[0]
	if item.LLMStatus != LLMError || item.ErrorKind != string(domain.KindExhausted) || item.Content != "# Intro\n\nraw" {
		t.Fatalf("unexpected degraded event %+v", item)
	}
	if last := events[len(events)-1]; last.Status != StatusCompleted || last.Summary.Failed != 1 {
		t.Fatalf("unexpected final event %+v", last)
	}
}

func TestBatchHandler_CaptionsOnlyWithoutProviders(t *testing.T) {
	h := newTestHandler(t, testConfig("", ""))
	w := postBatch(h, `{"mode":"captions-only","items":[{"id":"1","title":"Intro","text":"raw"}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	started, done := itemEvents(readEvents(t, w.Body.String()))
	if len(started) != 1 || started[0].LLMStatus != LLMSkipped || started[0].Message != "Fetching captions for lecture 1 of 1" {
		t.Fatalf("unexpected started event %+v", started)
	}
	if done[0].LLMStatus != LLMSkipped || done[0].Content != "# Intro\n\nraw" {
		t.Fatalf("unexpected skipped event %+v", done[0])
	}
}

func TestBatchHandler_RejectsBadRequests(t *testing.T) {
	h := newTestHandler(t, testConfig("http://127.0.0.1:1", ""))
	cases := map[string]string{
		"empty":          `{"items":[]}`,
		"not json":       `{`,
		"missing id":     `{"items":[{"title":"x","text":"y"}]}`,
		"bad mode":       `{"mode":"zip","items":[{"id":"1","text":"y"}]}`,
		"prompt no mark": `{"prompt":"summarise","items":[{"id":"1","text":"y"}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if w := postBatch(h, body); w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
		})
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/batches", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestBatchHandler_NoProvidersIs503(t *testing.T) {
	h := newTestHandler(t, testConfig("", ""))
	if w := postBatch(h, threeLectures); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}
