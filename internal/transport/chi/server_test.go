package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/analyst/internal/domain"
	"github.com/kailas-cloud/analyst/internal/usecase/agent"
	healthuc "github.com/kailas-cloud/analyst/internal/usecase/health"
)

// --- Mocks ---

type mockAsker struct {
	result   agent.Result
	err      error
	question string
}

func (m *mockAsker) Run(_ context.Context, question string) (agent.Result, error) {
	m.question = question
	return m.result, m.err
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

func newTestRouter(asker Asker, health HealthChecker, keys ...string) http.Handler {
	return NewRouter(NewServer(asker, health, zap.NewNop()), keys, zap.NewNop())
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// --- Tests ---

func TestAsk_Success(t *testing.T) {
	revenue := domain.Chunk{Content: "Total revenues\n350,018", Metadata: map[string]string{
		"content_type": "table", "item_number": "8", "page": "52",
	}}
	legacy := domain.Chunk{Content: "Competition in AI is intense.", Metadata: map[string]string{
		"type": "text", "section": "1A",
	}}
	asker := &mockAsker{result: agent.Result{
		RunID:      "run-1",
		Answer:     "Total revenue was **$350B**",
		Status:     agent.StatusDone,
		Chunks:     []domain.Chunk{revenue, legacy, revenue},
		Trace:      []agent.TraceEntry{{Iteration: 1, Tool: "table_search", Query: "total revenue"}},
		Iterations: 2,
	}}
	h := newTestRouter(asker, &mockHealth{})

	rr := doJSON(t, h, http.MethodPost, "/v1/ask", `{"question":"  What were total revenues?  "}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if asker.question != "What were total revenues?" {
		t.Errorf("question not trimmed: %q", asker.question)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}

	var resp AskResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer != "Total revenue was **$350B**" || resp.State != "DONE" || resp.Iterations != 2 {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Counts.Sources != 2 || resp.Counts.Searches != 1 {
		t.Errorf("counts = %+v", resp.Counts)
	}
	first := resp.Sources[0]
	if first.Category != "table" || first.Item != "8" || first.Page != "52" || first.Preview != "Total revenues 350,018" {
		t.Errorf("first source = %+v", first)
	}
	second := resp.Sources[1]
	if second.Category != "text" || second.Item != "1A" || second.Page != "—" || second.Index != 2 {
		t.Errorf("second source = %+v", second)
	}
	if resp.Searches[0].Tool != "table_search" || resp.Searches[0].Query != "total revenue" {
		t.Errorf("searches = %+v", resp.Searches)
	}
}

func TestAsk_Validation(t *testing.T) {
	h := newTestRouter(&mockAsker{}, &mockHealth{})

	tests := []struct {
		name string
		body string
		code ErrorCode
	}{
		{"invalid json", `{"question":`, CodeBadRequest},
		{"blank question", `{"question":"   "}`, CodeValidation},
		{"missing question", `{}`, CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, h, http.MethodPost, "/v1/ask", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rr.Code)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.Code != tt.code {
				t.Errorf("code = %s, want %s", resp.Code, tt.code)
			}
		})
	}
}

func TestAsk_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   ErrorCode
	}{
		{fmt.Errorf("%w: 429", domain.ErrModelProviderError), http.StatusBadGateway, CodeModelProvider},
		{fmt.Errorf("%w: down", domain.ErrEmbeddingProviderError), http.StatusBadGateway, CodeEmbeddingProvider},
		{fmt.Errorf("text_search: %w", domain.ErrRetrievalTimeout), http.StatusGatewayTimeout, CodeTimeout},
		{domain.ErrModelTimeout, http.StatusGatewayTimeout, CodeTimeout},
		{fmt.Errorf("agent aborted: %w", context.Canceled), clientClosedRequest, CodeCanceled},
		{errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			h := newTestRouter(&mockAsker{err: tt.err}, &mockHealth{})
			rr := doJSON(t, h, http.MethodPost, "/v1/ask", `{"question":"q"}`)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.Code != tt.code {
				t.Errorf("code = %s, want %s", resp.Code, tt.code)
			}
			if tt.code == CodeInternal && resp.Message != "internal error" {
				t.Errorf("internal details leaked: %q", resp.Message)
			}
		})
	}
}

func TestSamples(t *testing.T) {
	h := newTestRouter(&mockAsker{}, &mockHealth{}, "secret")

	rr := doJSON(t, h, http.MethodGet, "/v1/samples", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp SamplesResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Questions) != 8 {
		t.Errorf("expected 8 sample questions, got %d", len(resp.Questions))
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		status healthuc.Status
		want   int
	}{
		{healthuc.Healthy, http.StatusOK},
		{healthuc.Degraded, http.StatusOK},
		{healthuc.Unhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			h := newTestRouter(&mockAsker{}, &mockHealth{report: healthuc.Report{
				Status: tt.status,
				Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
				Chunks: 12,
				Corpus: 12,
			}})
			rr := doJSON(t, h, http.MethodGet, "/health", "")
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.Status != string(tt.status) || resp.Checks["database"] != "ok" || resp.Chunks != 12 {
				t.Errorf("unexpected body %+v", resp)
			}
		})
	}
}

func TestAsk_RequiresAuth(t *testing.T) {
	h := newTestRouter(&mockAsker{}, &mockHealth{}, "secret")
	rr := doJSON(t, h, http.MethodPost, "/v1/ask", `{"question":"q"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestRouter_NotFoundIsJSON(t *testing.T) {
	h := newTestRouter(&mockAsker{}, &mockHealth{})
	rr := doJSON(t, h, http.MethodGet, "/v1/collections", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
}

func TestJSONRecoverer(t *testing.T) {
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	h := JSONRecoverer(zap.NewNop())(panicky)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != CodeInternal {
		t.Errorf("code = %s", resp.Code)
	}
}

func TestBuildSources_PreviewTruncated(t *testing.T) {
	long := strings.Repeat("a", 500)
	got := buildSources([]domain.Chunk{{Content: long}})
	if len(got) != 1 || len([]rune(got[0].Preview)) != previewLen {
		t.Fatalf("preview length = %d", len([]rune(got[0].Preview)))
	}
	if got[0].Category != "text" || got[0].Item != "—" {
		t.Errorf("defaults not applied: %+v", got[0])
	}
}

func TestBuildSources_DedupByDisplayPrefix(t *testing.T) {
	prefix := strings.Repeat("p", domain.DisplayKeyLen)
	got := buildSources([]domain.Chunk{
		{Content: prefix + "one", Metadata: map[string]string{"page": "1"}},
		{Content: prefix + "two", Metadata: map[string]string{"page": "2"}},
	})
	if len(got) != 1 || got[0].Page != "1" {
		t.Fatalf("expected first occurrence kept, got %+v", got)
	}
}
