package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/analyst/internal/domain"
	"github.com/kailas-cloud/analyst/internal/metrics"
)

// --- Mocks ---

type mockVectors struct {
	chunks   []domain.Chunk
	count    int
	countErr error
	queryErr error

	lastN        int
	lastCategory domain.Category
	calls        int
}

func (m *mockVectors) Query(_ context.Context, _ string, category domain.Category, n int) ([]domain.Chunk, error) {
	m.calls++
	m.lastN = n
	m.lastCategory = category
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	out := make([]domain.Chunk, 0, n)
	for _, c := range m.chunks {
		if category != "" && c.Category() != category {
			continue
		}
		if len(out) == n {
			break
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *mockVectors) Count(context.Context) (int, error) {
	return m.count, m.countErr
}

type fixedScorer []float64

func (f fixedScorer) Scores([]string) []float64 { return f }

func textChunk(s string) domain.Chunk {
	return chunk(s, domain.MetaContentType, string(domain.CategoryText))
}

func tableChunk(s string) domain.Chunk {
	return chunk(s, domain.MetaContentType, string(domain.CategoryTable))
}

// --- Tests ---

func TestSearch_EmptyCorpus(t *testing.T) {
	svc := New(&mockVectors{}, fixedScorer(nil), nil, DefaultConfig(), zap.NewNop())

	got, err := svc.Search(context.Background(), Query{Text: "revenue"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
}

func TestSearch_EmptyVectorIndexUsesLexical(t *testing.T) {
	corpus := []domain.Chunk{textChunk("a"), textChunk("b")}
	vec := &mockVectors{}
	svc := New(vec, fixedScorer{0.1, 0.9}, corpus, DefaultConfig(), zap.NewNop())

	got, err := svc.Search(context.Background(), Query{Text: "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vec.calls != 0 {
		t.Error("empty vector index should not be queried")
	}
	if c := contents(got); len(c) != 2 || c[0] != "b" {
		t.Errorf("expected lexical order [b a], got %v", c)
	}
}

func TestSearch_FetchClampedToIndexSize(t *testing.T) {
	corpus := []domain.Chunk{textChunk("a"), textChunk("b"), textChunk("c")}
	vec := &mockVectors{chunks: corpus, count: 3}
	svc := New(vec, fixedScorer{0, 0, 0}, corpus, DefaultConfig(), zap.NewNop())

	if _, err := svc.Search(context.Background(), Query{Text: "q", Fetch: 20}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vec.lastN != 3 {
		t.Errorf("expected fetch clamped to 3, got %d", vec.lastN)
	}
}

func TestSearch_CategoryFilter(t *testing.T) {
	corpus := []domain.Chunk{
		textChunk("narrative one"), tableChunk("revenue table"),
		textChunk("narrative two"), tableChunk("balance table"),
	}
	vec := &mockVectors{chunks: corpus, count: len(corpus)}
	svc := New(vec, fixedScorer{0.9, 0.1, 0.8, 0.2}, corpus, DefaultConfig(), zap.NewNop())

	got, err := svc.Search(context.Background(), Query{Text: "q", Category: domain.CategoryTable})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vec.lastCategory != domain.CategoryTable {
		t.Errorf("expected dense query filtered by table, got %q", vec.lastCategory)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 table chunks, got %v", contents(got))
	}
	for _, c := range got {
		if c.Category() != domain.CategoryTable {
			t.Errorf("chunk %q has category %q", c.Content, c.Category())
		}
	}
}

func TestSearch_SizeBoundAndDistinct(t *testing.T) {
	corpus := make([]domain.Chunk, 30)
	scores := make(fixedScorer, 30)
	for i := range corpus {
		corpus[i] = textChunk(fmt.Sprintf("chunk %02d", i))
		scores[i] = float64(i)
	}
	vec := &mockVectors{chunks: corpus, count: len(corpus)}
	svc := New(vec, scores, corpus, DefaultConfig(), zap.NewNop())

	got, err := svc.Search(context.Background(), Query{Text: "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != DefaultTopN {
		t.Fatalf("expected %d results, got %d", DefaultTopN, len(got))
	}
	seen := make(map[string]bool)
	for _, c := range got {
		key := c.Key(domain.RankKeyLen)
		if seen[key] {
			t.Errorf("duplicate identity %q", key)
		}
		seen[key] = true
	}
}

func TestSearch_Deterministic(t *testing.T) {
	corpus := []domain.Chunk{textChunk("a"), textChunk("b"), textChunk("c"), textChunk("d")}
	vec := &mockVectors{chunks: []domain.Chunk{corpus[2], corpus[0]}, count: 2}
	svc := New(vec, fixedScorer{0.5, 0.5, 0.1, 0.5}, corpus, DefaultConfig(), zap.NewNop())

	first, err := svc.Search(context.Background(), Query{Text: "q"})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := svc.Search(context.Background(), Query{Text: "q"})
		if err != nil {
			t.Fatal(err)
		}
		if fmt.Sprint(contents(again)) != fmt.Sprint(contents(first)) {
			t.Fatalf("non-deterministic: %v vs %v", contents(first), contents(again))
		}
	}
}

func TestSearch_LexicalTiesKeepCorpusOrder(t *testing.T) {
	corpus := []domain.Chunk{textChunk("a"), textChunk("b"), textChunk("c")}
	svc := New(&mockVectors{}, fixedScorer{0, 0, 0}, corpus, DefaultConfig(), zap.NewNop())

	got, err := svc.Search(context.Background(), Query{Text: "q"})
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(contents(got)) != "[a b c]" {
		t.Errorf("expected corpus order, got %v", contents(got))
	}
}

func TestSearch_DenseFailureDegrades(t *testing.T) {
	corpus := []domain.Chunk{textChunk("a")}
	vec := &mockVectors{count: 1, queryErr: errors.New("connection refused")}
	svc := New(vec, fixedScorer{1}, corpus, DefaultConfig(), zap.NewNop())

	before := testutil.ToFloat64(metrics.RetrievalDegradedTotal)
	got, err := svc.Search(context.Background(), Query{Text: "q"})
	if err != nil {
		t.Fatalf("expected degraded search, got error %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected lexical result, got %d", len(got))
	}
	if after := testutil.ToFloat64(metrics.RetrievalDegradedTotal); after != before+1 {
		t.Errorf("expected degraded counter +1, got %v -> %v", before, after)
	}
}

func TestSearch_MissingIndexIsEmptyDense(t *testing.T) {
	corpus := []domain.Chunk{textChunk("a")}
	vec := &mockVectors{countErr: fmt.Errorf("count: %w", domain.ErrIndexNotFound)}
	svc := New(vec, fixedScorer{1}, corpus, DefaultConfig(), zap.NewNop())

	got, err := svc.Search(context.Background(), Query{Text: "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 result, got %d", len(got))
	}
}

func TestSearch_TimeoutIsFatal(t *testing.T) {
	corpus := []domain.Chunk{textChunk("a")}
	vec := &mockVectors{count: 1, queryErr: domain.ErrRetrievalTimeout}
	svc := New(vec, fixedScorer{1}, corpus, DefaultConfig(), zap.NewNop())

	_, err := svc.Search(context.Background(), Query{Text: "q"})
	if !errors.Is(err, domain.ErrRetrievalTimeout) {
		t.Fatalf("expected ErrRetrievalTimeout, got %v", err)
	}
}

func TestSearch_CanceledIsFatal(t *testing.T) {
	corpus := []domain.Chunk{textChunk("a")}
	vec := &mockVectors{count: 1, queryErr: context.Canceled}
	svc := New(vec, fixedScorer{1}, corpus, DefaultConfig(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Search(ctx, Query{Text: "q"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewFromCorpus_RanksByKeywords(t *testing.T) {
	corpus := []domain.Chunk{
		textChunk("The company faces competition in artificial intelligence."),
		tableChunk("Total revenues 350,018 307,394"),
		textChunk("Employees and culture."),
	}
	svc := NewFromCorpus(&mockVectors{}, corpus, Config{TopN: 1}, zap.NewNop())

	got, err := svc.Search(context.Background(), Query{Text: "Total REVENUES?"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Category() != domain.CategoryTable {
		t.Fatalf("expected the revenue table first, got %v", contents(got))
	}
	if svc.CorpusSize() != 3 {
		t.Errorf("expected corpus size 3, got %d", svc.CorpusSize())
	}
}
