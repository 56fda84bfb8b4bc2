package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	result EmbeddingResult
	err    error
	got    string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.got = text
	return s.result, s.err
}

type checkingEmbedder struct {
	stubEmbedder
	healthErr error
}

func (c *checkingEmbedder) HealthCheck(context.Context) error { return c.healthErr }

func TestInstructionEmbedder_PrependsInstruction(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	emb := NewInstructionEmbedder(inner, "Represent this question for retrieval: ")

	result, err := emb.Embed(context.Background(), "total revenue 2024")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got != "Represent this question for retrieval: total revenue 2024" {
		t.Errorf("expected prepended text, got %q", inner.got)
	}
	if len(result.Embedding) != 3 {
		t.Errorf("expected 3-element vector, got %d", len(result.Embedding))
	}
}

func TestInstructionEmbedder_ErrorPropagation(t *testing.T) {
	innerErr := errors.New("provider down")
	emb := NewInstructionEmbedder(&stubEmbedder{err: innerErr}, "q: ")

	_, err := emb.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}

func TestInstructionEmbedder_EmptyInstruction(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.5}}}
	emb := NewInstructionEmbedder(inner, "")

	if _, err := emb.Embed(context.Background(), "test"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got != "test" {
		t.Errorf("expected 'test', got %q", inner.got)
	}
}

func TestInstructionEmbedder_HealthCheck(t *testing.T) {
	down := errors.New("down")
	emb := NewInstructionEmbedder(&checkingEmbedder{healthErr: down}, "q: ")
	if err := emb.HealthCheck(context.Background()); !errors.Is(err, down) {
		t.Errorf("expected delegated health error, got %v", err)
	}

	plain := NewInstructionEmbedder(&stubEmbedder{}, "q: ")
	if err := plain.HealthCheck(context.Background()); err != nil {
		t.Errorf("expected nil for inner without health check, got %v", err)
	}
}
