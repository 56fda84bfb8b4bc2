package chi

import (
	"strings"

	"github.com/kailas-cloud/analyst/internal/domain"
	"github.com/kailas-cloud/analyst/internal/usecase/agent"
)

const (
	previewLen  = 300
	placeholder = "—"
)

// SampleQuestions are offered to clients that have nothing to ask yet.
var SampleQuestions = []string{
	"What were total revenues for fiscal 2024?",
	"What are the main AI competition risks?",
	"Is cash sufficient to cover long-term debt?",
	"What was Google Services operating income?",
	"What are unrecognized tax benefits?",
	"What is the capex plan for 2025?",
	"Share repurchase details for fiscal 2024?",
	"What does ASU 2016-13 refer to?",
}

// buildSources dedups chunks by their display prefix, keeping first occurrences.
func buildSources(chunks []domain.Chunk) []Source {
	seen := make(map[string]struct{}, len(chunks))
	out := make([]Source, 0, len(chunks))
	for _, c := range chunks {
		key := c.Key(domain.DisplayKeyLen)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, Source{
			Index:    len(out) + 1,
			Category: metaWithFallback(c, domain.MetaContentType, domain.MetaType, string(domain.CategoryText)),
			Item:     metaWithFallback(c, domain.MetaItemNumber, domain.MetaSection, placeholder),
			Page:     c.Meta(domain.MetaPage, placeholder),
			Preview:  preview(c.Content),
		})
	}
	return out
}

func buildSearches(trace []agent.TraceEntry) []Search {
	out := make([]Search, len(trace))
	for i, t := range trace {
		out[i] = Search{Iteration: t.Iteration, Tool: t.Tool, Query: t.Query}
	}
	return out
}

func metaWithFallback(c domain.Chunk, key, alt, def string) string {
	if v := c.Meta(key, ""); v != "" {
		return v
	}
	return c.Meta(alt, def)
}

func preview(content string) string {
	p := domain.Chunk{Content: content}.Key(previewLen)
	return strings.TrimSpace(strings.ReplaceAll(p, "\n", " "))
}
