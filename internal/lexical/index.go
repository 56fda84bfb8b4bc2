// Package lexical implements the in-memory BM25 Okapi keyword index over the corpus.
package lexical

import "math"

// Okapi parameters.
const (
	DefaultK1      = 1.5
	DefaultB       = 0.75
	DefaultEpsilon = 0.25
)

// Index scores token queries against a fixed document set. It is read-only
// after New and safe for concurrent use.
type Index struct {
	k1, b, epsilon float64

	docLen   []int
	avgLen   float64
	termFreq []map[string]int
	idf      map[string]float64
}

// Option configures an Index.
type Option func(*Index)

// WithParams overrides k1, b and epsilon.
func WithParams(k1, b, epsilon float64) Option {
	return func(ix *Index) {
		ix.k1, ix.b, ix.epsilon = k1, b, epsilon
	}
}

// New builds an index over pre-tokenized documents. Scores returned later are
// aligned with the order of docs.
func New(docs [][]string, opts ...Option) *Index {
	ix := &Index{
		k1:       DefaultK1,
		b:        DefaultB,
		epsilon:  DefaultEpsilon,
		docLen:   make([]int, len(docs)),
		termFreq: make([]map[string]int, len(docs)),
		idf:      make(map[string]float64),
	}
	for _, o := range opts {
		o(ix)
	}

	docFreq := make(map[string]int)
	total := 0
	for i, doc := range docs {
		tf := make(map[string]int, len(doc))
		for _, tok := range doc {
			tf[tok]++
		}
		for tok := range tf {
			docFreq[tok]++
		}
		ix.termFreq[i] = tf
		ix.docLen[i] = len(doc)
		total += len(doc)
	}
	if len(docs) > 0 {
		ix.avgLen = float64(total) / float64(len(docs))
	}
	ix.computeIDF(docFreq, len(docs))
	return ix
}

// computeIDF assigns log((N-n+0.5)/(n+0.5)) per term. Terms present in more
// than half the corpus would score negative; they get epsilon times the mean idf.
func (ix *Index) computeIDF(docFreq map[string]int, n int) {
	if len(docFreq) == 0 {
		return
	}
	sum := 0.0
	var negative []string
	for term, df := range docFreq {
		v := math.Log(float64(n)-float64(df)+0.5) - math.Log(float64(df)+0.5)
		ix.idf[term] = v
		sum += v
		if v < 0 {
			negative = append(negative, term)
		}
	}
	floor := ix.epsilon * sum / float64(len(docFreq))
	for _, term := range negative {
		ix.idf[term] = floor
	}
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int { return len(ix.docLen) }

// Scores returns one relevance score per document, in corpus order.
func (ix *Index) Scores(query []string) []float64 {
	scores := make([]float64, len(ix.docLen))
	if ix.avgLen == 0 {
		return scores
	}
	for _, q := range query {
		idf, ok := ix.idf[q]
		if !ok {
			continue
		}
		for i, tf := range ix.termFreq {
			f := float64(tf[q])
			if f == 0 {
				continue
			}
			norm := 1 - ix.b + ix.b*float64(ix.docLen[i])/ix.avgLen
			scores[i] += idf * f * (ix.k1 + 1) / (f + ix.k1*norm)
		}
	}
	return scores
}
