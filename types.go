package analyst

import "github.com/kailas-cloud/analyst/internal/usecase/agent"

// State is the terminal state of a question.
type State string

const (
	// StateDone means the model produced a final answer.
	StateDone State = State(agent.StatusDone)
	// StateExhausted means the iteration cap was hit while the model kept searching.
	StateExhausted State = State(agent.StatusExhausted)
	// StateAborted means the run stopped early: cancellation, a provider
	// failure or a reply the loop could not act on.
	StateAborted State = State(agent.StatusAborted)
)

// Chunk is a retrieved piece of the filing.
type Chunk struct {
	Content  string
	Metadata map[string]string
}

// Search is one executed tool call.
type Search struct {
	Iteration int
	Tool      string
	Query     string
}

// Answer is the outcome of Ask. Chunks lists every retrieved chunk in
// retrieval order and may contain repeats.
type Answer struct {
	RunID      string
	Text       string
	State      State
	Iterations int
	Chunks     []Chunk
	Searches   []Search
}

func newAnswer(r agent.Result) *Answer {
	a := &Answer{
		RunID:      r.RunID,
		Text:       r.Answer,
		State:      State(r.Status),
		Iterations: r.Iterations,
		Chunks:     make([]Chunk, 0, len(r.Chunks)),
		Searches:   make([]Search, 0, len(r.Trace)),
	}
	for _, c := range r.Chunks {
		a.Chunks = append(a.Chunks, Chunk{Content: c.Content, Metadata: c.Metadata})
	}
	for _, t := range r.Trace {
		a.Searches = append(a.Searches, Search{Iteration: t.Iteration, Tool: t.Tool, Query: t.Query})
	}
	return a
}
