// Package conversation models the append-only exchange between the agent and the model.
package conversation

import (
	"fmt"

	"github.com/kailas-cloud/analyst/internal/domain"
	"github.com/kailas-cloud/analyst/internal/domain/tool"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Invocation is a tool call requested by the model.
type Invocation struct {
	ID    string
	Name  string
	Input map[string]any
}

// Query returns the string query argument, if present.
func (i Invocation) Query() (string, bool) {
	v, ok := i.Input[tool.QueryParam]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Segment is one piece of assistant output: text or a tool invocation.
type Segment struct {
	Text       string
	Invocation *Invocation
}

// TextSegment builds a text segment.
func TextSegment(text string) Segment { return Segment{Text: text} }

// InvocationSegment builds a tool invocation segment.
func InvocationSegment(inv Invocation) Segment { return Segment{Invocation: &inv} }

// ToolResult answers exactly one invocation.
type ToolResult struct {
	InvocationID string
	Content      string
}

// Turn is a single message. User turns carry either the question text or tool results.
type Turn struct {
	Role     Role
	Segments []Segment
	Results  []ToolResult
}

// Conversation is owned by one agent run and only grows.
type Conversation struct {
	turns []Turn
}

// New starts a conversation with the user's question.
func New(question string) *Conversation {
	return &Conversation{turns: []Turn{{
		Role:     RoleUser,
		Segments: []Segment{TextSegment(question)},
	}}}
}

// Turns returns a copy of the turn list.
func (c *Conversation) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len returns the number of turns.
func (c *Conversation) Len() int { return len(c.turns) }

// AppendAssistant records the model's output. It must follow a user turn.
func (c *Conversation) AppendAssistant(segments []Segment) error {
	if c.last().Role != RoleUser {
		return fmt.Errorf("%w: assistant turn after %s turn", domain.ErrConversationOrder, c.last().Role)
	}
	c.turns = append(c.turns, Turn{Role: RoleAssistant, Segments: segments})
	return nil
}

// AppendToolResults records one result per invocation of the preceding assistant
// turn, in the same order.
func (c *Conversation) AppendToolResults(results []ToolResult) error {
	prev := c.last()
	if prev.Role != RoleAssistant {
		return fmt.Errorf("%w: tool results after %s turn", domain.ErrConversationOrder, prev.Role)
	}
	invs := Invocations(prev.Segments)
	if len(invs) != len(results) {
		return fmt.Errorf("%w: %d results for %d invocations",
			domain.ErrConversationOrder, len(results), len(invs))
	}
	for i := range invs {
		if invs[i].ID != results[i].InvocationID {
			return fmt.Errorf("%w: result %d answers %q, expected %q",
				domain.ErrConversationOrder, i, results[i].InvocationID, invs[i].ID)
		}
	}
	c.turns = append(c.turns, Turn{Role: RoleUser, Results: results})
	return nil
}

func (c *Conversation) last() Turn {
	return c.turns[len(c.turns)-1]
}

// Invocations extracts tool invocations from segments in order.
func Invocations(segments []Segment) []Invocation {
	var out []Invocation
	for _, s := range segments {
		if s.Invocation != nil {
			out = append(out, *s.Invocation)
		}
	}
	return out
}

// FirstText returns the first non-invocation segment's text.
func FirstText(segments []Segment) (string, bool) {
	for _, s := range segments {
		if s.Invocation == nil {
			return s.Text, true
		}
	}
	return "", false
}
