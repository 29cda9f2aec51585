// Package protocol defines the message contract between agent-role
// collaborators and the orchestration layer.
//
// Every collaborator returns exactly one Message variant instead of a bare
// string, so routing can branch on outcome without string-sniffing agent
// output. The variant set is closed: execution_complete, clarification_needed,
// error, and partial_result. Routing logic may inspect Type, FromNode, and
// Metadata only; Output is opaque payload.
package protocol

import (
	"fmt"
)

// MessageType identifies the variant of a Message.
type MessageType string

const (
	TypeExecutionComplete   MessageType = "execution_complete"
	TypeClarificationNeeded MessageType = "clarification_needed"
	TypeError               MessageType = "error"
	TypePartialResult       MessageType = "partial_result"
)

// AllMessageTypes returns the closed variant set in declaration order.
func AllMessageTypes() []MessageType {
	return []MessageType{
		TypeExecutionComplete,
		TypeClarificationNeeded,
		TypeError,
		TypePartialResult,
	}
}

// Valid reports whether t is one of the four known variants.
func (t MessageType) Valid() bool {
	switch t {
	case TypeExecutionComplete, TypeClarificationNeeded, TypeError, TypePartialResult:
		return true
	}
	return false
}

// QuestionType classifies how a clarification question expects to be answered.
type QuestionType string

const (
	QuestionTypeText   QuestionType = "text"
	QuestionTypeChoice QuestionType = "choice"
)

// Question is a single clarification question posed to the user.
// Options is only meaningful for choice questions. Context carries optional
// framing text shown alongside the question.
type Question struct {
	ID       string       `json:"id"`
	Question string       `json:"question"`
	Type     QuestionType `json:"type"`
	Options  []string     `json:"options,omitempty"`
	Context  string       `json:"context,omitempty"`
}

// Message is the tagged union returned by every agent-role collaborator.
//
// Exactly one variant's payload fields are populated, discriminated by Type:
//
//	execution_complete:   Output
//	clarification_needed: Questions
//	error:                Err
//	partial_result:       Output, Progress
//
// FromNode and Metadata are common to all variants.
type Message struct {
	Type      MessageType    `json:"type"`
	FromNode  string         `json:"from_node"`
	Output    any            `json:"output,omitempty"`
	Questions []Question     `json:"questions,omitempty"`
	Err       string         `json:"error,omitempty"`
	Progress  float64        `json:"progress,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewExecutionComplete builds an execution_complete message. Output is
// role-specific: a plan for the planner, text for the executor, a review for
// the reviewer.
func NewExecutionComplete(fromNode string, output any, metadata map[string]any) *Message {
	return &Message{
		Type:     TypeExecutionComplete,
		FromNode: fromNode,
		Output:   output,
		Metadata: metadata,
	}
}

// NewClarificationNeeded builds a clarification_needed message. Questions
// without an ID are assigned sequential identifiers (q1, q2, ...) so resume
// answers can be keyed deterministically. Questions without a type default
// to text.
func NewClarificationNeeded(fromNode string, questions []Question, metadata map[string]any) *Message {
	qs := make([]Question, len(questions))
	copy(qs, questions)
	for i := range qs {
		if qs[i].ID == "" {
			qs[i].ID = fmt.Sprintf("q%d", i+1)
		}
		if qs[i].Type == "" {
			qs[i].Type = QuestionTypeText
		}
	}
	return &Message{
		Type:      TypeClarificationNeeded,
		FromNode:  fromNode,
		Questions: qs,
		Metadata:  metadata,
	}
}

// NewError builds an error message. The text is human-readable and surfaced
// to the user as part of the formatted response, never re-raised.
func NewError(fromNode, errText string, metadata map[string]any) *Message {
	return &Message{
		Type:     TypeError,
		FromNode: fromNode,
		Err:      errText,
		Metadata: metadata,
	}
}

// NewPartialResult builds a partial_result message for streaming progress.
// Progress must be in [0,1].
func NewPartialResult(fromNode string, output any, progress float64, metadata map[string]any) *Message {
	return &Message{
		Type:     TypePartialResult,
		FromNode: fromNode,
		Output:   output,
		Progress: progress,
		Metadata: metadata,
	}
}

// Validate checks the variant invariants. A message that fails validation
// must not enter the state machine.
func (m *Message) Validate() error {
	if !m.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, m.Type)
	}
	if m.FromNode == "" {
		return ErrMissingFromNode
	}
	switch m.Type {
	case TypeClarificationNeeded:
		if len(m.Questions) == 0 {
			return ErrNoQuestions
		}
		for i, q := range m.Questions {
			if q.Question == "" {
				return fmt.Errorf("%w: index %d", ErrEmptyQuestion, i)
			}
		}
	case TypeError:
		if m.Err == "" {
			return ErrMissingError
		}
	case TypePartialResult:
		if m.Progress < 0 || m.Progress > 1 {
			return fmt.Errorf("%w: %v", ErrInvalidProgress, m.Progress)
		}
	}
	return nil
}

// IsClarification reports whether the message requests user clarification.
func (m *Message) IsClarification() bool {
	return m.Type == TypeClarificationNeeded
}

// IsError reports whether the message signals a collaborator failure.
func (m *Message) IsError() bool {
	return m.Type == TypeError
}
