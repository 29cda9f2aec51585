package protocol

import (
	"fmt"
)

// Normalize converts a loosely shaped map into exactly one Message variant.
//
// Legacy collaborator paths produced ad-hoc dicts instead of structured
// messages. This is the boundary adapter that maps those shapes onto the
// closed variant set before anything enters the state machine:
//
//   - a "type" key matching a known variant wins and the remaining keys are
//     read per that variant's payload contract
//   - {"questions": [...]} is treated as clarification_needed
//   - {"error": "..."} is treated as error
//   - {"output": ...} or {"response": ...} is treated as execution_complete
//
// Anything else fails with ErrUnrecognizedShape. The returned message is
// validated; Normalize never produces a message the router would reject.
func Normalize(fromNode string, raw map[string]any) (*Message, error) {
	if raw == nil {
		return nil, ErrUnrecognizedShape
	}

	if v, ok := raw["from_node"].(string); ok && v != "" {
		fromNode = v
	}

	var msg *Message
	if t, ok := raw["type"].(string); ok && MessageType(t).Valid() {
		msg = normalizeTyped(fromNode, MessageType(t), raw)
	} else {
		msg = normalizeLegacy(fromNode, raw)
	}
	if msg == nil {
		return nil, ErrUnrecognizedShape
	}

	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("normalized message invalid: %w", err)
	}
	return msg, nil
}

func normalizeTyped(fromNode string, t MessageType, raw map[string]any) *Message {
	meta := extractMetadata(raw)
	switch t {
	case TypeExecutionComplete:
		return NewExecutionComplete(fromNode, raw["output"], meta)
	case TypeClarificationNeeded:
		return NewClarificationNeeded(fromNode, extractQuestions(raw["questions"]), meta)
	case TypeError:
		errText, _ := raw["error"].(string)
		return NewError(fromNode, errText, meta)
	case TypePartialResult:
		progress, _ := toFloat(raw["progress"])
		return NewPartialResult(fromNode, raw["output"], progress, meta)
	}
	return nil
}

func normalizeLegacy(fromNode string, raw map[string]any) *Message {
	meta := extractMetadata(raw)
	if qs := extractQuestions(raw["questions"]); len(qs) > 0 {
		return NewClarificationNeeded(fromNode, qs, meta)
	}
	if errText, ok := raw["error"].(string); ok && errText != "" {
		return NewError(fromNode, errText, meta)
	}
	if out, ok := raw["output"]; ok {
		return NewExecutionComplete(fromNode, out, meta)
	}
	if out, ok := raw["response"]; ok {
		return NewExecutionComplete(fromNode, out, meta)
	}
	return nil
}

// extractQuestions accepts a slice of maps or bare strings and converts each
// element into a Question. Elements of any other shape are skipped.
func extractQuestions(v any) []Question {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	questions := make([]Question, 0, len(items))
	for _, item := range items {
		switch q := item.(type) {
		case string:
			if q != "" {
				questions = append(questions, Question{Question: q})
			}
		case map[string]any:
			parsed := Question{}
			if text, ok := q["question"].(string); ok {
				parsed.Question = text
			}
			if id, ok := q["id"].(string); ok {
				parsed.ID = id
			}
			if qt, ok := q["type"].(string); ok {
				parsed.Type = QuestionType(qt)
			}
			if ctx, ok := q["context"].(string); ok {
				parsed.Context = ctx
			}
			if opts, ok := q["options"].([]any); ok {
				for _, opt := range opts {
					if s, ok := opt.(string); ok {
						parsed.Options = append(parsed.Options, s)
					}
				}
			}
			if parsed.Question != "" {
				questions = append(questions, parsed)
			}
		}
	}
	return questions
}

func extractMetadata(raw map[string]any) map[string]any {
	if meta, ok := raw["metadata"].(map[string]any); ok {
		return meta
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
