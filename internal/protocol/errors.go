package protocol

import "errors"

// Message validation errors.
var (
	ErrInvalidType     = errors.New("unknown message type")
	ErrMissingFromNode = errors.New("from_node is required")
	ErrNoQuestions     = errors.New("clarification requires at least one question")
	ErrEmptyQuestion   = errors.New("question text is required")
	ErrMissingError    = errors.New("error message is required")
	ErrInvalidProgress = errors.New("progress must be in [0,1]")
)

// Normalization errors.
var (
	ErrUnrecognizedShape = errors.New("value does not match any message shape")
)
