package condense

import "errors"

// Validation errors.
var (
	ErrEmptyContent      = errors.New("content is required")
	ErrContentTooLong    = errors.New("content exceeds maximum length")
	ErrUnknownKind       = errors.New("unknown fragment kind")
	ErrInvalidImportance = errors.New("importance must be in [0,1]")
	ErrEmptySource       = errors.New("source is required")
)

// Budget errors. A zero or negative token budget is a programming error and
// fails loudly rather than degrading to an empty summary.
var (
	ErrInvalidBudget = errors.New("invalid token budget")
)

// Configuration errors.
var (
	ErrInvalidLayerConfig = errors.New("invalid layer configuration")
	ErrUnknownStrategy    = errors.New("unknown condensation strategy")
)

// Scrubbing errors.
var (
	ErrScrubbingFailed = errors.New("secret scrubbing failed")
)
