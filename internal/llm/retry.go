package llm

// retryableError marks transient failures worth retrying, such as rate
// limits, server errors, and transport problems.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

func isRetryableError(err error) bool {
	_, ok := err.(*retryableError)
	return ok
}
