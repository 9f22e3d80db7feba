package engine

import "fmt"

// RequestError indicates a malformed evaluation request: a missing rule-set
// or compiler, or a route the rule-set does not declare. It is a caller
// error, distinct from per-rule evaluation failures which degrade
// gracefully.
type RequestError struct {
	Message string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return fmt.Sprintf("invalid evaluation request: %s", e.Message)
}
