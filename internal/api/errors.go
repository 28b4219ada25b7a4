package api

import "fmt"

// HandlerError is an unexpected failure inside a handler. The server answers
// it with a 500 carrying Message and logs the wrapped error.
type HandlerError struct {
	Op  string
	Err error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// Status implements the server's status mapping.
func (e *HandlerError) Status() int { return 500 }

// Message is the client-facing text.
func (e *HandlerError) Message() string { return "Failed to " + e.Op }

func failed(op string, err error) error {
	return &HandlerError{Op: op, Err: err}
}
