package models

import "fmt"

// ErrorKind classifies a RequestError
type ErrorKind int

const (
	KindInvalid ErrorKind = iota + 1
	KindNotFound
	KindUnavailable
)

// RequestError is an error caused by the request rather than an upstream failure.
// Its message is returned to the caller verbatim.
type RequestError struct {
	Kind    ErrorKind
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

// BadRequest creates an invalid input error
func BadRequest(format string, args ...interface{}) error {
	return &RequestError{Kind: KindInvalid, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a missing resource error
func NotFound(format string, args ...interface{}) error {
	return &RequestError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Unavailable creates an error for a component that is not configured
func Unavailable(format string, args ...interface{}) error {
	return &RequestError{Kind: KindUnavailable, Message: fmt.Sprintf(format, args...)}
}

