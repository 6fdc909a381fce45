package errors

import "github.com/pkg/errors"

// StackTracer is implemented by errors that carry a pkg/errors stack trace.
type StackTracer interface {
	StackTrace() errors.StackTrace
}

// ErrorTracer decorates an underlying error with a message while keeping the
// deepest available stack trace intact. Loggers pull the trace out through
// the StackTracer interface.
type ErrorTracer struct {
	Message string
	Err     error
}

// NewTracer creates an ErrorTracer with the given message. Call Wrap to
// attach the underlying error.
func NewTracer(message string) *ErrorTracer {
	return &ErrorTracer{Message: message}
}

// TracerFromError creates an ErrorTracer whose message is the error text,
// capturing a stack trace at this point if the error does not carry one.
func TracerFromError(err error) *ErrorTracer {
	tracer := NewTracer(err.Error())
	return tracer.Wrap(err)
}

// Wrap attaches err to the tracer, capturing a stack trace at the wrap site
// unless the error already has one.
func (e *ErrorTracer) Wrap(err error) *ErrorTracer {
	e.Err = err
	if _, ok := err.(StackTracer); !ok {
		e.Err = errors.WithStack(err)
	}
	return e
}

func (e *ErrorTracer) Error() string {
	return e.Message
}

func (e *ErrorTracer) Unwrap() error {
	return e.Err
}

// StackTrace returns the stack trace of the underlying error, or nil when
// none was captured.
func (e *ErrorTracer) StackTrace() errors.StackTrace {
	if errWithStack, ok := e.Unwrap().(StackTracer); ok {
		return errWithStack.StackTrace()
	}
	return nil
}
