package gateway

import "fmt"

// FailureKind classifies why an invocation failed.
type FailureKind string

const (
	// FailTimeout means the call exceeded its time budget.
	FailTimeout FailureKind = "timeout"
	// FailTransport means the endpoint was unreachable or the connection broke.
	FailTransport FailureKind = "transport"
	// FailStatus means the endpoint answered with a non-2xx status.
	FailStatus FailureKind = "bad_status"
	// FailSchema means the reply was malformed, undersized, or oversized.
	FailSchema FailureKind = "schema"
)

// Failure is a typed invocation error. Callers can switch on Kind; a single
// agent failure never aborts a debate.
type Failure struct {
	Kind    FailureKind
	Message string
	Status  int   // HTTP status for FailStatus
	Cause   error // underlying error when one exists
}

func (f *Failure) Error() string {
	if f.Status != 0 {
		return fmt.Sprintf("gateway: %s: %s (status %d)", f.Kind, f.Message, f.Status)
	}
	return fmt.Sprintf("gateway: %s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error { return f.Cause }

func timeoutFailure(cause error) *Failure {
	return &Failure{
		Kind:    FailTimeout,
		Message: "agent call timed out",
		Cause:   cause,
	}
}
