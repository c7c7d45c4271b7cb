// internal/oracle/errors.go
package oracle

import "fmt"

// TransientError marks a failure that was retry-eligible (service
// unavailable, rate limited) but exhausted its retry budget. Callers should
// treat it as final for the current session.
type TransientError struct {
	Attempts int
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("oracle unavailable after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// FatalError marks a failure that is not retry-eligible for this session,
// such as quota exhaustion.
type FatalError struct {
	Attempts int
	Err      error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal oracle error after %d attempts: %v", e.Attempts, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }
