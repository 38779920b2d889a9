package research

import "errors"

var (
	// ErrTitleRequired rejects a trigger with an empty topic title.
	ErrTitleRequired = errors.New("title is required")

	// ErrUserRequired rejects a trigger without an owning user.
	ErrUserRequired = errors.New("user_id is required")

	// ErrUnknownExecution marks a callback whose execution id matches no
	// in-flight record: duplicate, late, or spoofed. Nothing is mutated.
	ErrUnknownExecution = errors.New("unknown or already resolved execution id")

	// ErrInvalidCallback marks a callback whose fields contradict its status.
	ErrInvalidCallback = errors.New("callback payload inconsistent with status")

	// ErrNotFound marks an operation referencing a nonexistent record id.
	ErrNotFound = errors.New("research request not found")

	// ErrAlreadyResolved marks a cancel against a terminal record.
	ErrAlreadyResolved = errors.New("research request already resolved")
)

// DispatchError wraps a transport failure while handing a job to the
// external worker. It is recovered locally through the retry policy and never
// surfaces to the trigger caller once the record exists.
type DispatchError struct {
	Err error
}

func (e *DispatchError) Error() string { return "dispatch: " + e.Err.Error() }
func (e *DispatchError) Unwrap() error { return e.Err }
