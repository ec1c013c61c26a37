package pipeline

import "fmt"

// InputError reports a raw listing that cannot be normalized. Field names
// the offending input field using its wire name.
type InputError struct {
	Field string
	Value string
	Err   error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid listing field %s=%q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid listing field %s=%q", e.Field, e.Value)
}

func (e *InputError) Unwrap() error { return e.Err }
