package rowcount

import "fmt"

// CountQueryError reports a failed count for one object. It is recoverable:
// the prior record is kept and a batch moves on to the next object.
type CountQueryError struct {
	Object string
	Err    error
}

func (e *CountQueryError) Error() string {
	return fmt.Sprintf("failed to count rows of %s: %v", e.Object, e.Err)
}

func (e *CountQueryError) Unwrap() error {
	return e.Err
}
