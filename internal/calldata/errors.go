package calldata

import "fmt"

// DecodeError reports flattened calldata that violates its own declared layout.
type DecodeError struct {
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode calldata at index %d: %s", e.Offset, e.Reason)
}

func decodeErrorf(offset int, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Offset: offset, Reason: fmt.Sprintf(format, args...)}
}
