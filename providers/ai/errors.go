package ai

import "fmt"

// StatusError reports an upstream non-2xx response on a path that cannot
// represent it as a CallResult, such as a streaming call that failed before
// any bytes flowed. The upstream body is retained so callers can pass it
// through unmodified.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.Status)
}
