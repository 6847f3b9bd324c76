package provider

import (
	"fmt"

	"github.com/formpilot/formpilot/internal/resolve"
)

// GenerationError collapses every provider failure (transport error, bad
// status, malformed payload) into one shape carrying the tier that failed.
type GenerationError struct {
	Backend resolve.Source
	Reason  string
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Backend, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Backend, e.Reason)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func genErr(backend resolve.Source, reason string, err error) *GenerationError {
	return &GenerationError{Backend: backend, Reason: reason, Err: err}
}
