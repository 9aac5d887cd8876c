package analysis

import (
	"errors"
	"fmt"

	"research-backend/internal/projects"
)

// ErrAnalysisFailed is matched by every error returned from Run.
var ErrAnalysisFailed = projects.ErrAnalysisFailed

// ErrDecode marks a response that does not match the expected shape.
var ErrDecode = errors.New("analysis response does not match schema")

// DecodeError describes why a model response was rejected.
type DecodeError struct {
	Mode  projects.Mode
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("decode %s result: field %q: %v", e.Mode, e.Field, e.Err)
	}
	return fmt.Sprintf("decode %s result: %v", e.Mode, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is reports ErrDecode for every DecodeError.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

func fail(err error) error {
	return fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
}
