package migration

import (
	"errors"
	"fmt"
)

// ErrLimitExceeded matches every LimitExceededError with errors.Is
var ErrLimitExceeded = errors.New("limit exceeded")

// ConfigurationError reports a missing credential or setting. It is returned
// before any network call is made.
type ConfigurationError struct {
	Field string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("Missing '%s'", e.Field)
}

// LimitExceededError is fatal: the destination plan would be exceeded and
// the trial upgrade failed
type LimitExceededError struct {
	Limit string
	Count int
	Max   int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("LIMIT %s: %d > %d", e.Limit, e.Count, e.Max)
}

func (e *LimitExceededError) Is(target error) bool {
	return target == ErrLimitExceeded
}
