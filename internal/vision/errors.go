package vision

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/agrisense/internal/retry"
)

// errNoText is returned when a provider reply carries no text.
var errNoText = errors.New("reply contains no text")

// Kind tells whether retrying a failed call can succeed.
type Kind string

const (
	Transient Kind = "transient"
	Permanent Kind = "permanent"
)

// Error is a classified provider failure.
type Error struct {
	Provider   string
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	prefix := "vision"
	if e.Provider != "" {
		prefix = e.Provider
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s error (status %d): %v", prefix, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", prefix, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf classifies err. Unclassified timeouts and temporary network errors
// are transient, everything else is permanent.
func KindOf(err error) Kind {
	var vErr *Error
	if errors.As(err, &vErr) {
		return vErr.Kind
	}
	if errors.Is(err, context.Canceled) || retry.IsTransient(err) {
		return Transient
	}
	return Permanent
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return err != nil && KindOf(err) == Transient
}
