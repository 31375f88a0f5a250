package webdriver

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoSuchElement means a single-element lookup matched nothing.
	ErrNoSuchElement = errors.New("no such element")
	// ErrStaleElement means a previously found element is no longer attached to the document.
	ErrStaleElement = errors.New("stale element reference")
	// ErrUnsupported means the driver does not provide the requested capability.
	ErrUnsupported = errors.New("operation not supported by driver")
)

// ScriptError is returned when the script itself threw.
type ScriptError struct {
	Message string
	// Source is the script that failed. It may be truncated.
	Source string
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("script execution failed: %s", e.Message)
}

// NewScriptError builds a ScriptError, truncating long sources.
func NewScriptError(message, source string) *ScriptError {
	const max = 200
	if len(source) > max {
		source = source[:max] + "..."
	}
	return &ScriptError{Message: strings.TrimSpace(message), Source: source}
}

// NotFound wraps ErrNoSuchElement with the locator description.
func NotFound(what fmt.Stringer) error {
	return fmt.Errorf("%w: %s", ErrNoSuchElement, what)
}

// IsStale reports whether err marks a stale element.
func IsStale(err error) bool { return errors.Is(err, ErrStaleElement) }

// IsNotFound reports whether err marks an empty single-element lookup.
func IsNotFound(err error) bool { return errors.Is(err, ErrNoSuchElement) }
