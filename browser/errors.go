package browser

import (
	"errors"
	"fmt"
)

// ErrSessionStart indicates the profile directory or browser process could
// not be brought up.
type ErrSessionStart struct {
	Err error
}

func (e ErrSessionStart) Error() string {
	return fmt.Errorf("session_start: %w", e.Err).Error()
}

func (e ErrSessionStart) Unwrap() error {
	return e.Err
}

// ErrSessionLost indicates the browser process died under us. Fatal to the
// run; a session is never resurrected.
type ErrSessionLost struct {
	Err error
}

func (e ErrSessionLost) Error() string {
	return fmt.Errorf("session_lost: %w", e.Err).Error()
}

func (e ErrSessionLost) Unwrap() error {
	return e.Err
}

// ErrNavigationTimeout indicates no settled location was reached within the
// navigation budget. The session remains usable.
type ErrNavigationTimeout struct {
	Target string
	Err    error
}

func (e ErrNavigationTimeout) Error() string {
	return fmt.Errorf("navigation_timeout: %s: %w", e.Target, e.Err).Error()
}

func (e ErrNavigationTimeout) Unwrap() error {
	return e.Err
}

// ErrCapture indicates a screenshot could not be taken.
type ErrCapture struct {
	Err error
}

func (e ErrCapture) Error() string {
	return fmt.Errorf("capture: %w", e.Err).Error()
}

func (e ErrCapture) Unwrap() error {
	return e.Err
}

// ErrorLabel maps a session error to a short label for logs and metrics.
func ErrorLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var start ErrSessionStart
	if errors.As(err, &start) {
		return "session_start"
	}
	var lost ErrSessionLost
	if errors.As(err, &lost) {
		return "session_lost"
	}
	var nav ErrNavigationTimeout
	if errors.As(err, &nav) {
		return "navigation_timeout"
	}
	var capture ErrCapture
	if errors.As(err, &capture) {
		return "capture"
	}
	return "other"
}
