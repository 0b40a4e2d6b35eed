// SPDX-License-Identifier: MIT
package waveform

import (
	"errors"
	"fmt"

	"dentvoice/internal/analysis"
	"dentvoice/internal/audio"
)

// ErrContextCreationFailed reports that no analyser could be bound to the
// source.
var ErrContextCreationFailed = analysis.ErrContextCreationFailed

// ErrorKind classifies why a visualizer has no live data.
type ErrorKind int

const (
	// Unknown covers failures outside the other kinds.
	Unknown ErrorKind = iota
	PermissionDenied
	DeviceUnavailable
	ContextCreationFailed
)

func (k ErrorKind) String() string {
	switch k {
	case PermissionDenied:
		return "PermissionDenied"
	case DeviceUnavailable:
		return "DeviceUnavailable"
	case ContextCreationFailed:
		return "ContextCreationFailed"
	default:
		return "Unknown"
	}
}

// Error is a classified acquisition or analysis failure.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("waveform: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// classify wraps err with its kind. Unrecognised acquisition failures
// count as the device being unavailable.
func classify(err error) *Error {
	switch {
	case errors.Is(err, audio.ErrPermissionDenied):
		return &Error{Kind: PermissionDenied, Err: err}
	case errors.Is(err, ErrContextCreationFailed):
		return &Error{Kind: ContextCreationFailed, Err: err}
	default:
		return &Error{Kind: DeviceUnavailable, Err: err}
	}
}

// KindOf returns the kind of a visualizer error, or Unknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}
