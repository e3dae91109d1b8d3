package models

import "errors"

// Pipeline error taxonomy. Stages wrap these with fmt.Errorf("...: %w", ...)
// so callers can match with errors.Is.
var (
	// ErrDataUnavailable means the backing store is missing, unreadable, or
	// lacks a required column. Fatal to the session.
	ErrDataUnavailable = errors.New("dataset unavailable")

	// ErrEmptySelection means a filter produced zero rows. Recoverable; the
	// caller renders an empty result.
	ErrEmptySelection = errors.New("selection is empty")

	// ErrInsufficientHistory means fewer than two usable points remain for
	// a forecast fit.
	ErrInsufficientHistory = errors.New("insufficient history for forecast")

	// ErrInvalidHorizon means the requested horizon is outside the
	// configured bounds.
	ErrInvalidHorizon = errors.New("forecast horizon out of bounds")
)
