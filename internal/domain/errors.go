package domain

import (
	"errors"
	"strings"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrValidation            = errors.New("validation failed")
	ErrTransport             = errors.New("image service unreachable")
	ErrEmptyResult           = errors.New("no image in response")
	ErrConfiguration         = errors.New("image service not configured")
	ErrUnsupportedMode       = errors.New("unsupported mode")
	ErrUnsupportedGender     = errors.New("unsupported gender")
	ErrUnsupportedBackground = errors.New("unsupported background")
)

// ErrorKind is the stable, client-facing classification of a failure.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindTransport     ErrorKind = "transport"
	KindEmptyResult   ErrorKind = "empty_result"
	KindConfiguration ErrorKind = "configuration"
)

// KindOf classifies err. Anything that is not one of the known sentinels is
// reported as a transport failure, since the call did not complete usefully.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrUnsupportedMode),
		errors.Is(err, ErrUnsupportedGender),
		errors.Is(err, ErrUnsupportedBackground):
		return KindValidation
	case errors.Is(err, ErrEmptyResult):
		return KindEmptyResult
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	default:
		return KindTransport
	}
}

// ServiceError pairs a failure sentinel with the best-effort cause reported by
// the image service, such as a quota or safety message.
type ServiceError struct {
	Err    error
	Detail string
}

func (e *ServiceError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Detail
}

func (e *ServiceError) Unwrap() error { return e.Err }

// DetailOf returns the service-reported cause carried by err, if any.
func DetailOf(err error) string {
	var se *ServiceError
	if errors.As(err, &se) {
		return strings.TrimSpace(se.Detail)
	}
	return ""
}
