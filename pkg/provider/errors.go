package provider

import (
	"net/http"

	"github.com/pkg/errors"
)

// Kinds of lookup failure. Use errors.Is against an *Error to classify it.
var (
	ErrUnknownStation = errors.New("unknown station")
	ErrNoMetadata     = errors.New("no metadata found")
	ErrUnavailable    = errors.New("provider unavailable")
	ErrTimeout        = errors.New("request timeout")
)

// Error is a failed lookup. Its message is safe to show to clients.
type Error struct {
	// Provider is the display name used as the message prefix.
	Provider string

	// Kind is one of the Err* sentinels, or nil for an unexpected failure.
	Kind error

	// Err is the underlying cause.
	Err error

	// Quality holds whatever was measured before the failure.
	Quality Quality
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrTimeout:
		return "Request timeout"
	case ErrUnknownStation:
		return e.Provider + ": Unknown " + e.Provider + " station"
	case ErrNoMetadata:
		return e.Provider + ": No metadata found"
	}

	msg := "unknown error"
	if e.Err != nil {
		msg = e.Err.Error()
	} else if e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Provider != "" {
		return e.Provider + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// StatusCode maps an error to the HTTP status returned to the client.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnknownStation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoMetadata):
		return http.StatusNotFound
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// QualityOf returns the quality measured before err, if any.
func QualityOf(err error) Quality {
	var e *Error
	if errors.As(err, &e) {
		return e.Quality
	}
	return Quality{}
}
