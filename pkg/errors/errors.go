package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrMalformedLine     = errors.New("malformed corpus line")
	ErrMissingArgument   = errors.New("missing argument")
	ErrMalformedArgument = errors.New("malformed argument")
	ErrUnknownCommand    = errors.New("unknown command")
	ErrIndexNotReady     = errors.New("index not ready")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInternal          = errors.New("internal error")
	ErrTimeout           = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// IsRecoverable reports whether err only affects a single command or corpus
// line. Anything else aborts the whole operation.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrMalformedLine) ||
		errors.Is(err, ErrMissingArgument) ||
		errors.Is(err, ErrMalformedArgument) ||
		errors.Is(err, ErrUnknownCommand)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrMissingArgument),
		errors.Is(err, ErrMalformedArgument),
		errors.Is(err, ErrUnknownCommand):
		return http.StatusBadRequest
	case errors.Is(err, ErrSourceUnavailable), errors.Is(err, ErrIndexNotReady), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
