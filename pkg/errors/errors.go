// Package errors defines the platform's error taxonomy. Sentinels classify a
// failure (bad input data, bad configuration, unjudged query) and AppError
// attaches a human-readable message plus the HTTP status the search API
// should answer with.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrData marks malformed or duplicate input records. It is fatal to the
	// build or load step that produced it only.
	ErrData = errors.New("data error")
	// ErrConfig marks an unknown model name or an out-of-range parameter. It
	// is fatal to the scoring request that carried it only.
	ErrConfig = errors.New("config error")
	// ErrNotEvaluable marks a query without relevance judgments. Callers treat
	// it as a documented skip, never as a zero score.
	ErrNotEvaluable = errors.New("query not evaluable")

	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrTimeout      = errors.New("operation timed out")
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

// Dataf builds an ErrData AppError.
func Dataf(format string, args ...any) *AppError {
	return Newf(ErrData, http.StatusUnprocessableEntity, format, args...)
}

// Configf builds an ErrConfig AppError.
func Configf(format string, args ...any) *AppError {
	return Newf(ErrConfig, http.StatusBadRequest, format, args...)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrConfig):
		return http.StatusBadRequest
	case errors.Is(err, ErrData), errors.Is(err, ErrNotEvaluable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
