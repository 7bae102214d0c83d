package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"addrnorm/internal/export"
	"addrnorm/internal/ingest"
	"addrnorm/internal/store"
)

// requestError marks errors caused by the client.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }

func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &requestError{err: err}
}

// ValidationError describes one rejected request field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// ValidationErrors lists every rejected field of a request.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	messages := make([]string, 0, len(v))
	for _, err := range v {
		messages = append(messages, err.Error())
	}

	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	out := make(ValidationErrors, 0, len(errs))

	for _, fe := range errs {
		field := strings.ToLower(fe.Field())

		var msg string

		switch fe.Tag() {
		case "required":
			msg = "is required"
		case "oneof":
			msg = "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
		case "min":
			msg = "must be at least " + fe.Param()
		case "max":
			msg = "must be at most " + fe.Param()
		default:
			msg = "is invalid"
		}

		out = append(out, ValidationError{Field: field, Message: msg})
	}

	return out
}

func statusOf(err error) int {
	var (
		reqErr   *requestError
		maxBytes *http.MaxBytesError
	)

	switch {
	case errors.As(err, &maxBytes), errors.Is(err, ingest.ErrInputTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, store.ErrBatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, ingest.ErrUnsupportedFormat), errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &reqErr):
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}
