package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jonathan/campus-agents/internal/pipeline"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var verr *ErrValidation
	switch {
	case errors.As(err, &verr),
		errors.Is(err, pipeline.ErrUnknownPipeline),
		errors.Is(err, pipeline.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the error text shown to callers. Client errors are
// described; faults get a fixed message and are only logged in full.
func publicMessage(err error, names []string) string {
	var (
		verr    *ErrValidation
		inerr   *pipeline.InputError
		timeout *pipeline.TimeoutError
	)
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, pipeline.ErrUnknownPipeline):
		return fmt.Sprintf("%s. Valid options: %s", upperFirst(err.Error()), strings.Join(names, ", "))
	case errors.As(err, &inerr):
		return inerr.Err.Error()
	case errors.As(err, &timeout):
		return fmt.Sprintf("Pipeline execution timed out after %s", timeout.Budget)
	case errors.Is(err, context.Canceled):
		return "Request cancelled"
	default:
		return "Internal server error"
	}
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
