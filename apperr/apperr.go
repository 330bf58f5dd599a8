// Package apperr defines the pipeline's error taxonomy. Every failing
// stage wraps its cause in an AppError so the request boundary can report
// which stage failed and map it to an HTTP status without inspecting
// lower-level errors.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Stage names, reported verbatim in error responses.
const (
	StageValidation    = "validation"
	StageProbe         = "probe"
	StageExtraction    = "extraction"
	StageConcatenation = "concatenation"
	StageRender        = "render"
	StageTransfer      = "transfer"
)

// AppError carries the failing stage, an operation tag for logs, and the
// wrapped cause.
type AppError struct {
	Code    int
	Stage   string
	Message string
	Op      string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Validation rejects malformed input before any file I/O happens.
func Validation(op, message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Stage:   StageValidation,
		Message: message,
		Op:      op,
	}
}

// Probe reports a failed ffprobe. Fatal for duration lookups; dimension
// lookups fall back to defaults instead of producing this.
func Probe(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusInternalServerError,
		Stage:   StageProbe,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// Extraction reports a per-segment encode failure that aborted a split.
func Extraction(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusInternalServerError,
		Stage:   StageExtraction,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// Concatenation reports a demux or encode failure while joining inputs.
func Concatenation(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusInternalServerError,
		Stage:   StageConcatenation,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// Render reports a composition engine failure.
func Render(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusInternalServerError,
		Stage:   StageRender,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// Internal reports a failure outside the pipeline stages, such as not
// being able to create the request workspace.
func Internal(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusInternalServerError,
		Stage:   "internal",
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// Fetch reports a remote download failure. The upstream host is at
// fault, so the status is 502.
func Fetch(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusBadGateway,
		Stage:   StageTransfer,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// Upload reports a failure pushing rendered output to its destination.
func Upload(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusInternalServerError,
		Stage:   StageTransfer,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// Stage returns the failing stage of err, or "" for untagged errors.
func Stage(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Stage
	}
	return ""
}

// HTTPStatus maps err to a response code, defaulting to 500.
func HTTPStatus(err error) int {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return http.StatusInternalServerError
}
