package model

import (
	"errors"
	"fmt"
)

// Code discriminates the failure classes surfaced by the pipeline.
// Every error that crosses a package boundary carries exactly one code
// so callers can branch without string matching.
type Code string

// Failure classes.
//
// Design decision: We use a single error type with a code discriminant
// rather than one error type per failure class because the set of
// classes is closed, callers almost always switch on the class, and a
// shared type keeps cause-chain handling (Unwrap) in one place.
const (
	// CodeValidation covers size/shape caps being exceeded, such as a
	// recording or screenshot byte budget, or a disallowed display
	// surface.
	CodeValidation Code = "VALIDATION_ERROR"

	// CodeCapture covers screenshot pipeline failures not otherwise
	// classified, including cross-origin-blocked and selection-too-small.
	CodeCapture Code = "CAPTURE_ERROR"

	// CodeRecording covers recorder initialization and runtime failures.
	CodeRecording Code = "RECORDING_ERROR"

	// CodeUpload covers provider-level transfer failures, including a
	// missing upload instruction for a requested asset.
	CodeUpload Code = "UPLOAD_ERROR"

	// CodeSubmit covers failures of the final report POST.
	CodeSubmit Code = "SUBMIT_ERROR"

	// CodePermissionDenied means the user declined a capture prompt.
	CodePermissionDenied Code = "PERMISSION_DENIED"

	// CodeAborted means the user or a hook cancelled deliberately.
	// Callers must treat this as a quiet state reset, never as a
	// failure banner.
	CodeAborted Code = "ABORTED"
)

// Error is the single error taxonomy of the pipeline. It carries a
// discriminant code, a human-readable message, and the originating
// cause where one exists.
type Error struct {
	// Code classifies the failure.
	Code Code

	// Message is the human-readable description shown to callers.
	Message string

	// Status is the HTTP status for transfer failures, 0 otherwise.
	Status int

	// Err is the underlying cause, if any.
	Err error
}

// NewError creates an Error with the given code and message.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError creates an Error that records cause as its origin.
func WrapError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/errors.As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code. This lets
// callers write errors.Is(err, &model.Error{Code: model.CodeAborted}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeOf extracts the failure class from err, unwrapping as needed.
// Errors outside the taxonomy report an empty code.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsAborted reports whether err represents a deliberate cancellation.
// Cancellation outcomes must not produce an error message in the UI.
func IsAborted(err error) bool {
	return CodeOf(err) == CodeAborted
}
