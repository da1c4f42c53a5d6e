package usecase

import (
	"errors"
	"fmt"

	"carevo-bot/internal/audio"
	"carevo-bot/internal/domain"
)

type ErrorCode string

const (
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorValidation   ErrorCode = "VALIDATION_ERROR"
	ErrorStorage      ErrorCode = "STORAGE_ERROR"
	ErrorUpstream     ErrorCode = "UPSTREAM_ERROR"
	ErrorSynthesis    ErrorCode = "SYNTHESIS_ERROR"
	ErrorInternal     ErrorCode = "INTERNAL_ERROR"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// CodeOf returns the code carried by err, or ErrorInternal.
func CodeOf(err error) ErrorCode {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Code
	}
	return ErrorInternal
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// classify wraps a collaborator failure. Typed failures pick their own code;
// anything else gets fallback.
func classify(fallback ErrorCode, reason string, err error) *Error {
	var ue *Error
	if errors.As(err, &ue) {
		return ue
	}
	var ve *domain.ValidationError
	var sc httpStatusCoder
	switch {
	case errors.As(err, &ve):
		return newError(ErrorValidation, reason, err)
	case errors.Is(err, audio.ErrSynthesis):
		return newError(ErrorSynthesis, reason, err)
	case errors.As(err, &sc):
		return newError(ErrorUpstream, reason, err)
	default:
		return newError(fallback, reason, err)
	}
}
