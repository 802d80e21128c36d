package types

import (
	"errors"

	appErr "github.com/brandhub/deploycenter/pkg/errors"
)

// FromAppError converts err into the wire error. Internal errors keep their
// message generic.
func FromAppError(err error) *APIError {
	if err == nil {
		return nil
	}
	var e *appErr.AppError
	if !errors.As(err, &e) {
		return &APIError{Code: string(appErr.CodeInternal), Message: "internal error"}
	}
	if e.Code == appErr.CodeInternal {
		return &APIError{Code: string(e.Code), Message: e.Message}
	}
	out := &APIError{Code: string(e.Code), Message: e.Message, Details: e.Meta}
	if e.Err != nil && e.Code == appErr.CodeInvalid {
		out.Message = e.Message + ": " + e.Err.Error()
	}
	return out
}
