package types

import "encoding/json"

// Error is the rich error carried on the device protocol. Both the code and message fields can be
// individually used to correctly identify an error. Implementations MUST use unique values for both
// fields.
type Error struct {
	// Code is a protocol-specific error code.
	Code int32 `json:"code"`
	// Message is a protocol-specific error message. The message MUST NOT change for a given code.
	// Any contextual information should be included in the details field.
	Message string `json:"message"`
	// An error is retriable if the same request may succeed if submitted again.
	Retriable bool `json:"retriable"`
	// Often times it is useful to return context specific to the request that caused the error
	// in addition to the standard error message.
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	bytes, _ := json.MarshalIndent(e, "", "  ")
	return string(bytes)
}

// Context returns the request specific detail attached by WrapErr, if any.
func (e *Error) Context() string {
	if e.Details == nil {
		return ""
	}
	s, _ := e.Details["context"].(string)
	return s
}

// Is matches errors by code so that wrapped copies compare equal to the standard ones.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrInvalidRequest = &Error{
		Code:    1, //nolint
		Message: "Invalid request",
	}
	ErrUnknownMethod = &Error{
		Code:    2, //nolint
		Message: "Unknown method",
	}
	ErrDerivation = &Error{
		Code:    10, //nolint
		Message: "Derivation failed",
	}
	ErrSigning = &Error{
		Code:    11, //nolint
		Message: "Signing failed",
	}
	ErrRejected = &Error{
		Code:    12, //nolint
		Message: "Rejected by user",
	}
	ErrBusy = &Error{
		Code:      13, //nolint
		Message:   "Device busy",
		Retriable: true,
	}
	ErrInternal = &Error{
		Code:    99, //nolint
		Message: "Internal error",
	}
)

// WrapErr adds details to the types.Error provided. We use a function
// to do this so that we don't accidentially overrwrite the standard
// errors.
func WrapErr(rErr *Error, err error) *Error {
	newErr := &Error{
		Code:      rErr.Code,
		Message:   rErr.Message,
		Retriable: rErr.Retriable,
	}
	if err != nil {
		newErr.Details = map[string]interface{}{
			"context": err.Error(),
		}
	}

	return newErr
}
