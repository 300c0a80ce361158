package models

import (
	"errors"
	"fmt"
)

// Error codes used in cycle messages, API responses and internal error handling.
const (
	ErrCodeCredentialUnavailable = "CREDENTIAL_UNAVAILABLE"
	ErrCodeFetchFailure          = "FETCH_FAILURE"
	ErrCodePollTimeout           = "POLL_TIMEOUT"
	ErrCodeBrowserCrash          = "BROWSER_CRASH"
	ErrCodeNavigation            = "NAVIGATION_FAILED"
	ErrCodeDeliveryFailed        = "DELIVERY_FAILED"
	ErrCodeInvalidInput          = "INVALID_INPUT"
	ErrCodeRateLimited           = "RATE_LIMITED"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeInternal              = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error carried by messages and API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SyncError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type SyncError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *SyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// NewSyncError creates a new SyncError.
func NewSyncError(code, message string, err error) *SyncError {
	return &SyncError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
// The wrapped cause is included in the message so receivers can tell
// "record absent" from "pattern mismatch" when debugging.
func (e *SyncError) ToDetail() *ErrorDetail {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return &ErrorDetail{Code: e.Code, Message: msg}
}

// DetailOf converts any error into an ErrorDetail. Errors that are not
// SyncErrors are reported as ErrCodeInternal.
func DetailOf(err error) *ErrorDetail {
	if err == nil {
		return nil
	}
	var se *SyncError
	if errors.As(err, &se) {
		return se.ToDetail()
	}
	return &ErrorDetail{Code: ErrCodeInternal, Message: err.Error()}
}

// HasCode reports whether err is a SyncError with the given code.
func HasCode(err error, code string) bool {
	var se *SyncError
	return errors.As(err, &se) && se.Code == code
}
