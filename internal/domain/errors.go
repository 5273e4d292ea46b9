package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced by the booking and tracking flows
type ErrorKind string

const (
	KindMissingPhone     ErrorKind = "missing_phone"
	KindInvalidPhone     ErrorKind = "invalid_phone"
	KindInvalidEmail     ErrorKind = "invalid_email"
	KindInvalidName      ErrorKind = "invalid_name"
	KindMissingService   ErrorKind = "missing_service"
	KindCapacityExceeded ErrorKind = "capacity_exceeded"
	KindFileTooLarge     ErrorKind = "file_too_large"
	KindNothingToUpload  ErrorKind = "nothing_to_upload"
	KindParseFailure     ErrorKind = "parse_failure"
	KindTransportFailure ErrorKind = "transport_failure"
	KindServerRejected   ErrorKind = "server_rejected"
	KindBusy             ErrorKind = "busy"
	KindEmptyQuery       ErrorKind = "empty_query"
	KindUnexpected       ErrorKind = "unexpected"
)

// Default user-facing messages
const (
	MsgNoResponse      = "No response from server. Please check your connection and try again."
	MsgUnexpected      = "An unexpected error occurred. Please try again later."
	MsgBookingFailed   = "Failed to create booking. Please try again."
	MsgUploadFailed    = "Failed to upload documents"
	MsgUploadUnusable  = "Failed to process uploaded documents. Please try again."
	MsgUploadUnparsed  = "Failed to parse server response for document upload"
	MsgBookingUnparsed = "Failed to parse server response for booking"
)

// Error is the error type returned by the flows
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error

	// retry marks upload failures that offer a manual retry trigger
	retry bool
}

// NewError creates an error of the given kind
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError creates an error of the given kind around a cause
func WrapError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Retryable reports whether the caller should offer (or run) another attempt
func (e *Error) Retryable() bool {
	return e.Kind == KindParseFailure || e.retry
}

// WithRetry marks the error as retryable by a manual trigger
func (e *Error) WithRetry() *Error {
	e.retry = true
	return e
}

// IsFieldError reports whether the kind is a recoverable form-field validation error
func (k ErrorKind) IsFieldError() bool {
	switch k {
	case KindMissingPhone, KindInvalidPhone, KindInvalidEmail, KindInvalidName, KindMissingService:
		return true
	}
	return false
}

// KindOf extracts the kind of err, or KindUnexpected for foreign errors
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnexpected
}

// MessageOf returns the user-facing message carried by err
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return MsgUnexpected
}

// IsRetryable reports whether err is a retryable *Error
func IsRetryable(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Retryable()
}
