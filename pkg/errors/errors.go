package errors

import (
	"errors"
	"fmt"
)

// Common application errors with proper types for error handling

var (
	// ErrNotFound indicates a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates invalid input data
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates missing or invalid authentication
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")
)

// Webhook ingestion errors. Handlers map these to status codes in one place.
var (
	// ErrSignatureMissing: the request carried no signature header, or no secret is configured.
	ErrSignatureMissing = errors.New("signature missing")

	// ErrSignatureInvalid: the signature header did not match the raw body.
	ErrSignatureInvalid = errors.New("invalid signature")

	// ErrMalformedRequest: empty body, unparsable JSON, or no document id.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrUnknownDocumentType: the content schema produced a type the resolver does not handle.
	ErrUnknownDocumentType = errors.New("unknown document type")

	// ErrUpstreamQuery: the content store failed or returned an unusable response.
	ErrUpstreamQuery = errors.New("content store query failed")

	// ErrRevalidation: the frontend rejected or failed a route revalidation.
	ErrRevalidation = errors.New("route revalidation failed")
)

// NotFoundError creates a not found error with context
func NotFoundError(resource string) error {
	return fmt.Errorf("%s %w", resource, ErrNotFound)
}

// InvalidInputError creates an invalid input error with context
func InvalidInputError(field, reason string) error {
	return fmt.Errorf("%s: %s: %w", field, reason, ErrInvalidInput)
}

// InternalError creates an internal error with context
func InternalError(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrInternal)
}

// MalformedRequestError wraps ErrMalformedRequest with a reason.
func MalformedRequestError(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrMalformedRequest)
}

// UnknownTypeError names the document type the resolver could not handle.
// Its message is returned verbatim in the 500 response body.
type UnknownTypeError struct {
	DocumentType string
}

func (e *UnknownTypeError) Error() string {
	return "Unknown type: " + e.DocumentType
}

// Is makes errors.Is(err, ErrUnknownDocumentType) hold.
func (e *UnknownTypeError) Is(target error) bool {
	return target == ErrUnknownDocumentType
}

// UnknownDocumentTypeError creates an UnknownTypeError.
func UnknownDocumentTypeError(documentType string) error {
	return &UnknownTypeError{DocumentType: documentType}
}

// UpstreamQueryError wraps a content store failure for the named operation.
func UpstreamQueryError(operation string, err error) error {
	return fmt.Errorf("%s: %w: %w", operation, ErrUpstreamQuery, err)
}

// Is checks if an error matches a target error (works with wrapped errors)
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
