package models

import "errors"

// Fatal catalog errors. Anything wrapping these aborts the invocation
// before stage work begins.
var (
	ErrMalformedDatasetRecord = errors.New("malformed dataset record")
	ErrSchemaMismatch         = errors.New("schema mismatch")
	ErrDuplicateBasename      = errors.New("duplicate basename")
)

// ErrorType identifies the category of a per-dataset condition.
type ErrorType string

const (
	// Warnings
	ErrPreconditionMissing ErrorType = "precondition_missing"
	ErrAlreadyExists       ErrorType = "already_exists"
	ErrEmptyResultFile     ErrorType = "empty_result_file"
	ErrMalformedResultFile ErrorType = "malformed_result_file"

	// Errors
	ErrExternalOperationFailure ErrorType = "external_operation_failure"
	ErrInterrupted              ErrorType = "interrupted"
)
