// Package domain defines core types, interfaces, and errors for the ingestion platform.
package domain

import "fmt"

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AccessDeniedError indicates the policy engine refused an operation.
// Denials are terminal and never retried automatically.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate resource).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// UnreadableFormatError indicates every candidate parser rejected an upload.
// It carries the last parser's error message.
type UnreadableFormatError struct {
	Message string
}

func (e *UnreadableFormatError) Error() string { return e.Message }

// EmptyDatasetError indicates a parse succeeded but produced zero rows.
type EmptyDatasetError struct {
	Message string
}

func (e *EmptyDatasetError) Error() string { return e.Message }

// UnexpectedResponseShapeError indicates a remote API returned something
// other than a record list or single record object.
type UnexpectedResponseShapeError struct {
	Message string
}

func (e *UnexpectedResponseShapeError) Error() string { return e.Message }

// SchemaError indicates reconciliation could not establish a usable column set.
type SchemaError struct {
	Message string
}

func (e *SchemaError) Error() string { return e.Message }

// SinkError indicates a connectivity or constraint failure in the sink store.
type SinkError struct {
	Message string
}

func (e *SinkError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrUnreadableFormat creates an UnreadableFormatError with a formatted message.
func ErrUnreadableFormat(format string, args ...interface{}) *UnreadableFormatError {
	return &UnreadableFormatError{Message: fmt.Sprintf(format, args...)}
}

// ErrEmptyDataset creates an EmptyDatasetError with a formatted message.
func ErrEmptyDataset(format string, args ...interface{}) *EmptyDatasetError {
	return &EmptyDatasetError{Message: fmt.Sprintf(format, args...)}
}

// ErrUnexpectedResponseShape creates an UnexpectedResponseShapeError with a formatted message.
func ErrUnexpectedResponseShape(format string, args ...interface{}) *UnexpectedResponseShapeError {
	return &UnexpectedResponseShapeError{Message: fmt.Sprintf(format, args...)}
}

// ErrSchema creates a SchemaError with a formatted message.
func ErrSchema(format string, args ...interface{}) *SchemaError {
	return &SchemaError{Message: fmt.Sprintf(format, args...)}
}

// ErrSink creates a SinkError with a formatted message.
func ErrSink(format string, args ...interface{}) *SinkError {
	return &SinkError{Message: fmt.Sprintf(format, args...)}
}
