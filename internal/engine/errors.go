package engine

import (
	"errors"
	"fmt"

	"github.com/lebinh/aq/internal/querysql"
)

// QueryError represents an error detected while executing a query.
//
// Query errors include:
//   - Unknown collection: a table does not map to any provider collection
//   - Provider error: the provider failed to enumerate a collection
//   - Execution error: the store rejected the canonical query
//   - Storage error: a namespace could not be attached or a refresh could
//     not be written
//
// Parsing errors are not wrapped; they are returned as *querysql.ParsingError.
type QueryError struct {
	// Code identifies the error category.
	Code QueryErrorCode

	// Message is a human-readable description.
	Message string

	// Namespace and Table identify the affected table, when there is one.
	Namespace string
	Table     string

	// Resource and Collection are the parts Table was split into.
	Resource   string
	Collection string

	// Err is the underlying cause.
	Err error
}

// QueryErrorCode categorizes query errors.
type QueryErrorCode string

const (
	// ErrCodeUnknownCollection indicates a table maps to no provider collection.
	ErrCodeUnknownCollection QueryErrorCode = "UNKNOWN_COLLECTION"

	// ErrCodeProviderError indicates the provider failed to list a collection.
	ErrCodeProviderError QueryErrorCode = "PROVIDER_ERROR"

	// ErrCodeExecutionError indicates the store rejected the query.
	ErrCodeExecutionError QueryErrorCode = "EXECUTION_ERROR"

	// ErrCodeStorageError indicates the store itself failed.
	ErrCodeStorageError QueryErrorCode = "STORAGE_ERROR"
)

// Error implements the error interface.
func (e *QueryError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Table != "" {
		return fmt.Sprintf("%s: %s (namespace=%s, table=%s)", e.Code, msg, e.Namespace, e.Table)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *QueryError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code QueryErrorCode) bool {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Code == code
	}
	return false
}

// IsUnknownCollection returns true if the error is an unknown collection error.
// Uses errors.As to handle wrapped errors.
func IsUnknownCollection(err error) bool {
	return hasCode(err, ErrCodeUnknownCollection)
}

// IsProviderError returns true if the error is a provider error.
func IsProviderError(err error) bool {
	return hasCode(err, ErrCodeProviderError)
}

// IsExecutionError returns true if the error is an execution error.
func IsExecutionError(err error) bool {
	return hasCode(err, ErrCodeExecutionError)
}

// IsStorageError returns true if the error is a storage error.
func IsStorageError(err error) bool {
	return hasCode(err, ErrCodeStorageError)
}

// IsParsingError returns true if the error is a statement parsing error.
func IsParsingError(err error) bool {
	return querysql.IsParsingError(err)
}
