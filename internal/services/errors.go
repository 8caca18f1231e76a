package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// UnsupportedFormatError means the uploaded/raw data could not be read as
// tabular data. Not retryable.
type UnsupportedFormatError struct {
	Reason string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported data format: %s", e.Reason)
}

// GenerationBackendError wraps transient network/service failures from the
// generation backend. Retryable by caller policy.
type GenerationBackendError struct {
	Err error
}

func (e *GenerationBackendError) Error() string {
	return fmt.Sprintf("generation backend error: %v", e.Err)
}

func (e *GenerationBackendError) Unwrap() error {
	return e.Err
}

// GenerationContractViolation means the backend returned text that does not
// parse or validate against the requested shape. Retryable at most once.
type GenerationContractViolation struct {
	Reason string
	Raw    string
}

func (e *GenerationContractViolation) Error() string {
	return fmt.Sprintf("generation contract violation: %s", e.Reason)
}

// ReorderMismatchError means the caller-supplied reorder set does not match
// the dashboard's current block set. Indicates stale client state.
type ReorderMismatchError struct {
	DashboardID uuid.UUID
}

func (e *ReorderMismatchError) Error() string {
	return fmt.Sprintf("reorder id set does not match blocks of dashboard %s", e.DashboardID)
}

// NotFoundError is a reference error for a missing entity.
type NotFoundError struct {
	Resource string
	ID       uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func NewBlockNotFound(id uuid.UUID) *NotFoundError {
	return &NotFoundError{Resource: "block", ID: id}
}

func NewDashboardNotFound(id uuid.UUID) *NotFoundError {
	return &NotFoundError{Resource: "dashboard", ID: id}
}

func NewConversationNotFound(id uuid.UUID) *NotFoundError {
	return &NotFoundError{Resource: "conversation", ID: id}
}

func NewDataSourceNotFound(id uuid.UUID) *NotFoundError {
	return &NotFoundError{Resource: "data source", ID: id}
}

// UserMessage maps an error kind to the short human-readable message shown to
// the caller. Message selection is driven by the kind, never by raw error
// text.
func UserMessage(err error) string {
	var formatErr *UnsupportedFormatError
	var backendErr *GenerationBackendError
	var contractErr *GenerationContractViolation
	var reorderErr *ReorderMismatchError
	var notFoundErr *NotFoundError
	switch {
	case errors.As(err, &formatErr):
		return "could not read data source"
	case errors.As(err, &backendErr):
		return "AI service unavailable, try again"
	case errors.As(err, &contractErr):
		return "could not generate a valid chart"
	case errors.As(err, &reorderErr):
		return "dashboard changed, please refresh"
	case errors.As(err, &notFoundErr):
		return "resource not found"
	default:
		return "internal error"
	}
}
