package domain

import (
	"fmt"
	"strings"
)

// ValidationError aggregates the full list of business-rule violations for
// a rejected request. It is surfaced to the caller verbatim and never
// retried.
type ValidationError struct {
	Result ValidationResult
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Result.Errors, "; ")
}

// NotFoundError indicates the referenced trade has no active version
type NotFoundError struct {
	TradeID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("trade %d not found", e.TradeID)
}

// ReferenceDataError indicates a mandatory reference lookup failed after a
// resolution attempt. It is fatal for the current operation.
type ReferenceDataError struct {
	Entity string
	Ref    Ref
}

func (e *ReferenceDataError) Error() string {
	return fmt.Sprintf("%s %s not found or not set", e.Entity, e.Ref)
}

// ScheduleFormatError indicates an unparseable schedule label. It aborts
// cashflow generation.
type ScheduleFormatError struct {
	Label string
}

func (e *ScheduleFormatError) Error() string {
	return fmt.Sprintf("invalid schedule format: %q", e.Label)
}

// ConcurrencyConflictError indicates another amendment superseded the
// version this operation observed. The caller may retry the whole
// operation.
type ConcurrencyConflictError struct {
	TradeID         int64
	ExpectedVersion int
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("trade %d version %d was superseded concurrently", e.TradeID, e.ExpectedVersion)
}
