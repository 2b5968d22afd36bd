/*
errors.go - Centralized error types for the loan engine

PURPOSE:
  All error types in one place. Callers branch on the error category to
  decide how to respond: validation and conflict errors are client errors,
  integrity errors are internal defects.

ERROR CATEGORIES:
  1. Validation errors - malformed or out-of-range input, no state mutation
  2. State conflict errors - transition from an invalid source state
  3. Not-found errors - unknown member/loan/penalty id
  4. Integrity errors - ledger divergence; should never surface in correct
     operation

Every operation failure is scoped to that single request; nothing here is
fatal to the process.
*/
package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMemberNotFound is returned when a referenced member doesn't exist.
	ErrMemberNotFound = errors.New("member not found")

	// ErrLoanNotFound is returned when a referenced loan doesn't exist.
	ErrLoanNotFound = errors.New("loan not found")

	// ErrPenaltyNotFound is returned when a referenced penalty doesn't exist.
	ErrPenaltyNotFound = errors.New("penalty not found")

	// ErrContributionNotFound is returned when a referenced ledger entry
	// doesn't exist.
	ErrContributionNotFound = errors.New("contribution not found")

	// ErrMemberNotActive is returned when an operation requires an approved,
	// active member.
	ErrMemberNotActive = errors.New("member is not active")

	// ErrUnknownBranch is returned when no rules exist for a branch.
	ErrUnknownBranch = errors.New("unknown branch")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports malformed or out-of-range input. The operation
// performed no state mutation.
type ValidationError struct {
	Code    string // e.g. "non_positive_amount", "exceeds_max_loanable"
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// StateConflictError reports a loan or penalty transition attempted from an
// invalid source state. No mutation occurred; the caller should re-fetch.
type StateConflictError struct {
	Op     string // attempted transition, e.g. "approve"
	Status string // current status
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("cannot %s in status %q", e.Op, e.Status)
}

// IntegrityError reports a member's cached savings total diverging from the
// sum of their ledger entries. Internal defect, not a client error.
type IntegrityError struct {
	MemberID MemberID
	Cached   decimal.Decimal
	Ledger   decimal.Decimal
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("ledger divergence for member %s: cached %s, ledger sum %s",
		e.MemberID, e.Cached.StringFixed(2), e.Ledger.StringFixed(2))
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation returns true if the error is due to invalid client input.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStateConflict returns true if the error is a rejected state transition.
func IsStateConflict(err error) bool {
	var ce *StateConflictError
	return errors.As(err, &ce)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMemberNotFound) ||
		errors.Is(err, ErrLoanNotFound) ||
		errors.Is(err, ErrPenaltyNotFound) ||
		errors.Is(err, ErrContributionNotFound) ||
		errors.Is(err, ErrUnknownBranch)
}
