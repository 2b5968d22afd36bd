/*
loan.go - Loan lifecycle state machine

PURPOSE:
  Governs a single loan from request to a terminal state. All transitions
  are pure methods on the Loan snapshot; persistence and serialization of
  concurrent transitions belong to the caller (pool.Service).

LIFECYCLE:

            ┌──────────┐   approve   ┌──────────┐   full repay   ┌─────────┐
   request  │ pending  │────────────▶│  active  │───────────────▶│ repaid  │
  ─────────▶│          │             │          │◀──┐            └─────────┘
            └──────────┘             └──────────┘   │ partial repay
                  │                        └────────┘
                  │ reject           ┌──────────┐
                  └─────────────────▶│ rejected │
                                     └──────────┘

  "approved" and "active" are functionally equivalent; approval immediately
  activates the loan. "rejected" and "repaid" are terminal and restore the
  member's eligibility.

FAILURE SEMANTICS:
  A transition attempted from an invalid source state returns a
  StateConflictError and leaves the loan unchanged. Re-issuing approve or
  repay against a terminal loan therefore cannot double-apply side effects.
*/
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// NewLoanRequest validates shape and creates a pending loan. The repayment
// obligation and due date are fixed here, at request time. Admission checks
// against the member's ceiling and the pool balance are the caller's
// responsibility - they need member and pool snapshots this constructor
// doesn't have.
func NewLoanRequest(id LoanID, memberID MemberID, amount decimal.Decimal, months int, now time.Time) (*Loan, error) {
	if !amount.IsPositive() {
		return nil, &ValidationError{
			Code:    "non_positive_amount",
			Message: "loan amount must be positive",
		}
	}
	if months < MinLoanDurationMonths || months > MaxLoanDurationMonths {
		return nil, &ValidationError{
			Code: "duration_out_of_range",
			Message: fmt.Sprintf("duration must be between %d and %d months, got %d",
				MinLoanDurationMonths, MaxLoanDurationMonths, months),
		}
	}

	return &Loan{
		ID:              id,
		MemberID:        memberID,
		Amount:          amount,
		RepaymentAmount: RepaymentAmount(amount, months),
		PaidAmount:      decimal.Zero,
		DurationMonths:  months,
		Status:          LoanPending,
		RequestDate:     now,
		DueDate:         now.AddDate(0, months, 0),
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Approve transitions pending → active and records who approved and when.
// Valid only from pending.
func (l *Loan) Approve(approver MemberID, now time.Time) error {
	if l.Status != LoanPending {
		return &StateConflictError{Op: "approve", Status: string(l.Status)}
	}
	l.Status = LoanActive
	l.ApprovedBy = approver
	l.ApprovedDate = &now
	l.UpdatedAt = now
	return nil
}

// Reject transitions pending → rejected. Valid only from pending.
func (l *Loan) Reject(now time.Time) error {
	if l.Status != LoanPending {
		return &StateConflictError{Op: "reject", Status: string(l.Status)}
	}
	l.Status = LoanRejected
	l.UpdatedAt = now
	return nil
}

// Repay applies a repayment to an active loan. The amount must be positive
// and must not exceed the remaining balance (overpayment is rejected, not
// clamped). Returns true when this repayment settles the loan in full -
// that is the exact moment interest distribution must fire, and it fires
// only once because a repaid loan accepts no further repayments.
func (l *Loan) Repay(amount decimal.Decimal, now time.Time) (settled bool, err error) {
	if !l.Status.Outstanding() {
		return false, &StateConflictError{Op: "repay", Status: string(l.Status)}
	}
	if !amount.IsPositive() {
		return false, &ValidationError{
			Code:    "non_positive_amount",
			Message: "repayment amount must be positive",
		}
	}
	if amount.GreaterThan(l.Remaining()) {
		return false, &ValidationError{
			Code: "overpayment",
			Message: fmt.Sprintf("repayment %s exceeds remaining balance %s",
				amount.StringFixed(2), l.Remaining().StringFixed(2)),
		}
	}

	l.PaidAmount = l.PaidAmount.Add(amount)
	l.UpdatedAt = now
	if l.PaidAmount.Equal(l.RepaymentAmount) {
		l.Status = LoanRepaid
		return true, nil
	}
	return false, nil
}
