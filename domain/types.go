/*
Package domain provides the core savings-pool and loan engine.

PURPOSE:
  This package contains the types and algorithms for managing a pooled
  savings group: members contribute into a shared pool, borrow against it,
  and share the interest collected on repaid loans in proportion to their
  savings.

KEY CONCEPTS IN THIS FILE (types.go):
  - Member: A participant with a running savings total and accrued interest
  - Loan: A borrowing obligation with a fixed repayment amount
  - Contribution: An immutable ledger entry recording savings changes
  - Penalty: A flat fee assessed on late contributions

DESIGN PRINCIPLES:
  1. Immutability: Contributions are never modified, only appended
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Derivation: "Does this member have an outstanding loan" is derived
     from the loan set, never stored as a back-reference
  4. Auditability: Loans are never deleted; terminal loans remain as history

SEE ALSO:
  - loan.go: Loan lifecycle transitions
  - interest.go: Proportional interest distribution
  - rules.go: Per-branch lending rules and eligibility
*/
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS - Type-safe ids, one canonical form per entity
// =============================================================================

type MemberID string

type LoanID string

type ContributionID string

type PenaltyID string

// =============================================================================
// MEMBER
// =============================================================================

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleMember     Role = "member"
	RoleBranchLead Role = "branch_lead"
)

// Branch is an organizational cohort of members with its own loan rules.
type Branch string

const (
	BranchBlue   Branch = "blue"
	BranchYellow Branch = "yellow"
	BranchRed    Branch = "red"
	BranchPurple Branch = "purple"
)

// Branches lists all known branches.
var Branches = []Branch{BranchBlue, BranchYellow, BranchRed, BranchPurple}

type MemberStatus string

const (
	// MemberPending: registered, awaiting administrator approval.
	MemberPending MemberStatus = "pending"
	// MemberActive: approved, may contribute and request loans.
	MemberActive MemberStatus = "active"
	// MemberRejected: registration declined.
	MemberRejected MemberStatus = "rejected"
	// MemberInactive: deactivated. Members with a nonzero ledger are
	// deactivated, never deleted (referential integrity with contributions).
	MemberInactive MemberStatus = "inactive"
)

// Member is a participant in the savings pool.
//
// TotalContributions is a cached sum over the contribution ledger and must
// always equal the sum of the member's contribution amounts. It is updated
// in the same transaction as every ledger append.
type Member struct {
	ID        MemberID
	FirstName string
	LastName  string
	Email     string
	Role      Role
	Branch    Branch
	Status    MemberStatus

	// Running savings total (cached ledger sum).
	TotalContributions decimal.Decimal

	// Cumulative interest credited from repaid loans. Tracked separately
	// from savings; interest does not join the lending pool.
	InterestReceived decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy, safe to mutate independently.
func (m *Member) Clone() *Member {
	c := *m
	return &c
}

// =============================================================================
// LOAN
// =============================================================================

type LoanStatus string

const (
	LoanPending  LoanStatus = "pending"
	LoanApproved LoanStatus = "approved"
	LoanActive   LoanStatus = "active"
	LoanRejected LoanStatus = "rejected"
	LoanRepaid   LoanStatus = "repaid"
)

// Terminal reports whether the status accepts no further transitions.
func (s LoanStatus) Terminal() bool {
	return s == LoanRejected || s == LoanRepaid
}

// Outstanding reports whether the loan is drawing on the pool.
// Approved and active are functionally equivalent: approval immediately
// activates the loan.
func (s LoanStatus) Outstanding() bool {
	return s == LoanApproved || s == LoanActive
}

// Loan is a member's borrowing obligation.
//
// INVARIANTS:
//   - RepaymentAmount = Amount × (1 + MonthlyLoanRate × DurationMonths),
//     fixed at request time.
//   - PaidAmount never exceeds RepaymentAmount.
//   - A member holds at most one non-terminal loan at a time.
type Loan struct {
	ID       LoanID
	MemberID MemberID

	// Principal.
	Amount decimal.Decimal

	// Principal plus interest, computed at request time.
	RepaymentAmount decimal.Decimal

	// Cumulative repayments.
	PaidAmount decimal.Decimal

	DurationMonths int
	Status         LoanStatus

	RequestDate  time.Time
	DueDate      time.Time
	ApprovedDate *time.Time
	ApprovedBy   MemberID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Interest returns the interest portion of the obligation.
func (l *Loan) Interest() decimal.Decimal {
	return l.RepaymentAmount.Sub(l.Amount)
}

// Remaining returns the unpaid balance.
func (l *Loan) Remaining() decimal.Decimal {
	return l.RepaymentAmount.Sub(l.PaidAmount)
}

// Clone returns a deep copy, safe to mutate independently.
func (l *Loan) Clone() *Loan {
	c := *l
	if l.ApprovedDate != nil {
		d := *l.ApprovedDate
		c.ApprovedDate = &d
	}
	return &c
}

// =============================================================================
// CONTRIBUTION - Append-only ledger entry
// =============================================================================

type ContributionType string

const (
	// ContributionRegular: an on-time deposit.
	ContributionRegular ContributionType = "regular"
	// ContributionPenalty: a late-flagged deposit, or the settlement entry
	// for a penalty fee (negative amount).
	ContributionPenalty ContributionType = "penalty"
	// ContributionInterest: interest moved into savings.
	ContributionInterest ContributionType = "interest"
	// ContributionAdjustment: a signed administrative correction
	// (newValue − oldValue); the only entry type that may reduce savings
	// other than penalty settlement.
	ContributionAdjustment ContributionType = "adjustment"
)

// Contribution is an immutable ledger entry. Once appended it is never
// updated or deleted; corrections are made with adjustment entries.
type Contribution struct {
	ID       ContributionID
	MemberID MemberID

	// Signed: positive for deposits and interest, may be negative for
	// adjustments and penalty settlements.
	Amount decimal.Decimal

	Date  time.Time
	Month string // "2006-01", for monthly grouping
	Type  ContributionType

	CreatedAt time.Time
}

// Clone returns a copy, safe to mutate independently.
func (c *Contribution) Clone() *Contribution {
	d := *c
	return &d
}

// =============================================================================
// PENALTY
// =============================================================================

type PenaltyStatus string

const (
	PenaltyUnpaid PenaltyStatus = "unpaid"
	PenaltyPaid   PenaltyStatus = "paid"
)

// Penalty is a flat fee receivable assessed on a late contribution. It is
// settled by its own ledger entry and is independent of the loan lifecycle.
type Penalty struct {
	ID       PenaltyID
	MemberID MemberID

	// The late contribution that triggered the fee.
	ContributionID ContributionID

	Fee    decimal.Decimal
	Status PenaltyStatus

	AssessedAt time.Time
	PaidAt     *time.Time
}

// Clone returns a deep copy, safe to mutate independently.
func (p *Penalty) Clone() *Penalty {
	c := *p
	if p.PaidAt != nil {
		d := *p.PaidAt
		c.PaidAt = &d
	}
	return &c
}

// =============================================================================
// FIXED RATES
// =============================================================================

// MonthlyLoanRate is the flat monthly interest rate applied to every loan:
// 1.25% per month of the principal, for each month of the duration.
var MonthlyLoanRate = decimal.NewFromFloat(0.0125)

// LateContributionFee is the flat fee assessed on a regular contribution
// dated after LateCutoffDay.
var LateContributionFee = decimal.NewFromInt(25)

// LateCutoffDay is the last day of the month a regular contribution is
// accepted without penalty. The 10th is on time; the 11th is late.
const LateCutoffDay = 10

// Loan duration bounds, in months.
const (
	MinLoanDurationMonths = 1
	MaxLoanDurationMonths = 24
)

// RepaymentAmount computes the fixed repayment obligation for a principal
// over a duration: amount × (1 + MonthlyLoanRate × months).
func RepaymentAmount(amount decimal.Decimal, months int) decimal.Decimal {
	rate := MonthlyLoanRate.Mul(decimal.NewFromInt(int64(months)))
	return amount.Mul(decimal.NewFromInt(1).Add(rate))
}
