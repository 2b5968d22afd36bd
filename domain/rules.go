/*
rules.go - Per-branch lending rules, eligibility and sizing

PURPOSE:
  GroupRules is the static per-branch configuration: how much a member may
  borrow relative to their savings, the absolute cap, and the branch's
  penalty fee. The functions here are pure calculations over snapshots -
  they never mutate anything.

ELIGIBILITY:
  A member is eligible for a new loan when they hold no loan in a
  non-terminal state (pending, approved, active). This is derived from the
  loan set on every check rather than stored on the member, so it cannot
  drift out of sync.

POOL ADMISSION:
  Loans draw down the shared pool of member savings. A request is admitted
  only if it fits within the pool's available balance:

    available = Σ(member savings) − Σ(outstanding loan principal)

  Repaid principal is back in the pool by construction: repayment never
  reduced savings, only the outstanding set shrinks.
*/
package domain

import "github.com/shopspring/decimal"

// GroupRules is the per-branch lending configuration. Read-only to the
// engine.
type GroupRules struct {
	// Savings multiplier bounding a member's personal loan ceiling.
	MaxLoanMultiplier decimal.Decimal

	// Absolute loan ceiling regardless of savings.
	MaxLoanAmount decimal.Decimal

	// Branch interest rate, informational. Loan obligations use the flat
	// MonthlyLoanRate.
	InterestRate decimal.Decimal

	// Branch penalty fee, informational. Late-contribution penalties use
	// the flat LateContributionFee.
	PenaltyFee decimal.Decimal
}

// DefaultRules returns the built-in rules table.
func DefaultRules() map[Branch]GroupRules {
	return map[Branch]GroupRules{
		BranchBlue: {
			MaxLoanMultiplier: decimal.NewFromInt(3),
			MaxLoanAmount:     decimal.NewFromInt(25000),
			InterestRate:      decimal.NewFromFloat(0.10),
			PenaltyFee:        decimal.NewFromInt(500),
		},
		BranchYellow: {
			MaxLoanMultiplier: decimal.NewFromInt(3),
			MaxLoanAmount:     decimal.NewFromInt(25000),
			InterestRate:      decimal.NewFromFloat(0.12),
			PenaltyFee:        decimal.NewFromInt(600),
		},
		BranchRed: {
			MaxLoanMultiplier: decimal.NewFromInt(3),
			MaxLoanAmount:     decimal.NewFromInt(25000),
			InterestRate:      decimal.NewFromFloat(0.08),
			PenaltyFee:        decimal.NewFromInt(400),
		},
		BranchPurple: {
			MaxLoanMultiplier: decimal.NewFromInt(3),
			MaxLoanAmount:     decimal.NewFromInt(25000),
			InterestRate:      decimal.NewFromFloat(0.15),
			PenaltyFee:        decimal.NewFromInt(750),
		},
	}
}

// MaxLoanable returns the member's personal loan ceiling:
// min(savings × multiplier, branch cap).
func MaxLoanable(m *Member, rules GroupRules) decimal.Decimal {
	bySavings := m.TotalContributions.Mul(rules.MaxLoanMultiplier)
	if bySavings.GreaterThan(rules.MaxLoanAmount) {
		return rules.MaxLoanAmount
	}
	return bySavings
}

// OutstandingLoan returns the member's non-terminal loan from their loan
// history, or nil. At most one exists (single-outstanding-loan invariant).
func OutstandingLoan(loans []*Loan) *Loan {
	for _, l := range loans {
		if !l.Status.Terminal() {
			return l
		}
	}
	return nil
}

// Eligible reports whether a member with the given loan history may request
// a new loan.
func Eligible(loans []*Loan) bool {
	return OutstandingLoan(loans) == nil
}

// PooledSavings sums the savings of interest-bearing members. This is the
// lending capital base and the denominator of every interest split.
func PooledSavings(members []*Member) decimal.Decimal {
	total := decimal.Zero
	for _, m := range members {
		if InterestBearingRoles[m.Role] {
			total = total.Add(m.TotalContributions)
		}
	}
	return total
}

// PoolAvailable returns the system-wide balance available for new loans.
func PoolAvailable(members []*Member, loans []*Loan) decimal.Decimal {
	available := PooledSavings(members)
	for _, l := range loans {
		if l.Status.Outstanding() {
			available = available.Sub(l.Amount)
		}
	}
	return available
}
