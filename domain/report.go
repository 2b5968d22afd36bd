/*
report.go - Aggregate reporting over the ledger, loan and member sets

Pure derivations, recomputed on demand rather than incrementally
maintained. Consumed by dashboards; nothing here mutates state.
*/
package domain

import "github.com/shopspring/decimal"

// AggregateReport carries the system-wide dashboard figures.
type AggregateReport struct {
	// Pooled savings minus outstanding loan principal.
	NetAvailable decimal.Decimal

	// Projected balance once every outstanding loan is repaid with
	// interest: NetAvailable plus all remaining repayment obligations.
	BestFutureBalance decimal.Decimal

	// Sum of settled penalty fees.
	TotalPaidPenalties decimal.Decimal
}

// BuildAggregateReport derives the dashboard figures from full snapshots.
func BuildAggregateReport(members []*Member, loans []*Loan, penalties []*Penalty) AggregateReport {
	netAvailable := PoolAvailable(members, loans)

	outstandingDebt := decimal.Zero
	for _, l := range loans {
		if l.Status.Outstanding() {
			outstandingDebt = outstandingDebt.Add(l.Remaining())
		}
	}

	paidPenalties := decimal.Zero
	for _, p := range penalties {
		if p.Status == PenaltyPaid {
			paidPenalties = paidPenalties.Add(p.Fee)
		}
	}

	return AggregateReport{
		NetAvailable:       netAvailable,
		BestFutureBalance:  netAvailable.Add(outstandingDebt),
		TotalPaidPenalties: paidPenalties,
	}
}

// MemberShare is one row of the per-member shares report.
type MemberShare struct {
	MemberID          MemberID
	Name              string
	TotalContribution decimal.Decimal

	// The member's fraction of pooled savings, in percent.
	SharePercentage decimal.Decimal

	// Interest credited from repaid loans so far.
	InterestEarned decimal.Decimal

	// Interest the member would be credited if every outstanding loan were
	// repaid today.
	InterestToBeEarned decimal.Decimal
}

// BuildMemberShares derives the shares report for interest-bearing members.
func BuildMemberShares(members []*Member, loans []*Loan) []MemberShare {
	totalSavings := PooledSavings(members)
	hundred := decimal.NewFromInt(100)

	var shares []MemberShare
	for _, m := range members {
		if !InterestBearingRoles[m.Role] {
			continue
		}
		percent := decimal.Zero
		if totalSavings.IsPositive() {
			percent = m.TotalContributions.Div(totalSavings).Mul(hundred)
		}
		shares = append(shares, MemberShare{
			MemberID:           m.ID,
			Name:               m.FirstName + " " + m.LastName,
			TotalContribution:  m.TotalContributions,
			SharePercentage:    percent,
			InterestEarned:     m.InterestReceived,
			InterestToBeEarned: ProjectedInterest(m, members, loans),
		})
	}
	return shares
}

// CheckLedgerIntegrity verifies a member's cached savings total against the
// sum of their ledger entries. Returns an IntegrityError on divergence.
func CheckLedgerIntegrity(m *Member, contributions []*Contribution) error {
	sum := decimal.Zero
	for _, c := range contributions {
		sum = sum.Add(c.Amount)
	}
	if !sum.Equal(m.TotalContributions) {
		return &IntegrityError{MemberID: m.ID, Cached: m.TotalContributions, Ledger: sum}
	}
	return nil
}
