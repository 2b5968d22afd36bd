/*
interest.go - Proportional interest distribution

PURPOSE:
  When a loan is repaid in full, its interest is split across members in
  proportion to their share of pooled savings, and each share is credited
  to the member's accrued interest.

CURRENT-SNAPSHOT POLICY:
  The denominator (pooled savings) is read at distribution time, not frozen
  at loan-request time. Two loans repaid back-to-back can therefore produce
  different per-member splits for equal interest amounts if savings changed
  between the two events.

WHO PARTICIPATES:
  Only roles listed in InterestBearingRoles share distributed interest.
  Branch leads and administrators hold no claim on the pool even when they
  have recorded savings.
*/
package domain

import "github.com/shopspring/decimal"

// InterestBearingRoles decides whose savings count toward pooled savings
// and who shares distributed interest.
var InterestBearingRoles = map[Role]bool{
	RoleMember: true,
}

// InterestCredit is one member's slice of a distributed interest amount.
type InterestCredit struct {
	MemberID MemberID
	Amount   decimal.Decimal
}

// DistributeInterest splits interest across members proportional to their
// savings share. Members outside InterestBearingRoles or with zero savings
// receive nothing. If pooled savings are zero the interest is retained and
// the result is empty - never a division by zero.
func DistributeInterest(interest decimal.Decimal, members []*Member) []InterestCredit {
	totalSavings := PooledSavings(members)
	if !totalSavings.IsPositive() || !interest.IsPositive() {
		return nil
	}

	var credits []InterestCredit
	for _, m := range members {
		if !InterestBearingRoles[m.Role] || !m.TotalContributions.IsPositive() {
			continue
		}
		share := m.TotalContributions.Div(totalSavings)
		credits = append(credits, InterestCredit{
			MemberID: m.ID,
			Amount:   interest.Mul(share),
		})
	}
	return credits
}

// ProjectedInterest returns the interest a member would be credited if all
// currently outstanding loans were repaid today, using today's savings
// snapshot.
func ProjectedInterest(m *Member, members []*Member, loans []*Loan) decimal.Decimal {
	totalSavings := PooledSavings(members)
	if !totalSavings.IsPositive() || !InterestBearingRoles[m.Role] || !m.TotalContributions.IsPositive() {
		return decimal.Zero
	}

	share := m.TotalContributions.Div(totalSavings)
	projected := decimal.Zero
	for _, l := range loans {
		if l.Status.Outstanding() {
			projected = projected.Add(l.Interest().Mul(share))
		}
	}
	return projected
}
