/*
seed.go - Demo data loader

Seeds a small blue-branch cohort for development: an administrator, a
branch lead, three members with savings, one late contribution carrying an
unpaid penalty, and one approved loan mid-repayment. Drives the public
service operations so seeded state obeys every invariant.
*/
package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chamapool/savings-engine/domain"
)

// SeedDemo loads the demo cohort. Intended for development databases;
// calling it twice creates a second cohort.
func (s *Service) SeedDemo(ctx context.Context) error {
	admin, err := s.registerActive(ctx, "Ada", "Okafor", "ada@example.com", domain.RoleAdmin, domain.BranchBlue)
	if err != nil {
		return err
	}
	if _, err := s.registerActive(ctx, "Brian", "Mwangi", "brian@example.com", domain.RoleBranchLead, domain.BranchBlue); err != nil {
		return err
	}

	type seedMember struct {
		first, last string
		deposits    []int64
	}
	cohort := []seedMember{
		{"Carol", "Achieng", []int64{1000, 1000, 1000}},
		{"David", "Otieno", []int64{2000, 2000}},
		{"Esther", "Wanjiru", []int64{500, 500, 500, 500}},
	}

	start := time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC)
	var borrower domain.MemberID
	for i, sm := range cohort {
		email := fmt.Sprintf("%s@example.com", sm.first)
		m, err := s.registerActive(ctx, sm.first, sm.last, email, domain.RoleMember, domain.BranchBlue)
		if err != nil {
			return err
		}
		if i == 0 {
			borrower = m.ID
		}
		for j, amount := range sm.deposits {
			date := start.AddDate(0, j, 0)
			if _, err := s.AppendContribution(ctx, m.ID, decimal.NewFromInt(amount), date, domain.ContributionRegular); err != nil {
				return err
			}
		}
	}

	// One late deposit: past the cutoff, raises an unpaid penalty.
	late := time.Date(2025, time.May, 15, 0, 0, 0, 0, time.UTC)
	if _, err := s.AppendContribution(ctx, borrower, decimal.NewFromInt(600), late, domain.ContributionRegular); err != nil {
		return err
	}

	// A loan mid-flight: approved, partially repaid.
	loan, err := s.RequestLoan(ctx, borrower, decimal.NewFromInt(3000), 6)
	if err != nil {
		return err
	}
	if _, err := s.ApproveLoan(ctx, loan.ID, admin.ID); err != nil {
		return err
	}
	if _, err := s.RepayLoan(ctx, loan.ID, decimal.NewFromInt(1000)); err != nil {
		return err
	}
	return nil
}

func (s *Service) registerActive(ctx context.Context, first, last, email string, role domain.Role, branch domain.Branch) (*domain.Member, error) {
	m, err := s.RegisterMember(ctx, first, last, email, role, branch)
	if err != nil {
		return nil, err
	}
	return s.ApproveMember(ctx, m.ID)
}
