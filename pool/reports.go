// reports.go - Read-only dashboard derivations.
package pool

import (
	"context"

	"github.com/chamapool/savings-engine/domain"
)

// AggregateReport derives the system-wide dashboard figures from current
// snapshots.
func (s *Service) AggregateReport(ctx context.Context) (domain.AggregateReport, error) {
	members, err := s.store.ListMembers(ctx)
	if err != nil {
		return domain.AggregateReport{}, err
	}
	loans, err := s.store.ListLoans(ctx)
	if err != nil {
		return domain.AggregateReport{}, err
	}
	penalties, err := s.store.ListPenalties(ctx)
	if err != nil {
		return domain.AggregateReport{}, err
	}
	return domain.BuildAggregateReport(members, loans, penalties), nil
}

// MemberShares derives the per-member shares report: savings, share of the
// pool, interest earned, and interest to be earned if every outstanding
// loan settled today.
func (s *Service) MemberShares(ctx context.Context) ([]domain.MemberShare, error) {
	members, err := s.store.ListMembers(ctx)
	if err != nil {
		return nil, err
	}
	loans, err := s.store.ListLoans(ctx)
	if err != nil {
		return nil, err
	}
	return domain.BuildMemberShares(members, loans), nil
}
