/*
ledger.go - Contribution appends and penalty settlement

PURPOSE:
  Contributions are the append-only ledger of record for savings. Each
  append updates the member's cached running total in the same transaction,
  keeping the invariant:

    member.TotalContributions == Σ(member's contribution amounts)

LATE-PENALTY DERIVATION:
  A regular contribution dated after the 10th of the month is recorded as
  type "penalty" instead. The deposit still credits the member's savings in
  full; the flat fee is raised as a separate unpaid Penalty receivable. The
  fee only leaves the member's savings when the penalty is settled, via its
  own ledger entry.

  Penalty-typed entries are minted by the engine only - callers submit
  regular, interest or adjustment entries.

PENALTY SETTLEMENT:
  Paying a penalty flips it to paid and appends a negative penalty entry
  for the fee. It never re-runs interest distribution and is independent
  of the loan lifecycle.
*/
package pool

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chamapool/savings-engine/domain"
)

// AppendContribution appends a ledger entry and updates the member's
// running total. For type "regular" dated after the monthly cutoff the
// entry is penalty-flagged and a flat fee is assessed as a separate
// unpaid receivable.
func (s *Service) AppendContribution(ctx context.Context, memberID domain.MemberID, amount decimal.Decimal, date time.Time, ctype domain.ContributionType) (*domain.Contribution, error) {
	switch ctype {
	case domain.ContributionRegular, domain.ContributionInterest:
		if !amount.IsPositive() {
			return nil, &domain.ValidationError{
				Code:    "non_positive_amount",
				Message: "contribution amount must be positive",
			}
		}
	case domain.ContributionAdjustment:
		// Signed delta; an administrator correcting a recorded balance.
		if amount.IsZero() {
			return nil, &domain.ValidationError{
				Code:    "zero_adjustment",
				Message: "adjustment delta must be nonzero",
			}
		}
	case domain.ContributionPenalty:
		return nil, &domain.ValidationError{
			Code:    "reserved_type",
			Message: "penalty entries are derived by the engine, not submitted",
		}
	default:
		return nil, &domain.ValidationError{
			Code:    "unknown_type",
			Message: "type must be regular, interest or adjustment",
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var contribution *domain.Contribution
	err := s.store.WithTx(ctx, func(tx domain.Store) error {
		member, err := tx.GetMember(ctx, memberID)
		if err != nil {
			return err
		}
		if member.Status != domain.MemberActive {
			return domain.ErrMemberNotActive
		}

		now := s.now()
		contribution = &domain.Contribution{
			ID:        domain.ContributionID(s.newID()),
			MemberID:  memberID,
			Amount:    amount,
			Date:      date,
			Month:     date.Format("2006-01"),
			Type:      ctype,
			CreatedAt: now,
		}

		late := ctype == domain.ContributionRegular && date.Day() > domain.LateCutoffDay
		if late {
			contribution.Type = domain.ContributionPenalty
		}
		if err := tx.AppendContribution(ctx, contribution); err != nil {
			return err
		}

		if late {
			penalty := &domain.Penalty{
				ID:             domain.PenaltyID(s.newID()),
				MemberID:       memberID,
				ContributionID: contribution.ID,
				Fee:            domain.LateContributionFee,
				Status:         domain.PenaltyUnpaid,
				AssessedAt:     now,
			}
			if err := tx.CreatePenalty(ctx, penalty); err != nil {
				return err
			}
		}

		// The deposit credits savings in full even when late; the fee is a
		// separate receivable.
		member.TotalContributions = member.TotalContributions.Add(amount)
		member.UpdatedAt = now
		return tx.UpdateMember(ctx, member)
	})
	if err != nil {
		return nil, err
	}
	return contribution, nil
}

// PayPenalty settles an unpaid penalty: flips it to paid and appends the
// fee as a negative penalty entry against the member's savings.
func (s *Service) PayPenalty(ctx context.Context, id domain.PenaltyID) (*domain.Penalty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var penalty *domain.Penalty
	err := s.store.WithTx(ctx, func(tx domain.Store) error {
		p, err := tx.GetPenalty(ctx, id)
		if err != nil {
			return err
		}
		if p.Status == domain.PenaltyPaid {
			return &domain.StateConflictError{Op: "pay penalty", Status: string(p.Status)}
		}

		member, err := tx.GetMember(ctx, p.MemberID)
		if err != nil {
			return err
		}

		now := s.now()
		settlement := &domain.Contribution{
			ID:        domain.ContributionID(s.newID()),
			MemberID:  p.MemberID,
			Amount:    p.Fee.Neg(),
			Date:      now,
			Month:     now.Format("2006-01"),
			Type:      domain.ContributionPenalty,
			CreatedAt: now,
		}
		if err := tx.AppendContribution(ctx, settlement); err != nil {
			return err
		}

		member.TotalContributions = member.TotalContributions.Sub(p.Fee)
		member.UpdatedAt = now
		if err := tx.UpdateMember(ctx, member); err != nil {
			return err
		}

		p.Status = domain.PenaltyPaid
		p.PaidAt = &now
		if err := tx.UpdatePenalty(ctx, p); err != nil {
			return err
		}
		penalty = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return penalty, nil
}

// Contributions returns a member's ledger entries, oldest first.
func (s *Service) Contributions(ctx context.Context, memberID domain.MemberID) ([]*domain.Contribution, error) {
	if _, err := s.store.GetMember(ctx, memberID); err != nil {
		return nil, err
	}
	return s.store.ListContributions(ctx, memberID)
}

// Ledger returns the full contribution ledger across members, oldest
// first.
func (s *Service) Ledger(ctx context.Context) ([]*domain.Contribution, error) {
	return s.store.ListAllContributions(ctx)
}

// Penalties returns all penalties, oldest first.
func (s *Service) Penalties(ctx context.Context) ([]*domain.Penalty, error) {
	return s.store.ListPenalties(ctx)
}

// VerifyMemberLedger checks the member's cached savings total against the
// ledger sum. A non-nil result is an internal defect, not a client error.
func (s *Service) VerifyMemberLedger(ctx context.Context, memberID domain.MemberID) error {
	member, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		return err
	}
	contributions, err := s.store.ListContributions(ctx, memberID)
	if err != nil {
		return err
	}
	return domain.CheckLedgerIntegrity(member, contributions)
}
