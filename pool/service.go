/*
Package pool orchestrates the savings-pool loan engine against a TxStore.

PURPOSE:
  The domain package contains pure calculations over snapshots; this
  package is where they meet persistence. Every mutating operation here:

  1. Takes the service write lock (transitions are serialized - two
     concurrent approvals of the same loan cannot both pass the guard)
  2. Loads current snapshots inside a store transaction
  3. Applies the domain transition
  4. Persists every affected record in that same transaction

  A failed step rolls the transaction back, so no operation ever applies
  partially.

INTEREST DISTRIBUTION:
  The repayment that settles a loan in full also performs the interest
  sweep: one read of the member set, one credit per interest-bearing
  member, all inside the repayment's transaction. Two loans repaid
  concurrently cannot interleave their read-modify-write cycles on the
  same member record.

ACCEPTED TRANSITIONS ARE FINAL:
  Once a transition commits it is not revocable by the initiator.
  Corrections happen through compensating operations (adjustment
  contributions, a new administrative action) - a rejection cannot undo
  an approval.

SEE ALSO:
  - ledger.go: Contribution appends and penalty settlement
  - members.go: Registration and approval
  - reports.go: Aggregate and per-member reporting
*/
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chamapool/savings-engine/domain"
)

// Service executes loan, contribution and penalty operations.
type Service struct {
	store domain.TxStore
	rules map[domain.Branch]domain.GroupRules

	// Serializes all mutating operations. Coarse, but the guard conditions
	// of the state machine must be evaluated and applied atomically
	// relative to other transitions.
	mu sync.Mutex

	now   func() time.Time
	newID func() string
}

// NewService creates a service over the given store. A nil rules table
// falls back to the built-in defaults.
func NewService(store domain.TxStore, rules map[domain.Branch]domain.GroupRules) *Service {
	if rules == nil {
		rules = domain.DefaultRules()
	}
	return &Service{
		store: store,
		rules: rules,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// GroupRules returns the rules for a branch.
func (s *Service) GroupRules(branch domain.Branch) (domain.GroupRules, error) {
	r, ok := s.rules[branch]
	if !ok {
		return domain.GroupRules{}, fmt.Errorf("%w: %q", domain.ErrUnknownBranch, branch)
	}
	return r, nil
}

// =============================================================================
// LOAN LIFECYCLE
// =============================================================================

// RequestLoan validates admission and creates a pending loan.
//
// Admission requires, in order:
//   - an active member
//   - no other non-terminal loan for that member
//   - amount within the member's personal ceiling (savings × multiplier,
//     capped by the branch maximum)
//   - amount within the pool's available balance
func (s *Service) RequestLoan(ctx context.Context, memberID domain.MemberID, amount decimal.Decimal, months int) (*domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var loan *domain.Loan
	err := s.store.WithTx(ctx, func(tx domain.Store) error {
		member, err := tx.GetMember(ctx, memberID)
		if err != nil {
			return err
		}
		if member.Status != domain.MemberActive {
			return domain.ErrMemberNotActive
		}

		memberLoans, err := tx.ListLoansByMember(ctx, memberID)
		if err != nil {
			return err
		}
		if !domain.Eligible(memberLoans) {
			return &domain.StateConflictError{Op: "request loan", Status: "member has an outstanding loan"}
		}

		rules, err := s.GroupRules(member.Branch)
		if err != nil {
			return err
		}
		if maxLoanable := domain.MaxLoanable(member, rules); amount.GreaterThan(maxLoanable) {
			return &domain.ValidationError{
				Code: "exceeds_max_loanable",
				Message: fmt.Sprintf("requested %s exceeds maximum loanable %s",
					amount.StringFixed(2), maxLoanable.StringFixed(2)),
			}
		}

		members, err := tx.ListMembers(ctx)
		if err != nil {
			return err
		}
		loans, err := tx.ListLoans(ctx)
		if err != nil {
			return err
		}
		if available := domain.PoolAvailable(members, loans); amount.GreaterThan(available) {
			return &domain.ValidationError{
				Code: "exceeds_pool_balance",
				Message: fmt.Sprintf("requested %s exceeds available pool balance %s",
					amount.StringFixed(2), available.StringFixed(2)),
			}
		}

		loan, err = domain.NewLoanRequest(domain.LoanID(s.newID()), memberID, amount, months, s.now())
		if err != nil {
			return err
		}
		return tx.CreateLoan(ctx, loan)
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// ApproveLoan transitions a pending loan to active. The approver must be an
// administrator or branch lead.
func (s *Service) ApproveLoan(ctx context.Context, loanID domain.LoanID, approverID domain.MemberID) (*domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var loan *domain.Loan
	err := s.store.WithTx(ctx, func(tx domain.Store) error {
		approver, err := tx.GetMember(ctx, approverID)
		if err != nil {
			return err
		}
		if approver.Role == domain.RoleMember {
			return &domain.ValidationError{
				Code:    "not_an_approver",
				Message: "loans are approved by administrators or branch leads",
			}
		}

		l, err := tx.GetLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if err := l.Approve(approverID, s.now()); err != nil {
			return err
		}
		if err := tx.UpdateLoan(ctx, l); err != nil {
			return err
		}
		loan = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// RejectLoan transitions a pending loan to rejected.
func (s *Service) RejectLoan(ctx context.Context, loanID domain.LoanID) (*domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var loan *domain.Loan
	err := s.store.WithTx(ctx, func(tx domain.Store) error {
		l, err := tx.GetLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if err := l.Reject(s.now()); err != nil {
			return err
		}
		if err := tx.UpdateLoan(ctx, l); err != nil {
			return err
		}
		loan = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// RepayLoan applies a repayment. The repayment that settles the loan in
// full also distributes the loan's interest across members, in the same
// transaction.
func (s *Service) RepayLoan(ctx context.Context, loanID domain.LoanID, amount decimal.Decimal) (*domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var loan *domain.Loan
	err := s.store.WithTx(ctx, func(tx domain.Store) error {
		l, err := tx.GetLoan(ctx, loanID)
		if err != nil {
			return err
		}
		settled, err := l.Repay(amount, s.now())
		if err != nil {
			return err
		}
		if err := tx.UpdateLoan(ctx, l); err != nil {
			return err
		}

		if settled {
			if err := s.distributeInterest(ctx, tx, l); err != nil {
				return err
			}
		}
		loan = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// distributeInterest performs the atomic sweep crediting each member's
// slice of a settled loan's interest. Runs inside the repayment
// transaction.
func (s *Service) distributeInterest(ctx context.Context, tx domain.Store, loan *domain.Loan) error {
	members, err := tx.ListMembers(ctx)
	if err != nil {
		return err
	}

	byID := make(map[domain.MemberID]*domain.Member, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}

	now := s.now()
	for _, credit := range domain.DistributeInterest(loan.Interest(), members) {
		m := byID[credit.MemberID]
		m.InterestReceived = m.InterestReceived.Add(credit.Amount)
		m.UpdatedAt = now
		if err := tx.UpdateMember(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// LOAN QUERIES
// =============================================================================

// Loan returns a loan by id.
func (s *Service) Loan(ctx context.Context, id domain.LoanID) (*domain.Loan, error) {
	return s.store.GetLoan(ctx, id)
}

// Loans returns all loans, oldest first.
func (s *Service) Loans(ctx context.Context) ([]*domain.Loan, error) {
	return s.store.ListLoans(ctx)
}

// MemberLoans returns a member's loan history.
func (s *Service) MemberLoans(ctx context.Context, id domain.MemberID) ([]*domain.Loan, error) {
	if _, err := s.store.GetMember(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListLoansByMember(ctx, id)
}

// PendingLoans returns loans awaiting approval.
func (s *Service) PendingLoans(ctx context.Context) ([]*domain.Loan, error) {
	loans, err := s.store.ListLoans(ctx)
	if err != nil {
		return nil, err
	}
	var pending []*domain.Loan
	for _, l := range loans {
		if l.Status == domain.LoanPending {
			pending = append(pending, l)
		}
	}
	return pending, nil
}
