/*
members.go - Member registry

Registration creates a member in pending status; an administrator approval
flips it to active. Members with a nonzero ledger are deactivated rather
than deleted, keeping the contribution ledger referentially intact.
*/
package pool

import (
	"context"
	"strings"

	"github.com/chamapool/savings-engine/domain"
)

// RegisterMember creates a member awaiting approval.
func (s *Service) RegisterMember(ctx context.Context, firstName, lastName, email string, role domain.Role, branch domain.Branch) (*domain.Member, error) {
	switch role {
	case domain.RoleAdmin, domain.RoleMember, domain.RoleBranchLead:
	default:
		return nil, &domain.ValidationError{Code: "unknown_role", Message: "role must be admin, member or branch_lead"}
	}
	if _, ok := s.rules[branch]; !ok {
		return nil, &domain.ValidationError{Code: "unknown_branch", Message: "branch must be one of the configured branches"}
	}
	if strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" {
		return nil, &domain.ValidationError{Code: "missing_name", Message: "first and last name are required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	member := &domain.Member{
		ID:        domain.MemberID(s.newID()),
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Role:      role,
		Branch:    branch,
		Status:    domain.MemberPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateMember(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

// ApproveMember activates a pending registration.
func (s *Service) ApproveMember(ctx context.Context, id domain.MemberID) (*domain.Member, error) {
	return s.setMemberStatus(ctx, id, domain.MemberPending, domain.MemberActive, "approve member")
}

// RejectMember declines a pending registration.
func (s *Service) RejectMember(ctx context.Context, id domain.MemberID) (*domain.Member, error) {
	return s.setMemberStatus(ctx, id, domain.MemberPending, domain.MemberRejected, "reject member")
}

// DeactivateMember retires an active member. The record stays - their
// ledger entries reference it.
func (s *Service) DeactivateMember(ctx context.Context, id domain.MemberID) (*domain.Member, error) {
	return s.setMemberStatus(ctx, id, domain.MemberActive, domain.MemberInactive, "deactivate member")
}

func (s *Service) setMemberStatus(ctx context.Context, id domain.MemberID, from, to domain.MemberStatus, op string) (*domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var member *domain.Member
	err := s.store.WithTx(ctx, func(tx domain.Store) error {
		m, err := tx.GetMember(ctx, id)
		if err != nil {
			return err
		}
		if m.Status != from {
			return &domain.StateConflictError{Op: op, Status: string(m.Status)}
		}
		m.Status = to
		m.UpdatedAt = s.now()
		if err := tx.UpdateMember(ctx, m); err != nil {
			return err
		}
		member = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// Member returns a member by id.
func (s *Service) Member(ctx context.Context, id domain.MemberID) (*domain.Member, error) {
	return s.store.GetMember(ctx, id)
}

// Members returns all members.
func (s *Service) Members(ctx context.Context) ([]*domain.Member, error) {
	return s.store.ListMembers(ctx)
}
