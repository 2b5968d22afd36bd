// Package store provides an in-memory TxStore implementation
// (for testing/dev).
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/chamapool/savings-engine/domain"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu            sync.RWMutex
	members       map[domain.MemberID]*domain.Member
	loans         map[domain.LoanID]*domain.Loan
	contributions []*domain.Contribution
	penalties     map[domain.PenaltyID]*domain.Penalty
}

func NewMemory() *Memory {
	return &Memory{
		members:   make(map[domain.MemberID]*domain.Member),
		loans:     make(map[domain.LoanID]*domain.Loan),
		penalties: make(map[domain.PenaltyID]*domain.Penalty),
	}
}

// ---------------------------------------------------------------------------
// Members

func (m *Memory) CreateMember(_ context.Context, mem *domain.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[mem.ID] = mem.Clone()
	return nil
}

func (m *Memory) GetMember(_ context.Context, id domain.MemberID) (*domain.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mem, ok := m.members[id]
	if !ok {
		return nil, domain.ErrMemberNotFound
	}
	return mem.Clone(), nil
}

func (m *Memory) ListMembers(_ context.Context) ([]*domain.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Member, 0, len(m.members))
	for _, mem := range m.members {
		result = append(result, mem.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) UpdateMember(_ context.Context, mem *domain.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.members[mem.ID]; !ok {
		return domain.ErrMemberNotFound
	}
	m.members[mem.ID] = mem.Clone()
	return nil
}

// ---------------------------------------------------------------------------
// Loans

func (m *Memory) CreateLoan(_ context.Context, l *domain.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loans[l.ID] = l.Clone()
	return nil
}

func (m *Memory) GetLoan(_ context.Context, id domain.LoanID) (*domain.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.loans[id]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	return l.Clone(), nil
}

func (m *Memory) ListLoans(_ context.Context) ([]*domain.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Loan, 0, len(m.loans))
	for _, l := range m.loans {
		result = append(result, l.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].RequestDate.Before(result[j].RequestDate)
	})
	return result, nil
}

func (m *Memory) ListLoansByMember(_ context.Context, id domain.MemberID) ([]*domain.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Loan
	for _, l := range m.loans {
		if l.MemberID == id {
			result = append(result, l.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].RequestDate.Before(result[j].RequestDate)
	})
	return result, nil
}

func (m *Memory) UpdateLoan(_ context.Context, l *domain.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.loans[l.ID]; !ok {
		return domain.ErrLoanNotFound
	}
	m.loans[l.ID] = l.Clone()
	return nil
}

// ---------------------------------------------------------------------------
// Contributions (append-only)

func (m *Memory) AppendContribution(_ context.Context, c *domain.Contribution) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Binary search for insertion point keeps the ledger date-ordered.
	i := sort.Search(len(m.contributions), func(i int) bool {
		return m.contributions[i].Date.After(c.Date)
	})
	m.contributions = append(m.contributions, nil)
	copy(m.contributions[i+1:], m.contributions[i:])
	m.contributions[i] = c.Clone()
	return nil
}

func (m *Memory) ListContributions(_ context.Context, id domain.MemberID) ([]*domain.Contribution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Contribution
	for _, c := range m.contributions {
		if c.MemberID == id {
			result = append(result, c.Clone())
		}
	}
	return result, nil
}

func (m *Memory) ListAllContributions(_ context.Context) ([]*domain.Contribution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Contribution, 0, len(m.contributions))
	for _, c := range m.contributions {
		result = append(result, c.Clone())
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// Penalties

func (m *Memory) CreatePenalty(_ context.Context, p *domain.Penalty) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.penalties[p.ID] = p.Clone()
	return nil
}

func (m *Memory) GetPenalty(_ context.Context, id domain.PenaltyID) (*domain.Penalty, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.penalties[id]
	if !ok {
		return nil, domain.ErrPenaltyNotFound
	}
	return p.Clone(), nil
}

func (m *Memory) ListPenalties(_ context.Context) ([]*domain.Penalty, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Penalty, 0, len(m.penalties))
	for _, p := range m.penalties {
		result = append(result, p.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].AssessedAt.Before(result[j].AssessedAt)
	})
	return result, nil
}

func (m *Memory) UpdatePenalty(_ context.Context, p *domain.Penalty) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.penalties[p.ID]; !ok {
		return domain.ErrPenaltyNotFound
	}
	m.penalties[p.ID] = p.Clone()
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn against the store. For the memory store this is
// simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(_ context.Context, fn func(domain.Store) error) error {
	m.mu.Lock()
	snapshot := m.snapshot()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.restore(snapshot)
		m.mu.Unlock()
		return err
	}
	return nil
}

type memorySnapshot struct {
	members       map[domain.MemberID]*domain.Member
	loans         map[domain.LoanID]*domain.Loan
	contributions []*domain.Contribution
	penalties     map[domain.PenaltyID]*domain.Penalty
}

func (m *Memory) snapshot() memorySnapshot {
	s := memorySnapshot{
		members:       make(map[domain.MemberID]*domain.Member, len(m.members)),
		loans:         make(map[domain.LoanID]*domain.Loan, len(m.loans)),
		contributions: make([]*domain.Contribution, len(m.contributions)),
		penalties:     make(map[domain.PenaltyID]*domain.Penalty, len(m.penalties)),
	}
	for k, v := range m.members {
		s.members[k] = v.Clone()
	}
	for k, v := range m.loans {
		s.loans[k] = v.Clone()
	}
	copy(s.contributions, m.contributions)
	for k, v := range m.penalties {
		s.penalties[k] = v.Clone()
	}
	return s
}

func (m *Memory) restore(s memorySnapshot) {
	m.members = s.members
	m.loans = s.loans
	m.contributions = s.contributions
	m.penalties = s.penalties
}
