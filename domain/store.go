/*
store.go - Persistence interfaces for the loan engine

PURPOSE:
  Defines the interface between the domain logic and the database. The
  algorithms in this package are pure functions over snapshots; all
  mutation goes through a Store so concurrency control can be implemented
  once, centrally, in the service layer.

APPEND-ONLY CONTRACT:
  Contributions are the ledger of record. The Store exposes only
  AppendContribution for writes - no update, no delete. Corrections are
  made with adjustment entries.

TRANSACTIONS:
  Multi-record operations (a repayment settling a loan plus its interest
  sweep over every member) run inside WithTx: either every write lands or
  none do.

IMPLEMENTATIONS:
  - domain/store: in-memory, for tests and development
  - store/sqlite: production SQLite
*/
package domain

import "context"

// Store persists members, loans, the contribution ledger and penalties.
//
// Not-found semantics: Get* returns the package sentinel
// (ErrMemberNotFound, ErrLoanNotFound, ...); Update* of a missing record
// returns the same sentinel.
type Store interface {
	// Members.
	CreateMember(ctx context.Context, m *Member) error
	GetMember(ctx context.Context, id MemberID) (*Member, error)
	ListMembers(ctx context.Context) ([]*Member, error)
	UpdateMember(ctx context.Context, m *Member) error

	// Loans. Never deleted; terminal loans are retained as audit history.
	CreateLoan(ctx context.Context, l *Loan) error
	GetLoan(ctx context.Context, id LoanID) (*Loan, error)
	ListLoans(ctx context.Context) ([]*Loan, error)
	ListLoansByMember(ctx context.Context, id MemberID) ([]*Loan, error)
	UpdateLoan(ctx context.Context, l *Loan) error

	// Contribution ledger. Append-only: no update, no delete, ever.
	AppendContribution(ctx context.Context, c *Contribution) error
	ListContributions(ctx context.Context, id MemberID) ([]*Contribution, error)
	ListAllContributions(ctx context.Context) ([]*Contribution, error)

	// Penalties.
	CreatePenalty(ctx context.Context, p *Penalty) error
	GetPenalty(ctx context.Context, id PenaltyID) (*Penalty, error)
	ListPenalties(ctx context.Context) ([]*Penalty, error)
	UpdatePenalty(ctx context.Context, p *Penalty) error
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back and no write is applied.
	WithTx(ctx context.Context, fn func(Store) error) error
}
