/*
Package sqlite provides a SQLite-backed implementation of domain.TxStore.

PURPOSE:
  Production persistence for members, loans, the contribution ledger and
  penalties. In production with PostgreSQL the same patterns apply - only
  minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  The contributions table is the ledger of record:
  - No UPDATE statements on contributions
  - No DELETE statements on contributions
  Corrections are made with adjustment entries.

KEY TABLES:
  members:        Participants with cached savings totals
  loans:          Full loan history, terminal loans retained
  contributions:  Immutable ledger of savings changes
  penalties:      Late-contribution fee receivables

MONEY COLUMNS:
  All amounts are stored as decimal strings (TEXT), never floats.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, plus WAL mode:
  - Multiple readers don't block
  - Single writer at a time

USAGE:
  store, err := sqlite.New("./data/pool.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := pool.NewService(store, nil)

SEE ALSO:
  - domain/store.go: Interface definitions
  - domain/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/chamapool/savings-engine/domain"
)

// Store implements domain.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
	q  queries
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, q: queries{q: db}}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS members (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL,
		role TEXT NOT NULL,
		branch TEXT NOT NULL,
		status TEXT NOT NULL,
		total_contributions TEXT NOT NULL,
		interest_received TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS loans (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL REFERENCES members(id),
		amount TEXT NOT NULL,
		repayment_amount TEXT NOT NULL,
		paid_amount TEXT NOT NULL,
		duration_months INTEGER NOT NULL,
		status TEXT NOT NULL,
		request_date TEXT NOT NULL,
		due_date TEXT NOT NULL,
		approved_date TEXT,
		approved_by TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Append-only ledger. No UPDATE, no DELETE.
	CREATE TABLE IF NOT EXISTS contributions (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL REFERENCES members(id),
		amount TEXT NOT NULL,
		date TEXT NOT NULL,
		month TEXT NOT NULL,
		type TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS penalties (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL REFERENCES members(id),
		contribution_id TEXT NOT NULL REFERENCES contributions(id),
		fee TEXT NOT NULL,
		status TEXT NOT NULL,
		assessed_at TEXT NOT NULL,
		paid_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_loans_member_status
		ON loans(member_id, status);
	CREATE INDEX IF NOT EXISTS idx_contributions_member_date
		ON contributions(member_id, date);
	CREATE INDEX IF NOT EXISTS idx_penalties_status
		ON penalties(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// STORE METHODS - Coarse lock around the shared queries
// =============================================================================

func (s *Store) CreateMember(ctx context.Context, m *domain.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.CreateMember(ctx, m)
}

func (s *Store) GetMember(ctx context.Context, id domain.MemberID) (*domain.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.GetMember(ctx, id)
}

func (s *Store) ListMembers(ctx context.Context) ([]*domain.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.ListMembers(ctx)
}

func (s *Store) UpdateMember(ctx context.Context, m *domain.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.UpdateMember(ctx, m)
}

func (s *Store) CreateLoan(ctx context.Context, l *domain.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.CreateLoan(ctx, l)
}

func (s *Store) GetLoan(ctx context.Context, id domain.LoanID) (*domain.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.GetLoan(ctx, id)
}

func (s *Store) ListLoans(ctx context.Context) ([]*domain.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.ListLoans(ctx)
}

func (s *Store) ListLoansByMember(ctx context.Context, id domain.MemberID) ([]*domain.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.ListLoansByMember(ctx, id)
}

func (s *Store) UpdateLoan(ctx context.Context, l *domain.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.UpdateLoan(ctx, l)
}

func (s *Store) AppendContribution(ctx context.Context, c *domain.Contribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.AppendContribution(ctx, c)
}

func (s *Store) ListContributions(ctx context.Context, id domain.MemberID) ([]*domain.Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.ListContributions(ctx, id)
}

func (s *Store) ListAllContributions(ctx context.Context) ([]*domain.Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.ListAllContributions(ctx)
}

func (s *Store) CreatePenalty(ctx context.Context, p *domain.Penalty) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.CreatePenalty(ctx, p)
}

func (s *Store) GetPenalty(ctx context.Context, id domain.PenaltyID) (*domain.Penalty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.GetPenalty(ctx, id)
}

func (s *Store) ListPenalties(ctx context.Context) ([]*domain.Penalty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.ListPenalties(ctx)
}

func (s *Store) UpdatePenalty(ctx context.Context, p *domain.Penalty) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.UpdatePenalty(ctx, p)
}

// WithTx executes fn within a database transaction. If fn returns an error
// the transaction is rolled back.
func (s *Store) WithTx(ctx context.Context, fn func(domain.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&txStore{queries{q: tx}}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// txStore adapts queries to domain.Store inside a transaction. The caller
// already holds the store lock.
type txStore struct {
	queries
}

// =============================================================================
// QUERIES - Shared between the store and its transactions
// =============================================================================

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	q querier
}

// ---------------------------------------------------------------------------
// Members

func (s queries) CreateMember(ctx context.Context, m *domain.Member) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO members (id, first_name, last_name, email, role, branch, status,
			total_contributions, interest_received, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(m.ID), m.FirstName, m.LastName, m.Email, string(m.Role), string(m.Branch),
		string(m.Status), m.TotalContributions.String(), m.InterestReceived.String(),
		formatTime(m.CreatedAt), formatTime(m.UpdatedAt))
	return err
}

func (s queries) GetMember(ctx context.Context, id domain.MemberID) (*domain.Member, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, role, branch, status,
			total_contributions, interest_received, created_at, updated_at
		FROM members WHERE id = ?`, string(id))
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrMemberNotFound
	}
	return m, err
}

func (s queries) ListMembers(ctx context.Context) ([]*domain.Member, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, first_name, last_name, email, role, branch, status,
			total_contributions, interest_received, created_at, updated_at
		FROM members ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s queries) UpdateMember(ctx context.Context, m *domain.Member) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE members SET first_name = ?, last_name = ?, email = ?, role = ?,
			branch = ?, status = ?, total_contributions = ?, interest_received = ?,
			updated_at = ?
		WHERE id = ?`,
		m.FirstName, m.LastName, m.Email, string(m.Role), string(m.Branch),
		string(m.Status), m.TotalContributions.String(), m.InterestReceived.String(),
		formatTime(m.UpdatedAt), string(m.ID))
	if err != nil {
		return err
	}
	return affected(res, domain.ErrMemberNotFound)
}

// ---------------------------------------------------------------------------
// Loans

func (s queries) CreateLoan(ctx context.Context, l *domain.Loan) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO loans (id, member_id, amount, repayment_amount, paid_amount,
			duration_months, status, request_date, due_date, approved_date,
			approved_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(l.ID), string(l.MemberID), l.Amount.String(), l.RepaymentAmount.String(),
		l.PaidAmount.String(), l.DurationMonths, string(l.Status),
		formatTime(l.RequestDate), formatTime(l.DueDate), formatTimePtr(l.ApprovedDate),
		nullableString(string(l.ApprovedBy)), formatTime(l.CreatedAt), formatTime(l.UpdatedAt))
	return err
}

const loanSelect = `
	SELECT id, member_id, amount, repayment_amount, paid_amount, duration_months,
		status, request_date, due_date, approved_date, approved_by, created_at, updated_at
	FROM loans`

func (s queries) GetLoan(ctx context.Context, id domain.LoanID) (*domain.Loan, error) {
	row := s.q.QueryRowContext(ctx, loanSelect+` WHERE id = ?`, string(id))
	l, err := scanLoan(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrLoanNotFound
	}
	return l, err
}

func (s queries) ListLoans(ctx context.Context) ([]*domain.Loan, error) {
	return s.loanQuery(ctx, loanSelect+` ORDER BY request_date, id`)
}

func (s queries) ListLoansByMember(ctx context.Context, id domain.MemberID) ([]*domain.Loan, error) {
	return s.loanQuery(ctx, loanSelect+` WHERE member_id = ? ORDER BY request_date, id`, string(id))
}

func (s queries) loanQuery(ctx context.Context, query string, args ...any) ([]*domain.Loan, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []*domain.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

func (s queries) UpdateLoan(ctx context.Context, l *domain.Loan) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE loans SET paid_amount = ?, status = ?, approved_date = ?,
			approved_by = ?, updated_at = ?
		WHERE id = ?`,
		l.PaidAmount.String(), string(l.Status), formatTimePtr(l.ApprovedDate),
		nullableString(string(l.ApprovedBy)), formatTime(l.UpdatedAt), string(l.ID))
	if err != nil {
		return err
	}
	return affected(res, domain.ErrLoanNotFound)
}

// ---------------------------------------------------------------------------
// Contributions (append-only: INSERT and SELECT only)

func (s queries) AppendContribution(ctx context.Context, c *domain.Contribution) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO contributions (id, member_id, amount, date, month, type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(c.ID), string(c.MemberID), c.Amount.String(), formatTime(c.Date),
		c.Month, string(c.Type), formatTime(c.CreatedAt))
	return err
}

const contributionSelect = `
	SELECT id, member_id, amount, date, month, type, created_at
	FROM contributions`

func (s queries) ListContributions(ctx context.Context, id domain.MemberID) ([]*domain.Contribution, error) {
	return s.contributionQuery(ctx, contributionSelect+` WHERE member_id = ? ORDER BY date, id`, string(id))
}

func (s queries) ListAllContributions(ctx context.Context) ([]*domain.Contribution, error) {
	return s.contributionQuery(ctx, contributionSelect+` ORDER BY date, id`)
}

func (s queries) contributionQuery(ctx context.Context, query string, args ...any) ([]*domain.Contribution, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contributions []*domain.Contribution
	for rows.Next() {
		c, err := scanContribution(rows)
		if err != nil {
			return nil, err
		}
		contributions = append(contributions, c)
	}
	return contributions, rows.Err()
}

// ---------------------------------------------------------------------------
// Penalties

func (s queries) CreatePenalty(ctx context.Context, p *domain.Penalty) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO penalties (id, member_id, contribution_id, fee, status, assessed_at, paid_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(p.ID), string(p.MemberID), string(p.ContributionID), p.Fee.String(),
		string(p.Status), formatTime(p.AssessedAt), formatTimePtr(p.PaidAt))
	return err
}

func (s queries) GetPenalty(ctx context.Context, id domain.PenaltyID) (*domain.Penalty, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, member_id, contribution_id, fee, status, assessed_at, paid_at
		FROM penalties WHERE id = ?`, string(id))
	p, err := scanPenalty(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrPenaltyNotFound
	}
	return p, err
}

func (s queries) ListPenalties(ctx context.Context) ([]*domain.Penalty, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, member_id, contribution_id, fee, status, assessed_at, paid_at
		FROM penalties ORDER BY assessed_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var penalties []*domain.Penalty
	for rows.Next() {
		p, err := scanPenalty(rows)
		if err != nil {
			return nil, err
		}
		penalties = append(penalties, p)
	}
	return penalties, rows.Err()
}

func (s queries) UpdatePenalty(ctx context.Context, p *domain.Penalty) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE penalties SET status = ?, paid_at = ? WHERE id = ?`,
		string(p.Status), formatTimePtr(p.PaidAt), string(p.ID))
	if err != nil {
		return err
	}
	return affected(res, domain.ErrPenaltyNotFound)
}

// =============================================================================
// SCANNING HELPERS
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(row scanner) (*domain.Member, error) {
	var (
		m                        domain.Member
		id, role, branch, status string
		total, interest          string
		createdAt, updatedAt     string
	)
	if err := row.Scan(&id, &m.FirstName, &m.LastName, &m.Email, &role, &branch,
		&status, &total, &interest, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	m.ID = domain.MemberID(id)
	m.Role = domain.Role(role)
	m.Branch = domain.Branch(branch)
	m.Status = domain.MemberStatus(status)

	var err error
	if m.TotalContributions, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("member %s: bad total_contributions: %w", id, err)
	}
	if m.InterestReceived, err = decimal.NewFromString(interest); err != nil {
		return nil, fmt.Errorf("member %s: bad interest_received: %w", id, err)
	}
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func scanLoan(row scanner) (*domain.Loan, error) {
	var (
		l                        domain.Loan
		id, memberID, status     string
		amount, repayment, paid  string
		requestDate, dueDate     string
		approvedDate, approvedBy sql.NullString
		createdAt, updatedAt     string
	)
	if err := row.Scan(&id, &memberID, &amount, &repayment, &paid, &l.DurationMonths,
		&status, &requestDate, &dueDate, &approvedDate, &approvedBy,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}
	l.ID = domain.LoanID(id)
	l.MemberID = domain.MemberID(memberID)
	l.Status = domain.LoanStatus(status)

	var err error
	if l.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("loan %s: bad amount: %w", id, err)
	}
	if l.RepaymentAmount, err = decimal.NewFromString(repayment); err != nil {
		return nil, fmt.Errorf("loan %s: bad repayment_amount: %w", id, err)
	}
	if l.PaidAmount, err = decimal.NewFromString(paid); err != nil {
		return nil, fmt.Errorf("loan %s: bad paid_amount: %w", id, err)
	}
	if l.RequestDate, err = parseTime(requestDate); err != nil {
		return nil, err
	}
	if l.DueDate, err = parseTime(dueDate); err != nil {
		return nil, err
	}
	if approvedDate.Valid {
		t, err := parseTime(approvedDate.String)
		if err != nil {
			return nil, err
		}
		l.ApprovedDate = &t
	}
	if approvedBy.Valid {
		l.ApprovedBy = domain.MemberID(approvedBy.String)
	}
	if l.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if l.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func scanContribution(row scanner) (*domain.Contribution, error) {
	var (
		c                   domain.Contribution
		id, memberID, ctype string
		amount, date        string
		createdAt           string
	)
	if err := row.Scan(&id, &memberID, &amount, &date, &c.Month, &ctype, &createdAt); err != nil {
		return nil, err
	}
	c.ID = domain.ContributionID(id)
	c.MemberID = domain.MemberID(memberID)
	c.Type = domain.ContributionType(ctype)

	var err error
	if c.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("contribution %s: bad amount: %w", id, err)
	}
	if c.Date, err = parseTime(date); err != nil {
		return nil, err
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanPenalty(row scanner) (*domain.Penalty, error) {
	var (
		p                            domain.Penalty
		id, memberID, contributionID string
		fee, status, assessedAt      string
		paidAt                       sql.NullString
	)
	if err := row.Scan(&id, &memberID, &contributionID, &fee, &status, &assessedAt, &paidAt); err != nil {
		return nil, err
	}
	p.ID = domain.PenaltyID(id)
	p.MemberID = domain.MemberID(memberID)
	p.ContributionID = domain.ContributionID(contributionID)
	p.Status = domain.PenaltyStatus(status)

	var err error
	if p.Fee, err = decimal.NewFromString(fee); err != nil {
		return nil, fmt.Errorf("penalty %s: bad fee: %w", id, err)
	}
	if p.AssessedAt, err = parseTime(assessedAt); err != nil {
		return nil, err
	}
	if paidAt.Valid {
		t, err := parseTime(paidAt.String)
		if err != nil {
			return nil, err
		}
		p.PaidAt = &t
	}
	return &p, nil
}

// =============================================================================
// VALUE HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func affected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
