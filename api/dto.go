/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the
  internal domain model from the external contract. All money fields are
  decimal strings, and every entity crosses the boundary under a single
  canonical id field - normalization happens here, never in the engine.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Shape validation (parseable dates, known enum values) is done in
  handlers; business validation lives in the service and domain layers.
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/chamapool/savings-engine/domain"
)

// dateLayout is the wire format for contribution dates.
const dateLayout = "2006-01-02"

// =============================================================================
// MEMBERS
// =============================================================================

type MemberDTO struct {
	ID                 string          `json:"id"`
	FirstName          string          `json:"first_name"`
	LastName           string          `json:"last_name"`
	Email              string          `json:"email"`
	Role               string          `json:"role"`
	Branch             string          `json:"branch"`
	Status             string          `json:"status"`
	TotalContributions decimal.Decimal `json:"total_contributions"`
	InterestReceived   decimal.Decimal `json:"interest_received"`
	CreatedAt          string          `json:"created_at"`
}

type RegisterMemberRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Branch    string `json:"branch"`
}

func toMemberDTO(m *domain.Member) MemberDTO {
	return MemberDTO{
		ID:                 string(m.ID),
		FirstName:          m.FirstName,
		LastName:           m.LastName,
		Email:              m.Email,
		Role:               string(m.Role),
		Branch:             string(m.Branch),
		Status:             string(m.Status),
		TotalContributions: m.TotalContributions,
		InterestReceived:   m.InterestReceived,
		CreatedAt:          m.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// LOANS
// =============================================================================

type LoanDTO struct {
	ID              string          `json:"id"`
	MemberID        string          `json:"member_id"`
	Amount          decimal.Decimal `json:"amount"`
	RepaymentAmount decimal.Decimal `json:"repayment_amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	DurationMonths  int             `json:"duration_months"`
	Status          string          `json:"status"`
	RequestDate     string          `json:"request_date"`
	DueDate         string          `json:"due_date"`
	ApprovedDate    *string         `json:"approved_date,omitempty"`
	ApprovedBy      string          `json:"approved_by,omitempty"`
}

type RequestLoanRequest struct {
	MemberID       string          `json:"member_id"`
	Amount         decimal.Decimal `json:"amount"`
	DurationMonths int             `json:"duration_months"`
}

type ApproveLoanRequest struct {
	ApproverID string `json:"approver_id"`
}

type RepayLoanRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func toLoanDTO(l *domain.Loan) LoanDTO {
	dto := LoanDTO{
		ID:              string(l.ID),
		MemberID:        string(l.MemberID),
		Amount:          l.Amount,
		RepaymentAmount: l.RepaymentAmount,
		PaidAmount:      l.PaidAmount,
		DurationMonths:  l.DurationMonths,
		Status:          string(l.Status),
		RequestDate:     l.RequestDate.Format(time.RFC3339),
		DueDate:         l.DueDate.Format(time.RFC3339),
		ApprovedBy:      string(l.ApprovedBy),
	}
	if l.ApprovedDate != nil {
		s := l.ApprovedDate.Format(time.RFC3339)
		dto.ApprovedDate = &s
	}
	return dto
}

// =============================================================================
// CONTRIBUTIONS & PENALTIES
// =============================================================================

type ContributionDTO struct {
	ID       string          `json:"id"`
	MemberID string          `json:"member_id"`
	Amount   decimal.Decimal `json:"amount"`
	Date     string          `json:"date"`
	Month    string          `json:"month"`
	Type     string          `json:"type"`
}

type AppendContributionRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date"` // "2006-01-02"
	Type   string          `json:"type"`
}

func toContributionDTO(c *domain.Contribution) ContributionDTO {
	return ContributionDTO{
		ID:       string(c.ID),
		MemberID: string(c.MemberID),
		Amount:   c.Amount,
		Date:     c.Date.Format(dateLayout),
		Month:    c.Month,
		Type:     string(c.Type),
	}
}

type PenaltyDTO struct {
	ID             string          `json:"id"`
	MemberID       string          `json:"member_id"`
	ContributionID string          `json:"contribution_id"`
	Fee            decimal.Decimal `json:"fee"`
	Status         string          `json:"status"`
	AssessedAt     string          `json:"assessed_at"`
	PaidAt         *string         `json:"paid_at,omitempty"`
}

func toPenaltyDTO(p *domain.Penalty) PenaltyDTO {
	dto := PenaltyDTO{
		ID:             string(p.ID),
		MemberID:       string(p.MemberID),
		ContributionID: string(p.ContributionID),
		Fee:            p.Fee,
		Status:         string(p.Status),
		AssessedAt:     p.AssessedAt.Format(time.RFC3339),
	}
	if p.PaidAt != nil {
		s := p.PaidAt.Format(time.RFC3339)
		dto.PaidAt = &s
	}
	return dto
}

// =============================================================================
// RULES & REPORTS
// =============================================================================

type GroupRulesDTO struct {
	Branch            string          `json:"branch"`
	MaxLoanMultiplier decimal.Decimal `json:"max_loan_multiplier"`
	MaxLoanAmount     decimal.Decimal `json:"max_loan_amount"`
	InterestRate      decimal.Decimal `json:"interest_rate"`
	PenaltyFee        decimal.Decimal `json:"penalty_fee"`
}

type AggregateReportDTO struct {
	NetAvailable       decimal.Decimal `json:"net_available"`
	BestFutureBalance  decimal.Decimal `json:"best_future_balance"`
	TotalPaidPenalties decimal.Decimal `json:"total_paid_penalties"`
}

type MemberShareDTO struct {
	MemberID           string          `json:"member_id"`
	Name               string          `json:"name"`
	TotalContribution  decimal.Decimal `json:"total_contribution"`
	SharePercentage    decimal.Decimal `json:"share_percentage"`
	InterestEarned     decimal.Decimal `json:"interest_earned"`
	InterestToBeEarned decimal.Decimal `json:"interest_to_be_earned"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
