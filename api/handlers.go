/*
handlers.go - HTTP API handlers for the savings-pool loan engine

PURPOSE:
  Exposes the engine via REST. Handles HTTP request/response and JSON
  serialization, delegates everything else to pool.Service.

ERROR HANDLING:
  Errors are returned as JSON with the status derived from the error
  category:
  - 400: Validation errors, malformed input
  - 404: Unknown member/loan/penalty/branch
  - 409: State conflicts (double approval, repaying a settled loan)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chamapool/savings-engine/domain"
	"github.com/chamapool/savings-engine/pool"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *pool.Service
}

// NewHandler creates a new handler around the service.
func NewHandler(svc *pool.Service) *Handler {
	return &Handler{Service: svc}
}

// =============================================================================
// RULES
// =============================================================================

func (h *Handler) GetGroupRules(w http.ResponseWriter, r *http.Request) {
	branch := domain.Branch(chi.URLParam(r, "branch"))
	rules, err := h.Service.GroupRules(branch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GroupRulesDTO{
		Branch:            string(branch),
		MaxLoanMultiplier: rules.MaxLoanMultiplier,
		MaxLoanAmount:     rules.MaxLoanAmount,
		InterestRate:      rules.InterestRate,
		PenaltyFee:        rules.PenaltyFee,
	})
}

// =============================================================================
// MEMBERS
// =============================================================================

func (h *Handler) RegisterMember(w http.ResponseWriter, r *http.Request) {
	var req RegisterMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	member, err := h.Service.RegisterMember(r.Context(), req.FirstName, req.LastName,
		req.Email, domain.Role(req.Role), domain.Branch(req.Branch))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMemberDTO(member))
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.Service.Members(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	dtos := make([]MemberDTO, 0, len(members))
	for _, m := range members {
		dtos = append(dtos, toMemberDTO(m))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	member, err := h.Service.Member(r.Context(), domain.MemberID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberDTO(member))
}

func (h *Handler) ApproveMember(w http.ResponseWriter, r *http.Request) {
	member, err := h.Service.ApproveMember(r.Context(), domain.MemberID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberDTO(member))
}

func (h *Handler) RejectMember(w http.ResponseWriter, r *http.Request) {
	member, err := h.Service.RejectMember(r.Context(), domain.MemberID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberDTO(member))
}

// =============================================================================
// LOANS
// =============================================================================

func (h *Handler) RequestLoan(w http.ResponseWriter, r *http.Request) {
	var req RequestLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	loan, err := h.Service.RequestLoan(r.Context(), domain.MemberID(req.MemberID),
		req.Amount, req.DurationMonths)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLoanDTO(loan))
}

func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	var (
		loans []*domain.Loan
		err   error
	)
	if r.URL.Query().Get("status") == "pending" {
		loans, err = h.Service.PendingLoans(r.Context())
	} else {
		loans, err = h.Service.Loans(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}
	dtos := make([]LoanDTO, 0, len(loans))
	for _, l := range loans {
		dtos = append(dtos, toLoanDTO(l))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.Service.Loan(r.Context(), domain.LoanID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTO(loan))
}

func (h *Handler) ListMemberLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.Service.MemberLoans(r.Context(), domain.MemberID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return
	}
	dtos := make([]LoanDTO, 0, len(loans))
	for _, l := range loans {
		dtos = append(dtos, toLoanDTO(l))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) ApproveLoan(w http.ResponseWriter, r *http.Request) {
	var req ApproveLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	loan, err := h.Service.ApproveLoan(r.Context(), domain.LoanID(chi.URLParam(r, "id")),
		domain.MemberID(req.ApproverID))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTO(loan))
}

func (h *Handler) RejectLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.Service.RejectLoan(r.Context(), domain.LoanID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTO(loan))
}

func (h *Handler) RepayLoan(w http.ResponseWriter, r *http.Request) {
	var req RepayLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	loan, err := h.Service.RepayLoan(r.Context(), domain.LoanID(chi.URLParam(r, "id")), req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTO(loan))
}

// =============================================================================
// CONTRIBUTIONS & PENALTIES
// =============================================================================

func (h *Handler) AppendContribution(w http.ResponseWriter, r *http.Request) {
	var req AppendContributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		writeBadRequest(w, "date must be formatted YYYY-MM-DD")
		return
	}

	contribution, err := h.Service.AppendContribution(r.Context(),
		domain.MemberID(chi.URLParam(r, "id")), req.Amount, date,
		domain.ContributionType(req.Type))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toContributionDTO(contribution))
}

func (h *Handler) ListContributions(w http.ResponseWriter, r *http.Request) {
	contributions, err := h.Service.Contributions(r.Context(), domain.MemberID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return
	}
	dtos := make([]ContributionDTO, 0, len(contributions))
	for _, c := range contributions {
		dtos = append(dtos, toContributionDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) ListLedger(w http.ResponseWriter, r *http.Request) {
	contributions, err := h.Service.Ledger(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	dtos := make([]ContributionDTO, 0, len(contributions))
	for _, c := range contributions {
		dtos = append(dtos, toContributionDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) ListPenalties(w http.ResponseWriter, r *http.Request) {
	penalties, err := h.Service.Penalties(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	dtos := make([]PenaltyDTO, 0, len(penalties))
	for _, p := range penalties {
		dtos = append(dtos, toPenaltyDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) PayPenalty(w http.ResponseWriter, r *http.Request) {
	penalty, err := h.Service.PayPenalty(r.Context(), domain.PenaltyID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPenaltyDTO(penalty))
}

// =============================================================================
// REPORTS
// =============================================================================

func (h *Handler) GetAggregateReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.AggregateReport(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AggregateReportDTO{
		NetAvailable:       report.NetAvailable,
		BestFutureBalance:  report.BestFutureBalance,
		TotalPaidPenalties: report.TotalPaidPenalties,
	})
}

func (h *Handler) GetMemberShares(w http.ResponseWriter, r *http.Request) {
	shares, err := h.Service.MemberShares(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	dtos := make([]MemberShareDTO, 0, len(shares))
	for _, s := range shares {
		dtos = append(dtos, MemberShareDTO{
			MemberID:           string(s.MemberID),
			Name:               s.Name,
			TotalContribution:  s.TotalContribution,
			SharePercentage:    s.SharePercentage,
			InterestEarned:     s.InterestEarned,
			InterestToBeEarned: s.InterestToBeEarned,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err) || errors.Is(err, domain.ErrMemberNotActive):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case domain.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case domain.IsStateConflict(err):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
