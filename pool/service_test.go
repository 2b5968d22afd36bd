package pool_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chamapool/savings-engine/domain"
	"github.com/chamapool/savings-engine/domain/store"
	"github.com/chamapool/savings-engine/pool"
)

// =============================================================================
// FIXTURES
// =============================================================================

func newTestService(t *testing.T) *pool.Service {
	t.Helper()
	return pool.NewService(store.NewMemory(), nil)
}

// registerActive registers a member and approves them in one step.
func registerActive(t *testing.T, svc *pool.Service, first, last string, role domain.Role, branch domain.Branch) *domain.Member {
	t.Helper()
	ctx := context.Background()
	m, err := svc.RegisterMember(ctx, first, last, first+"@pool.test", role, branch)
	require.NoError(t, err)
	m, err = svc.ApproveMember(ctx, m.ID)
	require.NoError(t, err)
	return m
}

// deposit appends an on-time regular contribution.
func deposit(t *testing.T, svc *pool.Service, id domain.MemberID, amount float64, date time.Time) {
	t.Helper()
	_, err := svc.AppendContribution(context.Background(), id, decimal.NewFromFloat(amount), date, domain.ContributionRegular)
	require.NoError(t, err)
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

var onTime = time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)

// =============================================================================
// MEMBER REGISTRY
// =============================================================================

func TestRegisterMember_StartsPending(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	m, err := svc.RegisterMember(ctx, "Carol", "Njeri", "carol@pool.test", domain.RoleMember, domain.BranchBlue)
	require.NoError(t, err)
	assert.Equal(t, domain.MemberPending, m.Status)
	assert.True(t, m.TotalContributions.IsZero())

	// A pending member cannot contribute.
	_, err = svc.AppendContribution(ctx, m.ID, money(1000), onTime, domain.ContributionRegular)
	assert.ErrorIs(t, err, domain.ErrMemberNotActive)

	// Approval activates; a second approval conflicts.
	m, err = svc.ApproveMember(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MemberActive, m.Status)

	_, err = svc.ApproveMember(ctx, m.ID)
	assert.True(t, domain.IsStateConflict(err))
}

func TestRegisterMember_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.RegisterMember(ctx, "Carol", "Njeri", "c@pool.test", "owner", domain.BranchBlue)
	assert.True(t, domain.IsValidation(err))

	_, err = svc.RegisterMember(ctx, "Carol", "Njeri", "c@pool.test", domain.RoleMember, "green")
	assert.True(t, domain.IsValidation(err))

	_, err = svc.RegisterMember(ctx, "  ", "Njeri", "c@pool.test", domain.RoleMember, domain.BranchBlue)
	assert.True(t, domain.IsValidation(err))
}

func TestRejectMember_ThenApprove_Conflicts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	m, err := svc.RegisterMember(ctx, "Carol", "Njeri", "c@pool.test", domain.RoleMember, domain.BranchBlue)
	require.NoError(t, err)

	_, err = svc.RejectMember(ctx, m.ID)
	require.NoError(t, err)

	_, err = svc.ApproveMember(ctx, m.ID)
	assert.True(t, domain.IsStateConflict(err))
}

func TestDeactivateMember_BlocksNewActivity(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	m := registerActive(t, svc, "Carol", "Njeri", domain.RoleMember, domain.BranchBlue)
	deposit(t, svc, m.ID, 1000, onTime)

	_, err := svc.DeactivateMember(ctx, m.ID)
	require.NoError(t, err)

	_, err = svc.AppendContribution(ctx, m.ID, money(500), onTime, domain.ContributionRegular)
	assert.ErrorIs(t, err, domain.ErrMemberNotActive)

	_, err = svc.RequestLoan(ctx, m.ID, money(500), 6)
	assert.ErrorIs(t, err, domain.ErrMemberNotActive)

	// The record and its ledger survive deactivation.
	got, err := svc.Member(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MemberInactive, got.Status)
	assert.True(t, got.TotalContributions.Equal(money(1000)))
}

// =============================================================================
// CONTRIBUTION LEDGER
// =============================================================================

func TestAppendContribution_UpdatesRunningTotal(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	m := registerActive(t, svc, "Carol", "Njeri", domain.RoleMember, domain.BranchBlue)

	deposit(t, svc, m.ID, 1000, onTime)
	deposit(t, svc, m.ID, 500, onTime.AddDate(0, 1, 0))

	got, err := svc.Member(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalContributions.Equal(money(1500)))

	entries, err := svc.Contributions(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2025-03", entries[0].Month)
	assert.Equal(t, "2025-04", entries[1].Month)

	require.NoError(t, svc.VerifyMemberLedger(ctx, m.ID))
}

func TestAppendContribution_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	m := registerActive(t, svc, "Carol", "Njeri", domain.RoleMember, domain.BranchBlue)

	_, err := svc.AppendContribution(ctx, m.ID, money(0), onTime, domain.ContributionRegular)
	assert.True(t, domain.IsValidation(err))

	_, err = svc.AppendContribution(ctx, m.ID, money(-100), onTime, domain.ContributionRegular)
	assert.True(t, domain.IsValidation(err))

	// Penalty entries are engine-derived, never submitted.
	_, err = svc.AppendContribution(ctx, m.ID, money(100), onTime, domain.ContributionPenalty)
	assert.True(t, domain.IsValidation(err))

	_, err = svc.AppendContribution(ctx, m.ID, money(100), onTime, "bonus")
	assert.True(t, domain.IsValidation(err))

	// Adjustments are signed deltas; zero is meaningless.
	_, err = svc.AppendContribution(ctx, m.ID, money(0), onTime, domain.ContributionAdjustment)
	assert.True(t, domain.IsValidation(err))

	_, err = svc.AppendContribution(ctx, "missing", money(100), onTime, domain.ContributionRegular)
	assert.True(t, domain.IsNotFound(err))
}

func TestAppendContribution_NegativeAdjustment(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	m := registerActive(t, svc, "Carol", "Njeri", domain.RoleMember, domain.BranchBlue)
	deposit(t, svc, m.ID, 1000, onTime)

	_, err := svc.AppendContribution(ctx, m.ID, money(-200), onTime.AddDate(0, 0, 1), domain.ContributionAdjustment)
	require.NoError(t, err)

	got, err := svc.Member(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalContributions.Equal(money(800)))
	require.NoError(t, svc.VerifyMemberLedger(ctx, m.ID))
}

func TestAppendContribution_LateCutoffBoundary(t *testing.T) {
	// GIVEN: Deposits on the 10th and the 11th of the month
	// THEN: Only the 11th is penalty-flagged

	svc := newTestService(t)
	ctx := context.Background()
	m := registerActive(t, svc, "Carol", "Njeri", domain.RoleMember, domain.BranchBlue)

	onCutoff, err := svc.AppendContribution(ctx, m.ID, money(1000),
		time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC), domain.ContributionRegular)
	require.NoError(t, err)
	assert.Equal(t, domain.ContributionRegular, onCutoff.Type)

	late, err := svc.AppendContribution(ctx, m.ID, money(1000),
		time.Date(2025, time.April, 11, 0, 0, 0, 0, time.UTC), domain.ContributionRegular)
	require.NoError(t, err)
	assert.Equal(t, domain.ContributionPenalty, late.Type)

	penalties, err := svc.Penalties(ctx)
	require.NoError(t, err)
	require.Len(t, penalties, 1)
	assert.Equal(t, late.ID, penalties[0].ContributionID)
}

func TestAppendContribution_LateDeposit(t *testing.T) {
	// GIVEN: A 600 deposit on the 15th
	// THEN: The entry is penalty-flagged, savings are credited the full 600,
	//       and a flat 25 fee is raised as a separate unpaid receivable

	svc := newTestService(t)
	ctx := context.Background()
	m := registerActive(t, svc, "Carol", "Njeri", domain.RoleMember, domain.BranchBlue)

	entry, err := svc.AppendContribution(ctx, m.ID, money(600),
		time.Date(2025, time.May, 15, 0, 0, 0, 0, time.UTC), domain.ContributionRegular)
	require.NoError(t, err)
	assert.Equal(t, domain.ContributionPenalty, entry.Type)
	assert.True(t, entry.Amount.Equal(money(600)))

	got, err := svc.Member(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalContributions.Equal(money(600)))

	penalties, err := svc.Penalties(ctx)
	require.NoError(t, err)
	require.Len(t, penalties, 1)
	p := penalties[0]
	assert.Equal(t, m.ID, p.MemberID)
	assert.Equal(t, domain.PenaltyUnpaid, p.Status)
	assert.True(t, p.Fee.Equal(domain.LateContributionFee))

	require.NoError(t, svc.VerifyMemberLedger(ctx, m.ID))
}

func TestPayPenalty_SettlesOnce(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	m := registerActive(t, svc, "Carol", "Njeri", domain.RoleMember, domain.BranchBlue)

	_, err := svc.AppendContribution(ctx, m.ID, money(600),
		time.Date(2025, time.May, 15, 0, 0, 0, 0, time.UTC), domain.ContributionRegular)
	require.NoError(t, err)

	penalties, err := svc.Penalties(ctx)
	require.NoError(t, err)
	require.Len(t, penalties, 1)

	p, err := svc.PayPenalty(ctx, penalties[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PenaltyPaid, p.Status)
	require.NotNil(t, p.PaidAt)

	// The fee left the member's savings through its own ledger entry.
	got, err := svc.Member(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalContributions.Equal(money(575)))
	require.NoError(t, svc.VerifyMemberLedger(ctx, m.ID))

	entries, err := svc.Contributions(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Settlement is not repeatable.
	_, err = svc.PayPenalty(ctx, p.ID)
	assert.True(t, domain.IsStateConflict(err))

	report, err := svc.AggregateReport(ctx)
	require.NoError(t, err)
	assert.True(t, report.TotalPaidPenalties.Equal(money(25)))
}

// =============================================================================
// LOAN LIFECYCLE
// =============================================================================

func TestLoanLifecycle_RequestApproveRepayDistribute(t *testing.T) {
	// GIVEN: A pool of 4000 (1000 + 3000) and an admin
	// WHEN: The smaller saver borrows 3000 over 6 months and repays in full
	// THEN: Repayment totals 3225 and the 225 of interest splits 25% / 75%

	svc := newTestService(t)
	ctx := context.Background()
	admin := registerActive(t, svc, "Ada", "Okafor", domain.RoleAdmin, domain.BranchBlue)
	a := registerActive(t, svc, "Carol", "Njeri", domain.RoleMember, domain.BranchBlue)
	b := registerActive(t, svc, "David", "Kim", domain.RoleMember, domain.BranchBlue)
	deposit(t, svc, a.ID, 1000, onTime)
	deposit(t, svc, b.ID, 3000, onTime)

	loan, err := svc.RequestLoan(ctx, a.ID, money(3000), 6)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanPending, loan.Status)
	assert.True(t, loan.RepaymentAmount.Equal(money(3225)))

	// One outstanding loan at a time, pending included.
	_, err = svc.RequestLoan(ctx, a.ID, money(100), 3)
	assert.True(t, domain.IsStateConflict(err))

	// Plain members cannot approve.
	_, err = svc.ApproveLoan(ctx, loan.ID, b.ID)
	assert.True(t, domain.IsValidation(err))

	loan, err = svc.ApproveLoan(ctx, loan.ID, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanActive, loan.Status)
	assert.Equal(t, admin.ID, loan.ApprovedBy)

	// Partial repayment keeps the loan active, no distribution yet.
	loan, err = svc.RepayLoan(ctx, loan.ID, money(1000))
	require.NoError(t, err)
	assert.Equal(t, domain.LoanActive, loan.Status)

	gotA, err := svc.Member(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, gotA.InterestReceived.IsZero())

	// The settling repayment sweeps interest in the same transaction.
	loan, err = svc.RepayLoan(ctx, loan.ID, money(2225))
	require.NoError(t, err)
	assert.Equal(t, domain.LoanRepaid, loan.Status)

	gotA, err = svc.Member(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, gotA.InterestReceived.Equal(money(56.25)), "got %v", gotA.InterestReceived)

	gotB, err := svc.Member(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, gotB.InterestReceived.Equal(money(168.75)), "got %v", gotB.InterestReceived)

	gotAdmin, err := svc.Member(ctx, admin.ID)
	require.NoError(t, err)
	assert.True(t, gotAdmin.InterestReceived.IsZero())

	// Settlement restores eligibility.
	_, err = svc.RequestLoan(ctx, a.ID, money(500), 3)
	require.NoError(t, err)
}

func TestRequestLoan_AdmissionGuards(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	a := registerActive(t, svc, "Carol", "Njeri", domain.RoleMember, domain.BranchBlue)
	b := registerActive(t, svc, "David", "Kim", domain.RoleMember, domain.BranchBlue)
	deposit(t, svc, a.ID, 1000, onTime)
	deposit(t, svc, b.ID, 3000, onTime)

	// Personal ceiling: savings 1000 × multiplier 3. Exactly at the ceiling
	// is admitted, a cent above is not.
	_, err := svc.RequestLoan(ctx, a.ID, money(3000.01), 6)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "exceeds_max_loanable", ve.Code)

	// Pool balance: member b's ceiling is 9000 but the pool holds 4000.
	_, err = svc.RequestLoan(ctx, b.ID, money(5000), 6)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "exceeds_pool_balance", ve.Code)

	_, err = svc.RequestLoan(ctx, "missing", money(100), 6)
	assert.True(t, domain.IsNotFound(err))

	_, err = svc.RequestLoan(ctx, a.ID, money(100), 0)
	assert.True(t, domain.IsValidation(err))

	loan, err := svc.RequestLoan(ctx, a.ID, money(3000), 6)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanPending, loan.Status)
}

func TestRequestLoan_RejectedGuardLeavesNoLoan(t *testing.T) {
	// A failed admission must not leave a partial loan behind.
	svc := newTestService(t)
	ctx := context.Background()
	a := registerActive(t, svc, "Carol", "Njeri", domain.RoleMember, domain.BranchBlue)
	deposit(t, svc, a.ID, 1000, onTime)

	_, err := svc.RequestLoan(ctx, a.ID, money(9999), 6)
	require.Error(t, err)

	loans, err := svc.MemberLoans(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func TestRejectLoan_IsTerminal(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	admin := registerActive(t, svc, "Ada", "Okafor", domain.RoleAdmin, domain.BranchBlue)
	a := registerActive(t, svc, "Carol", "Njeri", domain.RoleMember, domain.BranchBlue)
	deposit(t, svc, a.ID, 1000, onTime)

	loan, err := svc.RequestLoan(ctx, a.ID, money(1000), 6)
	require.NoError(t, err)

	loan, err = svc.RejectLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanRejected, loan.Status)

	// An accepted rejection cannot be overturned into an approval.
	_, err = svc.ApproveLoan(ctx, loan.ID, admin.ID)
	assert.True(t, domain.IsStateConflict(err))

	// Rejection frees the member to request again.
	_, err = svc.RequestLoan(ctx, a.ID, money(1000), 6)
	require.NoError(t, err)
}

func TestApproveLoan_Twice_Conflicts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	admin := registerActive(t, svc, "Ada", "Okafor", domain.RoleAdmin, domain.BranchBlue)
	a := registerActive(t, svc, "Carol", "Njeri", domain.RoleMember, domain.BranchBlue)
	deposit(t, svc, a.ID, 1000, onTime)

	loan, err := svc.RequestLoan(ctx, a.ID, money(1000), 6)
	require.NoError(t, err)

	_, err = svc.ApproveLoan(ctx, loan.ID, admin.ID)
	require.NoError(t, err)

	_, err = svc.ApproveLoan(ctx, loan.ID, admin.ID)
	assert.True(t, domain.IsStateConflict(err))
}

func TestRepayLoan_Overpayment_RollsBack(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	admin := registerActive(t, svc, "Ada", "Okafor", domain.RoleAdmin, domain.BranchBlue)
	a := registerActive(t, svc, "Carol", "Njeri", domain.RoleMember, domain.BranchBlue)
	deposit(t, svc, a.ID, 1000, onTime)

	loan, err := svc.RequestLoan(ctx, a.ID, money(1000), 6)
	require.NoError(t, err)
	_, err = svc.ApproveLoan(ctx, loan.ID, admin.ID)
	require.NoError(t, err)

	_, err = svc.RepayLoan(ctx, loan.ID, loan.RepaymentAmount.Add(money(0.01)))
	assert.True(t, domain.IsValidation(err))

	got, err := svc.Loan(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, got.PaidAmount.IsZero())
	assert.Equal(t, domain.LoanActive, got.Status)
}

func TestPendingLoans_FiltersByStatus(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	admin := registerActive(t, svc, "Ada", "Okafor", domain.RoleAdmin, domain.BranchBlue)
	a := registerActive(t, svc, "Carol", "Njeri", domain.RoleMember, domain.BranchBlue)
	b := registerActive(t, svc, "David", "Kim", domain.RoleMember, domain.BranchBlue)
	deposit(t, svc, a.ID, 1000, onTime)
	deposit(t, svc, b.ID, 3000, onTime)

	first, err := svc.RequestLoan(ctx, a.ID, money(1000), 6)
	require.NoError(t, err)
	_, err = svc.ApproveLoan(ctx, first.ID, admin.ID)
	require.NoError(t, err)

	second, err := svc.RequestLoan(ctx, b.ID, money(2000), 6)
	require.NoError(t, err)

	pending, err := svc.PendingLoans(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	all, err := svc.Loans(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// =============================================================================
// RULES & REPORTS
// =============================================================================

func TestGroupRules_PerBranch(t *testing.T) {
	svc := newTestService(t)

	rules, err := svc.GroupRules(domain.BranchYellow)
	require.NoError(t, err)
	assert.True(t, rules.InterestRate.Equal(money(0.12)))
	assert.True(t, rules.PenaltyFee.Equal(money(600)))

	_, err = svc.GroupRules("green")
	assert.ErrorIs(t, err, domain.ErrUnknownBranch)
}

func TestAggregateReport_TracksOutstandingLoans(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	admin := registerActive(t, svc, "Ada", "Okafor", domain.RoleAdmin, domain.BranchBlue)
	a := registerActive(t, svc, "Carol", "Njeri", domain.RoleMember, domain.BranchBlue)
	b := registerActive(t, svc, "David", "Kim", domain.RoleMember, domain.BranchBlue)
	deposit(t, svc, a.ID, 1000, onTime)
	deposit(t, svc, b.ID, 3000, onTime)

	loan, err := svc.RequestLoan(ctx, a.ID, money(3000), 6)
	require.NoError(t, err)
	_, err = svc.ApproveLoan(ctx, loan.ID, admin.ID)
	require.NoError(t, err)
	_, err = svc.RepayLoan(ctx, loan.ID, money(1000))
	require.NoError(t, err)

	report, err := svc.AggregateReport(ctx)
	require.NoError(t, err)
	assert.True(t, report.NetAvailable.Equal(money(1000)), "got %v", report.NetAvailable)
	assert.True(t, report.BestFutureBalance.Equal(money(3225)), "got %v", report.BestFutureBalance)
	assert.True(t, report.TotalPaidPenalties.IsZero())
}

func TestMemberShares_Report(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	admin := registerActive(t, svc, "Ada", "Okafor", domain.RoleAdmin, domain.BranchBlue)
	a := registerActive(t, svc, "Carol", "Njeri", domain.RoleMember, domain.BranchBlue)
	b := registerActive(t, svc, "David", "Kim", domain.RoleMember, domain.BranchBlue)
	deposit(t, svc, a.ID, 1000, onTime)
	deposit(t, svc, b.ID, 3000, onTime)

	loan, err := svc.RequestLoan(ctx, b.ID, money(3000), 6)
	require.NoError(t, err)
	_, err = svc.ApproveLoan(ctx, loan.ID, admin.ID)
	require.NoError(t, err)

	shares, err := svc.MemberShares(ctx)
	require.NoError(t, err)
	require.Len(t, shares, 2)

	byID := make(map[domain.MemberID]domain.MemberShare, len(shares))
	for _, s := range shares {
		byID[s.MemberID] = s
	}
	rowA := byID[a.ID]
	assert.Equal(t, "Carol Njeri", rowA.Name)
	assert.True(t, rowA.SharePercentage.Equal(money(25)), "got %v", rowA.SharePercentage)
	assert.True(t, rowA.InterestToBeEarned.Equal(money(56.25)), "got %v", rowA.InterestToBeEarned)
}

// =============================================================================
// DEMO SEED
// =============================================================================

func TestSeedDemo_ProducesConsistentState(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SeedDemo(ctx))

	members, err := svc.Members(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, members)

	for _, m := range members {
		require.NoError(t, svc.VerifyMemberLedger(ctx, m.ID), "member %s", m.ID)
	}

	penalties, err := svc.Penalties(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, penalties)

	loans, err := svc.Loans(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, loans)

	report, err := svc.AggregateReport(ctx)
	require.NoError(t, err)
	assert.True(t, report.NetAvailable.IsPositive())
}
