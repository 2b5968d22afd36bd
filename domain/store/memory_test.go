package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chamapool/savings-engine/domain"
	"github.com/chamapool/savings-engine/domain/store"
)

func activeMember(id string, savings int64) *domain.Member {
	now := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	return &domain.Member{
		ID:                 domain.MemberID(id),
		FirstName:          "Test",
		LastName:           id,
		Role:               domain.RoleMember,
		Branch:             domain.BranchBlue,
		Status:             domain.MemberActive,
		TotalContributions: decimal.NewFromInt(savings),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func TestMemory_CloneIsolation(t *testing.T) {
	// Mutating a value returned by the store must not leak into storage.
	m := store.NewMemory()
	ctx := context.Background()

	if err := m.CreateMember(ctx, activeMember("m1", 1000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := m.GetMember(ctx, "m1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got.TotalContributions = decimal.NewFromInt(9999)

	fresh, err := m.GetMember(ctx, "m1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fresh.TotalContributions.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("caller mutation leaked into the store: %v", fresh.TotalContributions)
	}
}

func TestMemory_NotFoundSentinels(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	if _, err := m.GetMember(ctx, "x"); !errors.Is(err, domain.ErrMemberNotFound) {
		t.Errorf("expected ErrMemberNotFound, got %v", err)
	}
	if _, err := m.GetLoan(ctx, "x"); !errors.Is(err, domain.ErrLoanNotFound) {
		t.Errorf("expected ErrLoanNotFound, got %v", err)
	}
	if _, err := m.GetPenalty(ctx, "x"); !errors.Is(err, domain.ErrPenaltyNotFound) {
		t.Errorf("expected ErrPenaltyNotFound, got %v", err)
	}
	if err := m.UpdateMember(ctx, activeMember("x", 0)); !errors.Is(err, domain.ErrMemberNotFound) {
		t.Errorf("expected ErrMemberNotFound, got %v", err)
	}
}

func TestMemory_ContributionsDateOrdered(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	base := time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)
	for i, offset := range []int{2, 0, 1} {
		c := &domain.Contribution{
			ID:       domain.ContributionID([]string{"c1", "c2", "c3"}[i]),
			MemberID: "m1",
			Amount:   decimal.NewFromInt(100),
			Date:     base.AddDate(0, offset, 0),
			Month:    base.AddDate(0, offset, 0).Format("2006-01"),
			Type:     domain.ContributionRegular,
		}
		if err := m.AppendContribution(ctx, c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	entries, err := m.ListContributions(ctx, "m1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Date.Before(entries[i-1].Date) {
			t.Errorf("entries out of date order at %d", i)
		}
	}
}

func TestMemory_WithTxRollback(t *testing.T) {
	// GIVEN: A store holding one member
	// WHEN: A transaction writes a member, a loan and a ledger entry, then fails
	// THEN: Every write is rolled back

	m := store.NewMemory()
	ctx := context.Background()
	if err := m.CreateMember(ctx, activeMember("m1", 1000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	boom := errors.New("boom")
	err := m.WithTx(ctx, func(tx domain.Store) error {
		mem, err := tx.GetMember(ctx, "m1")
		if err != nil {
			return err
		}
		mem.TotalContributions = decimal.NewFromInt(5000)
		if err := tx.UpdateMember(ctx, mem); err != nil {
			return err
		}
		loan, err := domain.NewLoanRequest("l1", "m1", decimal.NewFromInt(500), 3, time.Now())
		if err != nil {
			return err
		}
		if err := tx.CreateLoan(ctx, loan); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the transaction error, got %v", err)
	}

	mem, err := m.GetMember(ctx, "m1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mem.TotalContributions.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("member write survived rollback: %v", mem.TotalContributions)
	}
	if _, err := m.GetLoan(ctx, "l1"); !errors.Is(err, domain.ErrLoanNotFound) {
		t.Errorf("loan write survived rollback: %v", err)
	}
}
