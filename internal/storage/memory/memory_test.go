package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forestgrant/internal/core"
	"forestgrant/internal/ports"
)

func TestNewFromDirSeedsAndDedupe(t *testing.T) {
	dir := t.TempDir()
	// No file -> defaults
	s := NewFromDir(dir)
	cats, err := s.ListBudgetCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, cats, len(DefaultCategories))

	content := "# header\nLabor|Labor costs\nseedlings\nlabor|dup\n\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, SeedFile), []byte(content), 0o644))

	s = NewFromDir(dir)
	cats, err = s.ListBudgetCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []core.BudgetCategory{
		{Code: "labor", Label: "Labor costs"},
		{Code: "seedlings", Label: "seedlings"},
	}, cats)
}

func TestFinancialRecordAbsentThenReplaced(t *testing.T) {
	ctx := context.Background()
	s := New(DefaultCategories)
	id := uuid.New()

	rec, err := s.GetFinancialRecord(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, rec)

	total := core.MoneyFromFloat(100)
	first := core.FinancialInformation{
		TotalProjectCost: &total,
		MatchingFunds:    []core.MatchingFund{{SourceName: "a", Amount: total, Type: core.FundCash}},
	}
	require.NoError(t, s.PutFinancialRecord(ctx, id, first))
	require.NoError(t, s.PutFinancialRecord(ctx, id, core.FinancialInformation{}))

	rec, err = s.GetFinancialRecord(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Nil(t, rec.TotalProjectCost, "put must fully replace")
	assert.Empty(t, rec.MatchingFunds, "put must fully replace")
	assert.Equal(t, id, rec.ApplicationID)
	assert.False(t, rec.UpdatedAt.IsZero())
}

func TestPutFinancialRecordRejectsInvalidEntries(t *testing.T) {
	ctx := context.Background()
	s := New(DefaultCategories)
	id := uuid.New()
	amount := core.MoneyFromFloat(10)

	bad := core.FinancialInformation{
		LineItemBudget: []core.LineItem{{Category: " ", Amount: amount}},
	}
	assert.ErrorIs(t, s.PutFinancialRecord(ctx, id, bad), core.ErrEmptyCategory)

	rec, err := s.GetFinancialRecord(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, rec, "rejected record must not be stored")
}

func TestApplicationsByUser(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	user := uuid.New()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	older := core.Application{ID: uuid.New(), UserID: user, Status: core.StatusDraft, CreatedAt: base}
	newer := core.Application{ID: uuid.New(), UserID: user, Status: core.StatusDraft, CreatedAt: base.Add(time.Hour)}
	other := core.Application{ID: uuid.New(), UserID: uuid.New(), Status: core.StatusDraft, CreatedAt: base}
	for _, a := range []core.Application{older, newer, other} {
		require.NoError(t, s.CreateApplication(ctx, a))
	}

	apps, err := s.ListApplications(ctx, user)
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, newer.ID, apps[0].ID)

	_, err = s.GetApplication(ctx, uuid.New())
	assert.ErrorIs(t, err, ports.ErrNotFound)
	assert.Error(t, s.CreateApplication(ctx, core.Application{ID: uuid.New(), UserID: user, Status: "bogus"}))
}

func TestAuditTrail(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	id := uuid.New()

	assert.ErrorIs(t, s.RecordAudit(ctx, core.AuditEntry{ApplicationID: id}), core.ErrEmptyAuditAction)
	require.NoError(t, s.RecordAudit(ctx, core.AuditEntry{ApplicationID: id, Action: "financial_information.saved"}))
	require.NoError(t, s.RecordAudit(ctx, core.AuditEntry{ApplicationID: uuid.New(), Action: "x"}))

	entries, err := s.ListAudit(ctx, id)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ID)
	assert.False(t, entries[0].CreatedAt.IsZero())
}
