package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forestgrant/internal/core"
	"forestgrant/internal/ports"
)

func newTestRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "test.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err, "open repository")
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func createDraft(t *testing.T, repo *SQLiteRepository) core.Application {
	t.Helper()
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	app := core.Application{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Status:    core.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.CreateApplication(context.Background(), app), "create application")
	return app
}

func TestMigrationsSeedCategories(t *testing.T) {
	repo, path := newTestRepo(t)

	cats, err := repo.ListBudgetCategories(context.Background())
	require.NoError(t, err)
	codes := make([]string, len(cats))
	for i, c := range cats {
		codes[i] = c.Code
	}
	assert.Equal(t, []string{"labor", "materials", "equipment", "contractors", "other"}, codes)

	// Re-running is a no-op.
	require.NoError(t, RunMigrations(path))
	v, dirty, err := SchemaVersion(path)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), v)
}

func TestFinancialRecordRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)
	app := createDraft(t, repo)

	rec, err := repo.GetFinancialRecord(ctx, app.ID)
	require.NoError(t, err)
	assert.Nil(t, rec)

	total := core.MoneyFromFloat(100000)
	grant := core.MoneyFromFloat(75000)
	in := core.FinancialInformation{
		TotalProjectCost:     &total,
		GrantAmountRequested: &grant,
		MatchingFunds: []core.MatchingFund{
			{SourceName: "City match", Amount: core.MoneyFromFloat(25000), Type: core.FundCash},
		},
		LineItemBudget: []core.LineItem{
			{Category: "labor", Description: "Crew", Amount: core.MoneyFromFloat(100000)},
		},
	}
	require.NoError(t, repo.PutFinancialRecord(ctx, app.ID, in))

	got, err := repo.GetFinancialRecord(ctx, app.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "100000.00", got.TotalProjectCost.String())
	assert.Equal(t, "75000.00", got.GrantAmountRequested.String())
	require.Len(t, got.MatchingFunds, 1)
	assert.Equal(t, "City match", got.MatchingFunds[0].SourceName)
	assert.Equal(t, "25000.00", got.MatchingFunds[0].Amount.String())
	assert.Equal(t, core.FundCash, got.MatchingFunds[0].Type)
	require.Len(t, got.LineItemBudget, 1)
	assert.Equal(t, "labor", got.LineItemBudget[0].Category)
	assert.False(t, got.UpdatedAt.IsZero())

	// Full replace: nil totals and empty lists overwrite the previous row.
	require.NoError(t, repo.PutFinancialRecord(ctx, app.ID, core.FinancialInformation{}))
	got, err = repo.GetFinancialRecord(ctx, app.ID)
	require.NoError(t, err)
	assert.Nil(t, got.TotalProjectCost)
	assert.Nil(t, got.GrantAmountRequested)
	assert.NotNil(t, got.MatchingFunds)
	assert.Empty(t, got.MatchingFunds)
	assert.Empty(t, got.LineItemBudget)
}

func TestPutFinancialRecordRejectsInvalidEntries(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)
	app := createDraft(t, repo)

	bad := core.FinancialInformation{
		MatchingFunds: []core.MatchingFund{
			{SourceName: "", Amount: core.MoneyFromFloat(10), Type: core.FundCash},
		},
	}
	err := repo.PutFinancialRecord(ctx, app.ID, bad)
	assert.ErrorIs(t, err, core.ErrEmptySourceName)

	rec, err := repo.GetFinancialRecord(ctx, app.ID)
	require.NoError(t, err)
	assert.Nil(t, rec, "rejected record must not be written")
}

func TestCorruptStoredListReadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)
	app := createDraft(t, repo)

	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO financial_information (application_id, total_project_cost, matching_funds, line_item_budget, updated_at)
		VALUES (?, '10.00', '{not json', NULL, ?)`, app.ID.String(), time.Now().UTC().Format(timeLayout))
	require.NoError(t, err, "seed corrupt row")

	got, err := repo.GetFinancialRecord(ctx, app.ID)
	require.NoError(t, err)
	assert.Empty(t, got.MatchingFunds)
	assert.Empty(t, got.LineItemBudget)
	require.NotNil(t, got.TotalProjectCost)
	assert.Equal(t, "10.00", got.TotalProjectCost.String())
}

func TestApplications(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)
	app := createDraft(t, repo)

	got, err := repo.GetApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, app.UserID, got.UserID)
	assert.Equal(t, core.StatusDraft, got.Status)
	assert.True(t, got.CreatedAt.Equal(app.CreatedAt))

	_, err = repo.GetApplication(ctx, uuid.New())
	assert.ErrorIs(t, err, ports.ErrNotFound)

	list, err := repo.ListApplications(ctx, app.UserID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.SetStatus(ctx, app.ID, core.StatusSubmitted))
	got, err = repo.GetApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.False(t, got.CanEdit(), "submitted application must not be editable")

	assert.ErrorIs(t, repo.SetStatus(ctx, uuid.New(), core.StatusDraft), ports.ErrNotFound)
}

func TestAuditLog(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)
	id := uuid.New()

	for range 2 {
		require.NoError(t, repo.RecordAudit(ctx, core.AuditEntry{
			ApplicationID: id,
			Action:        "financial_information.saved",
			Detail:        "section_complete=false",
		}))
	}
	assert.ErrorIs(t, repo.RecordAudit(ctx, core.AuditEntry{ApplicationID: id}), core.ErrEmptyAuditAction)

	entries, err := repo.ListAudit(ctx, id)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Less(t, entries[0].ID, entries[1].ID)
	assert.False(t, entries[0].CreatedAt.IsZero())
}
