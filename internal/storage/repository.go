package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"forestgrant/internal/core"
	"forestgrant/internal/ports"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ ports.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListBudgetCategories implements ports.CategoryLister
func (r *SQLiteRepository) ListBudgetCategories(ctx context.Context) ([]core.BudgetCategory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT code, label FROM budget_category_options ORDER BY sort_order, code`)
	if err != nil {
		return nil, fmt.Errorf("query budget categories: %w", err)
	}
	defer rows.Close()

	var out []core.BudgetCategory
	for rows.Next() {
		var c core.BudgetCategory
		if err := rows.Scan(&c.Code, &c.Label); err != nil {
			return nil, fmt.Errorf("scan budget category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetFinancialRecord implements ports.FinancialStore
func (r *SQLiteRepository) GetFinancialRecord(ctx context.Context, appID uuid.UUID) (*core.FinancialInformation, error) {
	var (
		total, grant sql.NullString
		funds, items sql.NullString
		updatedAt    string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT total_project_cost, grant_amount_requested, matching_funds, line_item_budget, updated_at
		FROM financial_information WHERE application_id = ?`, appID.String()).
		Scan(&total, &grant, &funds, &items, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get financial record: %w", err)
	}

	rec := core.FinancialInformation{ApplicationID: appID}
	if rec.TotalProjectCost, err = parseStoredMoney(total); err != nil {
		return nil, fmt.Errorf("decode total_project_cost: %w", err)
	}
	if rec.GrantAmountRequested, err = parseStoredMoney(grant); err != nil {
		return nil, fmt.Errorf("decode grant_amount_requested: %w", err)
	}
	rec.MatchingFunds = decodeStoredList[core.MatchingFund](ctx, funds, appID, "matching_funds")
	rec.LineItemBudget = decodeStoredList[core.LineItem](ctx, items, appID, "line_item_budget")
	rec.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &rec, nil
}

// PutFinancialRecord implements ports.FinancialStore. The row is fully
// replaced.
func (r *SQLiteRepository) PutFinancialRecord(ctx context.Context, appID uuid.UUID, rec core.FinancialInformation) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid financial record: %w", err)
	}
	funds, err := encodeList(rec.MatchingFunds)
	if err != nil {
		return fmt.Errorf("encode matching funds: %w", err)
	}
	items, err := encodeList(rec.LineItemBudget)
	if err != nil {
		return fmt.Errorf("encode line items: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO financial_information
			(application_id, total_project_cost, grant_amount_requested, matching_funds, line_item_budget, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(application_id) DO UPDATE SET
			total_project_cost = excluded.total_project_cost,
			grant_amount_requested = excluded.grant_amount_requested,
			matching_funds = excluded.matching_funds,
			line_item_budget = excluded.line_item_budget,
			updated_at = excluded.updated_at`,
		appID.String(), storedMoney(rec.TotalProjectCost), storedMoney(rec.GrantAmountRequested),
		funds, items, r.now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("upsert financial record: %w", err)
	}

	slog.DebugContext(ctx, "Financial record saved to SQLite",
		"application_id", appID,
		"matching_funds", len(rec.MatchingFunds),
		"line_items", len(rec.LineItemBudget))
	return nil
}

// CreateApplication implements ports.ApplicationStore
func (r *SQLiteRepository) CreateApplication(ctx context.Context, app core.Application) error {
	if err := app.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO applications (id, user_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		app.ID.String(), app.UserID.String(), string(app.Status),
		app.CreatedAt.UTC().Format(timeLayout), app.UpdatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// GetApplication implements ports.ApplicationStore
func (r *SQLiteRepository) GetApplication(ctx context.Context, id uuid.UUID) (core.Application, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, status, created_at, updated_at
		FROM applications WHERE id = ?`, id.String())
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Application{}, ports.ErrNotFound
	}
	if err != nil {
		return core.Application{}, fmt.Errorf("get application: %w", err)
	}
	return app, nil
}

// ListApplications implements ports.ApplicationStore
func (r *SQLiteRepository) ListApplications(ctx context.Context, userID uuid.UUID) ([]core.Application, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, status, created_at, updated_at
		FROM applications WHERE user_id = ? ORDER BY created_at DESC`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	out := make([]core.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

// SetStatus updates an application's status.
func (r *SQLiteRepository) SetStatus(ctx context.Context, id uuid.UUID, status core.ApplicationStatus) error {
	if !status.Valid() {
		return core.ErrInvalidStatus
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE applications SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), r.now().UTC().Format(timeLayout), id.String())
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// RecordAudit implements ports.AuditRecorder
func (r *SQLiteRepository) RecordAudit(ctx context.Context, e core.AuditEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (application_id, action, detail, created_at)
		VALUES (?, ?, ?, ?)`,
		e.ApplicationID.String(), e.Action, e.Detail, e.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListAudit implements ports.AuditRecorder
func (r *SQLiteRepository) ListAudit(ctx context.Context, appID uuid.UUID) ([]core.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, action, detail, created_at
		FROM audit_log WHERE application_id = ? ORDER BY id`, appID.String())
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []core.AuditEntry
	for rows.Next() {
		e := core.AuditEntry{ApplicationID: appID}
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Action, &e.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(s rowScanner) (core.Application, error) {
	var (
		app                  core.Application
		id, userID, status   string
		createdAt, updatedAt string
	)
	if err := s.Scan(&id, &userID, &status, &createdAt, &updatedAt); err != nil {
		return app, err
	}
	var err error
	if app.ID, err = uuid.Parse(id); err != nil {
		return app, fmt.Errorf("parse application id: %w", err)
	}
	if app.UserID, err = uuid.Parse(userID); err != nil {
		return app, fmt.Errorf("parse user id: %w", err)
	}
	app.Status = core.ApplicationStatus(status)
	app.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	app.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return app, nil
}

func storedMoney(m *core.Money) sql.NullString {
	if m == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: m.String(), Valid: true}
}

func parseStoredMoney(s sql.NullString) (*core.Money, error) {
	if !s.Valid {
		return nil, nil
	}
	m, err := core.ParseMoney(s.String)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func encodeList[T any](list []T) (string, error) {
	if list == nil {
		list = []T{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeStoredList reads a JSON column. NULL and unreadable values both come
// back as an empty list so one bad row never blocks the applicant.
func decodeStoredList[T any](ctx context.Context, s sql.NullString, appID uuid.UUID, column string) []T {
	out := []T{}
	if !s.Valid || s.String == "" {
		return out
	}
	if err := json.Unmarshal([]byte(s.String), &out); err != nil {
		slog.WarnContext(ctx, "Discarding unreadable stored list",
			"application_id", appID,
			"column", column,
			"error", err)
		return []T{}
	}
	return out
}
