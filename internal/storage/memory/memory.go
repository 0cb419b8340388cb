// Package memory is an in-process data backend used for development and
// tests. Nothing survives a restart.
package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"forestgrant/internal/core"
	"forestgrant/internal/ports"
)

// SeedFile is read from the data directory by NewFromDir.
const SeedFile = "seed_budget_categories.txt"

// DefaultCategories is the reference list used when no seed file exists.
var DefaultCategories = []core.BudgetCategory{
	{Code: "labor", Label: "Labor"},
	{Code: "materials", Label: "Materials"},
	{Code: "equipment", Label: "Equipment"},
	{Code: "contractors", Label: "Contractors"},
	{Code: "other", Label: "Other"},
}

type Store struct {
	mu        sync.Mutex
	cats      []core.BudgetCategory
	apps      map[uuid.UUID]core.Application
	financial map[uuid.UUID]core.FinancialInformation
	audit     []core.AuditEntry
	now       func() time.Time
}

var _ ports.Store = (*Store)(nil)

func New(cats []core.BudgetCategory) *Store {
	return &Store{
		cats:      dedupe(cats),
		apps:      make(map[uuid.UUID]core.Application),
		financial: make(map[uuid.UUID]core.FinancialInformation),
		now:       time.Now,
	}
}

// NewFromDir seeds categories from <dir>/seed_budget_categories.txt, one
// "code|label" per line. A missing or empty file falls back to
// DefaultCategories.
func NewFromDir(dir string) *Store {
	cats := readCategories(filepath.Join(dir, SeedFile))
	if len(cats) == 0 {
		cats = DefaultCategories
	}
	return New(cats)
}

func (s *Store) Close() error { return nil }

func (s *Store) ListBudgetCategories(_ context.Context) ([]core.BudgetCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.BudgetCategory(nil), s.cats...), nil
}

func (s *Store) GetFinancialRecord(_ context.Context, appID uuid.UUID) (*core.FinancialInformation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.financial[appID]
	if !ok {
		return nil, nil
	}
	rec = cloneRecord(rec)
	return &rec, nil
}

func (s *Store) PutFinancialRecord(_ context.Context, appID uuid.UUID, rec core.FinancialInformation) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec = cloneRecord(rec)
	rec.ApplicationID = appID
	rec.UpdatedAt = s.now().UTC()
	s.financial[appID] = rec
	return nil
}

func (s *Store) CreateApplication(_ context.Context, app core.Application) error {
	if err := app.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apps[app.ID] = app
	return nil
}

func (s *Store) GetApplication(_ context.Context, id uuid.UUID) (core.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok {
		return core.Application{}, ports.ErrNotFound
	}
	return app, nil
}

// ListApplications returns the user's applications, newest first.
func (s *Store) ListApplications(_ context.Context, userID uuid.UUID) ([]core.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Application, 0)
	for _, a := range s.apps {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// SetStatus changes an application's status. It exists for tests and
// tooling; the API never submits applications.
func (s *Store) SetStatus(id uuid.UUID, status core.ApplicationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok {
		return ports.ErrNotFound
	}
	app.Status = status
	s.apps[id] = app
	return nil
}

func (s *Store) RecordAudit(_ context.Context, e core.AuditEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = int64(len(s.audit) + 1)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	s.audit = append(s.audit, e)
	return nil
}

func (s *Store) ListAudit(_ context.Context, appID uuid.UUID) ([]core.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.AuditEntry
	for _, e := range s.audit {
		if e.ApplicationID == appID {
			out = append(out, e)
		}
	}
	return out, nil
}

// cloneRecord copies the slices so callers never share backing arrays with
// the store.
func cloneRecord(rec core.FinancialInformation) core.FinancialInformation {
	rec.MatchingFunds = append([]core.MatchingFund{}, rec.MatchingFunds...)
	rec.LineItemBudget = append([]core.LineItem{}, rec.LineItemBudget...)
	return rec
}

func readCategories(path string) []core.BudgetCategory {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []core.BudgetCategory
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		code, label, found := strings.Cut(line, "|")
		code = core.NormalizeCategoryCode(code)
		label = strings.TrimSpace(label)
		if !found || label == "" {
			label = code
		}
		out = append(out, core.BudgetCategory{Code: code, Label: label})
	}
	return out
}

// dedupe drops blank and repeated codes, preserving input order.
func dedupe(in []core.BudgetCategory) []core.BudgetCategory {
	seen := map[string]struct{}{}
	out := make([]core.BudgetCategory, 0, len(in))
	for _, c := range in {
		c.Code = core.NormalizeCategoryCode(c.Code)
		if c.Code == "" {
			continue
		}
		if _, ok := seen[c.Code]; ok {
			continue
		}
		seen[c.Code] = struct{}{}
		out = append(out, c)
	}
	return out
}
