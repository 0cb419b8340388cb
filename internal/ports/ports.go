// Package ports declares the outbound interfaces the services depend on.
package ports

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"forestgrant/internal/core"
)

// ErrNotFound is returned by stores when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Ports for outbound adapters.
type (
	// CategoryLister provides the budget-category reference data.
	CategoryLister interface {
		ListBudgetCategories(ctx context.Context) ([]core.BudgetCategory, error)
	}

	// FinancialStore persists one financial record per application.
	FinancialStore interface {
		// GetFinancialRecord returns nil, nil when nothing has been saved yet.
		GetFinancialRecord(ctx context.Context, appID uuid.UUID) (*core.FinancialInformation, error)
		// PutFinancialRecord fully replaces the stored record.
		PutFinancialRecord(ctx context.Context, appID uuid.UUID, rec core.FinancialInformation) error
	}

	ApplicationStore interface {
		CreateApplication(ctx context.Context, app core.Application) error
		// GetApplication returns ErrNotFound for unknown ids.
		GetApplication(ctx context.Context, id uuid.UUID) (core.Application, error)
		ListApplications(ctx context.Context, userID uuid.UUID) ([]core.Application, error)
	}

	AuditRecorder interface {
		RecordAudit(ctx context.Context, e core.AuditEntry) error
		ListAudit(ctx context.Context, appID uuid.UUID) ([]core.AuditEntry, error)
	}

	// Store is everything a data backend provides.
	Store interface {
		CategoryLister
		FinancialStore
		ApplicationStore
		AuditRecorder
		Close() error
	}
)
