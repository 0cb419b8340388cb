package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"forestgrant/internal/amqp"
	"forestgrant/internal/core"
	"forestgrant/internal/finance"
	applog "forestgrant/internal/log"
	"forestgrant/internal/ports"
)

// Publisher announces saved financial sections.
type Publisher interface {
	PublishFinancialSaved(ctx context.Context, msg *amqp.FinancialSavedMessage) error
}

// FinancialResult is what Get and Put return to the transport layer.
// Info is nil when nothing has been saved yet; Errors is only set by Put.
type FinancialResult struct {
	Info            *finance.View
	SectionComplete bool
	Errors          finance.FieldErrors
}

// FinancialService reads and auto-saves the financial section of draft
// applications.
type FinancialService struct {
	apps       ports.ApplicationStore
	records    ports.FinancialStore
	categories ports.CategoryLister
	publisher  Publisher
	locks      *keyedMutex
}

// NewFinancialService wires the service. publisher may be nil, in which
// case saves are not announced.
func NewFinancialService(apps ports.ApplicationStore, records ports.FinancialStore, categories ports.CategoryLister, publisher Publisher) *FinancialService {
	return &FinancialService{
		apps:       apps,
		records:    records,
		categories: categories,
		publisher:  publisher,
		locks:      newKeyedMutex(),
	}
}

// Get returns the stored section with a freshly computed cost-match
// percentage and completion flag.
func (s *FinancialService) Get(ctx context.Context, appID string, userID uuid.UUID) (FinancialResult, error) {
	app, err := s.editable(ctx, appID, userID)
	if err != nil {
		return FinancialResult{}, err
	}

	rec, err := s.records.GetFinancialRecord(ctx, app.ID)
	if err != nil {
		return FinancialResult{}, fmt.Errorf("get financial record: %w", err)
	}
	if rec == nil {
		return FinancialResult{}, nil
	}

	allowed, err := s.allowedCategories(ctx)
	if err != nil {
		return FinancialResult{}, err
	}
	view := finance.BuildView(*rec)
	return FinancialResult{
		Info:            &view,
		SectionComplete: finance.SectionComplete(rec, allowed),
	}, nil
}

// Put auto-saves the section. The normalized record (valid totals and
// valid list entries only) always replaces what was stored; the submitted
// payload is validated as sent and its errors are returned with the saved
// view.
func (s *FinancialService) Put(ctx context.Context, appID string, userID uuid.UUID, p finance.RawPayload) (FinancialResult, error) {
	app, err := s.editable(ctx, appID, userID)
	if err != nil {
		return FinancialResult{}, err
	}
	allowed, err := s.allowedCategories(ctx)
	if err != nil {
		return FinancialResult{}, err
	}

	rec := finance.NormalizeRecord(p, allowed)
	errs := finance.ValidatePayload(p, allowed)

	// writes and their notifications stay in order per application
	unlock := s.locks.Lock(app.ID.String())
	defer unlock()
	if err := s.records.PutFinancialRecord(ctx, app.ID, rec); err != nil {
		return FinancialResult{}, fmt.Errorf("save financial record: %w", err)
	}

	view := finance.BuildView(rec)
	result := FinancialResult{
		Info:            &view,
		SectionComplete: errs.Empty(),
		Errors:          errs,
	}

	pct := costMatch(rec)
	fields := applog.NewFields().
		WithApplication(app.ID.String(), userID.String()).
		WithOperation(applog.OpUpdate).
		WithValidation(result.SectionComplete, errs.Keys()).
		WithCostMatch(pct)
	applog.FromContext(ctx).InfoContext(ctx, "Financial information saved", fields.ToSlice()...)

	s.publishSaved(ctx, app, pct, result)
	return result, nil
}

// costMatch formats the stored record's cost-match percentage, or returns
// nil when it is undefined.
func costMatch(rec core.FinancialInformation) *string {
	if rec.TotalProjectCost == nil {
		return nil
	}
	p, ok := finance.ComputeCostMatchPercentage(*rec.TotalProjectCost, core.SumMatchingFunds(rec.MatchingFunds))
	if !ok {
		return nil
	}
	v := p.StringFixed(2)
	return &v
}

func (s *FinancialService) editable(ctx context.Context, appID string, userID uuid.UUID) (core.Application, error) {
	app, err := loadOwned(ctx, s.apps, appID, userID)
	if err != nil {
		return core.Application{}, err
	}
	if !app.CanEdit() {
		return core.Application{}, ErrNotDraft
	}
	return app, nil
}

func (s *FinancialService) allowedCategories(ctx context.Context) (finance.CategorySet, error) {
	cats, err := s.categories.ListBudgetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budget categories: %w", err)
	}
	return finance.CategorySetFrom(cats), nil
}

// publishSaved never fails the request; the record is already stored.
func (s *FinancialService) publishSaved(ctx context.Context, app core.Application, pct *string, result FinancialResult) {
	if s.publisher == nil {
		return
	}
	msg := amqp.NewFinancialSavedMessage(app.ID, app.UserID, result.SectionComplete, len(result.Errors), pct)
	if err := s.publisher.PublishFinancialSaved(ctx, msg); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to publish financial saved message",
			applog.NewFields().
				WithApplication(app.ID.String(), "").
				WithOperation(applog.OpPublish).
				WithError(err).
				ToSlice()...)
	}
}
