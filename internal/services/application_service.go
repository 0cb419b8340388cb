package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"forestgrant/internal/core"
	applog "forestgrant/internal/log"
	"forestgrant/internal/ports"
)

// ApplicationService creates and looks up grant applications.
type ApplicationService struct {
	apps ports.ApplicationStore
	now  func() time.Time
}

func NewApplicationService(apps ports.ApplicationStore) *ApplicationService {
	return &ApplicationService{apps: apps, now: time.Now}
}

// CreateDraft opens a new draft application owned by userID.
func (s *ApplicationService) CreateDraft(ctx context.Context, userID uuid.UUID) (core.Application, error) {
	if userID == uuid.Nil {
		return core.Application{}, ErrUserNotFound
	}
	now := s.now().UTC()
	app := core.Application{
		ID:        uuid.New(),
		UserID:    userID,
		Status:    core.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.apps.CreateApplication(ctx, app); err != nil {
		return core.Application{}, fmt.Errorf("create application: %w", err)
	}

	applog.FromContext(ctx).InfoContext(ctx, "Application created",
		applog.NewFields().
			WithApplication(app.ID.String(), userID.String()).
			WithOperation(applog.OpCreate).
			ToSlice()...)
	return app, nil
}

// Get returns the application when it exists and belongs to userID.
// Applications owned by someone else are reported as ErrNotFound.
func (s *ApplicationService) Get(ctx context.Context, appID string, userID uuid.UUID) (core.Application, error) {
	return loadOwned(ctx, s.apps, appID, userID)
}

// List returns the user's applications, newest first.
func (s *ApplicationService) List(ctx context.Context, userID uuid.UUID) ([]core.Application, error) {
	if userID == uuid.Nil {
		return nil, ErrUserNotFound
	}
	apps, err := s.apps.ListApplications(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

func loadOwned(ctx context.Context, apps ports.ApplicationStore, appID string, userID uuid.UUID) (core.Application, error) {
	id, err := uuid.Parse(appID)
	if err != nil || userID == uuid.Nil {
		return core.Application{}, ErrInvalidID
	}
	app, err := apps.GetApplication(ctx, id)
	if errors.Is(err, ports.ErrNotFound) {
		return core.Application{}, ErrNotFound
	}
	if err != nil {
		return core.Application{}, fmt.Errorf("get application: %w", err)
	}
	if app.UserID != userID {
		return core.Application{}, ErrNotFound
	}
	return app, nil
}
