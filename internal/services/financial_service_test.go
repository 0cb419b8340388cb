package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forestgrant/internal/amqp"
	"forestgrant/internal/core"
	"forestgrant/internal/finance"
	applog "forestgrant/internal/log"
	"forestgrant/internal/storage/memory"
)

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.FinancialSavedMessage
	err  error
}

func (p *fakePublisher) PublishFinancialSaved(_ context.Context, msg *amqp.FinancialSavedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *fakePublisher) published() []*amqp.FinancialSavedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*amqp.FinancialSavedMessage(nil), p.msgs...)
}

type failingCategories struct{}

func (failingCategories) ListBudgetCategories(context.Context) ([]core.BudgetCategory, error) {
	return nil, errors.New("reference data unavailable")
}

type fixture struct {
	store *memory.Store
	pub   *fakePublisher
	apps  *ApplicationService
	fin   *FinancialService
	user  uuid.UUID
	app   core.Application
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New(memory.DefaultCategories)
	pub := &fakePublisher{}
	f := &fixture{
		store: store,
		pub:   pub,
		apps:  NewApplicationService(store),
		fin:   NewFinancialService(store, store, store, pub),
		user:  uuid.New(),
	}
	app, err := f.apps.CreateDraft(context.Background(), f.user)
	require.NoError(t, err)
	f.app = app
	return f
}

func rawPayload(t *testing.T, body string) finance.RawPayload {
	t.Helper()
	var p finance.RawPayload
	require.NoError(t, json.Unmarshal([]byte(body), &p))
	return p
}

const completeBody = `{
	"total_project_cost": 100000,
	"grant_amount_requested": 75000,
	"matching_funds": [
		{"source_name": "City match", "amount": 15000, "type": "cash"},
		{"source_name": "Volunteers", "amount": 10000, "type": "in_kind"}
	],
	"line_item_budget": [
		{"category": "labor", "description": "Crew", "amount": 60000},
		{"category": "materials", "description": "Saplings", "amount": 40000}
	]
}`

func TestFinancialService_GetAbsent(t *testing.T) {
	f := newFixture(t)

	res, err := f.fin.Get(context.Background(), f.app.ID.String(), f.user)

	require.NoError(t, err)
	assert.Nil(t, res.Info)
	assert.False(t, res.SectionComplete)
}

func TestFinancialService_PutComplete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.fin.Put(ctx, f.app.ID.String(), f.user, rawPayload(t, completeBody))
	require.NoError(t, err)
	assert.True(t, res.SectionComplete)
	assert.True(t, res.Errors.Empty())
	require.NotNil(t, res.Info)
	require.NotNil(t, res.Info.CostMatchPercentage)
	assert.Equal(t, 25.0, *res.Info.CostMatchPercentage)

	got, err := f.fin.Get(ctx, f.app.ID.String(), f.user)
	require.NoError(t, err)
	assert.True(t, got.SectionComplete)
	require.NotNil(t, got.Info)
	assert.Len(t, got.Info.MatchingFunds, 2)
	assert.Len(t, got.Info.LineItemBudget, 2)

	msgs := f.pub.published()
	require.Len(t, msgs, 1)
	assert.Equal(t, f.app.ID, msgs[0].ApplicationID)
	assert.True(t, msgs[0].SectionComplete)
	require.NotNil(t, msgs[0].CostMatchPercentage)
	assert.Equal(t, "25.00", *msgs[0].CostMatchPercentage)
}

func TestFinancialService_PutLogsCostMatch(t *testing.T) {
	var buf bytes.Buffer
	ctx := applog.NewContext(context.Background(), applog.New(applog.Config{Format: "json", Output: &buf}))
	f := newFixture(t)

	_, err := f.fin.Put(ctx, f.app.ID.String(), f.user, rawPayload(t, completeBody))
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "expected one JSON line, got %q", buf.String())
	assert.Equal(t, "Financial information saved", entry["msg"])
	assert.Equal(t, "25.00", entry[applog.FieldCostMatch])
	assert.Equal(t, true, entry[applog.FieldSectionComplete])
}

func TestFinancialService_PutAutoSavesPartialData(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	body := `{
		"total_project_cost": "abc",
		"grant_amount_requested": 5000,
		"matching_funds": [
			{"source_name": "", "amount": 100, "type": "cash"},
			{"source_name": "Kept", "amount": 200, "type": "cash"}
		],
		"line_item_budget": [{"category": "bogus", "amount": 10}]
	}`
	res, err := f.fin.Put(ctx, f.app.ID.String(), f.user, rawPayload(t, body))
	require.NoError(t, err)

	assert.False(t, res.SectionComplete)
	assert.Equal(t, "Enter a valid amount", res.Errors[finance.KeyTotalProjectCost])
	assert.Equal(t, "Source name is required", res.Errors["matching_funds[0].source_name"])
	assert.Equal(t, "Select a valid budget category", res.Errors["line_item_budget[0].category"])

	rec, err := f.store.GetFinancialRecord(ctx, f.app.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Nil(t, rec.TotalProjectCost)
	require.NotNil(t, rec.GrantAmountRequested)
	assert.Equal(t, "5000.00", rec.GrantAmountRequested.String())
	require.Len(t, rec.MatchingFunds, 1)
	assert.Equal(t, "Kept", rec.MatchingFunds[0].SourceName)
	assert.Empty(t, rec.LineItemBudget)

	got, err := f.fin.Get(ctx, f.app.ID.String(), f.user)
	require.NoError(t, err)
	assert.False(t, got.SectionComplete)

	msgs := f.pub.published()
	require.Len(t, msgs, 1)
	assert.Equal(t, len(res.Errors), msgs[0].ErrorCount)
	assert.Nil(t, msgs[0].CostMatchPercentage)
}

func TestFinancialService_PutReplacesPreviousRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.fin.Put(ctx, f.app.ID.String(), f.user, rawPayload(t, completeBody))
	require.NoError(t, err)
	_, err = f.fin.Put(ctx, f.app.ID.String(), f.user, rawPayload(t, `{}`))
	require.NoError(t, err)

	got, err := f.fin.Get(ctx, f.app.ID.String(), f.user)
	require.NoError(t, err)
	require.NotNil(t, got.Info)
	assert.Nil(t, got.Info.TotalProjectCost)
	assert.Empty(t, got.Info.MatchingFunds)
	assert.Nil(t, got.Info.CostMatchPercentage)
}

func TestFinancialService_PublishFailureDoesNotFailSave(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")

	res, err := f.fin.Put(context.Background(), f.app.ID.String(), f.user, rawPayload(t, completeBody))

	require.NoError(t, err)
	assert.True(t, res.SectionComplete)
}

func TestFinancialService_NilPublisher(t *testing.T) {
	f := newFixture(t)
	svc := NewFinancialService(f.store, f.store, f.store, nil)

	_, err := svc.Put(context.Background(), f.app.ID.String(), f.user, rawPayload(t, completeBody))
	require.NoError(t, err)
}

func TestFinancialService_AccessErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	submitted, err := f.apps.CreateDraft(ctx, f.user)
	require.NoError(t, err)
	require.NoError(t, f.store.SetStatus(submitted.ID, core.StatusSubmitted))

	tests := []struct {
		name   string
		appID  string
		userID uuid.UUID
		want   error
	}{
		{"malformed id", "not-a-uuid", f.user, ErrInvalidID},
		{"nil user", f.app.ID.String(), uuid.Nil, ErrInvalidID},
		{"unknown application", uuid.NewString(), f.user, ErrNotFound},
		{"someone else's application", f.app.ID.String(), uuid.New(), ErrNotFound},
		{"submitted application", submitted.ID.String(), f.user, ErrNotDraft},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.fin.Get(ctx, tt.appID, tt.userID)
			assert.ErrorIs(t, err, tt.want)
			_, err = f.fin.Put(ctx, tt.appID, tt.userID, rawPayload(t, completeBody))
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, f.pub.published())
}

func TestFinancialService_CategoryProviderFailure(t *testing.T) {
	f := newFixture(t)
	svc := NewFinancialService(f.store, f.store, failingCategories{}, f.pub)

	_, err := svc.Put(context.Background(), f.app.ID.String(), f.user, rawPayload(t, completeBody))

	require.Error(t, err)
	rec, _ := f.store.GetFinancialRecord(context.Background(), f.app.ID)
	assert.Nil(t, rec, "nothing must be stored when reference data is unavailable")
}

func TestFinancialService_ConcurrentPuts(t *testing.T) {
	f := newFixture(t)
	p := rawPayload(t, completeBody)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.fin.Put(context.Background(), f.app.ID.String(), f.user, p)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, f.pub.published(), 20)
	assert.Equal(t, 0, f.fin.locks.size())
}
