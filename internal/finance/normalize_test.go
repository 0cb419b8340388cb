package finance

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forestgrant/internal/core"
)

func TestNormalizeMatchingFunds(t *testing.T) {
	raw := json.RawMessage(`[
		{"source_name": " City match ", "amount": "15000.004", "type": "CASH"},
		{"source_name": "Negative", "amount": -5, "type": "cash"},
		"not an object",
		null,
		{"source_name": "", "amount": 1, "type": "grant"},
		{"source_name": "Labor", "amount": 10000, "type": "in_kind"}
	]`)

	got, errs := NormalizeMatchingFunds(raw)

	require.Len(t, got, 2)
	assert.Equal(t, "City match", got[0].SourceName)
	assert.Equal(t, "15000.00", got[0].Amount.String())
	assert.Equal(t, core.FundCash, got[0].Type)
	assert.Equal(t, "Labor", got[1].SourceName)
	assert.Equal(t, core.FundInKind, got[1].Type)

	assert.Equal(t, FieldErrors{
		"matching_funds[1].amount":      "Valid amount is required",
		"matching_funds[2]":             "Invalid item",
		"matching_funds[3]":             "Invalid item",
		"matching_funds[4].source_name": "Source name is required",
		"matching_funds[4].type":        "Type must be cash or in_kind",
	}, errs)
}

func TestNormalizeMatchingFunds_NegativeAmountDropsWholeEntry(t *testing.T) {
	raw := json.RawMessage(`[{"source_name": "Valid source", "amount": -0.01, "type": "cash"}]`)

	got, errs := NormalizeMatchingFunds(raw)

	assert.Empty(t, got)
	assert.Equal(t, FieldErrors{"matching_funds[0].amount": "Valid amount is required"}, errs)
}

func TestNormalizeMatchingFunds_AbsentIsEmpty(t *testing.T) {
	for _, raw := range []json.RawMessage{nil, json.RawMessage(`null`), json.RawMessage(`[]`)} {
		got, errs := NormalizeMatchingFunds(raw)
		assert.NotNil(t, got)
		assert.Empty(t, got)
		assert.True(t, errs.Empty())
	}
}

func TestNormalizeLineItems(t *testing.T) {
	raw := json.RawMessage(`[
		{"category": " Labor ", "description": "  Crew  ", "amount": 40000},
		{"category": "bogus_code", "amount": -1},
		{"amount": 5},
		{"category": "materials", "description": 12, "amount": "abc"},
		{"category": "other", "amount": "250.5"}
	]`)

	got, errs := NormalizeLineItems(raw, defaultCategories)

	require.Len(t, got, 2)
	assert.Equal(t, "labor", got[0].Category)
	assert.Equal(t, "Crew", got[0].Description)
	assert.Equal(t, "40000.00", got[0].Amount.String())
	assert.Equal(t, "other", got[1].Category)
	assert.Empty(t, got[1].Description)
	assert.Equal(t, "250.50", got[1].Amount.String())

	assert.Equal(t, FieldErrors{
		"line_item_budget[1].category": "Select a valid budget category",
		"line_item_budget[1].amount":   "Valid amount is required",
		"line_item_budget[2].category": "Category is required",
		"line_item_budget[3].amount":   "Valid amount is required",
	}, errs)
}

func TestNormalizeLineItems_EmptyAllowedSetSkipsMembership(t *testing.T) {
	raw := json.RawMessage(`[{"category": "anything", "amount": 1}]`)

	got, errs := NormalizeLineItems(raw, NewCategorySet())

	assert.True(t, errs.Empty())
	require.Len(t, got, 1)
	assert.Equal(t, "anything", got[0].Category)
}

func TestNormalizeLineItems_UnknownCategoryAlwaysReported(t *testing.T) {
	raws := []string{
		`[{"category": "bogus", "amount": 10}]`,
		`[{"category": "bogus", "amount": -10}]`,
		`[{"category": "bogus", "description": "x"}]`,
	}
	for _, r := range raws {
		_, errs := NormalizeLineItems(json.RawMessage(r), defaultCategories)
		assert.Equal(t, "Select a valid budget category", errs["line_item_budget[0].category"], r)
	}
}

func TestNormalizeRecord(t *testing.T) {
	p := RawPayload{
		TotalProjectCost:     json.RawMessage(`"1000.005"`),
		GrantAmountRequested: json.RawMessage(`-1`),
		MatchingFunds:        json.RawMessage(`[{"source_name":"a","amount":1,"type":"cash"},{"source_name":"b"}]`),
		LineItemBudget:       json.RawMessage(`"oops"`),
	}

	rec := NormalizeRecord(p, defaultCategories)

	require.NotNil(t, rec.TotalProjectCost)
	assert.Equal(t, "1000.01", rec.TotalProjectCost.String())
	assert.Nil(t, rec.GrantAmountRequested)
	assert.Len(t, rec.MatchingFunds, 1)
	assert.Empty(t, rec.LineItemBudget)
}

func TestBuildView(t *testing.T) {
	total := core.MoneyFromFloat(100000)
	rec := core.FinancialInformation{
		TotalProjectCost: &total,
		MatchingFunds: []core.MatchingFund{
			{SourceName: "a", Amount: core.MoneyFromFloat(33333.33), Type: core.FundCash},
		},
	}

	v := BuildView(rec)

	require.NotNil(t, v.CostMatchPercentage)
	assert.Equal(t, 33.33, *v.CostMatchPercentage)
	assert.NotNil(t, v.LineItemBudget)

	zero := core.MoneyFromFloat(0)
	rec.TotalProjectCost = &zero
	assert.Nil(t, BuildView(rec).CostMatchPercentage)

	rec.TotalProjectCost = nil
	assert.Nil(t, BuildView(rec).CostMatchPercentage)
}

func TestBuildView_JSONShape(t *testing.T) {
	total := core.MoneyFromFloat(100)
	grant := core.MoneyFromFloat(75)
	v := BuildView(core.FinancialInformation{
		TotalProjectCost:     &total,
		GrantAmountRequested: &grant,
		MatchingFunds: []core.MatchingFund{
			{SourceName: "a", Amount: core.MoneyFromFloat(25), Type: core.FundCash},
		},
	})

	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"total_project_cost": 100.00,
		"grant_amount_requested": 75.00,
		"matching_funds": [{"source_name": "a", "amount": 25.00, "type": "cash"}],
		"line_item_budget": [],
		"cost_match_percentage": 25
	}`, string(b))
}
