package finance

import (
	"encoding/json"
	"strings"

	"forestgrant/internal/core"
)

// NormalizeMatchingFunds validates each matching-fund entry and returns the
// entries that passed every check, with amounts rounded to cents. An entry
// with any field error is left out entirely.
func NormalizeMatchingFunds(raw json.RawMessage) ([]core.MatchingFund, FieldErrors) {
	errs := FieldErrors{}
	elems, ok := decodeList(raw)
	if !ok {
		errs[KeyMatchingFunds] = "Matching funds must be a list"
		return []core.MatchingFund{}, errs
	}

	out := make([]core.MatchingFund, 0, len(elems))
	for i, elem := range elems {
		var item rawMatchingFund
		if !decodeObject(elem, &item) {
			errs[entryPath(KeyMatchingFunds, i)] = "Invalid item"
			continue
		}

		valid := true
		source := strings.TrimSpace(stringField(item.SourceName))
		if source == "" {
			errs[fieldPath(KeyMatchingFunds, i, "source_name")] = "Source name is required"
			valid = false
		}
		amount, err := parseAmount(item.Amount)
		if err != nil || amount.Validate() != nil {
			errs[fieldPath(KeyMatchingFunds, i, "amount")] = "Valid amount is required"
			valid = false
		}
		typ, err := core.ParseFundType(stringField(item.Type))
		if err != nil {
			errs[fieldPath(KeyMatchingFunds, i, "type")] = "Type must be cash or in_kind"
			valid = false
		}

		if valid {
			out = append(out, core.MatchingFund{SourceName: source, Amount: amount, Type: typ})
		}
	}
	return out, errs
}

// NormalizeLineItems validates each line item against allowed and returns
// the entries that passed. Categories are trimmed and lower-cased; the
// membership check is skipped when allowed is empty.
func NormalizeLineItems(raw json.RawMessage, allowed CategorySet) ([]core.LineItem, FieldErrors) {
	errs := FieldErrors{}
	elems, ok := decodeList(raw)
	if !ok {
		errs[KeyLineItemBudget] = "Line item budget must be a list"
		return []core.LineItem{}, errs
	}

	out := make([]core.LineItem, 0, len(elems))
	for i, elem := range elems {
		var item rawLineItem
		if !decodeObject(elem, &item) {
			errs[entryPath(KeyLineItemBudget, i)] = "Invalid item"
			continue
		}

		valid := true
		category := core.NormalizeCategoryCode(stringField(item.Category))
		switch {
		case category == "":
			errs[fieldPath(KeyLineItemBudget, i, "category")] = "Category is required"
			valid = false
		case allowed.Len() > 0 && !allowed.Contains(category):
			errs[fieldPath(KeyLineItemBudget, i, "category")] = "Select a valid budget category"
			valid = false
		}
		amount, err := parseAmount(item.Amount)
		if err != nil || amount.Validate() != nil {
			errs[fieldPath(KeyLineItemBudget, i, "amount")] = "Valid amount is required"
			valid = false
		}

		if valid {
			out = append(out, core.LineItem{
				Category:    category,
				Description: strings.TrimSpace(stringField(item.Description)),
				Amount:      amount,
			})
		}
	}
	return out, errs
}

// NormalizeRecord builds the record that gets persisted for p: totals are
// kept only when they parse to a non-negative amount and both lists keep
// only their valid entries. Validation errors are not reported here; use
// ValidatePayload for that.
func NormalizeRecord(p RawPayload, allowed CategorySet) core.FinancialInformation {
	var rec core.FinancialInformation
	if m, err := parseAmount(p.TotalProjectCost); err == nil && m.Validate() == nil {
		rec.TotalProjectCost = &m
	}
	if m, err := parseAmount(p.GrantAmountRequested); err == nil && m.Validate() == nil {
		rec.GrantAmountRequested = &m
	}
	rec.MatchingFunds, _ = NormalizeMatchingFunds(p.MatchingFunds)
	rec.LineItemBudget, _ = NormalizeLineItems(p.LineItemBudget, allowed)
	return rec
}
