package finance

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"forestgrant/internal/core"
)

var (
	// MinCostMatchPercent is the lowest acceptable cost-match percentage.
	MinCostMatchPercent = decimal.NewFromInt(20)

	// Tolerance is the largest difference at which two totals still match.
	Tolerance = core.MoneyFromFloat(0.01)

	hundred = decimal.NewFromInt(100)
)

// ComputeCostMatchPercentage returns matching as a percentage of total,
// rounded to two places. The second result is false when the percentage is
// undefined (total <= 0 or matching < 0).
func ComputeCostMatchPercentage(total, matching core.Money) (decimal.Decimal, bool) {
	if !total.IsPositive() || matching.IsNegative() {
		return decimal.Decimal{}, false
	}
	pct := matching.Decimal.Div(total.Decimal).Mul(hundred)
	return pct.Round(core.CurrencyDecimals), true
}

// ValidatePayload checks every field of p and the cross-field totals. The
// matching-funds sum is compared whenever both totals parse as non-negative
// amounts and every matching entry is valid, even if the grant exceeds the
// total. The cost-match floor is checked only once that sum matches, and its
// message replaces the sum message on the same key.
func ValidatePayload(p RawPayload, allowed CategorySet) FieldErrors {
	errs := FieldErrors{}

	total, totalOK := validateAmount(p.TotalProjectCost, KeyTotalProjectCost, "Total project cost", errs)
	grant, grantOK := validateAmount(p.GrantAmountRequested, KeyGrantAmountRequested, "Grant amount", errs)
	pairOK := totalOK && grantOK
	if pairOK && grant.GreaterThan(total.Decimal) {
		errs[KeyGrantAmountRequested] = "Grant amount cannot exceed total project cost"
	}

	funds, fundErrs := NormalizeMatchingFunds(p.MatchingFunds)
	errs.Merge(fundErrs)
	if pairOK && fundErrs.Empty() {
		matching := core.SumMatchingFunds(funds)
		expected := total.Sub(grant)
		if !matching.Within(expected, Tolerance) {
			errs[KeyMatchingFunds] = fmt.Sprintf(
				"Matching funds total (%s) must equal total cost minus grant (%s)",
				matching.USD(), expected.USD())
		} else if total.IsPositive() {
			if pct, ok := ComputeCostMatchPercentage(total, matching); ok && pct.LessThan(MinCostMatchPercent) {
				errs[KeyMatchingFunds] = fmt.Sprintf(
					"Cost-match percentage (%s%%) must be at least %s%%",
					pct.StringFixed(1), MinCostMatchPercent.StringFixed(1))
			}
		}
	}

	items, itemErrs := NormalizeLineItems(p.LineItemBudget, allowed)
	errs.Merge(itemErrs)
	if totalOK && itemErrs.Empty() && len(items) > 0 {
		sum := core.SumLineItems(items)
		if !sum.Within(total, Tolerance) {
			errs[KeyLineItemBudget] = fmt.Sprintf(
				"Line items must sum to total project cost (%s); current sum %s",
				total.USD(), sum.USD())
		}
	}

	return errs
}

// validateAmount records a field error for a required non-negative amount
// and reports whether the value is usable.
func validateAmount(raw json.RawMessage, key, label string, errs FieldErrors) (core.Money, bool) {
	m, err := parseAmount(raw)
	switch {
	case errors.Is(err, errMissing):
		errs[key] = label + " is required"
		return m, false
	case err != nil:
		errs[key] = "Enter a valid amount"
		return m, false
	case m.IsNegative():
		errs[key] = label + " must be zero or greater"
		return m, false
	}
	return m, true
}

// SectionComplete re-validates a stored record. A nil record is never
// complete.
func SectionComplete(rec *core.FinancialInformation, allowed CategorySet) bool {
	if rec == nil {
		return false
	}
	return ValidatePayload(ToRawPayload(*rec), allowed).Empty()
}
