package finance

import "forestgrant/internal/core"

// View is the display shape of a stored financial record. The cost-match
// percentage is always recomputed from the stored totals.
type View struct {
	TotalProjectCost     *core.Money         `json:"total_project_cost"`
	GrantAmountRequested *core.Money         `json:"grant_amount_requested"`
	MatchingFunds        []core.MatchingFund `json:"matching_funds"`
	LineItemBudget       []core.LineItem     `json:"line_item_budget"`
	CostMatchPercentage  *float64            `json:"cost_match_percentage"`
}

// BuildView converts rec for display.
func BuildView(rec core.FinancialInformation) View {
	v := View{
		TotalProjectCost:     rec.TotalProjectCost,
		GrantAmountRequested: rec.GrantAmountRequested,
		MatchingFunds:        rec.MatchingFunds,
		LineItemBudget:       rec.LineItemBudget,
	}
	if v.MatchingFunds == nil {
		v.MatchingFunds = []core.MatchingFund{}
	}
	if v.LineItemBudget == nil {
		v.LineItemBudget = []core.LineItem{}
	}
	if rec.TotalProjectCost != nil {
		if pct, ok := ComputeCostMatchPercentage(*rec.TotalProjectCost, core.SumMatchingFunds(rec.MatchingFunds)); ok {
			f := pct.InexactFloat64()
			v.CostMatchPercentage = &f
		}
	}
	return v
}
