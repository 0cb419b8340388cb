package core

// SumMatchingFunds totals the non-negative matching-fund amounts.
func SumMatchingFunds(funds []MatchingFund) Money {
	var total Money
	for _, f := range funds {
		if f.Amount.IsNegative() {
			continue
		}
		total = total.Add(f.Amount)
	}
	return total
}

// SumLineItems totals the non-negative line-item amounts.
func SumLineItems(items []LineItem) Money {
	var total Money
	for _, li := range items {
		if li.Amount.IsNegative() {
			continue
		}
		total = total.Add(li.Amount)
	}
	return total
}
