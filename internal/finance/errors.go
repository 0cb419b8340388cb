// Package finance validates the financial section of a grant application
// and computes its derived cost-match percentage.
//
// Every function here is pure: no I/O, no shared state. Malformed input is
// reported as FieldErrors and never as a Go error or panic.
package finance

import (
	"fmt"
	"sort"
)

// Field paths used as FieldErrors keys.
const (
	KeyTotalProjectCost     = "total_project_cost"
	KeyGrantAmountRequested = "grant_amount_requested"
	KeyMatchingFunds        = "matching_funds"
	KeyLineItemBudget       = "line_item_budget"
)

// FieldErrors maps a field path such as "matching_funds[0].amount" to a
// human-readable message. An empty map means the section is complete.
type FieldErrors map[string]string

// Empty reports whether no field failed validation.
func (e FieldErrors) Empty() bool {
	return len(e) == 0
}

// Merge copies other into e, overwriting existing keys.
func (e FieldErrors) Merge(other FieldErrors) {
	for k, v := range other {
		e[k] = v
	}
}

// Keys returns the field paths in sorted order.
func (e FieldErrors) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func entryPath(list string, i int) string {
	return fmt.Sprintf("%s[%d]", list, i)
}

func fieldPath(list string, i int, field string) string {
	return fmt.Sprintf("%s[%d].%s", list, i, field)
}
