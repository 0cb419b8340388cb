package finance

import "forestgrant/internal/core"

// CategorySet is the set of budget-category codes a line item may use.
// An empty set disables the membership check.
type CategorySet map[string]struct{}

// NewCategorySet builds a set from codes, normalizing each one.
func NewCategorySet(codes ...string) CategorySet {
	s := make(CategorySet, len(codes))
	for _, c := range codes {
		c = core.NormalizeCategoryCode(c)
		if c == "" {
			continue
		}
		s[c] = struct{}{}
	}
	return s
}

// CategorySetFrom builds a set from reference-data rows.
func CategorySetFrom(categories []core.BudgetCategory) CategorySet {
	codes := make([]string, len(categories))
	for i, c := range categories {
		codes[i] = c.Code
	}
	return NewCategorySet(codes...)
}

func (s CategorySet) Contains(code string) bool {
	_, ok := s[code]
	return ok
}

func (s CategorySet) Len() int {
	return len(s)
}
