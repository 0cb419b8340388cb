package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	FundCash   FundType = "cash"
	FundInKind FundType = "in_kind"

	StatusDraft     ApplicationStatus = "draft"
	StatusSubmitted ApplicationStatus = "submitted"
)

type (
	FundType          string
	ApplicationStatus string

	Money struct {
		decimal.Decimal
	}

	// MatchingFund is a non-grant funding source.
	MatchingFund struct {
		SourceName string   `json:"source_name"`
		Amount     Money    `json:"amount"`
		Type       FundType `json:"type"`
	}

	// LineItem is one budgeted expense.
	LineItem struct {
		Category    string `json:"category"`
		Description string `json:"description"`
		Amount      Money  `json:"amount"`
	}

	// FinancialInformation is the stored financial section of one
	// application. Totals are nil until the applicant enters a valid value.
	FinancialInformation struct {
		ApplicationID        uuid.UUID
		TotalProjectCost     *Money
		GrantAmountRequested *Money
		MatchingFunds        []MatchingFund
		LineItemBudget       []LineItem
		UpdatedAt            time.Time
	}

	Application struct {
		ID        uuid.UUID
		UserID    uuid.UUID
		Status    ApplicationStatus
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	BudgetCategory struct {
		Code  string `json:"code"`
		Label string `json:"label"`
	}

	AuditEntry struct {
		ID            int64
		ApplicationID uuid.UUID
		Action        string
		Detail        string
		CreatedAt     time.Time
	}
)

var (
	ErrEmptySourceName  = errors.New("empty source name")
	ErrInvalidFundType  = errors.New("type must be cash or in_kind")
	ErrEmptyCategory    = errors.New("empty category")
	ErrInvalidStatus    = errors.New("invalid application status")
	ErrEmptyAuditAction = errors.New("empty audit action")
)

// ParseFundType normalizes s and checks it against the known fund types.
func ParseFundType(s string) (FundType, error) {
	t := FundType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrInvalidFundType
	}
	return t, nil
}

func (t FundType) Valid() bool {
	return t == FundCash || t == FundInKind
}

func (s ApplicationStatus) Valid() bool {
	return s == StatusDraft || s == StatusSubmitted
}

// NormalizeCategoryCode trims and lower-cases a budget category code.
func NormalizeCategoryCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func (m Money) Validate() error {
	if m.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

func (f MatchingFund) Validate() error {
	if strings.TrimSpace(f.SourceName) == "" {
		return ErrEmptySourceName
	}
	if err := f.Amount.Validate(); err != nil {
		return err
	}
	if !f.Type.Valid() {
		return ErrInvalidFundType
	}
	return nil
}

func (li LineItem) Validate() error {
	if NormalizeCategoryCode(li.Category) == "" {
		return ErrEmptyCategory
	}
	return li.Amount.Validate()
}

// Validate checks what every persisted record must satisfy: non-negative
// totals and fully valid list entries.
func (fi FinancialInformation) Validate() error {
	for _, m := range []*Money{fi.TotalProjectCost, fi.GrantAmountRequested} {
		if m == nil {
			continue
		}
		if err := m.Validate(); err != nil {
			return err
		}
	}
	for i, f := range fi.MatchingFunds {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("matching fund %d: %w", i, err)
		}
	}
	for i, li := range fi.LineItemBudget {
		if err := li.Validate(); err != nil {
			return fmt.Errorf("line item %d: %w", i, err)
		}
	}
	return nil
}

// CanEdit reports whether the applicant may still change the application.
func (a Application) CanEdit() bool {
	return a.Status == StatusDraft
}

func (a Application) Validate() error {
	if a.ID == uuid.Nil || a.UserID == uuid.Nil {
		return errors.New("application and user ids are required")
	}
	if !a.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

func (e AuditEntry) Validate() error {
	if e.ApplicationID == uuid.Nil {
		return errors.New("audit entry requires an application id")
	}
	if strings.TrimSpace(e.Action) == "" {
		return ErrEmptyAuditAction
	}
	return nil
}
