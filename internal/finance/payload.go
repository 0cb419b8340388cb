package finance

import (
	"bytes"
	"encoding/json"
	"errors"

	"forestgrant/internal/core"
)

// RawPayload is the financial section as submitted by a client. Each field
// is kept undecoded so a wrong shape becomes a field error instead of a
// request-level decode failure.
type RawPayload struct {
	TotalProjectCost     json.RawMessage `json:"total_project_cost,omitempty"`
	GrantAmountRequested json.RawMessage `json:"grant_amount_requested,omitempty"`
	MatchingFunds        json.RawMessage `json:"matching_funds,omitempty"`
	LineItemBudget       json.RawMessage `json:"line_item_budget,omitempty"`
}

type rawMatchingFund struct {
	SourceName json.RawMessage `json:"source_name"`
	Amount     json.RawMessage `json:"amount"`
	Type       json.RawMessage `json:"type"`
}

type rawLineItem struct {
	Category    json.RawMessage `json:"category"`
	Description json.RawMessage `json:"description"`
	Amount      json.RawMessage `json:"amount"`
}

var errMissing = errors.New("missing value")

// absent reports whether raw is omitted or JSON null.
func absent(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// decodeList splits a JSON array into its elements. Omitted or null input
// is an empty list; any other non-array value fails.
func decodeList(raw json.RawMessage) ([]json.RawMessage, bool) {
	if absent(raw) {
		return nil, true
	}
	t := bytes.TrimSpace(raw)
	if t[0] != '[' {
		return nil, false
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(t, &elems); err != nil {
		return nil, false
	}
	return elems, true
}

// decodeObject decodes elem into dst only when elem is a JSON object.
func decodeObject(elem json.RawMessage, dst any) bool {
	t := bytes.TrimSpace(elem)
	if len(t) == 0 || t[0] != '{' {
		return false
	}
	return json.Unmarshal(t, dst) == nil
}

// stringField returns the string held by raw. Absent values and non-string
// values both yield "".
func stringField(raw json.RawMessage) string {
	if absent(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// parseAmount accepts a JSON number or a numeric string. It returns
// errMissing for omitted, null or empty-string values and
// core.ErrInvalidAmount for anything else that is not a number. Negative
// numbers parse successfully.
func parseAmount(raw json.RawMessage) (core.Money, error) {
	if absent(raw) {
		return core.Money{}, errMissing
	}
	t := bytes.TrimSpace(raw)
	switch {
	case t[0] == '"':
		var s string
		if err := json.Unmarshal(t, &s); err != nil {
			return core.Money{}, core.ErrInvalidAmount
		}
		if len(bytes.TrimSpace([]byte(s))) == 0 {
			return core.Money{}, errMissing
		}
		return core.ParseMoney(s)
	case t[0] == '-' || (t[0] >= '0' && t[0] <= '9'):
		return core.ParseMoney(string(t))
	default:
		// booleans, objects and arrays
		return core.Money{}, core.ErrInvalidAmount
	}
}

// ToRawPayload re-encodes a stored record so it can be validated again.
func ToRawPayload(rec core.FinancialInformation) RawPayload {
	var p RawPayload
	if rec.TotalProjectCost != nil {
		p.TotalProjectCost = encode(rec.TotalProjectCost)
	}
	if rec.GrantAmountRequested != nil {
		p.GrantAmountRequested = encode(rec.GrantAmountRequested)
	}
	if rec.MatchingFunds != nil {
		p.MatchingFunds = encode(rec.MatchingFunds)
	}
	if rec.LineItemBudget != nil {
		p.LineItemBudget = encode(rec.LineItemBudget)
	}
	return p
}

func encode(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
