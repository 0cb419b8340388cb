package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// FinancialSavedMessage announces that an application's financial section
// was written. It carries a summary only; consumers read the record from
// the store if they need more.
type FinancialSavedMessage struct {
	ApplicationID       uuid.UUID `json:"application_id"`
	UserID              uuid.UUID `json:"user_id"`
	SectionComplete     bool      `json:"section_complete"`
	ErrorCount          int       `json:"error_count"`
	CostMatchPercentage *string   `json:"cost_match_percentage,omitempty"`
	Timestamp           time.Time `json:"timestamp"`
}

var errMissingApplicationID = errors.New("message has no application_id")

func NewFinancialSavedMessage(appID, userID uuid.UUID, complete bool, errorCount int, pct *string) *FinancialSavedMessage {
	return &FinancialSavedMessage{
		ApplicationID:       appID,
		UserID:              userID,
		SectionComplete:     complete,
		ErrorCount:          errorCount,
		CostMatchPercentage: pct,
		Timestamp:           time.Now().UTC(),
	}
}

func (m *FinancialSavedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FinancialSavedMessageFromJSON decodes a message body. Bodies without an
// application id are rejected.
func FinancialSavedMessageFromJSON(data []byte) (*FinancialSavedMessage, error) {
	var msg FinancialSavedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ApplicationID == uuid.Nil {
		return nil, errMissingApplicationID
	}
	return &msg, nil
}
