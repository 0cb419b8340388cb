// Package worker consumes financial-section notifications and records them
// in the audit log.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"forestgrant/internal/amqp"
	"forestgrant/internal/core"
	"forestgrant/internal/ports"
)

// ActionFinancialSaved is the audit action written for every save.
const ActionFinancialSaved = "financial_information.saved"

type AuditWorker struct {
	audit ports.AuditRecorder
}

func NewAuditWorker(audit ports.AuditRecorder) *AuditWorker {
	return &AuditWorker{audit: audit}
}

// HandleFinancialSaved writes one audit row for msg. A returned error makes
// the consumer requeue the message.
func (w *AuditWorker) HandleFinancialSaved(ctx context.Context, msg *amqp.FinancialSavedMessage) error {
	entry := core.AuditEntry{
		ApplicationID: msg.ApplicationID,
		Action:        ActionFinancialSaved,
		Detail:        auditDetail(msg),
		CreatedAt:     msg.Timestamp,
	}
	if err := w.audit.RecordAudit(ctx, entry); err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}

	slog.InfoContext(ctx, "Recorded financial save",
		"application_id", msg.ApplicationID,
		"section_complete", msg.SectionComplete,
		"error_count", msg.ErrorCount)
	return nil
}

// auditDetail renders msg as space-separated key=value pairs.
func auditDetail(msg *amqp.FinancialSavedMessage) string {
	parts := []string{
		fmt.Sprintf("user_id=%s", msg.UserID),
		fmt.Sprintf("section_complete=%t", msg.SectionComplete),
		fmt.Sprintf("error_count=%d", msg.ErrorCount),
	}
	if msg.CostMatchPercentage != nil {
		parts = append(parts, "cost_match_percentage="+*msg.CostMatchPercentage)
	}
	return strings.Join(parts, " ")
}
