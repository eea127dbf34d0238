package gateway

import (
	"context"
	"strings"

	"MerchantCheckout/internal/models"

	"github.com/rs/zerolog"
)

// AuditStore is the append-only payment log; *store.Store satisfies it.
type AuditStore interface {
	InsertAuditEntry(ctx context.Context, entry *models.AuditEntry) error
}

// mapVendorStatus folds the status vocabulary of the vendor APIs into the
// normalized set.
func mapVendorStatus(s string) models.PaymentStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "completed", "complete", "success", "succeeded", "approved":
		return models.StatusCompleted
	case "pending", "processing", "initiated":
		return models.StatusPending
	case "cancelled", "canceled", "voided":
		return models.StatusCancelled
	default:
		return models.StatusFailed
	}
}

// normalize enforces the result invariant: success=true only with a
// completed or pending status. Every gateway result passes through here
// before reaching a caller.
func normalize(res *models.PaymentResult) *models.PaymentResult {
	switch res.Status {
	case models.StatusCompleted, models.StatusPending:
	case models.StatusFailed, models.StatusCancelled:
		res.Success = false
	default:
		res.Status = models.StatusFailed
		res.Success = false
	}
	return res
}

// Normalize is the shared result-normalization step the orchestrator
// applies to every branch.
func Normalize(res *models.PaymentResult) *models.PaymentResult {
	return normalize(res)
}

// recordAudit appends a payment outcome to the audit log. Log failures are
// swallowed: they must never block or change a payment result.
func recordAudit(ctx context.Context, audit AuditStore, logger zerolog.Logger, entry *models.AuditEntry) {
	if audit == nil {
		return
	}
	if err := audit.InsertAuditEntry(ctx, entry); err != nil {
		logger.Warn().Err(err).
			Str("gateway", entry.Gateway).
			Str("transactionId", entry.TransactionID).
			Msg("audit log write failed")
	}
}

func failedResult(msg string) *models.PaymentResult {
	return &models.PaymentResult{
		Success: false,
		Status:  models.StatusFailed,
		Error:   msg,
	}
}
