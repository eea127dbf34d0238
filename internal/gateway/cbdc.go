package gateway

import (
	"context"

	"MerchantCheckout/internal/invoke"
	"MerchantCheckout/internal/models"

	"github.com/rs/zerolog"
)

// cancelPendingStatus pins what a vendor-reported "pending" on the cancel
// path maps to. The cloud service historically collapsed it to cancelled;
// that behavior is kept deliberately so downstream consumers see no
// change, and is covered by a test.
const cancelPendingStatus = models.StatusCancelled

// CBDCGateway drives digital-currency payments against the CBDC vendor
// proxy. Unlike the legacy gateway this is plain request/response: no
// pending-transaction correlation, the call itself is awaited.
type CBDCGateway struct {
	invoker invoke.Invoker
	audit   AuditStore
	logger  zerolog.Logger
}

func NewCBDCGateway(inv invoke.Invoker, audit AuditStore, logger zerolog.Logger) *CBDCGateway {
	return &CBDCGateway{
		invoker: inv,
		audit:   audit,
		logger:  logger.With().Str("component", "cbdc-gateway").Logger(),
	}
}

func (g *CBDCGateway) InitiatePayment(ctx context.Context, opts models.CheckoutOptions) *models.PaymentResult {
	if opts.MerchantID == "" {
		return failedResult("merchant not configured")
	}

	resp, err := g.invoker.Invoke(ctx, "cbdc-proxy", &invoke.Request{
		MerchantID: opts.MerchantID,
		Endpoint:   "/payments",
		Data: map[string]any{
			"amount":   opts.Amount.String(),
			"currency": opts.Currency,
			"metadata": opts.Metadata,
		},
	})
	if err != nil {
		res := failedResult(err.Error())
		g.auditResult(ctx, opts, res)
		return res
	}

	res := normalize(&models.PaymentResult{
		Success:       resp.Success,
		TransactionID: resp.TransactionID,
		Status:        mapVendorStatus(resp.Status),
		Error:         resp.Error,
	})
	g.auditResult(ctx, opts, res)
	return res
}

// GetTransactionStatus passes the vendor-reported status through
// unchanged (after vocabulary normalization).
func (g *CBDCGateway) GetTransactionStatus(ctx context.Context, merchantID, transactionID string) *models.PaymentResult {
	resp, err := g.invoker.Invoke(ctx, "cbdc-proxy", &invoke.Request{
		MerchantID: merchantID,
		Endpoint:   "/payments/" + transactionID + "/status",
	})
	if err != nil {
		return failedResult(err.Error())
	}
	return normalize(&models.PaymentResult{
		Success:       resp.Success,
		TransactionID: transactionID,
		Status:        mapVendorStatus(resp.Status),
		Error:         resp.Error,
	})
}

func (g *CBDCGateway) CancelPayment(ctx context.Context, merchantID, transactionID string) *models.PaymentResult {
	resp, err := g.invoker.Invoke(ctx, "cbdc-proxy", &invoke.Request{
		MerchantID: merchantID,
		Endpoint:   "/payments/" + transactionID + "/cancel",
	})
	if err != nil {
		return failedResult(err.Error())
	}

	status := mapVendorStatus(resp.Status)
	if status == models.StatusPending {
		status = cancelPendingStatus
	}
	return normalize(&models.PaymentResult{
		Success:       resp.Success,
		TransactionID: transactionID,
		Status:        status,
		Error:         resp.Error,
	})
}

func (g *CBDCGateway) auditResult(ctx context.Context, opts models.CheckoutOptions, res *models.PaymentResult) {
	status := "failed"
	if res.Success {
		status = "success"
	}
	recordAudit(ctx, g.audit, g.logger, &models.AuditEntry{
		MerchantID:    opts.MerchantID,
		Gateway:       "cbdc",
		Amount:        opts.Amount,
		Currency:      opts.Currency,
		TransactionID: res.TransactionID,
		Status:        status,
		ErrorMessage:  res.Error,
	})
}
