package gateway

import (
	"context"
	"errors"
	"sync"

	"MerchantCheckout/internal/bridge"
	"MerchantCheckout/internal/models"

	"github.com/rs/zerolog"
)

var (
	ErrBridgeNotConfigured = errors.New("merchant not configured")
	ErrBridgeBusy          = errors.New("bridge payment already in progress")
)

type bridgeState int

const (
	stateUninitialized bridgeState = iota
	stateInitializing
	stateReady
	stateAwaitingHardware
)

// DeviceChecker reports whether a payment terminal is currently
// connected; *devices.Registry satisfies it.
type DeviceChecker interface {
	IsDeviceConnected() bool
}

// BridgeGateway drives the tap-to-pay flow through the hardware bridge.
// Initialize must succeed before a payment can run; StartPayment performs
// it on demand from the uninitialized state, so enabling bridge mode at
// runtime needs no restart.
type BridgeGateway struct {
	bridge  bridge.Bridge
	devices DeviceChecker
	audit   AuditStore
	logger  zerolog.Logger

	mu         sync.Mutex
	state      bridgeState
	merchantID string
}

func NewBridgeGateway(b bridge.Bridge, devices DeviceChecker, audit AuditStore, logger zerolog.Logger) *BridgeGateway {
	return &BridgeGateway{
		bridge:  b,
		devices: devices,
		audit:   audit,
		logger:  logger.With().Str("component", "bridge-gateway").Logger(),
	}
}

func (g *BridgeGateway) Initialize(ctx context.Context, merchantID string) error {
	if merchantID == "" {
		return ErrBridgeNotConfigured
	}

	g.mu.Lock()
	if g.state == stateInitializing || g.state == stateAwaitingHardware {
		g.mu.Unlock()
		return ErrBridgeBusy
	}
	g.state = stateInitializing
	g.mu.Unlock()

	err := g.bridge.Initialize(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		g.state = stateUninitialized
		g.logger.Error().Err(err).Str("merchantId", merchantID).Msg("bridge initialization failed")
		return err
	}
	g.state = stateReady
	g.merchantID = merchantID
	g.logger.Info().Str("merchantId", merchantID).Msg("bridge initialized")
	return nil
}

// StartPayment runs one hardware payment. Every outcome, success or
// failure, is appended to the audit log before the result is returned.
func (g *BridgeGateway) StartPayment(ctx context.Context, opts models.CheckoutOptions) *models.PaymentResult {
	g.mu.Lock()
	uninitialized := g.state == stateUninitialized
	g.mu.Unlock()
	if uninitialized {
		// The bridge flag can be flipped on at runtime; initialize on
		// first use instead of requiring a restart.
		if err := g.Initialize(ctx, opts.MerchantID); err != nil {
			return failedResult(err.Error())
		}
	}

	g.mu.Lock()
	switch g.state {
	case stateReady:
	case stateAwaitingHardware:
		g.mu.Unlock()
		return failedResult("bridge payment already in progress")
	default:
		g.mu.Unlock()
		g.logger.Error().Msg("startPayment called before successful initialization")
		return failedResult("bridge gateway not initialized")
	}
	g.state = stateAwaitingHardware
	merchantID := g.merchantID
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.state = stateReady
		g.mu.Unlock()
	}()

	if g.devices != nil && !g.devices.IsDeviceConnected() {
		res := failedResult("no payment terminal connected")
		g.auditResult(ctx, merchantID, opts, res)
		return res
	}

	raw, err := g.bridge.StartPayment(ctx, opts.Amount, opts.Currency)
	if err != nil {
		res := failedResult(err.Error())
		g.auditResult(ctx, merchantID, opts, res)
		return res
	}

	res := normalize(&models.PaymentResult{
		Success:       true,
		TransactionID: raw.TransactionID,
		Status:        mapVendorStatus(raw.Status),
		Error:         raw.ErrorMessage,
	})
	g.auditResult(ctx, merchantID, opts, res)
	return res
}

func (g *BridgeGateway) auditResult(ctx context.Context, merchantID string, opts models.CheckoutOptions, res *models.PaymentResult) {
	status := "failed"
	if res.Success {
		status = "success"
	}
	recordAudit(ctx, g.audit, g.logger, &models.AuditEntry{
		MerchantID:    merchantID,
		Gateway:       "fasstap-bridge",
		Amount:        opts.Amount,
		Currency:      opts.Currency,
		TransactionID: res.TransactionID,
		Status:        status,
		ErrorMessage:  res.Error,
	})
}
