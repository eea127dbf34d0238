package checkout

import (
	"context"
	"errors"
	"fmt"

	"MerchantCheckout/internal/gateway"
	"MerchantCheckout/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrUnsupportedPaymentMethod marks a method with no wired gateway.
	// It is a programming/configuration error, surfaced as an error so it
	// cannot be mistaken for a runtime payment failure.
	ErrUnsupportedPaymentMethod = errors.New("unsupported payment method")

	// ErrInvalidAmount marks a non-positive amount. Amounts are major
	// currency units and validated here, at the orchestrator boundary.
	ErrInvalidAmount = errors.New("amount must be positive")
)

type BridgeGateway interface {
	StartPayment(ctx context.Context, opts models.CheckoutOptions) *models.PaymentResult
}

type LegacyGateway interface {
	InitiatePayment(ctx context.Context, opts models.CheckoutOptions) *models.PaymentResult
}

type CBDCGateway interface {
	InitiatePayment(ctx context.Context, opts models.CheckoutOptions) *models.PaymentResult
}

// Flags is the feature-flag view dispatch depends on; *settings.Cache
// satisfies it.
type Flags interface {
	IsBridgeEnabled() bool
	IsCBDCEnabled() bool
}

// Orchestrator is the single entry point for payments. It inspects the
// requested method and the feature flags at call time and dispatches to
// the matching gateway; every branch returns the same normalized result
// shape.
type Orchestrator struct {
	flags  Flags
	bridge BridgeGateway
	legacy LegacyGateway
	cbdc   CBDCGateway
	logger zerolog.Logger

	defaultCurrency string
}

func NewOrchestrator(flags Flags, bridgeGW BridgeGateway, legacyGW LegacyGateway, cbdcGW CBDCGateway, defaultCurrency string, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		flags:           flags,
		bridge:          bridgeGW,
		legacy:          legacyGW,
		cbdc:            cbdcGW,
		defaultCurrency: defaultCurrency,
		logger:          logger.With().Str("component", "checkout").Logger(),
	}
}

func (o *Orchestrator) ProcessPayment(ctx context.Context, opts models.CheckoutOptions) (*models.PaymentResult, error) {
	if opts.MerchantID == "" {
		// Never proceed with a null identity.
		return gateway.Normalize(&models.PaymentResult{
			Success: false,
			Status:  models.StatusFailed,
			Error:   "merchant not configured",
		}), nil
	}
	if !opts.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidAmount, opts.Amount)
	}
	if opts.Currency == "" {
		opts.Currency = o.defaultCurrency
	}

	switch opts.PaymentMethod {
	case models.MethodCard, models.MethodCash:
		// Card and cash are settled by the point checkout is invoked;
		// synthesize a completed result without a network call.
		return gateway.Normalize(&models.PaymentResult{
			Success:       true,
			TransactionID: "pos-" + uuid.NewString(),
			Status:        models.StatusCompleted,
		}), nil

	case models.MethodTapToPay:
		if o.flags.IsBridgeEnabled() {
			o.logger.Info().Str("merchantId", opts.MerchantID).Msg("dispatching tap-to-pay via bridge")
			return gateway.Normalize(o.bridge.StartPayment(ctx, opts)), nil
		}
		o.logger.Info().Str("merchantId", opts.MerchantID).Msg("dispatching tap-to-pay via cloud")
		return gateway.Normalize(o.legacy.InitiatePayment(ctx, opts)), nil

	case models.MethodCBDC:
		// CBDC routes to its own gateway regardless of the bridge flag.
		return gateway.Normalize(o.cbdc.InitiatePayment(ctx, opts)), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPaymentMethod, opts.PaymentMethod)
	}
}
