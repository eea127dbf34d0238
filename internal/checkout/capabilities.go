package checkout

import "MerchantCheckout/internal/models"

// CapabilityChecker answers whether a wallet payment method can be
// offered at all on this installation.
type CapabilityChecker interface {
	ApplePayAvailable() bool
	GooglePayAvailable() bool
}

// CredentialCapabilities derives wallet availability from the loaded
// merchant credentials: a wallet method needs both its feature flag and a
// configured wallet vendor identity.
type CredentialCapabilities struct {
	Credentials interface {
		Cached() *models.MerchantCredentials
	}
}

func (c CredentialCapabilities) ApplePayAvailable() bool {
	rec := c.Credentials.Cached()
	return rec != nil && rec.ApplePayEnabled && !rec.Wallet.Empty()
}

func (c CredentialCapabilities) GooglePayAvailable() bool {
	rec := c.Credentials.Cached()
	return rec != nil && rec.GooglePayEnabled && !rec.Wallet.Empty()
}
