package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	StatusCompleted PaymentStatus = "completed"
	StatusPending   PaymentStatus = "pending"
	StatusFailed    PaymentStatus = "failed"
	StatusCancelled PaymentStatus = "cancelled"
)

type PaymentMethod string

const (
	MethodCard      PaymentMethod = "CARD"
	MethodCash      PaymentMethod = "CASH"
	MethodTapToPay  PaymentMethod = "TAP_TO_PAY"
	MethodCBDC      PaymentMethod = "CBDC"
	MethodApplePay  PaymentMethod = "APPLE_PAY"
	MethodGooglePay PaymentMethod = "GOOGLE_PAY"
	MethodWiPay     PaymentMethod = "WIPAY"
	MethodLynk      PaymentMethod = "LYNK"
)

// PaymentResult is the normalized shape every gateway returns.
// Success=true implies Status is completed or pending, never failed.
type PaymentResult struct {
	Success       bool          `json:"success"`
	TransactionID string        `json:"transactionId,omitempty"`
	Status        PaymentStatus `json:"status"`
	Error         string        `json:"error,omitempty"`
}

// CheckoutOptions describes one payment request. Amount is in major
// currency units (10.50 means ten dollars fifty cents) and must be
// positive.
type CheckoutOptions struct {
	MerchantID    string            `json:"merchantId"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	PaymentMethod PaymentMethod     `json:"paymentMethod"`
	CartItems     []CartItem        `json:"cartItems,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// CartItem is pass-through data for vendor receipts; the checkout core
// never inspects it.
type CartItem struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// VendorCredentials is one vendor's API identity.
type VendorCredentials struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	BaseURL  string `json:"baseUrl,omitempty"`
}

func (v VendorCredentials) Empty() bool {
	return v.Username == "" && v.Password == "" && v.BaseURL == ""
}

// MerchantCredentials is the logical per-merchant record assembled from
// the fasstap_credentials and wallet_credentials tables.
type MerchantCredentials struct {
	MerchantID string            `json:"merchantId"`
	Fasstap    VendorCredentials `json:"fasstap"`
	CBDC       VendorCredentials `json:"cbdc"`
	Wallet     VendorCredentials `json:"wallet"`

	BridgeEnabled    bool `json:"bridgeEnabled"`
	CBDCEnabled      bool `json:"cbdcEnabled"`
	ApplePayEnabled  bool `json:"applePayEnabled"`
	GooglePayEnabled bool `json:"googlePayEnabled"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type DeviceStatus string

const (
	DeviceActive   DeviceStatus = "active"
	DeviceInactive DeviceStatus = "inactive"
)

// DeviceHeartbeat is one row of the device_heartbeats table.
type DeviceHeartbeat struct {
	DeviceID   string
	MerchantID string
	Status     DeviceStatus
	LastPingAt time.Time
}

// AuditEntry is one row of the append-only payment_audit_log table.
type AuditEntry struct {
	MerchantID    string
	Gateway       string
	Amount        decimal.Decimal
	Currency      string
	TransactionID string
	Status        string
	ErrorMessage  string
	CreatedAt     time.Time
}
