package bridge

import (
	"context"

	"github.com/shopspring/decimal"
)

// Result is the raw outcome a bridge reports for one hardware payment.
type Result struct {
	Status        string
	TransactionID string
	ErrorMessage  string
}

// Bridge is the boundary to the tap-to-pay hardware SDK. Initialize must
// succeed before StartPayment is callable; the bridge internally drives
// the card read and returns once the hardware flow has settled.
type Bridge interface {
	Initialize(ctx context.Context) error
	StartPayment(ctx context.Context, amount decimal.Decimal, currency string) (*Result, error)
}
