package bridge

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// TerminalBridge drives a physical terminal through the local terminal
// daemon's websocket endpoint. One request is in flight at a time; the
// daemon serializes access to the hardware.
type TerminalBridge struct {
	Endpoint string

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewTerminalBridge(endpoint string) *TerminalBridge {
	return &TerminalBridge{Endpoint: endpoint}
}

type terminalRequest struct {
	Type     string `json:"type"`
	Amount   string `json:"amount,omitempty"`
	Currency string `json:"currency,omitempty"`
}

type terminalResponse struct {
	Type          string `json:"type"`
	OK            bool   `json:"ok"`
	Status        string `json:"status,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
	Error         string `json:"error,omitempty"`
}

func (b *TerminalBridge) Initialize(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil {
		_ = b.conn.Close()
		b.conn = nil
	}

	dialer := websocket.Dialer{}
	conn, _, err := dialer.DialContext(ctx, b.Endpoint, nil)
	if err != nil {
		return err
	}

	if err := conn.WriteJSON(terminalRequest{Type: "initialize"}); err != nil {
		_ = conn.Close()
		return err
	}

	var resp terminalResponse
	if err := conn.ReadJSON(&resp); err != nil {
		_ = conn.Close()
		return err
	}
	if !resp.OK {
		_ = conn.Close()
		if resp.Error != "" {
			return errors.New(resp.Error)
		}
		return errors.New("terminal initialization rejected")
	}

	b.conn = conn
	return nil
}

func (b *TerminalBridge) StartPayment(ctx context.Context, amount decimal.Decimal, currency string) (*Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return nil, errors.New("terminal not initialized")
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = b.conn.SetReadDeadline(deadline)
	}

	req := terminalRequest{
		Type:     "start_payment",
		Amount:   amount.String(),
		Currency: currency,
	}
	if err := b.conn.WriteJSON(req); err != nil {
		return nil, err
	}

	// The daemon replies once the card read has settled.
	var resp terminalResponse
	if err := b.conn.ReadJSON(&resp); err != nil {
		return nil, err
	}

	return &Result{
		Status:        resp.Status,
		TransactionID: resp.TransactionID,
		ErrorMessage:  resp.Error,
	}, nil
}

func (b *TerminalBridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		_ = b.conn.Close()
		b.conn = nil
	}
}
