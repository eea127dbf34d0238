package gateway

import (
	"context"
	"encoding/json"
	"time"

	"MerchantCheckout/internal/models"

	"github.com/facebookgo/clock"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	notifyConnectBackoff = 3 * time.Second
	notifyReadBackoff    = 2 * time.Second
)

// NotifyListener subscribes to the vendor notification feed and settles
// pending legacy-gateway transactions as completion events arrive. The
// HTTP callback endpoint is the second inbound path for the same
// settlements; settle-once semantics make the two safe to run together.
type NotifyListener struct {
	Endpoint string
	Legacy   *LegacyGateway
	Clock    clock.Clock
	Logger   zerolog.Logger
}

type notifyEvent struct {
	TransactionRef string `json:"transactionRef"`
	TransactionID  string `json:"transactionId,omitempty"`
	Status         string `json:"status"`
	Error          string `json:"error,omitempty"`
}

func (l *NotifyListener) Run(ctx context.Context) {
	logger := l.Logger.With().Str("component", "notify-listener").Logger()
	if l.Endpoint == "" {
		logger.Info().Msg("notification feed disabled: endpoint is empty")
		return
	}
	clk := l.Clock
	if clk == nil {
		clk = clock.New()
	}

	for ctx.Err() == nil {
		dialer := websocket.Dialer{}
		conn, _, err := dialer.DialContext(ctx, l.Endpoint, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("notification feed connect failed")
			sleep(ctx, clk, notifyConnectBackoff)
			continue
		}
		logger.Info().Str("endpoint", l.Endpoint).Msg("notification feed connected")

		l.readLoop(ctx, conn, logger)
		sleep(ctx, clk, notifyReadBackoff)
	}
}

// readLoop consumes the feed until the connection drops or the context is
// cancelled. Cancellation closes the connection to unblock the read.
func (l *NotifyListener) readLoop(ctx context.Context, conn *websocket.Conn, logger zerolog.Logger) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn().Err(err).Msg("notification feed read failed")
			}
			return
		}

		var ev notifyEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			logger.Warn().Err(err).Msg("notification parse failed")
			continue
		}
		if ev.TransactionRef == "" {
			continue
		}

		status := mapVendorStatus(ev.Status)
		l.Legacy.HandleNotification(ev.TransactionRef, models.PaymentResult{
			Success:       status == models.StatusCompleted || status == models.StatusPending,
			TransactionID: ev.TransactionID,
			Status:        status,
			Error:         ev.Error,
		})
	}
}

func sleep(ctx context.Context, clk clock.Clock, d time.Duration) {
	timer := clk.Timer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
