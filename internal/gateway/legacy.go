package gateway

import (
	"context"
	"sync"
	"time"

	"MerchantCheckout/internal/invoke"
	"MerchantCheckout/internal/models"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Listener observes every payment result the legacy gateway produces,
// the interim pending result included. Callers that only want the final
// outcome filter on Status != pending.
type Listener func(models.PaymentResult)

type pendingTx struct {
	ref        string
	merchantID string
	amount     decimal.Decimal
	currency   string
	createdAt  time.Time
	timer      *clock.Timer
	done       chan models.PaymentResult
}

// LegacyGateway drives tap-to-pay through the cloud API. Completion
// arrives out of band (webhook or notification feed), correlated back by
// a locally generated transaction reference through the pending table.
type LegacyGateway struct {
	invoker invoke.Invoker
	audit   AuditStore
	clock   clock.Clock
	timeout time.Duration
	logger  zerolog.Logger

	mu        sync.Mutex
	pending   map[string]*pendingTx
	listeners map[int]Listener
	nextID    int
}

func NewLegacyGateway(inv invoke.Invoker, audit AuditStore, clk clock.Clock, timeout time.Duration, logger zerolog.Logger) *LegacyGateway {
	if clk == nil {
		clk = clock.New()
	}
	return &LegacyGateway{
		invoker:   inv,
		audit:     audit,
		clock:     clk,
		timeout:   timeout,
		logger:    logger.With().Str("component", "legacy-gateway").Logger(),
		pending:   make(map[string]*pendingTx),
		listeners: make(map[int]Listener),
	}
}

// AddPaymentListener registers fn and returns its unsubscribe function.
func (g *LegacyGateway) AddPaymentListener(fn Listener) func() {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.listeners[id] = fn
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		delete(g.listeners, id)
		g.mu.Unlock()
	}
}

func (g *LegacyGateway) notifyListeners(res models.PaymentResult) {
	g.mu.Lock()
	fns := make([]Listener, 0, len(g.listeners))
	for _, fn := range g.listeners {
		fns = append(fns, fn)
	}
	g.mu.Unlock()

	for _, fn := range fns {
		fn(res)
	}
}

// PendingCount reports the size of the pending-transaction table.
func (g *LegacyGateway) PendingCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

// InitiatePayment starts a cloud tap-to-pay transaction and blocks until
// it settles: external notification, timeout, or caller cancellation,
// whichever wins first.
func (g *LegacyGateway) InitiatePayment(ctx context.Context, opts models.CheckoutOptions) *models.PaymentResult {
	if opts.MerchantID == "" {
		return failedResult("merchant not configured")
	}

	ref := "ttp-" + uuid.NewString()
	p := g.register(ref, opts)

	resp, err := g.invoker.Invoke(ctx, "fasstap-proxy", &invoke.Request{
		MerchantID: opts.MerchantID,
		Endpoint:   "/payments/initiate",
		Data: map[string]any{
			"amount":         opts.Amount.String(),
			"currency":       opts.Currency,
			"transactionRef": ref,
			"metadata":       opts.Metadata,
		},
	})
	if err != nil {
		res := failedResult(err.Error())
		g.settle(ref, *res)
		return res
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "payment initiation rejected"
		}
		res := failedResult(msg)
		g.settle(ref, *res)
		return res
	}

	transactionID := resp.TransactionID
	if transactionID == "" {
		transactionID = ref
	}
	g.notifyListeners(models.PaymentResult{
		Success:       true,
		TransactionID: transactionID,
		Status:        models.StatusPending,
	})

	select {
	case res := <-p.done:
		return &res
	case <-ctx.Done():
		cancelled := models.PaymentResult{
			Success:       false,
			TransactionID: transactionID,
			Status:        models.StatusCancelled,
			Error:         "payment abandoned: " + ctx.Err().Error(),
		}
		if g.settle(ref, cancelled) {
			return &cancelled
		}
		// Lost the race: an external settlement already landed.
		res := <-p.done
		return &res
	}
}

func (g *LegacyGateway) register(ref string, opts models.CheckoutOptions) *pendingTx {
	p := &pendingTx{
		ref:        ref,
		merchantID: opts.MerchantID,
		amount:     opts.Amount,
		currency:   opts.Currency,
		createdAt:  g.clock.Now(),
		done:       make(chan models.PaymentResult, 1),
	}

	g.mu.Lock()
	g.pending[ref] = p
	p.timer = g.clock.AfterFunc(g.timeout, func() {
		g.settle(ref, models.PaymentResult{
			Success:       false,
			TransactionID: ref,
			Status:        models.StatusFailed,
			Error:         "payment timeout: no completion received",
		})
	})
	g.mu.Unlock()
	return p
}

// settle resolves a pending entry exactly once. The first writer, external
// notification, timeout or cancellation, wins; later attempts find the
// entry gone and are silent no-ops.
func (g *LegacyGateway) settle(ref string, res models.PaymentResult) bool {
	g.mu.Lock()
	p, ok := g.pending[ref]
	if !ok {
		g.mu.Unlock()
		return false
	}
	delete(g.pending, ref)
	g.mu.Unlock()

	if p.timer != nil {
		p.timer.Stop()
	}

	normalize(&res)
	p.done <- res

	status := "failed"
	if res.Success {
		status = "success"
	}
	recordAudit(context.Background(), g.audit, g.logger, &models.AuditEntry{
		MerchantID:    p.merchantID,
		Gateway:       "fasstap-cloud",
		Amount:        p.amount,
		Currency:      p.currency,
		TransactionID: res.TransactionID,
		Status:        status,
		ErrorMessage:  res.Error,
	})

	g.notifyListeners(res)
	return true
}

// HandleNotification settles a pending transaction from an out-of-band
// completion signal. Interim pending updates are forwarded to listeners
// without settling. Returns false when the reference is unknown or
// already settled.
func (g *LegacyGateway) HandleNotification(ref string, res models.PaymentResult) bool {
	if res.TransactionID == "" {
		res.TransactionID = ref
	}
	if res.Status == models.StatusPending {
		g.mu.Lock()
		_, known := g.pending[ref]
		g.mu.Unlock()
		if known {
			g.notifyListeners(*normalize(&res))
		}
		return known
	}
	handled := g.settle(ref, res)
	if !handled {
		g.logger.Debug().Str("transactionRef", ref).Msg("notification for unknown or settled transaction")
	}
	return handled
}
