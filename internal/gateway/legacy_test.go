package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"MerchantCheckout/internal/invoke"
	"MerchantCheckout/internal/models"

	"github.com/facebookgo/clock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInvoker struct {
	mu    sync.Mutex
	calls []invoke.Request
	fn    func(function string, req *invoke.Request) (*invoke.Response, error)
}

func (f *fakeInvoker) Invoke(ctx context.Context, function string, req *invoke.Request) (*invoke.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, *req)
	f.mu.Unlock()
	return f.fn(function, req)
}

func (f *fakeInvoker) lastCall() invoke.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []models.AuditEntry
	err     error
}

func (f *fakeAudit) InsertAuditEntry(ctx context.Context, entry *models.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAudit) all() []models.AuditEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.AuditEntry, len(f.entries))
	copy(out, f.entries)
	return out
}

func testOptions() models.CheckoutOptions {
	return models.CheckoutOptions{
		MerchantID:    "m-1",
		Amount:        decimal.NewFromFloat(10),
		Currency:      "JMD",
		PaymentMethod: models.MethodTapToPay,
	}
}

func acceptingInvoker() *fakeInvoker {
	return &fakeInvoker{fn: func(function string, req *invoke.Request) (*invoke.Response, error) {
		return &invoke.Response{Success: true, TransactionID: "cloud-tx-1"}, nil
	}}
}

func newLegacy(t *testing.T, inv invoke.Invoker, audit AuditStore) (*LegacyGateway, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	gw := NewLegacyGateway(inv, audit, mock, 60*time.Second, testLogger())
	return gw, mock
}

func TestInitiatePaymentTimeout(t *testing.T) {
	gw, mock := newLegacy(t, acceptingInvoker(), &fakeAudit{})

	results := make(chan *models.PaymentResult, 1)
	go func() {
		results <- gw.InitiatePayment(context.Background(), testOptions())
	}()

	require.Eventually(t, func() bool { return gw.PendingCount() == 1 }, time.Second, time.Millisecond)

	mock.Add(61 * time.Second)

	res := <-results
	assert.False(t, res.Success)
	assert.Equal(t, models.StatusFailed, res.Status)
	assert.Contains(t, res.Error, "timeout")
	assert.Equal(t, 0, gw.PendingCount())
}

func TestInitiatePaymentExternalResolution(t *testing.T) {
	gw, mock := newLegacy(t, acceptingInvoker(), &fakeAudit{})

	results := make(chan *models.PaymentResult, 1)
	go func() {
		results <- gw.InitiatePayment(context.Background(), testOptions())
	}()

	require.Eventually(t, func() bool { return gw.PendingCount() == 1 }, time.Second, time.Millisecond)

	ref := gw.pendingRefs()[0]
	handled := gw.HandleNotification(ref, models.PaymentResult{
		Success:       true,
		TransactionID: "cloud-tx-1",
		Status:        models.StatusCompleted,
	})
	assert.True(t, handled)

	res := <-results
	assert.True(t, res.Success)
	assert.Equal(t, models.StatusCompleted, res.Status)
	assert.Equal(t, "cloud-tx-1", res.TransactionID)
	assert.Equal(t, 0, gw.PendingCount())

	// The timeout firing afterwards must be a silent no-op.
	mock.Add(61 * time.Second)
	assert.Equal(t, 0, gw.PendingCount())
}

func TestSettleIsIdempotent(t *testing.T) {
	gw, mock := newLegacy(t, acceptingInvoker(), &fakeAudit{})

	var mu sync.Mutex
	var finals []models.PaymentResult
	unsubscribe := gw.AddPaymentListener(func(res models.PaymentResult) {
		if res.Status == models.StatusPending {
			return
		}
		mu.Lock()
		finals = append(finals, res)
		mu.Unlock()
	})
	defer unsubscribe()

	results := make(chan *models.PaymentResult, 1)
	go func() {
		results <- gw.InitiatePayment(context.Background(), testOptions())
	}()
	require.Eventually(t, func() bool { return gw.PendingCount() == 1 }, time.Second, time.Millisecond)

	ref := gw.pendingRefs()[0]
	assert.True(t, gw.HandleNotification(ref, models.PaymentResult{Success: true, Status: models.StatusCompleted}))
	assert.False(t, gw.HandleNotification(ref, models.PaymentResult{Success: true, Status: models.StatusCompleted}))
	mock.Add(61 * time.Second)

	<-results
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, finals, 1)
	assert.Equal(t, models.StatusCompleted, finals[0].Status)
}

func TestInitiatePaymentInitiationFailure(t *testing.T) {
	tests := []struct {
		name string
		fn   func(function string, req *invoke.Request) (*invoke.Response, error)
		want string
	}{
		{
			name: "transport error",
			fn: func(function string, req *invoke.Request) (*invoke.Response, error) {
				return nil, errors.New("connection refused")
			},
			want: "connection refused",
		},
		{
			name: "vendor rejection",
			fn: func(function string, req *invoke.Request) (*invoke.Response, error) {
				return &invoke.Response{Success: false, Error: "invalid credentials"}, nil
			},
			want: "invalid credentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw, _ := newLegacy(t, &fakeInvoker{fn: tt.fn}, &fakeAudit{})

			res := gw.InitiatePayment(context.Background(), testOptions())
			assert.False(t, res.Success)
			assert.Equal(t, models.StatusFailed, res.Status)
			assert.Contains(t, res.Error, tt.want)
			assert.Equal(t, 0, gw.PendingCount())
		})
	}
}

func TestInitiatePaymentMissingMerchant(t *testing.T) {
	gw, _ := newLegacy(t, acceptingInvoker(), &fakeAudit{})

	opts := testOptions()
	opts.MerchantID = ""
	res := gw.InitiatePayment(context.Background(), opts)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "not configured")
	assert.Equal(t, 0, gw.PendingCount())
}

func TestListenersSeePendingThenFinal(t *testing.T) {
	inv := acceptingInvoker()
	gw, _ := newLegacy(t, inv, &fakeAudit{})

	var mu sync.Mutex
	var seen []models.PaymentStatus
	gw.AddPaymentListener(func(res models.PaymentResult) {
		mu.Lock()
		seen = append(seen, res.Status)
		mu.Unlock()
	})

	results := make(chan *models.PaymentResult, 1)
	go func() {
		results <- gw.InitiatePayment(context.Background(), testOptions())
	}()

	// Wait for the interim pending event so the settlement below cannot
	// outrun it.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, time.Second, time.Millisecond)

	ref := gw.pendingRefs()[0]
	gw.HandleNotification(ref, models.PaymentResult{Success: true, Status: models.StatusCompleted})
	<-results

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.Equal(t, models.StatusPending, seen[0])
	assert.Equal(t, models.StatusCompleted, seen[1])

	// The correlation ref travels in the initiation metadata.
	assert.Equal(t, ref, inv.lastCall().Data["transactionRef"])
}

func TestCallerCancellationSettlesEntry(t *testing.T) {
	gw, _ := newLegacy(t, acceptingInvoker(), &fakeAudit{})

	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan *models.PaymentResult, 1)
	go func() {
		results <- gw.InitiatePayment(ctx, testOptions())
	}()
	require.Eventually(t, func() bool { return gw.PendingCount() == 1 }, time.Second, time.Millisecond)

	cancel()
	res := <-results
	assert.False(t, res.Success)
	assert.Equal(t, models.StatusCancelled, res.Status)
	assert.Equal(t, 0, gw.PendingCount())
}

func TestUnknownNotificationIsNoOp(t *testing.T) {
	gw, _ := newLegacy(t, acceptingInvoker(), &fakeAudit{})
	assert.False(t, gw.HandleNotification("ttp-unknown", models.PaymentResult{Status: models.StatusCompleted}))
}
