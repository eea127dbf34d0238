package gateway

import (
	"context"
	"errors"
	"testing"

	"MerchantCheckout/internal/bridge"
	"MerchantCheckout/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBridge struct {
	initErr   error
	initCalls int
	result    *bridge.Result
	payErr    error
}

func (f *fakeBridge) Initialize(ctx context.Context) error {
	f.initCalls++
	return f.initErr
}

func (f *fakeBridge) StartPayment(ctx context.Context, amount decimal.Decimal, currency string) (*bridge.Result, error) {
	if f.payErr != nil {
		return nil, f.payErr
	}
	return f.result, nil
}

type fakeDevices struct {
	connected bool
}

func (f fakeDevices) IsDeviceConnected() bool { return f.connected }

func TestStartPaymentInitializesOnDemand(t *testing.T) {
	// Simulates enabling bridge mode after boot: no Initialize has run
	// yet when the first payment arrives.
	fb := &fakeBridge{result: &bridge.Result{Status: "completed", TransactionID: "tx1"}}
	gw := NewBridgeGateway(fb, fakeDevices{connected: true}, &fakeAudit{}, testLogger())

	res := gw.StartPayment(context.Background(), testOptions())
	assert.True(t, res.Success)
	assert.Equal(t, models.StatusCompleted, res.Status)
	assert.Equal(t, 1, fb.initCalls)

	// A second payment reuses the initialized bridge.
	res = gw.StartPayment(context.Background(), testOptions())
	assert.True(t, res.Success)
	assert.Equal(t, 1, fb.initCalls)
}

func TestInitializeRequiresMerchant(t *testing.T) {
	gw := NewBridgeGateway(&fakeBridge{}, fakeDevices{connected: true}, &fakeAudit{}, testLogger())
	assert.ErrorIs(t, gw.Initialize(context.Background(), ""), ErrBridgeNotConfigured)
}

func TestInitializeFailureIsRetriedOnNextPayment(t *testing.T) {
	fb := &fakeBridge{
		initErr: errors.New("terminal offline"),
		result:  &bridge.Result{Status: "completed", TransactionID: "tx1"},
	}
	gw := NewBridgeGateway(fb, fakeDevices{connected: true}, &fakeAudit{}, testLogger())

	require.Error(t, gw.Initialize(context.Background(), "m-1"))

	res := gw.StartPayment(context.Background(), testOptions())
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "terminal offline")

	fb.initErr = nil
	res = gw.StartPayment(context.Background(), testOptions())
	assert.True(t, res.Success)
	assert.Equal(t, models.StatusCompleted, res.Status)
}

func TestStartPaymentSuccessIsAudited(t *testing.T) {
	audit := &fakeAudit{}
	gw := NewBridgeGateway(
		&fakeBridge{result: &bridge.Result{Status: "completed", TransactionID: "tx1"}},
		fakeDevices{connected: true},
		audit,
		testLogger(),
	)
	require.NoError(t, gw.Initialize(context.Background(), "m-1"))

	res := gw.StartPayment(context.Background(), testOptions())
	assert.True(t, res.Success)
	assert.Equal(t, models.StatusCompleted, res.Status)
	assert.Equal(t, "tx1", res.TransactionID)

	entries := audit.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "m-1", entries[0].MerchantID)
	assert.Equal(t, "success", entries[0].Status)
	assert.Equal(t, "tx1", entries[0].TransactionID)
	assert.True(t, entries[0].Amount.Equal(decimal.NewFromFloat(10)))
}

func TestStartPaymentFailureIsAudited(t *testing.T) {
	audit := &fakeAudit{}
	gw := NewBridgeGateway(
		&fakeBridge{payErr: errors.New("card read failed")},
		fakeDevices{connected: true},
		audit,
		testLogger(),
	)
	require.NoError(t, gw.Initialize(context.Background(), "m-1"))

	res := gw.StartPayment(context.Background(), testOptions())
	assert.False(t, res.Success)
	assert.Equal(t, models.StatusFailed, res.Status)
	assert.Contains(t, res.Error, "card read failed")

	entries := audit.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "failed", entries[0].Status)
}

func TestStartPaymentRequiresConnectedDevice(t *testing.T) {
	gw := NewBridgeGateway(
		&fakeBridge{result: &bridge.Result{Status: "completed", TransactionID: "tx1"}},
		fakeDevices{connected: false},
		&fakeAudit{},
		testLogger(),
	)
	require.NoError(t, gw.Initialize(context.Background(), "m-1"))

	res := gw.StartPayment(context.Background(), testOptions())
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "no payment terminal connected")
}

func TestAuditFailureDoesNotChangeResult(t *testing.T) {
	gw := NewBridgeGateway(
		&fakeBridge{result: &bridge.Result{Status: "completed", TransactionID: "tx1"}},
		fakeDevices{connected: true},
		&fakeAudit{err: errors.New("log table unavailable")},
		testLogger(),
	)
	require.NoError(t, gw.Initialize(context.Background(), "m-1"))

	res := gw.StartPayment(context.Background(), testOptions())
	assert.True(t, res.Success)
	assert.Equal(t, models.StatusCompleted, res.Status)
}
