package devices

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"MerchantCheckout/internal/invoke"
	"MerchantCheckout/internal/models"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DeviceStore is the persistence slice the registry needs; *store.Store
// satisfies it.
type DeviceStore interface {
	LatestActiveDevice(ctx context.Context, merchantID string) (*models.DeviceHeartbeat, error)
	RecordHeartbeat(ctx context.Context, hb *models.DeviceHeartbeat) error
}

// Registry tracks which physical payment terminal, if any, is currently
// associated with a merchant. A device counts as connected while its most
// recent ping is younger than the freshness window; staleness is purely
// time-based, nothing writes an expiry.
type Registry struct {
	merchantID   string
	store        DeviceStore
	invoker      invoke.Invoker
	clock        clock.Clock
	freshness    time.Duration
	pollInterval time.Duration
	logger       zerolog.Logger

	mu        sync.Mutex
	connected bool
	deviceID  string
}

func NewRegistry(merchantID string, st DeviceStore, inv invoke.Invoker, clk clock.Clock, freshness, pollInterval time.Duration, logger zerolog.Logger) *Registry {
	if clk == nil {
		clk = clock.New()
	}
	return &Registry{
		merchantID:   merchantID,
		store:        st,
		invoker:      inv,
		clock:        clk,
		freshness:    freshness,
		pollInterval: pollInterval,
		logger:       logger.With().Str("component", "devices").Logger(),
	}
}

// CheckConnectedDevices refreshes the connected-device view from the
// heartbeat table. Any query error is swallowed and treated as "not
// connected": a false positive here would let a bridge payment start with
// no terminal present.
func (r *Registry) CheckConnectedDevices(ctx context.Context) {
	hb, err := r.store.LatestActiveDevice(ctx, r.merchantID)
	if err != nil {
		r.logger.Debug().Err(err).Msg("device query failed, treating as disconnected")
		r.setConnected(false, "")
		return
	}

	elapsed := r.clock.Now().Sub(hb.LastPingAt)
	if elapsed < r.freshness {
		r.setConnected(true, hb.DeviceID)
		return
	}
	r.setConnected(false, "")
}

func (r *Registry) setConnected(connected bool, deviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected = connected
	r.deviceID = deviceID
}

func (r *Registry) IsDeviceConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

func (r *Registry) ConnectedDeviceID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deviceID
}

// RegisterWallet registers a software wallet (Apple Pay / Google Pay
// session) as a payment device. The generated id becomes the tracked
// connected device on success.
func (r *Registry) RegisterWallet(ctx context.Context, walletType string) (string, error) {
	deviceID := r.generateDeviceID()

	resp, err := r.invoker.Invoke(ctx, "wallet-connect", &invoke.Request{
		MerchantID: r.merchantID,
		Endpoint:   "/wallets/register",
		Data: map[string]any{
			"walletType": walletType,
			"deviceId":   deviceID,
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "wallet registration")
	}
	if !resp.Success {
		if resp.Error != "" {
			return "", errors.Errorf("wallet registration rejected: %s", resp.Error)
		}
		return "", errors.New("wallet registration rejected")
	}

	now := r.clock.Now()
	if err := r.store.RecordHeartbeat(ctx, &models.DeviceHeartbeat{
		DeviceID:   deviceID,
		MerchantID: r.merchantID,
		Status:     models.DeviceActive,
		LastPingAt: now,
	}); err != nil {
		r.logger.Warn().Err(err).Str("deviceId", deviceID).Msg("wallet heartbeat write failed")
	}

	r.setConnected(true, deviceID)
	r.logger.Info().Str("deviceId", deviceID).Str("walletType", walletType).Msg("wallet registered")
	return deviceID, nil
}

func (r *Registry) generateDeviceID() string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("wallet-%d-%s", r.clock.Now().UnixMilli(), suffix)
}

// Run polls device liveness until the context is cancelled.
func (r *Registry) Run(ctx context.Context) {
	r.CheckConnectedDevices(ctx)

	ticker := r.clock.Ticker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.CheckConnectedDevices(ctx)
		}
	}
}
