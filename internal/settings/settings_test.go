package settings

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"MerchantCheckout/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFlagStore struct {
	mu      sync.Mutex
	rec     *store.FasstapCredentialRow
	getErr  error
	updates []struct{ bridge, cbdc bool }
}

func (f *fakeFlagStore) GetFasstapCredentials(ctx context.Context, merchantID string) (*store.FasstapCredentialRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.rec == nil {
		return nil, pgx.ErrNoRows
	}
	return f.rec, nil
}

func (f *fakeFlagStore) UpdateFeatureFlags(ctx context.Context, merchantID string, bridgeEnabled, cbdcEnabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, struct{ bridge, cbdc bool }{bridgeEnabled, cbdcEnabled})
	return nil
}

func (f *fakeFlagStore) lastUpdate() (bool, bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.updates) == 0 {
		return false, false, false
	}
	last := f.updates[len(f.updates)-1]
	return last.bridge, last.cbdc, true
}

func newTestCache(flags FlagStore, local LocalCache) *Cache {
	return NewCache("m-1", flags, local, zerolog.New(io.Discard))
}

func TestToggleIsImmediatelyConsistent(t *testing.T) {
	c := newTestCache(&fakeFlagStore{}, nil)

	require.False(t, c.IsBridgeEnabled())
	c.ToggleBridge(true)
	assert.True(t, c.IsBridgeEnabled())

	c.ToggleCBDC(true)
	assert.True(t, c.IsCBDCEnabled())

	c.ToggleBridge(false)
	assert.False(t, c.IsBridgeEnabled())
	assert.True(t, c.IsCBDCEnabled())
}

func TestToggleWritesThroughLocalCache(t *testing.T) {
	local := NewMemoryCache()
	c := newTestCache(&fakeFlagStore{}, local)

	c.ToggleBridge(true)
	v, ok := local.Get(keyBridgeEnabled)
	require.True(t, ok)
	assert.Equal(t, "true", v)

	// A fresh cache over the same local layer restores the flag.
	restored := newTestCache(&fakeFlagStore{}, local)
	assert.True(t, restored.IsBridgeEnabled())
	assert.False(t, restored.IsCBDCEnabled())
}

func TestTogglePersistsRemoteEventually(t *testing.T) {
	flags := &fakeFlagStore{}
	c := newTestCache(flags, nil)

	c.ToggleBridge(true)
	c.ToggleCBDC(true)

	require.Eventually(t, func() bool {
		bridge, cbdc, ok := flags.lastUpdate()
		return ok && bridge && cbdc
	}, time.Second, time.Millisecond)
}

func TestToggleSurvivesRemoteFailure(t *testing.T) {
	flags := &failingFlagStore{}
	c := newTestCache(flags, nil)

	c.ToggleBridge(true)
	assert.True(t, c.IsBridgeEnabled())

	require.Eventually(t, func() bool { return flags.attempts() > 0 }, time.Second, time.Millisecond)
	assert.True(t, c.IsBridgeEnabled())
}

type failingFlagStore struct {
	mu sync.Mutex
	n  int
}

func (f *failingFlagStore) GetFasstapCredentials(ctx context.Context, merchantID string) (*store.FasstapCredentialRow, error) {
	return nil, pgx.ErrNoRows
}

func (f *failingFlagStore) UpdateFeatureFlags(ctx context.Context, merchantID string, bridgeEnabled, cbdcEnabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	return errors.New("remote unavailable")
}

func (f *failingFlagStore) attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

func TestLoadFromRemoteOverwritesFlags(t *testing.T) {
	local := NewMemoryCache()
	flags := &fakeFlagStore{rec: &store.FasstapCredentialRow{
		MerchantID:    "m-1",
		BridgeEnabled: true,
		CBDCEnabled:   false,
	}}
	c := newTestCache(flags, local)
	c.ToggleCBDC(true)

	require.NoError(t, c.LoadFromRemote(context.Background()))
	assert.True(t, c.IsBridgeEnabled())
	assert.False(t, c.IsCBDCEnabled())

	v, ok := local.Get(keyCBDCEnabled)
	require.True(t, ok)
	assert.Equal(t, "false", v)
}

func TestLoadFromRemoteNoRecordLeavesFlags(t *testing.T) {
	c := newTestCache(&fakeFlagStore{}, nil)
	c.ToggleBridge(true)

	require.NoError(t, c.LoadFromRemote(context.Background()))
	assert.True(t, c.IsBridgeEnabled())
}

func TestLoadFromRemoteErrorPropagates(t *testing.T) {
	flags := &fakeFlagStore{getErr: errors.New("query failed")}
	c := newTestCache(flags, nil)

	assert.Error(t, c.LoadFromRemote(context.Background()))
}
