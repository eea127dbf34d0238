package settings

import (
	"context"
	"strconv"
	"sync"
	"time"

	"MerchantCheckout/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	keyBridgeEnabled = "bridge_mode_enabled"
	keyCBDCEnabled   = "cbdc_mode_enabled"

	remotePersistTimeout = 10 * time.Second
)

// FlagStore is the remote persistence slice the settings cache needs;
// *store.Store satisfies it.
type FlagStore interface {
	GetFasstapCredentials(ctx context.Context, merchantID string) (*store.FasstapCredentialRow, error)
	UpdateFeatureFlags(ctx context.Context, merchantID string, bridgeEnabled, cbdcEnabled bool) error
}

// LocalCache is the fast local key/value layer the toggles write through
// synchronously.
type LocalCache interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// MemoryCache is the default LocalCache.
type MemoryCache struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{m: make(map[string]string)}
}

func (c *MemoryCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[key]
	return v, ok
}

func (c *MemoryCache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
}

// Cache tracks the bridge and CBDC feature flags. Toggles are immediately
// consistent in memory and in the local cache; remote persistence is
// fire-and-forget (write-behind), so the remote record may transiently
// diverge.
type Cache struct {
	merchantID string
	flags      FlagStore
	local      LocalCache
	logger     zerolog.Logger

	mu            sync.RWMutex
	bridgeEnabled bool
	cbdcEnabled   bool
}

func NewCache(merchantID string, flags FlagStore, local LocalCache, logger zerolog.Logger) *Cache {
	if local == nil {
		local = NewMemoryCache()
	}
	c := &Cache{
		merchantID: merchantID,
		flags:      flags,
		local:      local,
		logger:     logger.With().Str("component", "settings").Logger(),
	}
	c.restoreLocal()
	return c
}

func (c *Cache) restoreLocal() {
	if v, ok := c.local.Get(keyBridgeEnabled); ok {
		c.bridgeEnabled, _ = strconv.ParseBool(v)
	}
	if v, ok := c.local.Get(keyCBDCEnabled); ok {
		c.cbdcEnabled, _ = strconv.ParseBool(v)
	}
}

func (c *Cache) ToggleBridge(enabled bool) {
	c.mu.Lock()
	c.bridgeEnabled = enabled
	c.mu.Unlock()
	c.local.Set(keyBridgeEnabled, strconv.FormatBool(enabled))
	go c.persistRemote()
}

func (c *Cache) ToggleCBDC(enabled bool) {
	c.mu.Lock()
	c.cbdcEnabled = enabled
	c.mu.Unlock()
	c.local.Set(keyCBDCEnabled, strconv.FormatBool(enabled))
	go c.persistRemote()
}

func (c *Cache) IsBridgeEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bridgeEnabled
}

func (c *Cache) IsCBDCEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cbdcEnabled
}

// LoadFromRemote overwrites the flags from the stored credential record.
// Absence of a record leaves the current flags untouched.
func (c *Cache) LoadFromRemote(ctx context.Context) error {
	rec, err := c.flags.GetFasstapCredentials(ctx, c.merchantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return errors.Wrap(err, "load feature flags")
	}

	c.mu.Lock()
	c.bridgeEnabled = rec.BridgeEnabled
	c.cbdcEnabled = rec.CBDCEnabled
	c.mu.Unlock()
	c.local.Set(keyBridgeEnabled, strconv.FormatBool(rec.BridgeEnabled))
	c.local.Set(keyCBDCEnabled, strconv.FormatBool(rec.CBDCEnabled))
	return nil
}

func (c *Cache) persistRemote() {
	ctx, cancel := context.WithTimeout(context.Background(), remotePersistTimeout)
	defer cancel()

	c.mu.RLock()
	bridge, cbdc := c.bridgeEnabled, c.cbdcEnabled
	c.mu.RUnlock()

	if err := c.flags.UpdateFeatureFlags(ctx, c.merchantID, bridge, cbdc); err != nil {
		c.logger.Warn().Err(err).Msg("remote flag persistence failed")
	}
}
