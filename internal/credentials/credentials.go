package credentials

import (
	"context"
	"sync"

	"MerchantCheckout/internal/models"
	"MerchantCheckout/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Store is the slice of the persistence layer the credential service
// needs; *store.Store satisfies it.
type Store interface {
	GetFasstapCredentials(ctx context.Context, merchantID string) (*store.FasstapCredentialRow, error)
	UpsertFasstapCredentials(ctx context.Context, rec *store.FasstapCredentialRow) error
	GetWalletCredentials(ctx context.Context, merchantID string) (*store.WalletCredentialRow, error)
	UpsertWalletCredentials(ctx context.Context, rec *store.WalletCredentialRow) error
}

// SaveOutcome reports per-table success of a credential save. The wallet
// table is best-effort: a secondary failure does not roll back the primary
// write.
type SaveOutcome struct {
	Primary   error
	Secondary error
}

func (o SaveOutcome) Ok() bool {
	return o.Primary == nil && o.Secondary == nil
}

// Service assembles the logical per-merchant credential record from the
// fasstap and wallet tables and keeps the last loaded copy in memory.
type Service struct {
	store  Store
	logger zerolog.Logger

	mu     sync.RWMutex
	cached *models.MerchantCredentials
}

func NewService(st Store, logger zerolog.Logger) *Service {
	return &Service{
		store:  st,
		logger: logger.With().Str("component", "credentials").Logger(),
	}
}

// Load merges the two underlying fetches into one record. A failure in
// either fetch is logged and its fields treated as absent; Load only
// errors when both fetches fail. A merchant with no stored rows gets a
// defaults record with both flags false.
func (s *Service) Load(ctx context.Context, merchantID string) (*models.MerchantCredentials, error) {
	rec := &models.MerchantCredentials{MerchantID: merchantID}

	var primaryErr, secondaryErr error

	fasstap, err := s.store.GetFasstapCredentials(ctx, merchantID)
	switch {
	case err == nil:
		rec.Fasstap = models.VendorCredentials{
			Username: fasstap.FasstapUsername,
			Password: fasstap.FasstapPassword,
			BaseURL:  fasstap.FasstapBaseURL,
		}
		rec.CBDC = models.VendorCredentials{
			Username: fasstap.CBDCUsername,
			Password: fasstap.CBDCPassword,
			BaseURL:  fasstap.CBDCBaseURL,
		}
		rec.BridgeEnabled = fasstap.BridgeEnabled
		rec.CBDCEnabled = fasstap.CBDCEnabled
		rec.CreatedAt = fasstap.CreatedAt
		rec.UpdatedAt = fasstap.UpdatedAt
	case errors.Is(err, pgx.ErrNoRows):
		// No record yet; defaults stand.
	default:
		primaryErr = err
		s.logger.Error().Err(err).Str("merchantId", merchantID).Msg("fasstap credentials fetch failed")
	}

	wallet, err := s.store.GetWalletCredentials(ctx, merchantID)
	switch {
	case err == nil:
		rec.Wallet = models.VendorCredentials{
			Username: wallet.WalletUsername,
			Password: wallet.WalletPassword,
			BaseURL:  wallet.WalletBaseURL,
		}
		rec.ApplePayEnabled = wallet.ApplePayEnabled
		rec.GooglePayEnabled = wallet.GooglePayEnabled
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = wallet.CreatedAt
		}
		if wallet.UpdatedAt.After(rec.UpdatedAt) {
			rec.UpdatedAt = wallet.UpdatedAt
		}
	case errors.Is(err, pgx.ErrNoRows):
	default:
		secondaryErr = err
		s.logger.Error().Err(err).Str("merchantId", merchantID).Msg("wallet credentials fetch failed")
	}

	if primaryErr != nil && secondaryErr != nil {
		return nil, errors.Wrap(primaryErr, "load merchant credentials")
	}

	s.mu.Lock()
	s.cached = rec
	s.mu.Unlock()
	return rec, nil
}

// Save upserts each underlying table independently and reports per-table
// outcome. On any successful write the in-memory record is refreshed via
// Load.
func (s *Service) Save(ctx context.Context, merchantID string, partial *models.MerchantCredentials) SaveOutcome {
	var outcome SaveOutcome

	outcome.Primary = s.store.UpsertFasstapCredentials(ctx, &store.FasstapCredentialRow{
		MerchantID:      merchantID,
		FasstapUsername: partial.Fasstap.Username,
		FasstapPassword: partial.Fasstap.Password,
		FasstapBaseURL:  partial.Fasstap.BaseURL,
		CBDCUsername:    partial.CBDC.Username,
		CBDCPassword:    partial.CBDC.Password,
		CBDCBaseURL:     partial.CBDC.BaseURL,
		BridgeEnabled:   partial.BridgeEnabled,
		CBDCEnabled:     partial.CBDCEnabled,
	})
	if outcome.Primary != nil {
		s.logger.Error().Err(outcome.Primary).Str("merchantId", merchantID).Msg("fasstap credentials save failed")
	}

	outcome.Secondary = s.store.UpsertWalletCredentials(ctx, &store.WalletCredentialRow{
		MerchantID:       merchantID,
		WalletUsername:   partial.Wallet.Username,
		WalletPassword:   partial.Wallet.Password,
		WalletBaseURL:    partial.Wallet.BaseURL,
		ApplePayEnabled:  partial.ApplePayEnabled,
		GooglePayEnabled: partial.GooglePayEnabled,
	})
	if outcome.Secondary != nil {
		s.logger.Warn().Err(outcome.Secondary).Str("merchantId", merchantID).Msg("wallet credentials save failed")
	}

	if outcome.Primary == nil || outcome.Secondary == nil {
		if _, err := s.Load(ctx, merchantID); err != nil {
			s.logger.Warn().Err(err).Str("merchantId", merchantID).Msg("credential reload after save failed")
		}
	}
	return outcome
}

// Cached returns the last loaded record, or nil before the first Load.
func (s *Service) Cached() *models.MerchantCredentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cached
}
