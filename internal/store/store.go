package store

import (
	"context"
	"time"

	"MerchantCheckout/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

// FasstapCredentialRow mirrors the fasstap_credentials table: tap-to-pay
// vendor identity, CBDC vendor identity and the per-merchant feature flags.
type FasstapCredentialRow struct {
	MerchantID      string
	FasstapUsername string
	FasstapPassword string
	FasstapBaseURL  string
	CBDCUsername    string
	CBDCPassword    string
	CBDCBaseURL     string
	BridgeEnabled   bool
	CBDCEnabled     bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// WalletCredentialRow mirrors the wallet_credentials table.
type WalletCredentialRow struct {
	MerchantID       string
	WalletUsername   string
	WalletPassword   string
	WalletBaseURL    string
	ApplePayEnabled  bool
	GooglePayEnabled bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (s *Store) GetFasstapCredentials(ctx context.Context, merchantID string) (*FasstapCredentialRow, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT merchant_id, fasstap_username, fasstap_password, fasstap_base_url,
			cbdc_username, cbdc_password, cbdc_base_url,
			bridge_enabled, cbdc_enabled, created_at, updated_at
		FROM fasstap_credentials WHERE merchant_id=$1
	`, merchantID)

	var rec FasstapCredentialRow
	err := row.Scan(
		&rec.MerchantID,
		&rec.FasstapUsername,
		&rec.FasstapPassword,
		&rec.FasstapBaseURL,
		&rec.CBDCUsername,
		&rec.CBDCPassword,
		&rec.CBDCBaseURL,
		&rec.BridgeEnabled,
		&rec.CBDCEnabled,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, errors.Wrap(err, "get fasstap credentials")
	}
	return &rec, nil
}

func (s *Store) UpsertFasstapCredentials(ctx context.Context, rec *FasstapCredentialRow) error {
	exists, err := s.rowExists(ctx, "fasstap_credentials", rec.MerchantID)
	if err != nil {
		return errors.Wrap(err, "check fasstap credentials")
	}
	if exists {
		_, err = s.Pool.Exec(ctx, `
			UPDATE fasstap_credentials
			SET fasstap_username=$2, fasstap_password=$3, fasstap_base_url=$4,
				cbdc_username=$5, cbdc_password=$6, cbdc_base_url=$7,
				bridge_enabled=$8, cbdc_enabled=$9, updated_at=now()
			WHERE merchant_id=$1
		`,
			rec.MerchantID,
			rec.FasstapUsername, rec.FasstapPassword, rec.FasstapBaseURL,
			rec.CBDCUsername, rec.CBDCPassword, rec.CBDCBaseURL,
			rec.BridgeEnabled, rec.CBDCEnabled,
		)
		return errors.Wrap(err, "update fasstap credentials")
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO fasstap_credentials (
			merchant_id, fasstap_username, fasstap_password, fasstap_base_url,
			cbdc_username, cbdc_password, cbdc_base_url,
			bridge_enabled, cbdc_enabled
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		rec.MerchantID,
		rec.FasstapUsername, rec.FasstapPassword, rec.FasstapBaseURL,
		rec.CBDCUsername, rec.CBDCPassword, rec.CBDCBaseURL,
		rec.BridgeEnabled, rec.CBDCEnabled,
	)
	return errors.Wrap(err, "insert fasstap credentials")
}

func (s *Store) GetWalletCredentials(ctx context.Context, merchantID string) (*WalletCredentialRow, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT merchant_id, wallet_username, wallet_password, wallet_base_url,
			apple_pay_enabled, google_pay_enabled, created_at, updated_at
		FROM wallet_credentials WHERE merchant_id=$1
	`, merchantID)

	var rec WalletCredentialRow
	err := row.Scan(
		&rec.MerchantID,
		&rec.WalletUsername,
		&rec.WalletPassword,
		&rec.WalletBaseURL,
		&rec.ApplePayEnabled,
		&rec.GooglePayEnabled,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, errors.Wrap(err, "get wallet credentials")
	}
	return &rec, nil
}

func (s *Store) UpsertWalletCredentials(ctx context.Context, rec *WalletCredentialRow) error {
	exists, err := s.rowExists(ctx, "wallet_credentials", rec.MerchantID)
	if err != nil {
		return errors.Wrap(err, "check wallet credentials")
	}
	if exists {
		_, err = s.Pool.Exec(ctx, `
			UPDATE wallet_credentials
			SET wallet_username=$2, wallet_password=$3, wallet_base_url=$4,
				apple_pay_enabled=$5, google_pay_enabled=$6, updated_at=now()
			WHERE merchant_id=$1
		`,
			rec.MerchantID,
			rec.WalletUsername, rec.WalletPassword, rec.WalletBaseURL,
			rec.ApplePayEnabled, rec.GooglePayEnabled,
		)
		return errors.Wrap(err, "update wallet credentials")
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO wallet_credentials (
			merchant_id, wallet_username, wallet_password, wallet_base_url,
			apple_pay_enabled, google_pay_enabled
		) VALUES ($1,$2,$3,$4,$5,$6)
	`,
		rec.MerchantID,
		rec.WalletUsername, rec.WalletPassword, rec.WalletBaseURL,
		rec.ApplePayEnabled, rec.GooglePayEnabled,
	)
	return errors.Wrap(err, "insert wallet credentials")
}

// UpdateFeatureFlags persists the two checkout feature flags. A merchant
// that has never saved credentials still gets a row so toggles survive a
// restart.
func (s *Store) UpdateFeatureFlags(ctx context.Context, merchantID string, bridgeEnabled, cbdcEnabled bool) error {
	exists, err := s.rowExists(ctx, "fasstap_credentials", merchantID)
	if err != nil {
		return errors.Wrap(err, "check feature flags")
	}
	if exists {
		_, err = s.Pool.Exec(ctx, `
			UPDATE fasstap_credentials
			SET bridge_enabled=$2, cbdc_enabled=$3, updated_at=now()
			WHERE merchant_id=$1
		`, merchantID, bridgeEnabled, cbdcEnabled)
		return errors.Wrap(err, "update feature flags")
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO fasstap_credentials (merchant_id, bridge_enabled, cbdc_enabled)
		VALUES ($1,$2,$3)
	`, merchantID, bridgeEnabled, cbdcEnabled)
	return errors.Wrap(err, "insert feature flags")
}

func (s *Store) rowExists(ctx context.Context, table, merchantID string) (bool, error) {
	var exists bool
	row := s.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE merchant_id=$1)`, merchantID)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// LatestActiveDevice returns the most-recently-pinged active device for a
// merchant, or pgx.ErrNoRows when none has ever registered.
func (s *Store) LatestActiveDevice(ctx context.Context, merchantID string) (*models.DeviceHeartbeat, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT device_id, merchant_id, status, last_ping_at
		FROM device_heartbeats
		WHERE merchant_id=$1 AND status='active'
		ORDER BY last_ping_at DESC
		LIMIT 1
	`, merchantID)

	var hb models.DeviceHeartbeat
	err := row.Scan(&hb.DeviceID, &hb.MerchantID, &hb.Status, &hb.LastPingAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, errors.Wrap(err, "latest active device")
	}
	return &hb, nil
}

func (s *Store) RecordHeartbeat(ctx context.Context, hb *models.DeviceHeartbeat) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO device_heartbeats (device_id, merchant_id, status, last_ping_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (device_id) DO UPDATE
		SET status=EXCLUDED.status, last_ping_at=EXCLUDED.last_ping_at
	`, hb.DeviceID, hb.MerchantID, hb.Status, hb.LastPingAt)
	return errors.Wrap(err, "record heartbeat")
}

func (s *Store) InsertAuditEntry(ctx context.Context, entry *models.AuditEntry) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO payment_audit_log (
			merchant_id, gateway, amount, currency,
			transaction_id, status, error_message
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		entry.MerchantID,
		entry.Gateway,
		entry.Amount,
		entry.Currency,
		entry.TransactionID,
		entry.Status,
		entry.ErrorMessage,
	)
	return errors.Wrap(err, "insert audit entry")
}
