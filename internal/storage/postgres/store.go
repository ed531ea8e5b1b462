package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"swapguard/internal/model"
)

// Store provides Postgres persistence for policy records and audit events.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS pool_policies (
			pool_id TEXT PRIMARY KEY,
			currency0 TEXT NOT NULL,
			currency1 TEXT NOT NULL,
			fee BIGINT NOT NULL,
			tick_spacing INT NOT NULL,
			hooks TEXT NOT NULL,
			target_asset TEXT NOT NULL,
			buy_fee_ppm BIGINT NOT NULL,
			sell_fee_ppm BIGINT NOT NULL,
			protection_enabled BOOLEAN NOT NULL,
			cooldown_seconds BIGINT NOT NULL,
			max_sell_amount NUMERIC NOT NULL,
			blacklist TEXT[] NOT NULL,
			verified_routers TEXT[] NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS policy_events (
			id BIGSERIAL PRIMARY KEY,
			pool_id TEXT NOT NULL,
			field TEXT NOT NULL,
			address TEXT,
			old_value TEXT NOT NULL,
			new_value TEXT NOT NULL,
			caller TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SavePolicy inserts or updates one policy record.
func (s *Store) SavePolicy(ctx context.Context, rec model.PolicyRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pool_policies (
			pool_id, currency0, currency1, fee, tick_spacing, hooks, target_asset,
			buy_fee_ppm, sell_fee_ppm, protection_enabled, cooldown_seconds,
			max_sell_amount, blacklist, verified_routers, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,now(),now())
		ON CONFLICT (pool_id)
		DO UPDATE SET
			target_asset = EXCLUDED.target_asset,
			buy_fee_ppm = EXCLUDED.buy_fee_ppm,
			sell_fee_ppm = EXCLUDED.sell_fee_ppm,
			protection_enabled = EXCLUDED.protection_enabled,
			cooldown_seconds = EXCLUDED.cooldown_seconds,
			max_sell_amount = EXCLUDED.max_sell_amount,
			blacklist = EXCLUDED.blacklist,
			verified_routers = EXCLUDED.verified_routers,
			updated_at = now()
	`,
		rec.PoolID,
		rec.Currency0,
		rec.Currency1,
		int64(rec.Fee),
		rec.TickSpacing,
		rec.Hooks,
		rec.TargetAsset,
		int64(rec.BuyFeePPM),
		int64(rec.SellFeePPM),
		rec.ProtectionEnabled,
		int64(rec.CooldownSeconds),
		rec.MaxSellAmount,
		rec.Blacklist,
		rec.VerifiedRouters,
	)
	return err
}

// LoadAll returns every persisted policy record.
func (s *Store) LoadAll(ctx context.Context) ([]model.PolicyRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT pool_id, currency0, currency1, fee, tick_spacing, hooks, target_asset,
			buy_fee_ppm, sell_fee_ppm, protection_enabled, cooldown_seconds,
			max_sell_amount::TEXT, blacklist, verified_routers
		FROM pool_policies
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.PolicyRecord
	for rows.Next() {
		var rec model.PolicyRecord
		var fee, buyFee, sellFee, cooldown int64
		if err := rows.Scan(
			&rec.PoolID,
			&rec.Currency0,
			&rec.Currency1,
			&fee,
			&rec.TickSpacing,
			&rec.Hooks,
			&rec.TargetAsset,
			&buyFee,
			&sellFee,
			&rec.ProtectionEnabled,
			&cooldown,
			&rec.MaxSellAmount,
			&rec.Blacklist,
			&rec.VerifiedRouters,
		); err != nil {
			return nil, err
		}
		rec.Fee = uint32(fee)
		rec.BuyFeePPM = uint32(buyFee)
		rec.SellFeePPM = uint32(sellFee)
		rec.CooldownSeconds = uint64(cooldown)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// PutChangeEvent appends one change event to the audit log.
func (s *Store) PutChangeEvent(ev model.ChangeEvent) error {
	_, err := s.pool.Exec(context.Background(), `
		INSERT INTO policy_events (pool_id, field, address, old_value, new_value, caller)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, ''))
	`, ev.PoolID, ev.Field, ev.Address, ev.Old, ev.New, ev.Caller)
	return err
}

// PutDecision is a no-op: evaluation outcomes stay in the JSONL audit file
// and metrics, not the relational log.
func (s *Store) PutDecision(model.DecisionRecord) error {
	return nil
}
