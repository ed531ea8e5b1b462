package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Fee rates are expressed in parts per million of the swap input.
const (
	// MaxFeePPM is the protocol-wide fee ceiling (100%).
	MaxFeePPM uint32 = 1_000_000
	// DefaultFeePPM is the fee seeded at pool initialization (0.30%).
	DefaultFeePPM uint32 = 3000
)

// PoolPolicy is the per-pool policy record. A zero TargetAsset marks the
// pool as unsupported: it charges the default fee and is never protected.
type PoolPolicy struct {
	Key         PoolKey
	TargetAsset common.Address

	BuyFeePPM  uint32
	SellFeePPM uint32

	ProtectionEnabled bool
	CooldownSeconds   uint64
	// MaxSellAmount caps the input amount of a sell; nil or zero disables.
	MaxSellAmount *big.Int

	Blacklist       map[common.Address]struct{}
	VerifiedRouters map[common.Address]struct{}

	LastTradeBlock     map[common.Address]uint64
	LastTradeTimestamp map[common.Address]uint64
}

// NewPoolPolicy returns a policy record with empty tracking state. Fees are
// seeded by the initialization classifier, not here.
func NewPoolPolicy(key PoolKey) *PoolPolicy {
	return &PoolPolicy{
		Key:                key,
		Blacklist:          make(map[common.Address]struct{}),
		VerifiedRouters:    make(map[common.Address]struct{}),
		LastTradeBlock:     make(map[common.Address]uint64),
		LastTradeTimestamp: make(map[common.Address]uint64),
	}
}

// Active reports whether the policy applies beyond the default fee.
func (p *PoolPolicy) Active() bool {
	return p.TargetAsset != (common.Address{})
}

// Snapshot is the scalar view of a policy record exposed to readers; the
// per-address tracking maps are queried individually.
type Snapshot struct {
	PoolID            string `json:"pool_id"`
	Currency0         string `json:"currency0"`
	Currency1         string `json:"currency1"`
	TargetAsset       string `json:"target_asset"`
	Active            bool   `json:"active"`
	BuyFeePPM         uint32 `json:"buy_fee_ppm"`
	SellFeePPM        uint32 `json:"sell_fee_ppm"`
	ProtectionEnabled bool   `json:"protection_enabled"`
	CooldownSeconds   uint64 `json:"cooldown_seconds"`
	MaxSellAmount     string `json:"max_sell_amount"`
}

// PolicyRecord is the persistence form of a policy: scalars plus the
// configured address sets. Trade-tracking state is runtime-only and is not
// persisted.
type PolicyRecord struct {
	PoolID            string   `json:"pool_id"`
	Currency0         string   `json:"currency0"`
	Currency1         string   `json:"currency1"`
	Fee               uint32   `json:"fee"`
	TickSpacing       int32    `json:"tick_spacing"`
	Hooks             string   `json:"hooks"`
	TargetAsset       string   `json:"target_asset"`
	BuyFeePPM         uint32   `json:"buy_fee_ppm"`
	SellFeePPM        uint32   `json:"sell_fee_ppm"`
	ProtectionEnabled bool     `json:"protection_enabled"`
	CooldownSeconds   uint64   `json:"cooldown_seconds"`
	MaxSellAmount     string   `json:"max_sell_amount"`
	Blacklist         []string `json:"blacklist"`
	VerifiedRouters   []string `json:"verified_routers"`
}
