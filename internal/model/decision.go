package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Swap describes one swap attempt as presented by the host environment.
// Amount is the absolute input amount; Block and Timestamp come from the
// execution context of the call.
type Swap struct {
	ZeroForOne bool
	Amount     *big.Int
	Sender     common.Address
	Block      uint64
	Timestamp  uint64
}

// Decision is the fee outcome of an allowed swap. Override marks the fee as
// replacing the pool's static fee for this swap only.
type Decision struct {
	FeePPM   uint32
	Override bool
}

// DenyReason classifies why a swap was refused.
type DenyReason string

const (
	DenyBlacklisted            DenyReason = "blacklisted"
	DenyCooldownActive         DenyReason = "cooldown_active"
	DenyOneTradePerBlock       DenyReason = "one_trade_per_block"
	DenyMaxSellExceeded        DenyReason = "max_sell_exceeded"
	DenyRouterResolutionFailed DenyReason = "router_resolution_failed"
)
