package model

// ChangeEvent records a policy field transition. For set-valued fields
// (blacklist, verified routers) Address carries the entry and Old/New are
// "true"/"false" membership values; scalar fields encode values as decimal
// strings.
type ChangeEvent struct {
	PoolID    string `json:"pool_id"`
	Field     string `json:"field"`
	Address   string `json:"address,omitempty"`
	Old       string `json:"old"`
	New       string `json:"new"`
	Caller    string `json:"caller,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Change event field names.
const (
	FieldBuyFee         = "buy_fee_ppm"
	FieldSellFee        = "sell_fee_ppm"
	FieldProtection     = "protection_enabled"
	FieldCooldown       = "cooldown_seconds"
	FieldMaxSell        = "max_sell_amount"
	FieldBlacklist      = "blacklist"
	FieldVerifiedRouter = "verified_router"
)

// DecisionRecord is the audit form of one evaluation outcome.
type DecisionRecord struct {
	PoolID    string `json:"pool_id"`
	Swapper   string `json:"swapper"`
	Sender    string `json:"sender"`
	Block     uint64 `json:"block"`
	Timestamp uint64 `json:"timestamp"`
	Amount    string `json:"amount"`
	IsSell    bool   `json:"is_sell"`
	Allowed   bool   `json:"allowed"`
	FeePPM    uint32 `json:"fee_ppm,omitempty"`
	Reason    string `json:"reason,omitempty"`
}
