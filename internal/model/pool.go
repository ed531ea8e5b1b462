package model

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
)

// NativeCurrency is the sentinel address for the chain's native settlement
// asset (pools quote it as the zero address).
var NativeCurrency = common.Address{}

// PoolID identifies a pool: keccak-256 over the ABI-encoded pool key tuple.
type PoolID common.Hash

// Hex returns the 0x-prefixed hex form of the pool ID.
func (id PoolID) Hex() string {
	return common.Hash(id).Hex()
}

func (id PoolID) String() string {
	return id.Hex()
}

// ParsePoolID decodes a 0x-prefixed 32-byte hex string into a PoolID.
func ParsePoolID(s string) (PoolID, error) {
	if len(s) != 2+2*common.HashLength || s[:2] != "0x" {
		return PoolID{}, fmt.Errorf("invalid pool id: expected 32-byte hex string, got %q", s)
	}
	if !isHex(s[2:]) {
		return PoolID{}, fmt.Errorf("invalid pool id: non-hex characters in %q", s)
	}
	return PoolID(common.HexToHash(s)), nil
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// PoolKey is the tuple a pool is created from. Currency0 sorts below
// Currency1; the native asset is the zero address.
type PoolKey struct {
	Currency0   common.Address `json:"currency0"`
	Currency1   common.Address `json:"currency1"`
	Fee         uint32         `json:"fee"`
	TickSpacing int32          `json:"tick_spacing"`
	Hooks       common.Address `json:"hooks"`
}

// ID derives the pool identity: keccak-256 over the 32-byte-padded tuple,
// matching the on-chain encoding.
func (k PoolKey) ID() PoolID {
	buf := make([]byte, 0, 5*common.HashLength)
	buf = append(buf, common.LeftPadBytes(k.Currency0.Bytes(), common.HashLength)...)
	buf = append(buf, common.LeftPadBytes(k.Currency1.Bytes(), common.HashLength)...)
	buf = append(buf, common.LeftPadBytes(new(big.Int).SetUint64(uint64(k.Fee)).Bytes(), common.HashLength)...)
	buf = append(buf, math.U256Bytes(big.NewInt(int64(k.TickSpacing)))...)
	buf = append(buf, common.LeftPadBytes(k.Hooks.Bytes(), common.HashLength)...)
	return PoolID(crypto.Keccak256Hash(buf))
}

// Other returns the pool side opposite to the given currency.
func (k PoolKey) Other(currency common.Address) common.Address {
	if currency == k.Currency0 {
		return k.Currency1
	}
	return k.Currency0
}
