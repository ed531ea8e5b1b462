package oracle

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// ContractCaller performs a read-only contract call.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Ownership answers whether an asset exposes a queryable owner and who it
// is. ok=false means the asset is not an owned-asset type (or the query
// failed); a zero owner with ok=true means ownership was renounced.
type Ownership interface {
	TryGetOwner(ctx context.Context, asset common.Address) (common.Address, bool)
}

// EthOwnership queries owner() on the asset contract via eth_call.
type EthOwnership struct {
	caller ContractCaller
	logger *zap.Logger
}

func NewEthOwnership(caller ContractCaller, logger *zap.Logger) *EthOwnership {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EthOwnership{caller: caller, logger: logger}
}

// TryGetOwner calls owner() on the asset. Any transport, revert, or decode
// failure is reported as ok=false, never as an error.
func (o *EthOwnership) TryGetOwner(ctx context.Context, asset common.Address) (common.Address, bool) {
	owner, err := callAddressMethod(ctx, o.caller, asset, "owner", ownableABIInstance)
	if err != nil {
		o.logger.Debug("owner query failed", zap.String("asset", asset.Hex()), zap.Error(err))
		return common.Address{}, false
	}
	return owner, true
}

func callAddressMethod(ctx context.Context, caller ContractCaller, target common.Address, method string, abiInstance func() (abi.ABI, error)) (common.Address, error) {
	if caller == nil {
		return common.Address{}, fmt.Errorf("contract caller is nil")
	}
	parsed, err := abiInstance()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse abi: %w", err)
	}
	data, err := parsed.Pack(method)
	if err != nil {
		return common.Address{}, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &target, Data: data}
	resp, err := caller.CallContract(ctx, msg, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return common.Address{}, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return common.Address{}, fmt.Errorf("unexpected %s values: %d", method, len(values))
	}
	return asAddress(values[0])
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}
