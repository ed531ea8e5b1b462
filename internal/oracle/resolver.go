package oracle

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Resolver maps a verified intermediary to the effective initiator of the
// in-flight call. ok=false means the intermediary does not support
// resolution.
type Resolver interface {
	TryResolve(ctx context.Context, router common.Address) (common.Address, bool)
}

// EthResolver queries msgSender() on the router contract via eth_call.
type EthResolver struct {
	caller ContractCaller
	logger *zap.Logger
}

func NewEthResolver(caller ContractCaller, logger *zap.Logger) *EthResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EthResolver{caller: caller, logger: logger}
}

func (r *EthResolver) TryResolve(ctx context.Context, router common.Address) (common.Address, bool) {
	sender, err := callAddressMethod(ctx, r.caller, router, "msgSender", routerABIInstance)
	if err != nil {
		r.logger.Debug("router resolution failed", zap.String("router", router.Hex()), zap.Error(err))
		return common.Address{}, false
	}
	return sender, true
}
