package policy

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapguard/internal/model"
)

// Evaluate decides the fee and permission for one swap attempt. On denial
// it returns a *Denial error carrying the reason; the host aborts the swap.
//
// The check order is part of the contract. Trade bookkeeping is recorded
// before the max-sell check, so a sell denied for size still consumes the
// swapper's cooldown and one-trade-per-block slot.
func (s *Store) Evaluate(ctx context.Context, id model.PoolID, swap model.Swap) (model.Decision, error) {
	// Write lock even though most evaluations only read: protection
	// bookkeeping mutates the tracking maps mid-pipeline.
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pools[id]
	if !ok {
		return model.Decision{}, ErrUnknownPool
	}

	if !p.Active() {
		decision := model.Decision{FeePPM: model.DefaultFeePPM, Override: true}
		s.emitDecision(decisionRecord(id, swap, swap.Sender, false, true, decision.FeePPM, ""))
		return decision, nil
	}

	swapper := swap.Sender
	if _, verified := p.VerifiedRouters[swap.Sender]; verified {
		resolved, ok := s.resolver.TryResolve(ctx, swap.Sender)
		if !ok {
			return model.Decision{}, s.denyLocked(id, swap, swapper, false, model.DenyRouterResolutionFailed)
		}
		swapper = resolved
	}

	if _, banned := p.Blacklist[swapper]; banned {
		return model.Decision{}, s.denyLocked(id, swap, swapper, false, model.DenyBlacklisted)
	}

	if p.ProtectionEnabled {
		if p.CooldownSeconds != 0 {
			// Subtraction instead of last+cooldown, which can wrap for
			// extreme cooldown settings.
			if last, seen := p.LastTradeTimestamp[swapper]; seen && swap.Timestamp-last < p.CooldownSeconds {
				return model.Decision{}, s.denyLocked(id, swap, swapper, false, model.DenyCooldownActive)
			}
		}
		if lastBlock, seen := p.LastTradeBlock[swapper]; seen && lastBlock == swap.Block {
			return model.Decision{}, s.denyLocked(id, swap, swapper, false, model.DenyOneTradePerBlock)
		}
		// Committing side effect: not rolled back if the max-sell check
		// below denies the swap.
		p.LastTradeBlock[swapper] = swap.Block
		p.LastTradeTimestamp[swapper] = swap.Timestamp
	}

	isSell := s.isSell(p, swap.ZeroForOne)

	if isSell && capSet(p.MaxSellAmount) && swap.Amount != nil && swap.Amount.Cmp(p.MaxSellAmount) > 0 {
		return model.Decision{}, s.denyLocked(id, swap, swapper, isSell, model.DenyMaxSellExceeded)
	}

	fee := p.BuyFeePPM
	if isSell {
		fee = p.SellFeePPM
	}
	decision := model.Decision{FeePPM: fee, Override: true}
	s.emitDecision(decisionRecord(id, swap, swapper, isSell, true, fee, ""))
	return decision, nil
}

// isSell reports whether the target asset is the input side of the swap.
func (s *Store) isSell(p *model.PoolPolicy, zeroForOne bool) bool {
	if p.TargetAsset == p.Key.Currency0 {
		return zeroForOne
	}
	return !zeroForOne
}

func (s *Store) denyLocked(id model.PoolID, swap model.Swap, swapper common.Address, isSell bool, reason model.DenyReason) *Denial {
	s.logger.Debug("swap denied",
		zap.String("pool", id.Hex()),
		zap.String("swapper", swapper.Hex()),
		zap.String("reason", string(reason)),
	)
	s.emitDecision(decisionRecord(id, swap, swapper, isSell, false, 0, reason))
	return deny(reason)
}

func decisionRecord(id model.PoolID, swap model.Swap, swapper common.Address, isSell, allowed bool, fee uint32, reason model.DenyReason) model.DecisionRecord {
	return model.DecisionRecord{
		PoolID:    id.Hex(),
		Swapper:   swapper.Hex(),
		Sender:    swap.Sender.Hex(),
		Block:     swap.Block,
		Timestamp: swap.Timestamp,
		Amount:    amountString(swap.Amount),
		IsSell:    isSell,
		Allowed:   allowed,
		FeePPM:    fee,
		Reason:    string(reason),
	}
}

func capSet(amount *big.Int) bool {
	return amount != nil && amount.Sign() > 0
}
