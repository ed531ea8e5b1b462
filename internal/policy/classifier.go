package policy

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapguard/internal/model"
)

// InitializePool classifies a freshly created pool and seeds its policy
// record. Called exactly once per pool, at the host's pool-initialized
// call point.
//
// The pool is eligible when exactly one side is the native asset or its
// wrapped form and the other side exposes a live, non-renounced owner.
// Ineligible pools keep a zero target asset and stay inert forever: they
// charge the default fee and never enter the protection pipeline.
func (s *Store) InitializePool(ctx context.Context, key model.PoolKey) (model.PoolID, error) {
	id := key.ID()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pools[id]; ok {
		return id, ErrPoolExists
	}

	p := model.NewPoolPolicy(key)

	ref0 := s.isReference(key.Currency0)
	ref1 := s.isReference(key.Currency1)
	if ref0 != ref1 {
		candidate := key.Currency1
		if ref1 {
			candidate = key.Currency0
		}
		// An oracle failure or a renounced owner means the asset is
		// unsupported, not that initialization failed.
		owner, ok := s.ownership.TryGetOwner(ctx, candidate)
		if ok && owner != (common.Address{}) {
			p.TargetAsset = candidate
		}
	}

	// The unset-to-default fee transition is observable.
	p.BuyFeePPM = model.DefaultFeePPM
	p.SellFeePPM = model.DefaultFeePPM
	s.emitChange(id, model.FieldBuyFee, common.Address{}, "0", ppmString(model.DefaultFeePPM), common.Address{})
	s.emitChange(id, model.FieldSellFee, common.Address{}, "0", ppmString(model.DefaultFeePPM), common.Address{})

	s.pools[id] = p
	s.persist(ctx, id, p)

	s.logger.Info("pool initialized",
		zap.String("pool", id.Hex()),
		zap.String("currency0", key.Currency0.Hex()),
		zap.String("currency1", key.Currency1.Hex()),
		zap.Bool("active", p.Active()),
		zap.String("target_asset", p.TargetAsset.Hex()),
	)

	return id, nil
}

func (s *Store) isReference(currency common.Address) bool {
	if currency == model.NativeCurrency {
		return true
	}
	return s.cfg.WrappedNative != (common.Address{}) && currency == s.cfg.WrappedNative
}
