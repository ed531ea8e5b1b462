package policy

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapguard/internal/model"
	"swapguard/internal/oracle"
	"swapguard/internal/storage"
)

// Config holds the chain-level constants the store needs.
type Config struct {
	// WrappedNative is the wrapped form of the native settlement asset;
	// pools holding it (or the native sentinel) on exactly one side are
	// eligible for policy.
	WrappedNative common.Address
}

// Store owns the pool-identity-keyed policy table. All access goes through
// its lock: the host may drive it from concurrent requests, and two swaps
// against the same pool must never interleave their read-modify-write of
// the trade-tracking maps.
type Store struct {
	cfg       Config
	ownership oracle.Ownership
	resolver  oracle.Resolver
	events    storage.EventSink
	persister storage.Persister
	logger    *zap.Logger

	mu    sync.RWMutex
	pools map[model.PoolID]*model.PoolPolicy
}

// NewStore builds a Store. The event sink and persister may be nil; the
// resolver may be nil only if no pool ever verifies a router.
func NewStore(cfg Config, ownership oracle.Ownership, resolver oracle.Resolver, events storage.EventSink, persister storage.Persister, logger *zap.Logger) *Store {
	if events == nil {
		events = storage.NopSink{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		cfg:       cfg,
		ownership: ownership,
		resolver:  resolver,
		events:    events,
		persister: persister,
		logger:    logger,
		pools:     make(map[model.PoolID]*model.PoolPolicy),
	}
}

// Snapshot returns the scalar view of a pool's policy.
func (s *Store) Snapshot(id model.PoolID) (model.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pools[id]
	if !ok {
		return model.Snapshot{}, ErrUnknownPool
	}
	return model.Snapshot{
		PoolID:            id.Hex(),
		Currency0:         p.Key.Currency0.Hex(),
		Currency1:         p.Key.Currency1.Hex(),
		TargetAsset:       p.TargetAsset.Hex(),
		Active:            p.Active(),
		BuyFeePPM:         p.BuyFeePPM,
		SellFeePPM:        p.SellFeePPM,
		ProtectionEnabled: p.ProtectionEnabled,
		CooldownSeconds:   p.CooldownSeconds,
		MaxSellAmount:     amountString(p.MaxSellAmount),
	}, nil
}

// IsBlacklisted reports blacklist membership for one address.
func (s *Store) IsBlacklisted(id model.PoolID, addr common.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pools[id]
	if !ok {
		return false, ErrUnknownPool
	}
	_, banned := p.Blacklist[addr]
	return banned, nil
}

// IsVerifiedRouter reports verified-router membership for one address.
func (s *Store) IsVerifiedRouter(id model.PoolID, addr common.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pools[id]
	if !ok {
		return false, ErrUnknownPool
	}
	_, verified := p.VerifiedRouters[addr]
	return verified, nil
}

// LastTrade returns the most recent accepted trade bookkeeping for an
// address; seen=false means the address never traded through the pool.
func (s *Store) LastTrade(id model.PoolID, addr common.Address) (block, timestamp uint64, seen bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pools[id]
	if !ok {
		return 0, 0, false, ErrUnknownPool
	}
	block, seen = p.LastTradeBlock[addr]
	timestamp = p.LastTradeTimestamp[addr]
	return block, timestamp, seen, nil
}

// SetBuyFee sets the buy fee rate. Owner-gated.
func (s *Store) SetBuyFee(ctx context.Context, id model.PoolID, caller common.Address, fee uint32) error {
	return s.mutate(ctx, id, caller, func(p *model.PoolPolicy) error {
		if fee > model.MaxFeePPM {
			return ErrFeeTooHigh
		}
		old := p.BuyFeePPM
		p.BuyFeePPM = fee
		s.emitChange(id, model.FieldBuyFee, common.Address{}, ppmString(old), ppmString(fee), caller)
		return nil
	})
}

// SetSellFee sets the sell fee rate. Owner-gated.
func (s *Store) SetSellFee(ctx context.Context, id model.PoolID, caller common.Address, fee uint32) error {
	return s.mutate(ctx, id, caller, func(p *model.PoolPolicy) error {
		if fee > model.MaxFeePPM {
			return ErrFeeTooHigh
		}
		old := p.SellFeePPM
		p.SellFeePPM = fee
		s.emitChange(id, model.FieldSellFee, common.Address{}, ppmString(old), ppmString(fee), caller)
		return nil
	})
}

// SetFees sets both fee rates; neither is applied unless both are valid.
func (s *Store) SetFees(ctx context.Context, id model.PoolID, caller common.Address, buyFee, sellFee uint32) error {
	return s.mutate(ctx, id, caller, func(p *model.PoolPolicy) error {
		if buyFee > model.MaxFeePPM || sellFee > model.MaxFeePPM {
			return ErrFeeTooHigh
		}
		oldBuy, oldSell := p.BuyFeePPM, p.SellFeePPM
		p.BuyFeePPM = buyFee
		p.SellFeePPM = sellFee
		s.emitChange(id, model.FieldBuyFee, common.Address{}, ppmString(oldBuy), ppmString(buyFee), caller)
		s.emitChange(id, model.FieldSellFee, common.Address{}, ppmString(oldSell), ppmString(sellFee), caller)
		return nil
	})
}

// SetProtectionEnabled toggles the protection pipeline. Owner-gated.
func (s *Store) SetProtectionEnabled(ctx context.Context, id model.PoolID, caller common.Address, enabled bool) error {
	return s.mutate(ctx, id, caller, func(p *model.PoolPolicy) error {
		old := p.ProtectionEnabled
		p.ProtectionEnabled = enabled
		s.emitChange(id, model.FieldProtection, common.Address{}, strconv.FormatBool(old), strconv.FormatBool(enabled), caller)
		return nil
	})
}

// SetCooldownSeconds sets the per-swapper cooldown; 0 disables. Owner-gated.
func (s *Store) SetCooldownSeconds(ctx context.Context, id model.PoolID, caller common.Address, seconds uint64) error {
	return s.mutate(ctx, id, caller, func(p *model.PoolPolicy) error {
		old := p.CooldownSeconds
		p.CooldownSeconds = seconds
		s.emitChange(id, model.FieldCooldown, common.Address{}, strconv.FormatUint(old, 10), strconv.FormatUint(seconds, 10), caller)
		return nil
	})
}

// SetMaxSellAmount caps sell input amounts; nil or zero disables.
// Owner-gated.
func (s *Store) SetMaxSellAmount(ctx context.Context, id model.PoolID, caller common.Address, amount *big.Int) error {
	return s.mutate(ctx, id, caller, func(p *model.PoolPolicy) error {
		old := amountString(p.MaxSellAmount)
		if amount == nil {
			p.MaxSellAmount = nil
		} else {
			p.MaxSellAmount = new(big.Int).Set(amount)
		}
		s.emitChange(id, model.FieldMaxSell, common.Address{}, old, amountString(p.MaxSellAmount), caller)
		return nil
	})
}

// SetBlacklisted adds or removes one blacklist entry. Owner-gated.
func (s *Store) SetBlacklisted(ctx context.Context, id model.PoolID, caller, addr common.Address, banned bool) error {
	return s.mutate(ctx, id, caller, func(p *model.PoolPolicy) error {
		_, was := p.Blacklist[addr]
		if banned {
			p.Blacklist[addr] = struct{}{}
		} else {
			delete(p.Blacklist, addr)
		}
		s.emitChange(id, model.FieldBlacklist, addr, strconv.FormatBool(was), strconv.FormatBool(banned), caller)
		return nil
	})
}

// SetVerifiedRouter adds or removes one verified-router entry. Owner-gated.
func (s *Store) SetVerifiedRouter(ctx context.Context, id model.PoolID, caller, addr common.Address, verified bool) error {
	return s.mutate(ctx, id, caller, func(p *model.PoolPolicy) error {
		_, was := p.VerifiedRouters[addr]
		if verified {
			p.VerifiedRouters[addr] = struct{}{}
		} else {
			delete(p.VerifiedRouters, addr)
		}
		s.emitChange(id, model.FieldVerifiedRouter, addr, strconv.FormatBool(was), strconv.FormatBool(verified), caller)
		return nil
	})
}

// mutate runs one owner-gated mutation under the write lock and persists
// the resulting record.
func (s *Store) mutate(ctx context.Context, id model.PoolID, caller common.Address, fn func(p *model.PoolPolicy) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pools[id]
	if !ok {
		return ErrUnknownPool
	}
	if err := s.authorize(ctx, p, caller); err != nil {
		return err
	}
	if err := fn(p); err != nil {
		return err
	}
	s.persist(ctx, id, p)
	return nil
}

// authorize checks the caller against the live owner of the target asset.
// The owner is re-queried on every call: authority can change out-of-band,
// so the value cached for fee-direction purposes is never reused here.
func (s *Store) authorize(ctx context.Context, p *model.PoolPolicy, caller common.Address) error {
	if !p.Active() {
		return ErrNoTargetAsset
	}
	owner, ok := s.ownership.TryGetOwner(ctx, p.TargetAsset)
	if !ok {
		return ErrOwnerQueryFailed
	}
	// A renounced owner authorizes nobody; without this a zero-address
	// caller would match the zero owner.
	if owner == (common.Address{}) {
		return ErrNotOwner
	}
	if owner != caller {
		return ErrNotOwner
	}
	return nil
}

func (s *Store) emitChange(id model.PoolID, field string, addr common.Address, oldValue, newValue string, caller common.Address) {
	ev := model.ChangeEvent{
		PoolID:    id.Hex(),
		Field:     field,
		Old:       oldValue,
		New:       newValue,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if addr != (common.Address{}) {
		ev.Address = addr.Hex()
	}
	if caller != (common.Address{}) {
		ev.Caller = caller.Hex()
	}
	if err := s.events.PutChangeEvent(ev); err != nil {
		s.logger.Warn("change event sink failed", zap.String("pool", ev.PoolID), zap.String("field", field), zap.Error(err))
	}
}

func (s *Store) emitDecision(rec model.DecisionRecord) {
	if err := s.events.PutDecision(rec); err != nil {
		s.logger.Warn("decision sink failed", zap.String("pool", rec.PoolID), zap.Error(err))
	}
}

// persist writes the record through the persister; the in-memory table is
// authoritative, so a failed write is logged and the mutation stands.
func (s *Store) persist(ctx context.Context, id model.PoolID, p *model.PoolPolicy) {
	if s.persister == nil {
		return
	}
	if err := s.persister.SavePolicy(ctx, recordLocked(id, p)); err != nil {
		s.logger.Warn("policy persist failed", zap.String("pool", id.Hex()), zap.Error(err))
	}
}

func recordLocked(id model.PoolID, p *model.PoolPolicy) model.PolicyRecord {
	return model.PolicyRecord{
		PoolID:            id.Hex(),
		Currency0:         p.Key.Currency0.Hex(),
		Currency1:         p.Key.Currency1.Hex(),
		Fee:               p.Key.Fee,
		TickSpacing:       p.Key.TickSpacing,
		Hooks:             p.Key.Hooks.Hex(),
		TargetAsset:       p.TargetAsset.Hex(),
		BuyFeePPM:         p.BuyFeePPM,
		SellFeePPM:        p.SellFeePPM,
		ProtectionEnabled: p.ProtectionEnabled,
		CooldownSeconds:   p.CooldownSeconds,
		MaxSellAmount:     amountString(p.MaxSellAmount),
		Blacklist:         addressList(p.Blacklist),
		VerifiedRouters:   addressList(p.VerifiedRouters),
	}
}

// Restore loads persisted policy records into the table, replacing any
// record already present for the same pool. Trade-tracking state restarts
// empty.
func (s *Store) Restore(records []model.PolicyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		id, err := model.ParsePoolID(rec.PoolID)
		if err != nil {
			return fmt.Errorf("restore pool: %w", err)
		}
		key := model.PoolKey{
			Currency0:   common.HexToAddress(rec.Currency0),
			Currency1:   common.HexToAddress(rec.Currency1),
			Fee:         rec.Fee,
			TickSpacing: rec.TickSpacing,
			Hooks:       common.HexToAddress(rec.Hooks),
		}
		p := model.NewPoolPolicy(key)
		p.TargetAsset = common.HexToAddress(rec.TargetAsset)
		p.BuyFeePPM = rec.BuyFeePPM
		p.SellFeePPM = rec.SellFeePPM
		p.ProtectionEnabled = rec.ProtectionEnabled
		p.CooldownSeconds = rec.CooldownSeconds
		if rec.MaxSellAmount != "" && rec.MaxSellAmount != "0" {
			amount, ok := new(big.Int).SetString(rec.MaxSellAmount, 10)
			if !ok {
				return fmt.Errorf("restore pool %s: invalid max sell amount %q", rec.PoolID, rec.MaxSellAmount)
			}
			p.MaxSellAmount = amount
		}
		for _, addr := range rec.Blacklist {
			p.Blacklist[common.HexToAddress(addr)] = struct{}{}
		}
		for _, addr := range rec.VerifiedRouters {
			p.VerifiedRouters[common.HexToAddress(addr)] = struct{}{}
		}
		s.pools[id] = p
	}

	s.logger.Info("policies restored", zap.Int("pools", len(records)))
	return nil
}

func addressList(set map[common.Address]struct{}) []string {
	out := make([]string, 0, len(set))
	for addr := range set {
		out = append(out, addr.Hex())
	}
	sort.Strings(out)
	return out
}

func amountString(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}

func ppmString(fee uint32) string {
	return strconv.FormatUint(uint64(fee), 10)
}
