package policy

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"swapguard/internal/model"
)

func TestSetFeeBound(t *testing.T) {
	store, _, _, _ := newTestStore()
	id := activePool(t, store)
	ctx := context.Background()

	if err := store.SetBuyFee(ctx, id, tokenOwner, model.MaxFeePPM); err != nil {
		t.Fatalf("fee at maximum rejected: %v", err)
	}
	if err := store.SetBuyFee(ctx, id, tokenOwner, model.MaxFeePPM+1); !errors.Is(err, ErrFeeTooHigh) {
		t.Fatalf("got %v, want ErrFeeTooHigh", err)
	}

	// The prior value is intact after the failed attempt.
	snap, _ := store.Snapshot(id)
	if snap.BuyFeePPM != model.MaxFeePPM {
		t.Fatalf("buy fee = %d, want %d", snap.BuyFeePPM, model.MaxFeePPM)
	}
}

func TestSetFeesAtomic(t *testing.T) {
	store, _, _, _ := newTestStore()
	id := activePool(t, store)
	ctx := context.Background()

	err := store.SetFees(ctx, id, tokenOwner, 1000, model.MaxFeePPM+1)
	if !errors.Is(err, ErrFeeTooHigh) {
		t.Fatalf("got %v, want ErrFeeTooHigh", err)
	}

	snap, _ := store.Snapshot(id)
	if snap.BuyFeePPM != model.DefaultFeePPM || snap.SellFeePPM != model.DefaultFeePPM {
		t.Fatalf("fees = %d/%d after failed SetFees, want untouched defaults", snap.BuyFeePPM, snap.SellFeePPM)
	}

	if err := store.SetFees(ctx, id, tokenOwner, 1000, 50000); err != nil {
		t.Fatalf("SetFees failed: %v", err)
	}
	snap, _ = store.Snapshot(id)
	if snap.BuyFeePPM != 1000 || snap.SellFeePPM != 50000 {
		t.Fatalf("fees = %d/%d, want 1000/50000", snap.BuyFeePPM, snap.SellFeePPM)
	}
}

func TestMutationAuthorization(t *testing.T) {
	store, ownership, _, _ := newTestStore()
	id := activePool(t, store)
	ctx := context.Background()

	// Wrong caller.
	if err := store.SetBuyFee(ctx, id, swapperA, 1000); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("got %v, want ErrNotOwner", err)
	}

	// Oracle failure.
	delete(ownership.Owners, projectToken)
	if err := store.SetBuyFee(ctx, id, tokenOwner, 1000); !errors.Is(err, ErrOwnerQueryFailed) {
		t.Fatalf("got %v, want ErrOwnerQueryFailed", err)
	}

	// Renounced ownership: the query succeeds with a null owner, so no
	// caller can ever match it.
	ownership.Renounced[projectToken] = true
	if err := store.SetBuyFee(ctx, id, tokenOwner, 1000); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("got %v, want ErrNotOwner", err)
	}
}

// A renounced owner authorizes nobody, the zero address included: the zero
// owner must never be treated as a matchable caller identity.
func TestRenouncedOwnerRejectsZeroCaller(t *testing.T) {
	store, ownership, _, _ := newTestStore()
	id := activePool(t, store)
	ctx := context.Background()

	delete(ownership.Owners, projectToken)
	ownership.Renounced[projectToken] = true

	if err := store.SetBuyFee(ctx, id, common.Address{}, 1000); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("zero-address caller on renounced asset: got %v, want ErrNotOwner", err)
	}

	snap, _ := store.Snapshot(id)
	if snap.BuyFeePPM != model.DefaultFeePPM {
		t.Fatalf("buy fee = %d after rejected mutation, want %d", snap.BuyFeePPM, model.DefaultFeePPM)
	}
}

// The ownership check is live: transferring the asset's ownership changes
// who may configure the pool immediately, while the cached target asset
// keeps steering fee direction untouched.
func TestOwnershipTransferIsLive(t *testing.T) {
	store, ownership, _, _ := newTestStore()
	id := activePool(t, store)
	ctx := context.Background()

	newOwner := common.HexToAddress("0x7000000000000000000000000000000000000007")
	ownership.Owners[projectToken] = newOwner

	if err := store.SetBuyFee(ctx, id, tokenOwner, 1000); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("old owner still authorized: %v", err)
	}
	if err := store.SetBuyFee(ctx, id, newOwner, 1000); err != nil {
		t.Fatalf("new owner rejected: %v", err)
	}

	// Evaluation still works from the cached target asset.
	if _, err := store.Evaluate(ctx, id, sell(swapperA, 1, 1, 1)); err != nil {
		t.Fatalf("evaluate after transfer failed: %v", err)
	}
}

func TestMutateInertPool(t *testing.T) {
	store, _, _, _ := newTestStore()
	id, err := store.InitializePool(context.Background(), poolKey(projectToken, otherToken))
	if err != nil {
		t.Fatalf("InitializePool failed: %v", err)
	}

	if err := store.SetBuyFee(context.Background(), id, tokenOwner, 1000); !errors.Is(err, ErrNoTargetAsset) {
		t.Fatalf("got %v, want ErrNoTargetAsset", err)
	}
}

func TestMutateUnknownPool(t *testing.T) {
	store, _, _, _ := newTestStore()
	if err := store.SetBuyFee(context.Background(), model.PoolID{}, tokenOwner, 1000); !errors.Is(err, ErrUnknownPool) {
		t.Fatalf("got %v, want ErrUnknownPool", err)
	}
}

// Setting a field to its current value is still a mutation: the change
// event fires with identical old/new values.
func TestIdempotentSetStillEmitsEvent(t *testing.T) {
	store, _, _, events := newTestStore()
	id := activePool(t, store)
	ctx := context.Background()

	if err := store.SetBuyFee(ctx, id, tokenOwner, model.DefaultFeePPM); err != nil {
		t.Fatalf("SetBuyFee failed: %v", err)
	}

	last := events.changes[len(events.changes)-1]
	if last.Field != model.FieldBuyFee {
		t.Fatalf("last event field = %s, want %s", last.Field, model.FieldBuyFee)
	}
	if last.Old != last.New {
		t.Fatalf("old/new = %s/%s, want identical", last.Old, last.New)
	}
}

func TestBlacklistAndRouterMembership(t *testing.T) {
	store, _, _, events := newTestStore()
	id := activePool(t, store)
	ctx := context.Background()

	if err := store.SetBlacklisted(ctx, id, tokenOwner, swapperA, true); err != nil {
		t.Fatalf("SetBlacklisted failed: %v", err)
	}
	banned, err := store.IsBlacklisted(id, swapperA)
	if err != nil || !banned {
		t.Fatalf("IsBlacklisted = (%v, %v), want (true, nil)", banned, err)
	}

	if err := store.SetBlacklisted(ctx, id, tokenOwner, swapperA, false); err != nil {
		t.Fatalf("unban failed: %v", err)
	}
	banned, _ = store.IsBlacklisted(id, swapperA)
	if banned {
		t.Fatalf("address still blacklisted after removal")
	}

	if err := store.SetVerifiedRouter(ctx, id, tokenOwner, router, true); err != nil {
		t.Fatalf("SetVerifiedRouter failed: %v", err)
	}
	verified, err := store.IsVerifiedRouter(id, router)
	if err != nil || !verified {
		t.Fatalf("IsVerifiedRouter = (%v, %v), want (true, nil)", verified, err)
	}

	last := events.changes[len(events.changes)-1]
	if last.Field != model.FieldVerifiedRouter || last.Address != router.Hex() {
		t.Fatalf("router event = %+v", last)
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	store, _, _, _ := newTestStore()
	id := activePool(t, store)
	ctx := context.Background()

	if err := store.SetFees(ctx, id, tokenOwner, 1000, 50000); err != nil {
		t.Fatalf("SetFees failed: %v", err)
	}
	if err := store.SetProtectionEnabled(ctx, id, tokenOwner, true); err != nil {
		t.Fatalf("SetProtectionEnabled failed: %v", err)
	}
	if err := store.SetMaxSellAmount(ctx, id, tokenOwner, big.NewInt(500)); err != nil {
		t.Fatalf("SetMaxSellAmount failed: %v", err)
	}
	if err := store.SetBlacklisted(ctx, id, tokenOwner, swapperA, true); err != nil {
		t.Fatalf("SetBlacklisted failed: %v", err)
	}

	rec := func() model.PolicyRecord {
		store.mu.RLock()
		defer store.mu.RUnlock()
		return recordLocked(id, store.pools[id])
	}()

	restored, _, _, _ := newTestStore()
	if err := restored.Restore([]model.PolicyRecord{rec}); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	snap, err := restored.Snapshot(id)
	if err != nil {
		t.Fatalf("Snapshot after restore failed: %v", err)
	}
	if snap.BuyFeePPM != 1000 || snap.SellFeePPM != 50000 || !snap.ProtectionEnabled || snap.MaxSellAmount != "500" {
		t.Fatalf("restored snapshot = %+v", snap)
	}
	banned, _ := restored.IsBlacklisted(id, swapperA)
	if !banned {
		t.Fatalf("blacklist lost in restore")
	}

	// Trade tracking restarts empty.
	_, _, seen, _ := restored.LastTrade(id, swapperA)
	if seen {
		t.Fatalf("trade tracking should not survive restore")
	}
}
