package oracle

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// FakeOwnership is an in-memory Ownership used in tests and offline runs.
// Assets absent from Owners fail the query unless Renounced marks them as
// owned-but-renounced.
type FakeOwnership struct {
	Owners    map[common.Address]common.Address
	Renounced map[common.Address]bool
}

func NewFakeOwnership() *FakeOwnership {
	return &FakeOwnership{
		Owners:    make(map[common.Address]common.Address),
		Renounced: make(map[common.Address]bool),
	}
}

func (f *FakeOwnership) TryGetOwner(_ context.Context, asset common.Address) (common.Address, bool) {
	if f.Renounced[asset] {
		return common.Address{}, true
	}
	owner, ok := f.Owners[asset]
	return owner, ok
}

// FakeResolver resolves routers from a static map; absent routers fail.
type FakeResolver struct {
	Senders map[common.Address]common.Address
}

func NewFakeResolver() *FakeResolver {
	return &FakeResolver{Senders: make(map[common.Address]common.Address)}
}

func (f *FakeResolver) TryResolve(_ context.Context, router common.Address) (common.Address, bool) {
	sender, ok := f.Senders[router]
	return sender, ok
}
