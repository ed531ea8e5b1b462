package oracle

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// stubCaller returns a canned response per target address.
type stubCaller struct {
	responses map[common.Address][]byte
	err       error
}

func (s *stubCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	resp, ok := s.responses[*msg.To]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return resp, nil
}

func addressWord(addr common.Address) []byte {
	return common.LeftPadBytes(addr.Bytes(), 32)
}

func TestEthOwnershipTryGetOwner(t *testing.T) {
	asset := common.HexToAddress("0x1000000000000000000000000000000000000001")
	owner := common.HexToAddress("0x3000000000000000000000000000000000000003")

	caller := &stubCaller{responses: map[common.Address][]byte{asset: addressWord(owner)}}
	oracle := NewEthOwnership(caller, nil)

	got, ok := oracle.TryGetOwner(context.Background(), asset)
	if !ok {
		t.Fatalf("owner query failed")
	}
	if got != owner {
		t.Fatalf("owner = %s, want %s", got.Hex(), owner.Hex())
	}
}

func TestEthOwnershipRevertIsFailure(t *testing.T) {
	oracle := NewEthOwnership(&stubCaller{responses: map[common.Address][]byte{}}, nil)
	if _, ok := oracle.TryGetOwner(context.Background(), common.HexToAddress("0x01")); ok {
		t.Fatalf("reverting owner() should report failure")
	}
}

func TestEthOwnershipRenouncedOwner(t *testing.T) {
	asset := common.HexToAddress("0x1000000000000000000000000000000000000001")
	caller := &stubCaller{responses: map[common.Address][]byte{asset: addressWord(common.Address{})}}
	oracle := NewEthOwnership(caller, nil)

	got, ok := oracle.TryGetOwner(context.Background(), asset)
	if !ok {
		t.Fatalf("renounced owner should still be a successful query")
	}
	if got != (common.Address{}) {
		t.Fatalf("owner = %s, want zero", got.Hex())
	}
}

func TestEthOwnershipMalformedResponse(t *testing.T) {
	asset := common.HexToAddress("0x1000000000000000000000000000000000000001")
	caller := &stubCaller{responses: map[common.Address][]byte{asset: {0x01, 0x02}}}
	oracle := NewEthOwnership(caller, nil)

	if _, ok := oracle.TryGetOwner(context.Background(), asset); ok {
		t.Fatalf("malformed response should report failure")
	}
}

func TestEthResolverTryResolve(t *testing.T) {
	router := common.HexToAddress("0x6000000000000000000000000000000000000006")
	initiator := common.HexToAddress("0x4000000000000000000000000000000000000004")

	caller := &stubCaller{responses: map[common.Address][]byte{router: addressWord(initiator)}}
	resolver := NewEthResolver(caller, nil)

	got, ok := resolver.TryResolve(context.Background(), router)
	if !ok {
		t.Fatalf("resolution failed")
	}
	if got != initiator {
		t.Fatalf("initiator = %s, want %s", got.Hex(), initiator.Hex())
	}

	if _, ok := resolver.TryResolve(context.Background(), common.HexToAddress("0x09")); ok {
		t.Fatalf("unsupported router should fail resolution")
	}
}
