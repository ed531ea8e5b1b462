package oracle

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const ownableABIJSON = `[
  {"inputs": [], "name": "owner", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"}
]`

const routerABIJSON = `[
  {"inputs": [], "name": "msgSender", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"}
]`

var (
	ownableABI     abi.ABI
	ownableABIOnce sync.Once
	ownableABIErr  error
	routerABI      abi.ABI
	routerABIOnce  sync.Once
	routerABIErr   error
)

func ownableABIInstance() (abi.ABI, error) {
	ownableABIOnce.Do(func() {
		ownableABI, ownableABIErr = abi.JSON(strings.NewReader(ownableABIJSON))
	})
	return ownableABI, ownableABIErr
}

func routerABIInstance() (abi.ABI, error) {
	routerABIOnce.Do(func() {
		routerABI, routerABIErr = abi.JSON(strings.NewReader(routerABIJSON))
	})
	return routerABI, routerABIErr
}
