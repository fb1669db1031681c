// Package wallet owns the active provider/signer handle: the session, the
// signing-bridge transport, and chain switching.
package wallet

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"nftmarket-go/internal/chain"
	"nftmarket-go/internal/eth"
)

// EventKind tags a wallet push notification.
type EventKind int

const (
	EventAccountsChanged EventKind = iota
	EventChainChanged
)

// Event is a wallet push notification: either a new account list (possibly
// empty) or a new active chain id.
type Event struct {
	Kind     EventKind
	Accounts []common.Address
	ChainID  uint64
}

// AddChainRequest carries the registry data the wallet needs to add a chain
// it does not know yet.
type AddChainRequest struct {
	ChainID      uint64
	Name         string
	Native       chain.NativeCurrency
	RPCURLs      []string
	ExplorerURLs []string
}

// Bridge is the wallet-side RPC surface. The production implementation speaks
// JSON-RPC over a websocket to the user's signing bridge; tests substitute an
// in-memory fake. Errors carrying provider codes surface as *flow.RPCError.
type Bridge interface {
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	Accounts(ctx context.Context) ([]common.Address, error)
	ChainID(ctx context.Context) (uint64, error)
	SwitchChain(ctx context.Context, chainID uint64) error
	AddChain(ctx context.Context, req AddChainRequest) error

	SendTransaction(ctx context.Context, tx eth.TxRequest) (common.Hash, error)
	Call(ctx context.Context, call eth.CallRequest) ([]byte, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*eth.Receipt, error)

	// Events streams accountsChanged/chainChanged notifications. The channel
	// closes when the bridge shuts down.
	Events() <-chan Event
	Close() error
}

func hexChainID(chainID uint64) string {
	return "0x" + new(big.Int).SetUint64(chainID).Text(16)
}
