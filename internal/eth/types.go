// Package eth is the thin contract-call layer between the orchestration flows
// and the wallet bridge: calldata packing, transaction submission, receipt
// polling, and event-log parsing.
package eth

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TxRequest describes a transaction for the wallet to sign and submit.
type TxRequest struct {
	From  common.Address
	To    common.Address
	Data  []byte
	Value *big.Int
}

// CallRequest describes a read-only contract call.
type CallRequest struct {
	To   common.Address
	Data []byte
}

// Log is one receipt log entry.
type Log struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

// Receipt is the confirmed-transaction record the flows sequence on.
type Receipt struct {
	TxHash      common.Hash
	Status      uint64
	BlockNumber uint64
	Logs        []Log
}

// Submitter is the provider/signer surface every component shares. The
// wallet session implements it; nothing holds its own copy of the handle.
type Submitter interface {
	SendTransaction(ctx context.Context, tx TxRequest) (common.Hash, error)
	Call(ctx context.Context, call CallRequest) ([]byte, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*Receipt, error)
}
