// Package flow provides the error taxonomy and the ordered step runner shared
// by the mint/list pipeline and the swap executor.
package flow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoWallet means no wallet bridge is reachable at all.
	ErrNoWallet = errors.New("no wallet available")
	// ErrUserRejected covers a declined connection request or transaction prompt.
	ErrUserRejected = errors.New("user rejected the request")
	// ErrUserDeclinedSwitch is a declined network switch; callers decide whether to abort.
	ErrUserDeclinedSwitch = errors.New("user declined the network switch")
	// ErrUnsupportedChain means the target chain has no registry entry.
	ErrUnsupportedChain = errors.New("chain not present in the registry")
	// ErrUploadFailed means the content storage backend rejected the payload.
	ErrUploadFailed = errors.New("content upload failed")
	// ErrTokenIDNotFound means the confirmed mint receipt carried no transfer
	// event from the NFT contract. Fatal: later steps need the token id.
	ErrTokenIDNotFound = errors.New("token id not found in mint receipt")
	// ErrInvalidPrice rejects non-positive or unparseable prices before any network call.
	ErrInvalidPrice = errors.New("price must be a positive decimal")
	// ErrIdenticalTokens rejects a swap whose legs resolve to the same asset.
	ErrIdenticalTokens = errors.New("input and output tokens are identical")

	// Quote failures derived from documented aggregator error payloads.
	ErrUnsupportedCurrency = errors.New("currency not supported by the quote backend")
	ErrRouteNotFound       = errors.New("no route found for the requested pair")
	ErrChainConfigMissing  = errors.New("quote backend has no configuration for the origin chain")
	// ErrBadQuoteResponse means the aggregator answered 200 with an unusable body.
	ErrBadQuoteResponse = errors.New("malformed quote response")

	// ErrInsufficientFunds is surfaced from provider balance checks.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrTransactionReverted means the transaction was mined with status 0.
	ErrTransactionReverted = errors.New("transaction reverted")
	// ErrRPCFailure wraps provider errors that match nothing more specific.
	ErrRPCFailure = errors.New("rpc failure")
	// ErrChainChangedMidOperation aborts a flow whose session moved to another
	// chain between confirmed steps.
	ErrChainChangedMidOperation = errors.New("active chain changed mid-operation")
)

// EIP-1193 / JSON-RPC provider error codes this application reacts to.
const (
	CodeUserRejected      = 4001
	CodeUnrecognizedChain = 4902
	CodeInternal          = -32603
)

// RPCError mirrors a provider error object: a numeric code plus message.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// ClassifyRPC maps recognized provider errors onto the taxonomy. Anything
// unrecognized passes through wrapped as ErrRPCFailure with the original
// message intact.
func ClassifyRPC(err error) error {
	if err == nil {
		return nil
	}
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		msg := strings.ToLower(rpcErr.Message)
		switch {
		case rpcErr.Code == CodeUserRejected:
			return fmt.Errorf("%w: %s", ErrUserRejected, rpcErr.Message)
		case strings.Contains(msg, "insufficient funds"):
			return fmt.Errorf("%w: %s", ErrInsufficientFunds, rpcErr.Message)
		case strings.Contains(msg, "revert"):
			return fmt.Errorf("%w: %s", ErrTransactionReverted, rpcErr.Message)
		}
	}
	return fmt.Errorf("%w: %w", ErrRPCFailure, err)
}

// CodeOf extracts the provider error code, or 0 when err carries none.
func CodeOf(err error) int {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Code
	}
	return 0
}
