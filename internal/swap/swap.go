// Package swap quotes and executes token swaps through one of two
// interchangeable strategies: an external aggregator HTTP service that
// returns ready-made call descriptors, or a direct single-hop router with an
// on-chain quoter. Callers pick the strategy once at configuration time; the
// quote/execute contract is identical for both.
package swap

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"nftmarket-go/internal/chain"
)

// Request describes a prospective exact-input swap.
type Request struct {
	Chain    chain.Config
	User     common.Address
	TokenIn  chain.Token
	TokenOut chain.Token
	AmountIn *big.Int
}

// CallStep is one raw transaction descriptor from an aggregator quote.
type CallStep struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// Quote is a fresh, immutable price estimate. Aggregator quotes carry their
// execution descriptors in Steps; direct-router quotes leave Steps empty and
// the executor derives the phase sequence itself.
type Quote struct {
	Strategy     string
	TokenIn      chain.Token
	TokenOut     chain.Token
	AmountIn     *big.Int
	AmountOut    *big.Int
	MinAmountOut *big.Int
	Rate         decimal.Decimal
	// FeeAmount is in the output token's minor units; nil when the backend
	// does not report one.
	FeeAmount *big.Int
	// FeeTier is the router pool tier the quote priced against; zero for
	// aggregator quotes, which carry their own descriptors.
	FeeTier int64
	Steps   []CallStep
}

// Strategy is the pluggable quote backend.
type Strategy interface {
	Name() string
	Quote(ctx context.Context, req Request) (*Quote, error)
}

// rate is amountOut over amountIn with both sides scaled out of minor units.
func rate(amountIn, amountOut *big.Int, decimalsIn, decimalsOut int32) decimal.Decimal {
	in := decimal.NewFromBigInt(amountIn, -decimalsIn)
	if in.IsZero() {
		return decimal.Zero
	}
	out := decimal.NewFromBigInt(amountOut, -decimalsOut)
	return out.Div(in)
}

// resolved maps the native sentinel to the chain's wrapped-native token
// address; non-native addresses pass through.
func resolved(token chain.Token, wrapped common.Address) common.Address {
	if token.IsNative() {
		return wrapped
	}
	return token.Address
}
