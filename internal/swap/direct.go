package swap

import (
	"context"
	"fmt"
	"math/big"

	"github.com/rs/zerolog"

	"nftmarket-go/internal/chain"
	"nftmarket-go/internal/eth"
	"nftmarket-go/internal/flow"
)

// DefaultFeeTier is the router pool fee tier used for every direct quote,
// in hundredths of a basis point (3000 = 0.3%).
const DefaultFeeTier = 3000

// DefaultSlippageBps bounds the minimum-receive amount (50 = 0.5%).
const DefaultSlippageBps = 50

// DirectRouterStrategy quotes through the on-chain quoter contract. The
// quoter and router only understand the wrapped form of the native asset, so
// both legs are translated before the call.
type DirectRouterStrategy struct {
	sub         eth.Submitter
	feeTier     int64
	slippageBps int64
	log         zerolog.Logger
}

// NewDirectRouterStrategy builds the on-chain strategy. Zero feeTier or
// slippageBps select the defaults.
func NewDirectRouterStrategy(sub eth.Submitter, feeTier, slippageBps int64, log zerolog.Logger) *DirectRouterStrategy {
	if feeTier == 0 {
		feeTier = DefaultFeeTier
	}
	if slippageBps == 0 {
		slippageBps = DefaultSlippageBps
	}
	return &DirectRouterStrategy{sub: sub, feeTier: feeTier, slippageBps: slippageBps, log: log}
}

func (s *DirectRouterStrategy) Name() string { return "direct" }

func (s *DirectRouterStrategy) Quote(ctx context.Context, req Request) (*Quote, error) {
	quoter, ok := req.Chain.Contract(chain.RoleQuoter)
	if !ok {
		return nil, fmt.Errorf("%w: chain %d has no quoter", flow.ErrChainConfigMissing, req.Chain.ChainID)
	}
	wrapped, ok := req.Chain.Contract(chain.RoleWETH)
	if !ok {
		return nil, fmt.Errorf("%w: chain %d has no wrapped-native token", flow.ErrChainConfigMissing, req.Chain.ChainID)
	}

	tokenIn := resolved(req.TokenIn, wrapped)
	tokenOut := resolved(req.TokenOut, wrapped)

	amountOut, err := eth.QuoteExactInputSingle(ctx, s.sub, quoter, tokenIn, tokenOut,
		big.NewInt(s.feeTier), req.AmountIn)
	if err != nil {
		return nil, err
	}
	if amountOut.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s -> %s", flow.ErrRouteNotFound, req.TokenIn.Symbol, req.TokenOut.Symbol)
	}

	// minOut = amountOut * (10000 - slippageBps) / 10000
	minOut := new(big.Int).Mul(amountOut, big.NewInt(10000-s.slippageBps))
	minOut.Quo(minOut, big.NewInt(10000))

	return &Quote{
		Strategy:     s.Name(),
		TokenIn:      req.TokenIn,
		TokenOut:     req.TokenOut,
		AmountIn:     new(big.Int).Set(req.AmountIn),
		AmountOut:    amountOut,
		MinAmountOut: minOut,
		Rate:         rate(req.AmountIn, amountOut, req.TokenIn.Decimals, req.TokenOut.Decimals),
		FeeTier:      s.feeTier,
	}, nil
}
