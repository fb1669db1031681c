package swap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"nftmarket-go/internal/chain"
	"nftmarket-go/internal/flow"
	"nftmarket-go/internal/metrics"
)

// Engine fronts the configured strategy with the pre-flight checks both
// strategies share.
type Engine struct {
	strategy Strategy
	log      zerolog.Logger
}

// NewEngine wraps the configured strategy.
func NewEngine(strategy Strategy, log zerolog.Logger) *Engine {
	return &Engine{strategy: strategy, log: log}
}

// GetQuote validates the pair and delegates to the strategy. The identical-
// token check runs after sentinel resolution so a native-to-wrapped request,
// which both backends would route through the same token, fails up front
// without any backend call.
func (e *Engine) GetQuote(ctx context.Context, req Request) (*Quote, error) {
	if req.AmountIn == nil || req.AmountIn.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount in must be positive", flow.ErrBadQuoteResponse)
	}
	wrapped, ok := req.Chain.Contract(chain.RoleWETH)
	if !ok {
		return nil, fmt.Errorf("%w: chain %d has no wrapped-native token", flow.ErrChainConfigMissing, req.Chain.ChainID)
	}
	if resolved(req.TokenIn, wrapped) == resolved(req.TokenOut, wrapped) {
		return nil, fmt.Errorf("%w: %s and %s resolve to the same token",
			flow.ErrIdenticalTokens, req.TokenIn.Symbol, req.TokenOut.Symbol)
	}

	quote, err := e.strategy.Quote(ctx, req)
	if err != nil {
		metrics.QuotesTotal.WithLabelValues(e.strategy.Name(), "failed").Inc()
		return nil, err
	}
	if quote.MinAmountOut.Cmp(quote.AmountOut) > 0 {
		metrics.QuotesTotal.WithLabelValues(e.strategy.Name(), "failed").Inc()
		return nil, fmt.Errorf("%w: minimum exceeds quoted amount", flow.ErrBadQuoteResponse)
	}
	metrics.QuotesTotal.WithLabelValues(e.strategy.Name(), "ok").Inc()
	e.log.Debug().
		Str("strategy", quote.Strategy).
		Str("amount_in", quote.AmountIn.String()).
		Str("amount_out", quote.AmountOut.String()).
		Str("rate", quote.Rate.String()).
		Msg("quote")
	return quote, nil
}
