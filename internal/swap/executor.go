package swap

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"nftmarket-go/internal/chain"
	"nftmarket-go/internal/eth"
	"nftmarket-go/internal/flow"
)

// Executor runs a quote's transaction sequence, one confirmation at a time.
// A failed phase halts the rest; confirmed phases are never compensated, so
// a swap can terminate partially complete (wrapped but not swapped) and the
// returned error reports where it stopped.
type Executor struct {
	sub        eth.Submitter
	log        zerolog.Logger
	Status     flow.StatusFunc
	ChainProbe func() (uint64, bool)
	// Deadline bounds how long the router may hold a direct swap.
	Deadline time.Duration
}

// NewExecutor wires an executor over the wallet submitter.
func NewExecutor(sub eth.Submitter, log zerolog.Logger) *Executor {
	return &Executor{
		sub:      sub,
		log:      log,
		Status:   flow.NopStatus,
		Deadline: 2 * time.Minute,
	}
}

// Result lists the confirmed transaction hashes in execution order.
type Result struct {
	TxHashes []common.Hash
}

// Execute dispatches on the quote's shape: aggregator quotes replay their
// descriptor list, direct quotes run the wrap/approve/swap/unwrap phases.
func (x *Executor) Execute(ctx context.Context, req Request, quote *Quote) (*Result, error) {
	if len(quote.Steps) > 0 {
		return x.executeDescriptors(ctx, req, quote)
	}
	return x.executeDirect(ctx, req, quote)
}

func (x *Executor) runner(name string, chainID uint64) *flow.Runner {
	return &flow.Runner{
		Flow:      name,
		Log:       x.log,
		Status:    x.Status,
		ChainID:   x.ChainProbe,
		WantChain: chainID,
	}
}

func (x *Executor) executeDescriptors(ctx context.Context, req Request, quote *Quote) (*Result, error) {
	result := &Result{}
	steps := make([]flow.Step, 0, len(quote.Steps))
	for i, call := range quote.Steps {
		call := call
		steps = append(steps, flow.Step{
			Name: fmt.Sprintf("step_%d_of_%d", i+1, len(quote.Steps)),
			Run: func(ctx context.Context) error {
				receipt, err := eth.Transact(ctx, x.sub, eth.TxRequest{
					From:  req.User,
					To:    call.To,
					Data:  call.Data,
					Value: call.Value,
				})
				if err != nil {
					return err
				}
				result.TxHashes = append(result.TxHashes, receipt.TxHash)
				return nil
			},
		})
	}
	if err := x.runner("swap_aggregator", req.Chain.ChainID).Execute(ctx, steps); err != nil {
		return result, err
	}
	return result, nil
}

func (x *Executor) executeDirect(ctx context.Context, req Request, quote *Quote) (*Result, error) {
	router, ok := req.Chain.Contract(chain.RoleRouter)
	if !ok {
		return nil, fmt.Errorf("%w: chain %d has no router", flow.ErrChainConfigMissing, req.Chain.ChainID)
	}
	wrapped, ok := req.Chain.Contract(chain.RoleWETH)
	if !ok {
		return nil, fmt.Errorf("%w: chain %d has no wrapped-native token", flow.ErrChainConfigMissing, req.Chain.ChainID)
	}
	tokenIn := resolved(req.TokenIn, wrapped)
	tokenOut := resolved(req.TokenOut, wrapped)

	result := &Result{}
	confirm := func(ctx context.Context, tx eth.TxRequest) error {
		receipt, err := eth.Transact(ctx, x.sub, tx)
		if err != nil {
			return err
		}
		result.TxHashes = append(result.TxHashes, receipt.TxHash)
		return nil
	}

	var steps []flow.Step
	if req.TokenIn.IsNative() {
		steps = append(steps, flow.Step{Name: "wrap", Run: func(ctx context.Context) error {
			return confirm(ctx, eth.TxRequest{
				From:  req.User,
				To:    wrapped,
				Data:  eth.PackDeposit(),
				Value: req.AmountIn,
			})
		}})
	}
	steps = append(steps, flow.Step{Name: "approve", Run: func(ctx context.Context) error {
		allowance, err := eth.Allowance(ctx, x.sub, tokenIn, req.User, router)
		if err != nil {
			return err
		}
		if allowance.Cmp(req.AmountIn) >= 0 {
			return nil
		}
		data, err := eth.PackApprove(router, req.AmountIn)
		if err != nil {
			return err
		}
		return confirm(ctx, eth.TxRequest{From: req.User, To: tokenIn, Data: data})
	}})
	// The swap must hit the same pool the quote priced against.
	feeTier := quote.FeeTier
	if feeTier == 0 {
		feeTier = DefaultFeeTier
	}
	steps = append(steps, flow.Step{Name: "swap", Run: func(ctx context.Context) error {
		deadline := big.NewInt(time.Now().Add(x.Deadline).Unix())
		data, err := eth.PackExactInputSingle(eth.ExactInputSingleParams{
			TokenIn:          tokenIn,
			TokenOut:         tokenOut,
			Fee:              big.NewInt(feeTier),
			Recipient:        req.User,
			Deadline:         deadline,
			AmountIn:         req.AmountIn,
			AmountOutMinimum: quote.MinAmountOut,
		})
		if err != nil {
			return err
		}
		return confirm(ctx, eth.TxRequest{From: req.User, To: router, Data: data})
	}})
	if req.TokenOut.IsNative() {
		// The router delivered wrapped tokens; unwrap whatever the account
		// now holds rather than the quoted amount, since the executed
		// output can exceed minAmountOut.
		steps = append(steps, flow.Step{Name: "unwrap", Run: func(ctx context.Context) error {
			balance, err := eth.BalanceOf(ctx, x.sub, wrapped, req.User)
			if err != nil {
				return err
			}
			if balance.Sign() == 0 {
				return nil
			}
			data, err := eth.PackWithdraw(balance)
			if err != nil {
				return err
			}
			return confirm(ctx, eth.TxRequest{From: req.User, To: wrapped, Data: data})
		}})
	}

	if err := x.runner("swap_direct", req.Chain.ChainID).Execute(ctx, steps); err != nil {
		return result, err
	}
	return result, nil
}
