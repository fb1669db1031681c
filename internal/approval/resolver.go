// Package approval decides whether a marketplace transfer approval is needed
// and performs it with a two-tier fallback.
package approval

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"nftmarket-go/internal/eth"
)

// Resolver grants the marketplace transfer rights over a token. Blanket
// approval is preferred because it amortizes gas across future listings; the
// per-token path guards against contracts that do not implement it.
type Resolver struct {
	log zerolog.Logger
	sub eth.Submitter
}

// NewResolver wires the resolver to the shared wallet submitter.
func NewResolver(sub eth.Submitter, log zerolog.Logger) *Resolver {
	return &Resolver{log: log, sub: sub}
}

// EnsureApproval makes the operator able to transfer the token. Already
// granted blanket approval costs nothing: no transaction is sent. Otherwise
// exactly one of the blanket or per-token approval transactions runs, never
// both; the per-token path only fires when the blanket attempt errored.
func (r *Resolver) EnsureApproval(ctx context.Context, nft, owner, operator common.Address, tokenID *big.Int) error {
	granted, err := eth.IsApprovedForAll(ctx, r.sub, nft, owner, operator)
	if err == nil && granted {
		r.log.Debug().Str("operator", operator.Hex()).Msg("blanket approval already granted")
		return nil
	}
	if err != nil {
		r.log.Warn().Err(err).Msg("isApprovedForAll failed, attempting blanket approval anyway")
	}

	data, err := eth.PackSetApprovalForAll(operator, true)
	if err != nil {
		return err
	}
	_, blanketErr := eth.Transact(ctx, r.sub, eth.TxRequest{From: owner, To: nft, Data: data})
	if blanketErr == nil {
		return nil
	}
	r.log.Warn().Err(blanketErr).Msg("setApprovalForAll failed, falling back to per-token approval")

	data, err = eth.PackApproveToken(operator, tokenID)
	if err != nil {
		return err
	}
	_, err = eth.Transact(ctx, r.sub, eth.TxRequest{From: owner, To: nft, Data: data})
	return err
}
