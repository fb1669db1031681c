// Package market drives the marketplace flows: minting and listing an NFT
// as one confirmation-sequenced pipeline, and buying a listed item.
package market

import (
	"context"
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"nftmarket-go/internal/approval"
	"nftmarket-go/internal/backend"
	"nftmarket-go/internal/chain"
	"nftmarket-go/internal/eth"
	"nftmarket-go/internal/flow"
)

// Pipeline executes marketplace flows against a connected wallet session.
// Status, when set, receives progress messages before each step. ChainProbe,
// when set, is consulted before every step so a wallet-side network change
// aborts the flow instead of landing a transaction on the wrong chain.
type Pipeline struct {
	sub        eth.Submitter
	store      *backend.Client
	approvals  *approval.Resolver
	log        zerolog.Logger
	Status     flow.StatusFunc
	ChainProbe func() (uint64, bool)
}

// NewPipeline wires a pipeline over a transaction submitter and the backend
// content store.
func NewPipeline(sub eth.Submitter, store *backend.Client, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		sub:       sub,
		store:     store,
		approvals: approval.NewResolver(sub, log),
		log:       log,
		Status:    flow.NopStatus,
	}
}

// MintListParams describes one mint-and-list run.
type MintListParams struct {
	Chain       chain.Config
	Owner       common.Address
	File        io.Reader
	Filename    string
	Name        string
	Description string
	// Price is the listing price in whole native units (e.g. "0.05").
	Price string
}

// MintListResult carries the artifacts of a mint-and-list run. On a partial
// failure the populated fields tell the caller where the flow stopped: a
// non-nil TokenID with Listed false means the NFT exists but is unlisted.
type MintListResult struct {
	MetadataCID string
	TokenID     *big.Int
	MintTx      common.Hash
	ListTx      common.Hash
	Listed      bool
}

// ParsePriceWei converts a decimal native-unit price into wei. Zero,
// negative, malformed, and sub-wei precision prices are all rejected.
func ParsePriceWei(price string) (*big.Int, error) {
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", flow.ErrInvalidPrice, price)
	}
	if d.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %q", flow.ErrInvalidPrice, price)
	}
	wei := d.Shift(18)
	if !wei.IsInteger() {
		return nil, fmt.Errorf("%w: %q has sub-wei precision", flow.ErrInvalidPrice, price)
	}
	return wei.BigInt(), nil
}

// MintList uploads content, mints against the resulting metadata URI, grants
// marketplace approval, and lists the token. Each transaction waits for its
// receipt before the next step starts. A failed step halts the flow; already
// confirmed steps stand, and the returned result reports how far it got.
func (p *Pipeline) MintList(ctx context.Context, params MintListParams) (*MintListResult, error) {
	priceWei, err := ParsePriceWei(params.Price)
	if err != nil {
		return nil, err
	}
	marketplace, ok := params.Chain.Contracts[chain.RoleMarketplace]
	if !ok {
		return nil, fmt.Errorf("%w: chain %d has no marketplace", flow.ErrChainConfigMissing, params.Chain.ChainID)
	}
	nft, ok := params.Chain.Contracts[chain.RoleNFT]
	if !ok {
		return nil, fmt.Errorf("%w: chain %d has no nft contract", flow.ErrChainConfigMissing, params.Chain.ChainID)
	}

	result := &MintListResult{}
	runner := &flow.Runner{
		Flow:      "mint_list",
		Log:       p.log,
		Status:    p.Status,
		ChainID:   p.ChainProbe,
		WantChain: params.Chain.ChainID,
	}
	err = runner.Execute(ctx, []flow.Step{
		{Name: "upload", Run: func(ctx context.Context) error {
			up, err := p.store.Upload(ctx, params.Filename, params.Name, params.Description, params.File)
			if err != nil {
				return err
			}
			result.MetadataCID = up.MetadataCID
			return nil
		}},
		{Name: "mint", Run: func(ctx context.Context) error {
			data, err := eth.PackMint("ipfs://" + result.MetadataCID)
			if err != nil {
				return err
			}
			receipt, err := eth.Transact(ctx, p.sub, eth.TxRequest{From: params.Owner, To: nft, Data: data})
			if err != nil {
				return err
			}
			result.MintTx = receipt.TxHash
			tokenID, err := eth.TokenIDFromReceipt(receipt, nft)
			if err != nil {
				// Without the token id the listing call cannot be built,
				// even though the mint itself confirmed.
				return err
			}
			result.TokenID = tokenID
			return nil
		}},
		{Name: "approve", Run: func(ctx context.Context) error {
			return p.approvals.EnsureApproval(ctx, nft, params.Owner, marketplace, result.TokenID)
		}},
		{Name: "list", Run: func(ctx context.Context) error {
			data, err := eth.PackListItem(nft, result.TokenID, priceWei)
			if err != nil {
				return err
			}
			receipt, err := eth.Transact(ctx, p.sub, eth.TxRequest{From: params.Owner, To: marketplace, Data: data})
			if err != nil {
				return err
			}
			result.ListTx = receipt.TxHash
			result.Listed = true
			return nil
		}},
	})
	if err != nil {
		return result, err
	}

	if rerr := p.store.Reindex(ctx); rerr != nil {
		p.log.Warn().Err(rerr).Msg("reindex after listing failed; listing will surface on the next refresh")
	}
	return result, nil
}

// BuyParams identifies a listed item and the price to pay for it.
type BuyParams struct {
	Chain    chain.Config
	Buyer    common.Address
	TokenID  *big.Int
	PriceWei *big.Int
}

// Buy purchases a listed item, sending the listing price as transaction
// value, and waits for confirmation.
func (p *Pipeline) Buy(ctx context.Context, params BuyParams) (common.Hash, error) {
	marketplace, ok := params.Chain.Contracts[chain.RoleMarketplace]
	if !ok {
		return common.Hash{}, fmt.Errorf("%w: chain %d has no marketplace", flow.ErrChainConfigMissing, params.Chain.ChainID)
	}
	nft, ok := params.Chain.Contracts[chain.RoleNFT]
	if !ok {
		return common.Hash{}, fmt.Errorf("%w: chain %d has no nft contract", flow.ErrChainConfigMissing, params.Chain.ChainID)
	}
	data, err := eth.PackBuyItem(nft, params.TokenID)
	if err != nil {
		return common.Hash{}, err
	}
	p.Status("buy")
	receipt, err := eth.Transact(ctx, p.sub, eth.TxRequest{
		From:  params.Buyer,
		To:    marketplace,
		Data:  data,
		Value: params.PriceWei,
	})
	if err != nil {
		return common.Hash{}, err
	}

	if rerr := p.store.Reindex(ctx); rerr != nil {
		p.log.Warn().Err(rerr).Msg("reindex after purchase failed")
	}
	return receipt.TxHash, nil
}
