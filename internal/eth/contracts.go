package eth

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"nftmarket-go/internal/flow"
)

// ERC-20.

// PackApprove builds approve(spender, amount) calldata.
func PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	return pack("approve(address,uint256)",
		abi.Arguments{{Type: addressT}, {Type: uint256T}}, spender, amount)
}

// Allowance reads allowance(owner, spender) on the token contract.
func Allowance(ctx context.Context, sub Submitter, token, owner, spender common.Address) (*big.Int, error) {
	const sig = "allowance(address,address)"
	data, err := pack(sig, abi.Arguments{{Type: addressT}, {Type: addressT}}, owner, spender)
	if err != nil {
		return nil, err
	}
	out, err := sub.Call(ctx, CallRequest{To: token, Data: data})
	if err != nil {
		return nil, flow.ClassifyRPC(err)
	}
	return unpackBigInt(sig, out)
}

// BalanceOf reads balanceOf(account) on the token contract.
func BalanceOf(ctx context.Context, sub Submitter, token, account common.Address) (*big.Int, error) {
	const sig = "balanceOf(address)"
	data, err := pack(sig, abi.Arguments{{Type: addressT}}, account)
	if err != nil {
		return nil, err
	}
	out, err := sub.Call(ctx, CallRequest{To: token, Data: data})
	if err != nil {
		return nil, flow.ClassifyRPC(err)
	}
	return unpackBigInt(sig, out)
}

// ERC-721.

// PackMint builds mint(uri) calldata.
func PackMint(uri string) ([]byte, error) {
	return pack("mint(string)", abi.Arguments{{Type: stringT}}, uri)
}

// PackApproveToken builds the per-token approve(to, tokenId) calldata.
func PackApproveToken(to common.Address, tokenID *big.Int) ([]byte, error) {
	return pack("approve(address,uint256)",
		abi.Arguments{{Type: addressT}, {Type: uint256T}}, to, tokenID)
}

// PackSetApprovalForAll builds setApprovalForAll(operator, approved) calldata.
func PackSetApprovalForAll(operator common.Address, approved bool) ([]byte, error) {
	return pack("setApprovalForAll(address,bool)",
		abi.Arguments{{Type: addressT}, {Type: boolT}}, operator, approved)
}

// IsApprovedForAll reads the blanket approval status on the NFT contract.
func IsApprovedForAll(ctx context.Context, sub Submitter, nft, owner, operator common.Address) (bool, error) {
	const sig = "isApprovedForAll(address,address)"
	data, err := pack(sig, abi.Arguments{{Type: addressT}, {Type: addressT}}, owner, operator)
	if err != nil {
		return false, err
	}
	out, err := sub.Call(ctx, CallRequest{To: nft, Data: data})
	if err != nil {
		return false, flow.ClassifyRPC(err)
	}
	return unpackBool(sig, out)
}

// Marketplace.

// PackListItem builds listItem(nftAddress, tokenId, price) calldata.
func PackListItem(nft common.Address, tokenID, price *big.Int) ([]byte, error) {
	return pack("listItem(address,uint256,uint256)",
		abi.Arguments{{Type: addressT}, {Type: uint256T}, {Type: uint256T}}, nft, tokenID, price)
}

// PackBuyItem builds buyItem(nftAddress, tokenId) calldata; the price rides
// along as the transaction value.
func PackBuyItem(nft common.Address, tokenID *big.Int) ([]byte, error) {
	return pack("buyItem(address,uint256)",
		abi.Arguments{{Type: addressT}, {Type: uint256T}}, nft, tokenID)
}

// Router / quoter (Uniswap v3 single-hop, exact input).

// ExactInputSingleParams mirror the router's struct argument.
type ExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

// PackExactInputSingle builds the router swap calldata.
func PackExactInputSingle(params ExactInputSingleParams) ([]byte, error) {
	if params.SqrtPriceLimitX96 == nil {
		params.SqrtPriceLimitX96 = big.NewInt(0)
	}
	return pack("exactInputSingle((address,address,uint24,address,uint256,uint256,uint256,uint160))",
		abi.Arguments{{Type: exactInputSingleT}}, params)
}

// QuoteExactInputSingle performs the read-only quoter call and returns the
// expected output amount.
func QuoteExactInputSingle(ctx context.Context, sub Submitter, quoter, tokenIn, tokenOut common.Address, fee, amountIn *big.Int) (*big.Int, error) {
	const sig = "quoteExactInputSingle(address,address,uint24,uint256,uint160)"
	data, err := pack(sig,
		abi.Arguments{{Type: addressT}, {Type: addressT}, {Type: uint24T}, {Type: uint256T}, {Type: uint160T}},
		tokenIn, tokenOut, fee, amountIn, big.NewInt(0))
	if err != nil {
		return nil, err
	}
	out, err := sub.Call(ctx, CallRequest{To: quoter, Data: data})
	if err != nil {
		return nil, flow.ClassifyRPC(err)
	}
	return unpackBigInt(sig, out)
}

// Wrapped native.

// PackDeposit builds the weth deposit() calldata; the wrap amount is the value.
func PackDeposit() []byte {
	return Selector("deposit()")
}

// PackWithdraw builds withdraw(amount) calldata.
func PackWithdraw(amount *big.Int) ([]byte, error) {
	return pack("withdraw(uint256)", abi.Arguments{{Type: uint256T}}, amount)
}

// TokenIDFromReceipt scans a confirmed mint receipt for the Transfer event
// emitted by the NFT contract and returns the assigned token id.
func TokenIDFromReceipt(receipt *Receipt, nft common.Address) (*big.Int, error) {
	for _, log := range receipt.Logs {
		if log.Address != nft {
			continue
		}
		if len(log.Topics) != 4 || log.Topics[0] != TransferTopic {
			continue
		}
		return new(big.Int).SetBytes(log.Topics[3].Bytes()), nil
	}
	return nil, flow.ErrTokenIDNotFound
}
