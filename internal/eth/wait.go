package eth

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"nftmarket-go/internal/flow"
	"nftmarket-go/internal/metrics"
)

// ReceiptPollInterval is how often WaitMined re-asks the provider for a receipt.
var ReceiptPollInterval = 3 * time.Second

// WaitMined blocks until the transaction has a receipt, then checks its
// status. Confirmation, not submission, is the unit of sequencing for every
// flow in this codebase.
func WaitMined(ctx context.Context, sub Submitter, hash common.Hash) (*Receipt, error) {
	for {
		receipt, err := sub.TransactionReceipt(ctx, hash)
		if err != nil {
			return nil, flow.ClassifyRPC(err)
		}
		if receipt != nil {
			if receipt.Status == 0 {
				metrics.TransactionsTotal.WithLabelValues("reverted").Inc()
				return receipt, fmt.Errorf("%w: tx %s", flow.ErrTransactionReverted, hash.Hex())
			}
			metrics.TransactionsTotal.WithLabelValues("confirmed").Inc()
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(ReceiptPollInterval):
		}
	}
}

// Transact submits the transaction through the wallet and waits for its
// confirmation.
func Transact(ctx context.Context, sub Submitter, tx TxRequest) (*Receipt, error) {
	hash, err := sub.SendTransaction(ctx, tx)
	if err != nil {
		metrics.TransactionsTotal.WithLabelValues("failed").Inc()
		return nil, flow.ClassifyRPC(err)
	}
	return WaitMined(ctx, sub, hash)
}
