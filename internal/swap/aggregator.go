package swap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"

	"nftmarket-go/internal/flow"
)

// AggregatorStrategy quotes through an external relay-style HTTP service.
// The service resolves routing itself and returns the exact transactions to
// submit, so execution is just replaying its descriptor list in order.
type AggregatorStrategy struct {
	url      string
	referrer string
	http     *http.Client
	log      zerolog.Logger
}

// NewAggregatorStrategy points the strategy at the quote endpoint.
func NewAggregatorStrategy(url, referrer string, log zerolog.Logger) *AggregatorStrategy {
	return &AggregatorStrategy{
		url:      url,
		referrer: referrer,
		http:     &http.Client{Timeout: 20 * time.Second},
		log:      log,
	}
}

func (s *AggregatorStrategy) Name() string { return "aggregator" }

type aggregatorRequest struct {
	User                 string `json:"user"`
	OriginChainID        uint64 `json:"originChainId"`
	DestinationChainID   uint64 `json:"destinationChainId"`
	OriginCurrency       string `json:"originCurrency"`
	DestinationCurrency  string `json:"destinationCurrency"`
	Recipient            string `json:"recipient"`
	TradeType            string `json:"tradeType"`
	Amount               string `json:"amount"`
	Referrer             string `json:"referrer"`
	UseExternalLiquidity bool   `json:"useExternalLiquidity"`
}

type aggregatorCallData struct {
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value"`
}

type aggregatorItem struct {
	Data *aggregatorCallData `json:"data"`
}

type aggregatorStep struct {
	Items []aggregatorItem `json:"items"`
}

// aggregatorAmounts appear either at the top level or nested under "quote".
type aggregatorAmounts struct {
	DestinationAmount    string `json:"destinationAmount"`
	DestinationAmountMin string `json:"destinationAmountMin"`
	Fee                  string `json:"fee"`
}

type aggregatorResponse struct {
	aggregatorAmounts
	Quote *aggregatorAmounts `json:"quote"`
	Steps []aggregatorStep   `json:"steps"`
}

type aggregatorError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// classifyQuoteError maps the service's documented error payloads onto the
// quote-failure taxonomy; everything else passes through as a plain error
// carrying the original message.
func classifyQuoteError(status int, payload aggregatorError) error {
	msg := payload.Message
	if msg == "" {
		msg = payload.Error
	}
	switch {
	case payload.Code == "INVALID_INPUT_CURRENCY" || payload.Code == "INVALID_OUTPUT_CURRENCY":
		return fmt.Errorf("%w: %s", flow.ErrUnsupportedCurrency, msg)
	case strings.Contains(msg, "currency"):
		return fmt.Errorf("%w: %s", flow.ErrUnsupportedCurrency, msg)
	case strings.Contains(msg, "origin chain configuration"):
		return fmt.Errorf("%w: %s", flow.ErrChainConfigMissing, msg)
	case strings.Contains(msg, "protocol flow"):
		return fmt.Errorf("%w: %s", flow.ErrRouteNotFound, msg)
	}
	if msg == "" {
		return fmt.Errorf("quote failed: status %d", status)
	}
	return fmt.Errorf("quote failed: status %d: %s", status, msg)
}

func (s *AggregatorStrategy) Quote(ctx context.Context, req Request) (*Quote, error) {
	body, err := json.Marshal(aggregatorRequest{
		User:                 req.User.Hex(),
		OriginChainID:        req.Chain.ChainID,
		DestinationChainID:   req.Chain.ChainID,
		OriginCurrency:       req.TokenIn.Address.Hex(),
		DestinationCurrency:  req.TokenOut.Address.Hex(),
		Recipient:            req.User.Hex(),
		TradeType:            "EXACT_INPUT",
		Amount:               req.AmountIn.String(),
		Referrer:             s.referrer,
		UseExternalLiquidity: true,
	})
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("quote request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var payload aggregatorError
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return nil, classifyQuoteError(resp.StatusCode, payload)
	}

	var parsed aggregatorResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", flow.ErrBadQuoteResponse, err)
	}
	return s.buildQuote(req, &parsed)
}

func (s *AggregatorStrategy) buildQuote(req Request, parsed *aggregatorResponse) (*Quote, error) {
	amounts := parsed.aggregatorAmounts
	if parsed.Quote != nil {
		if amounts.DestinationAmount == "" {
			amounts.DestinationAmount = parsed.Quote.DestinationAmount
		}
		if amounts.DestinationAmountMin == "" {
			amounts.DestinationAmountMin = parsed.Quote.DestinationAmountMin
		}
		if amounts.Fee == "" {
			amounts.Fee = parsed.Quote.Fee
		}
	}
	amountOut, ok := new(big.Int).SetString(amounts.DestinationAmount, 10)
	if !ok {
		return nil, fmt.Errorf("%w: destination amount %q", flow.ErrBadQuoteResponse, amounts.DestinationAmount)
	}
	// A quote without an explicit minimum has no slippage bound at all;
	// refusing it beats silently executing with no floor.
	minOut, ok := new(big.Int).SetString(amounts.DestinationAmountMin, 10)
	if !ok {
		return nil, fmt.Errorf("%w: no minimum destination amount", flow.ErrBadQuoteResponse)
	}
	if minOut.Cmp(amountOut) > 0 {
		return nil, fmt.Errorf("%w: minimum %s exceeds amount %s", flow.ErrBadQuoteResponse, minOut, amountOut)
	}

	var feeAmount *big.Int
	if amounts.Fee != "" {
		if fee, ok := new(big.Int).SetString(amounts.Fee, 10); ok {
			feeAmount = fee
		}
	}

	var steps []CallStep
	for _, step := range parsed.Steps {
		for _, item := range step.Items {
			if item.Data == nil {
				continue
			}
			data, err := hexutil.Decode(item.Data.Data)
			if err != nil {
				return nil, fmt.Errorf("%w: step calldata: %v", flow.ErrBadQuoteResponse, err)
			}
			value := big.NewInt(0)
			if item.Data.Value != "" {
				if _, ok := value.SetString(item.Data.Value, 10); !ok {
					return nil, fmt.Errorf("%w: step value %q", flow.ErrBadQuoteResponse, item.Data.Value)
				}
			}
			steps = append(steps, CallStep{
				To:    common.HexToAddress(item.Data.To),
				Data:  data,
				Value: value,
			})
		}
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: no executable steps", flow.ErrBadQuoteResponse)
	}

	return &Quote{
		Strategy:     s.Name(),
		TokenIn:      req.TokenIn,
		TokenOut:     req.TokenOut,
		AmountIn:     new(big.Int).Set(req.AmountIn),
		AmountOut:    amountOut,
		MinAmountOut: minOut,
		Rate:         rate(req.AmountIn, amountOut, req.TokenIn.Decimals, req.TokenOut.Decimals),
		FeeAmount:    feeAmount,
		Steps:        steps,
	}, nil
}
