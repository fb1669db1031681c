package swap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"nftmarket-go/internal/chain"
	"nftmarket-go/internal/eth"
	"nftmarket-go/internal/flow"
)

var (
	testUser   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testRouter = common.HexToAddress("0x4444444444444444444444444444444444444444")
	testQuoter = common.HexToAddress("0x5555555555555555555555555555555555555555")
	testWETH   = common.HexToAddress("0x6666666666666666666666666666666666666666")
	testUSDC   = common.HexToAddress("0x7777777777777777777777777777777777777777")
)

func testChain() chain.Config {
	return chain.Config{
		ChainID: 11155111,
		Contracts: map[chain.Role]common.Address{
			chain.RoleRouter: testRouter,
			chain.RoleQuoter: testQuoter,
			chain.RoleWETH:   testWETH,
		},
	}
}

func ethToken() chain.Token {
	return chain.Token{Address: chain.NativeAddress, Symbol: "ETH", Decimals: 18}
}

func wethToken() chain.Token {
	return chain.Token{Address: testWETH, Symbol: "WETH", Decimals: 18}
}

func usdcToken() chain.Token {
	return chain.Token{Address: testUSDC, Symbol: "USDC", Decimals: 6}
}

func oneEther() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
}

// fakeSubmitter answers quoter, allowance, and balance calls from fixed
// values and records every submitted transaction.
type fakeSubmitter struct {
	sent      []eth.TxRequest
	receipts  map[common.Hash]*eth.Receipt
	quoteOut  *big.Int
	allowance *big.Int
	balance   *big.Int
}

func newFakeSubmitter() *fakeSubmitter {
	return &fakeSubmitter{
		receipts:  map[common.Hash]*eth.Receipt{},
		quoteOut:  big.NewInt(0),
		allowance: big.NewInt(0),
		balance:   big.NewInt(0),
	}
}

func encodeUint(v *big.Int) []byte {
	return common.BigToHash(v).Bytes()
}

func (f *fakeSubmitter) SendTransaction(_ context.Context, tx eth.TxRequest) (common.Hash, error) {
	f.sent = append(f.sent, tx)
	hash := common.BigToHash(big.NewInt(int64(len(f.sent))))
	f.receipts[hash] = &eth.Receipt{TxHash: hash, Status: 1}
	return hash, nil
}

func (f *fakeSubmitter) Call(_ context.Context, call eth.CallRequest) ([]byte, error) {
	switch {
	case bytes.HasPrefix(call.Data, eth.Selector("quoteExactInputSingle(address,address,uint24,uint256,uint160)")):
		return encodeUint(f.quoteOut), nil
	case bytes.HasPrefix(call.Data, eth.Selector("allowance(address,address)")):
		return encodeUint(f.allowance), nil
	case bytes.HasPrefix(call.Data, eth.Selector("balanceOf(address)")):
		return encodeUint(f.balance), nil
	}
	return nil, fmt.Errorf("unexpected call to %s", call.To.Hex())
}

func (f *fakeSubmitter) TransactionReceipt(_ context.Context, hash common.Hash) (*eth.Receipt, error) {
	return f.receipts[hash], nil
}

func aggregatorStub(t *testing.T, hits *atomic.Int64, response string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		var req aggregatorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.TradeType != "EXACT_INPUT" {
			t.Errorf("tradeType = %q", req.TradeType)
		}
		if req.OriginChainID != req.DestinationChainID {
			t.Errorf("chain ids differ: %d vs %d", req.OriginChainID, req.DestinationChainID)
		}
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const goodAggregatorResponse = `{
	"destinationAmount": "2500000000",
	"destinationAmountMin": "2490000000",
	"fee": "1000000",
	"steps": [
		{"items": [{"data": {"to": "0x4444444444444444444444444444444444444444", "data": "0xdeadbeef", "value": "1000000000000000000"}}]}
	]
}`

func TestAggregatorQuoteEthToUSDC(t *testing.T) {
	var hits atomic.Int64
	srv := aggregatorStub(t, &hits, goodAggregatorResponse, http.StatusOK)

	engine := NewEngine(NewAggregatorStrategy(srv.URL, "relay.link/swap", zerolog.Nop()), zerolog.Nop())
	quote, err := engine.GetQuote(context.Background(), Request{
		Chain: testChain(), User: testUser,
		TokenIn: ethToken(), TokenOut: usdcToken(), AmountIn: oneEther(),
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.AmountOut.Cmp(big.NewInt(2500e6)) != 0 {
		t.Errorf("amount out = %s", quote.AmountOut)
	}
	if quote.MinAmountOut.Cmp(quote.AmountOut) > 0 {
		t.Error("minimum exceeds quoted amount")
	}
	// 1 ETH -> 2500 USDC across 18 vs 6 decimals
	if rate := quote.Rate.InexactFloat64(); rate < 2499 || rate > 2501 {
		t.Errorf("rate = %v, want ~2500", rate)
	}
	if quote.FeeAmount == nil || quote.FeeAmount.Cmp(big.NewInt(1e6)) != 0 {
		t.Errorf("fee = %v", quote.FeeAmount)
	}
	if len(quote.Steps) != 1 {
		t.Fatalf("steps = %d, want 1", len(quote.Steps))
	}
	step := quote.Steps[0]
	if step.To != testRouter || !bytes.Equal(step.Data, []byte{0xde, 0xad, 0xbe, 0xef}) {
		t.Errorf("step = %+v", step)
	}
	if step.Value.Cmp(oneEther()) != 0 {
		t.Errorf("step value = %s", step.Value)
	}
}

func TestAggregatorQuoteNestedAmounts(t *testing.T) {
	var hits atomic.Int64
	srv := aggregatorStub(t, &hits, `{
		"quote": {"destinationAmount": "100", "destinationAmountMin": "99"},
		"steps": [{"items": [{"data": {"to": "0x4444444444444444444444444444444444444444", "data": "0x00", "value": ""}}]}]
	}`, http.StatusOK)

	engine := NewEngine(NewAggregatorStrategy(srv.URL, "", zerolog.Nop()), zerolog.Nop())
	quote, err := engine.GetQuote(context.Background(), Request{
		Chain: testChain(), User: testUser,
		TokenIn: usdcToken(), TokenOut: wethToken(), AmountIn: big.NewInt(1000),
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.AmountOut.Cmp(big.NewInt(100)) != 0 || quote.MinAmountOut.Cmp(big.NewInt(99)) != 0 {
		t.Errorf("amounts = %s / %s", quote.AmountOut, quote.MinAmountOut)
	}
}

func TestAggregatorQuoteRejectsMissingMinimum(t *testing.T) {
	var hits atomic.Int64
	srv := aggregatorStub(t, &hits, `{
		"destinationAmount": "2500000000",
		"steps": [{"items": [{"data": {"to": "0x4444444444444444444444444444444444444444", "data": "0x00", "value": "0"}}]}]
	}`, http.StatusOK)

	engine := NewEngine(NewAggregatorStrategy(srv.URL, "", zerolog.Nop()), zerolog.Nop())
	_, err := engine.GetQuote(context.Background(), Request{
		Chain: testChain(), User: testUser,
		TokenIn: ethToken(), TokenOut: usdcToken(), AmountIn: oneEther(),
	})
	if !errors.Is(err, flow.ErrBadQuoteResponse) {
		t.Fatalf("err = %v, want ErrBadQuoteResponse", err)
	}
}

func TestAggregatorErrorClassification(t *testing.T) {
	cases := []struct {
		name string
		body string
		want error
	}{
		{"invalid currency code", `{"code": "INVALID_INPUT_CURRENCY", "message": "bad token"}`, flow.ErrUnsupportedCurrency},
		{"currency message", `{"message": "unsupported currency pair"}`, flow.ErrUnsupportedCurrency},
		{"chain config", `{"message": "no origin chain configuration found"}`, flow.ErrChainConfigMissing},
		{"routing", `{"message": "unable to build protocol flow"}`, flow.ErrRouteNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var hits atomic.Int64
			srv := aggregatorStub(t, &hits, tc.body, http.StatusBadRequest)
			engine := NewEngine(NewAggregatorStrategy(srv.URL, "", zerolog.Nop()), zerolog.Nop())
			_, err := engine.GetQuote(context.Background(), Request{
				Chain: testChain(), User: testUser,
				TokenIn: ethToken(), TokenOut: usdcToken(), AmountIn: oneEther(),
			})
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestIdenticalTokensRejectedBeforeBackendCall(t *testing.T) {
	var hits atomic.Int64
	srv := aggregatorStub(t, &hits, goodAggregatorResponse, http.StatusOK)

	engine := NewEngine(NewAggregatorStrategy(srv.URL, "", zerolog.Nop()), zerolog.Nop())
	// Native and wrapped resolve to the same routing token.
	_, err := engine.GetQuote(context.Background(), Request{
		Chain: testChain(), User: testUser,
		TokenIn: ethToken(), TokenOut: wethToken(), AmountIn: oneEther(),
	})
	if !errors.Is(err, flow.ErrIdenticalTokens) {
		t.Fatalf("err = %v, want ErrIdenticalTokens", err)
	}
	if hits.Load() != 0 {
		t.Errorf("backend hit %d times for an identical pair", hits.Load())
	}
}

func TestDirectQuoteAppliesSlippage(t *testing.T) {
	sub := newFakeSubmitter()
	sub.quoteOut = big.NewInt(2500e6)

	engine := NewEngine(NewDirectRouterStrategy(sub, 0, 0, zerolog.Nop()), zerolog.Nop())
	quote, err := engine.GetQuote(context.Background(), Request{
		Chain: testChain(), User: testUser,
		TokenIn: ethToken(), TokenOut: usdcToken(), AmountIn: oneEther(),
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	// 0.5% under 2500e6
	if want := big.NewInt(2487500000); quote.MinAmountOut.Cmp(want) != 0 {
		t.Errorf("min out = %s, want %s", quote.MinAmountOut, want)
	}
	if rate := quote.Rate.InexactFloat64(); rate < 2499 || rate > 2501 {
		t.Errorf("rate = %v, want ~2500", rate)
	}
	if len(quote.Steps) != 0 {
		t.Errorf("direct quote carries %d descriptor steps", len(quote.Steps))
	}
}

func TestDirectQuoteZeroOutputMeansNoRoute(t *testing.T) {
	sub := newFakeSubmitter()

	engine := NewEngine(NewDirectRouterStrategy(sub, 0, 0, zerolog.Nop()), zerolog.Nop())
	_, err := engine.GetQuote(context.Background(), Request{
		Chain: testChain(), User: testUser,
		TokenIn: ethToken(), TokenOut: usdcToken(), AmountIn: oneEther(),
	})
	if !errors.Is(err, flow.ErrRouteNotFound) {
		t.Fatalf("err = %v, want ErrRouteNotFound", err)
	}
}

func TestDirectFeeTierFlowsIntoSwapCalldata(t *testing.T) {
	sub := newFakeSubmitter()
	sub.quoteOut = big.NewInt(2500e6)
	sub.allowance = oneEther()

	req := Request{
		Chain: testChain(), User: testUser,
		TokenIn: wethToken(), TokenOut: usdcToken(), AmountIn: oneEther(),
	}
	quote, err := NewDirectRouterStrategy(sub, 500, 0, zerolog.Nop()).Quote(context.Background(), req)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.FeeTier != 500 {
		t.Fatalf("quote fee tier = %d, want 500", quote.FeeTier)
	}

	res, err := NewExecutor(sub, zerolog.Nop()).Execute(context.Background(), req, quote)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	// allowance already covers the input, so the only transaction is the swap
	if len(sub.sent) != 1 {
		t.Fatalf("sent %d transactions, want 1", len(sub.sent))
	}
	data := sub.sent[0].Data
	if !bytes.HasPrefix(data, eth.Selector("exactInputSingle((address,address,uint24,address,uint256,uint256,uint256,uint160))")) {
		t.Fatal("transaction is not exactInputSingle")
	}
	fee := new(big.Int).SetBytes(data[4+64 : 4+96])
	if fee.Int64() != 500 {
		t.Fatalf("swap fee tier = %d, want the quoted 500", fee.Int64())
	}
	if len(res.TxHashes) != 1 {
		t.Fatalf("confirmed %d hashes, want 1", len(res.TxHashes))
	}
}

func TestExecuteDirectNativeInSequence(t *testing.T) {
	sub := newFakeSubmitter()
	quote := &Quote{
		Strategy:     "direct",
		TokenIn:      ethToken(),
		TokenOut:     usdcToken(),
		AmountIn:     oneEther(),
		AmountOut:    big.NewInt(2500e6),
		MinAmountOut: big.NewInt(2487500000),
	}

	var phases []string
	x := NewExecutor(sub, zerolog.Nop())
	x.Status = func(msg string) { phases = append(phases, msg) }

	res, err := x.Execute(context.Background(), Request{
		Chain: testChain(), User: testUser,
		TokenIn: ethToken(), TokenOut: usdcToken(), AmountIn: oneEther(),
	}, quote)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	// wrap, approve, swap; no unwrap for a token output
	if len(sub.sent) != 3 {
		t.Fatalf("sent %d transactions, want 3", len(sub.sent))
	}
	wrap := sub.sent[0]
	if wrap.To != testWETH || wrap.Value.Cmp(oneEther()) != 0 {
		t.Errorf("wrap tx = %+v", wrap)
	}
	if !bytes.HasPrefix(sub.sent[1].Data, eth.Selector("approve(address,uint256)")) {
		t.Error("second tx is not approve")
	}
	swapTx := sub.sent[2]
	if swapTx.To != testRouter {
		t.Errorf("swap tx to %s, want router", swapTx.To.Hex())
	}
	if !bytes.HasPrefix(swapTx.Data, eth.Selector("exactInputSingle((address,address,uint24,address,uint256,uint256,uint256,uint160))")) {
		t.Error("third tx is not exactInputSingle")
	}
	for _, phase := range phases {
		if phase == "unwrap" {
			t.Error("unwrap phase ran for a token output")
		}
	}
	if len(res.TxHashes) != 3 {
		t.Errorf("result hashes = %d, want 3", len(res.TxHashes))
	}
}

func TestExecuteDirectSkipsApproveWhenAllowanceSufficient(t *testing.T) {
	sub := newFakeSubmitter()
	sub.allowance = oneEther()

	x := NewExecutor(sub, zerolog.Nop())
	_, err := x.Execute(context.Background(), Request{
		Chain: testChain(), User: testUser,
		TokenIn: ethToken(), TokenOut: usdcToken(), AmountIn: oneEther(),
	}, &Quote{TokenIn: ethToken(), TokenOut: usdcToken(), AmountIn: oneEther(), MinAmountOut: big.NewInt(1)})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	// wrap and swap only
	if len(sub.sent) != 2 {
		t.Fatalf("sent %d transactions, want 2", len(sub.sent))
	}
}

func TestExecuteDirectNativeOutUnwrapsFullBalance(t *testing.T) {
	sub := newFakeSubmitter()
	sub.allowance = big.NewInt(1e9)
	sub.balance = big.NewInt(123456789)

	x := NewExecutor(sub, zerolog.Nop())
	_, err := x.Execute(context.Background(), Request{
		Chain: testChain(), User: testUser,
		TokenIn: usdcToken(), TokenOut: ethToken(), AmountIn: big.NewInt(1e9),
	}, &Quote{TokenIn: usdcToken(), TokenOut: ethToken(), AmountIn: big.NewInt(1e9), MinAmountOut: big.NewInt(1)})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	// swap then unwrap; no wrap for a token input, approve skipped
	if len(sub.sent) != 2 {
		t.Fatalf("sent %d transactions, want 2", len(sub.sent))
	}
	unwrap := sub.sent[1]
	if unwrap.To != testWETH {
		t.Errorf("unwrap tx to %s, want weth", unwrap.To.Hex())
	}
	if !bytes.HasPrefix(unwrap.Data, eth.Selector("withdraw(uint256)")) {
		t.Error("second tx is not withdraw")
	}
	if !bytes.Contains(unwrap.Data, encodeUint(big.NewInt(123456789))) {
		t.Error("withdraw amount is not the full wrapped balance")
	}
}

func TestExecuteDescriptorsHaltOnChainChange(t *testing.T) {
	sub := newFakeSubmitter()
	quote := &Quote{
		Strategy: "aggregator",
		Steps: []CallStep{
			{To: testRouter, Data: []byte{1}, Value: big.NewInt(0)},
			{To: testRouter, Data: []byte{2}, Value: big.NewInt(0)},
		},
	}

	x := NewExecutor(sub, zerolog.Nop())
	calls := 0
	x.ChainProbe = func() (uint64, bool) {
		calls++
		if calls > 1 {
			return 84532, true
		}
		return 11155111, true
	}

	res, err := x.Execute(context.Background(), Request{
		Chain: testChain(), User: testUser,
		TokenIn: ethToken(), TokenOut: usdcToken(), AmountIn: oneEther(),
	}, quote)
	if !errors.Is(err, flow.ErrChainChangedMidOperation) {
		t.Fatalf("err = %v, want ErrChainChangedMidOperation", err)
	}
	// First descriptor confirmed before the chain moved; it stands.
	if len(sub.sent) != 1 {
		t.Errorf("sent %d transactions, want 1", len(sub.sent))
	}
	if len(res.TxHashes) != 1 {
		t.Errorf("result hashes = %d, want 1", len(res.TxHashes))
	}
}
