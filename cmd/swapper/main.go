// Binary swapper quotes and executes a token swap through the configured
// strategy (aggregator service or direct on-chain router).
package main

import (
	"context"
	"flag"
	"math/big"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"nftmarket-go/internal/chain"
	"nftmarket-go/internal/config"
	"nftmarket-go/internal/metrics"
	"nftmarket-go/internal/swap"
	"nftmarket-go/internal/util"
	"nftmarket-go/internal/wallet"
)

func main() {
	var (
		configPath = flag.String("config", "internal/config/config.yaml", "config file path")
		fromSym    = flag.String("from", "ETH", "input token symbol")
		toSym      = flag.String("to", "USDC", "output token symbol")
		amount     = flag.String("amount", "", "input amount in whole units, e.g. 0.1")
		quoteOnly  = flag.Bool("quote-only", false, "print the quote without executing")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		color.Red("config: %v", err)
		os.Exit(1)
	}
	log := util.NewLogger(cfg.App.LogLevel)

	if *amount == "" {
		color.Red("usage: swapper -from ETH -to USDC -amount 0.1")
		os.Exit(1)
	}

	_ = metrics.Serve(cfg.App.MetricsAddr)

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	bridgeURL := getEnv("WALLET_BRIDGE_URL", cfg.Bridge.URL)
	bridge, err := wallet.DialBridge(ctx, bridgeURL, time.Duration(cfg.Bridge.RequestTimeoutMs)*time.Millisecond, log)
	if err != nil {
		log.Fatal().Err(err).Msg("dial wallet bridge")
	}
	defer bridge.Close()

	session := wallet.NewSession(bridge, log)
	if err := session.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("connect wallet")
	}
	account, _ := session.CurrentAccount()
	color.Green("connected: %s", account.Hex())

	registry := chain.Default()
	switcher := wallet.NewSwitcher(session, registry, log)
	if err := switcher.EnsureChain(ctx, cfg.Chain.DefaultChainID); err != nil {
		log.Fatal().Err(err).Msg("ensure chain")
	}
	chainCfg, ok := registry.Chain(cfg.Chain.DefaultChainID)
	if !ok {
		log.Fatal().Uint64("chain", cfg.Chain.DefaultChainID).Msg("chain not in registry")
	}

	tokenIn, ok := registry.Token(chainCfg.ChainID, *fromSym)
	if !ok {
		log.Fatal().Str("symbol", *fromSym).Msg("unknown input token")
	}
	tokenOut, ok := registry.Token(chainCfg.ChainID, *toSym)
	if !ok {
		log.Fatal().Str("symbol", *toSym).Msg("unknown output token")
	}
	amountIn, err := parseAmount(*amount, tokenIn.Decimals)
	if err != nil {
		log.Fatal().Err(err).Str("amount", *amount).Msg("bad amount")
	}

	var strategy swap.Strategy
	switch cfg.Swap.Strategy {
	case "direct":
		strategy = swap.NewDirectRouterStrategy(session, 0, cfg.Swap.SlippageBps, log)
	default:
		strategy = swap.NewAggregatorStrategy(
			getEnv("AGGREGATOR_URL", cfg.Swap.AggregatorURL), cfg.Swap.Referrer, log)
	}

	engine := swap.NewEngine(strategy, log)
	req := swap.Request{
		Chain:    chainCfg,
		User:     account,
		TokenIn:  tokenIn,
		TokenOut: tokenOut,
		AmountIn: amountIn,
	}

	quote, err := engine.GetQuote(ctx, req)
	if err != nil {
		log.Fatal().Err(err).Msg("quote")
	}
	color.Cyan("quote [%s]: %s %s -> %s %s (rate %s, minimum %s)",
		quote.Strategy, *amount, tokenIn.Symbol,
		formatAmount(quote.AmountOut, tokenOut.Decimals), tokenOut.Symbol,
		quote.Rate.StringFixed(6),
		formatAmount(quote.MinAmountOut, tokenOut.Decimals))

	if *quoteOnly {
		return
	}

	executor := swap.NewExecutor(session, log)
	executor.Status = func(msg string) { color.Cyan("-> %s", msg) }
	executor.ChainProbe = session.CurrentChainID
	if cfg.Swap.DeadlineSecs > 0 {
		executor.Deadline = time.Duration(cfg.Swap.DeadlineSecs) * time.Second
	}

	result, err := executor.Execute(ctx, req, quote)
	if err != nil {
		if result != nil {
			for _, hash := range result.TxHashes {
				color.Yellow("confirmed before failure: %s", hash.Hex())
			}
		}
		log.Fatal().Err(err).Msg("swap failed")
	}
	for _, hash := range result.TxHashes {
		color.Green("confirmed: %s", hash.Hex())
	}
	color.Green("swap complete")
}

func parseAmount(s string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return d.Shift(decimals).BigInt(), nil
}

func formatAmount(v *big.Int, decimals int32) string {
	return decimal.NewFromBigInt(v, -decimals).String()
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
