// Binary mintlist mints an NFT from an image file and lists it on the
// marketplace as one confirmation-sequenced flow.
package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"nftmarket-go/internal/backend"
	"nftmarket-go/internal/chain"
	"nftmarket-go/internal/config"
	"nftmarket-go/internal/market"
	"nftmarket-go/internal/metrics"
	"nftmarket-go/internal/util"
	"nftmarket-go/internal/wallet"
)

func main() {
	var (
		configPath  = flag.String("config", "internal/config/config.yaml", "config file path")
		imagePath   = flag.String("image", "", "image file to mint")
		name        = flag.String("name", "", "listing title")
		description = flag.String("description", "", "listing description")
		price       = flag.String("price", "", "listing price in native units, e.g. 0.05")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		color.Red("config: %v", err)
		os.Exit(1)
	}
	log := util.NewLogger(cfg.App.LogLevel)

	if *imagePath == "" || *name == "" || *price == "" {
		color.Red("usage: mintlist -image <file> -name <title> -price <amount>")
		os.Exit(1)
	}

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

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
	store := backend.New(getEnv("BACKEND_URL", cfg.Backend.BaseURL), log)

	// The backend can override the registry's marketplace and nft
	// addresses per deployment.
	if bc, err := store.ContractConfig(ctx); err == nil {
		if bc.MarketplaceAddress != "" {
			registry.SetContract(cfg.Chain.DefaultChainID, chain.RoleMarketplace, common.HexToAddress(bc.MarketplaceAddress))
		}
		if bc.NFTContractAddress != "" {
			registry.SetContract(cfg.Chain.DefaultChainID, chain.RoleNFT, common.HexToAddress(bc.NFTContractAddress))
		}
	} else {
		log.Warn().Err(err).Msg("backend contract config unavailable, using registry defaults")
	}

	switcher := wallet.NewSwitcher(session, registry, log)
	if err := switcher.EnsureChain(ctx, cfg.Chain.DefaultChainID); err != nil {
		log.Fatal().Err(err).Msg("ensure chain")
	}
	chainCfg, ok := registry.Chain(cfg.Chain.DefaultChainID)
	if !ok {
		log.Fatal().Uint64("chain", cfg.Chain.DefaultChainID).Msg("chain not in registry")
	}

	file, err := os.Open(*imagePath)
	if err != nil {
		log.Fatal().Err(err).Msg("open image")
	}
	defer file.Close()

	pipeline := market.NewPipeline(session, store, log)
	pipeline.Status = func(msg string) { color.Cyan("-> %s", msg) }
	pipeline.ChainProbe = session.CurrentChainID

	result, err := pipeline.MintList(ctx, market.MintListParams{
		Chain:       chainCfg,
		Owner:       account,
		File:        file,
		Filename:    filepath.Base(*imagePath),
		Name:        *name,
		Description: *description,
		Price:       *price,
	})
	if err != nil {
		if result != nil && result.TokenID != nil {
			color.Yellow("minted token %s (tx %s) but the flow stopped before listing",
				result.TokenID, result.MintTx.Hex())
		}
		log.Fatal().Err(err).Msg("mint and list failed")
	}

	color.Green("minted token %s and listed for %s", result.TokenID, *price)
	color.Green("mint tx: %s", result.MintTx.Hex())
	color.Green("list tx: %s", result.ListTx.Hex())
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
