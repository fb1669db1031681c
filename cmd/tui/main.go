// Binary tui is a small interactive control for editing the marketplace
// configuration and launching the flow binaries.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"nftmarket-go/internal/chain"
	"nftmarket-go/internal/config"
)

const defaultConfigPath = "internal/config/config.yaml"

func main() {
	reader := bufio.NewReader(os.Stdin)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	for {
		fmt.Println("\n=== Marketplace Control ===")
		fmt.Println("1) Show configuration summary")
		fmt.Println("2) Edit swap settings")
		fmt.Println("3) Edit bridge and backend endpoints")
		fmt.Println("4) Save config")
		fmt.Println("5) Launch swapper (quote only)")
		fmt.Println("6) Reload config from disk")
		fmt.Println("0) Exit")
		fmt.Print("Select option: ")

		input, _ := reader.ReadString('\n')
		choice := strings.TrimSpace(input)

		switch choice {
		case "1":
			printSummary(cfg)
		case "2":
			editSwap(reader, cfg)
		case "3":
			editEndpoints(reader, cfg)
		case "4":
			if err := saveConfig(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			} else {
				fmt.Println("config saved")
			}
		case "5":
			launchSwapper(reader)
		case "6":
			reloaded, err := loadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			} else {
				cfg = reloaded
				fmt.Println("config reloaded")
			}
		case "0":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func printSummary(cfg *config.Config) {
	fmt.Println("\n--- Configuration Summary ---")
	fmt.Printf("App: %s (%s)\n", cfg.App.Name, cfg.App.Env)
	fmt.Printf("Wallet bridge: %s (request timeout %dms)\n", cfg.Bridge.URL, cfg.Bridge.RequestTimeoutMs)
	fmt.Printf("Backend: %s\n", cfg.Backend.BaseURL)
	fmt.Printf("Swap strategy: %s\n", cfg.Swap.Strategy)
	fmt.Printf("Aggregator URL: %s\n", cfg.Swap.AggregatorURL)
	fmt.Printf("Slippage: %d bps | deadline: %ds\n", cfg.Swap.SlippageBps, cfg.Swap.DeadlineSecs)
	fmt.Printf("Default chain: %d\n", cfg.Chain.DefaultChainID)
	if chainCfg, ok := chain.Default().Chain(cfg.Chain.DefaultChainID); ok {
		fmt.Printf("Chain name: %s | native: %s\n", chainCfg.Name, chainCfg.Native.Symbol)
	}
}

func editSwap(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Swap Settings ---")
	fmt.Printf("Strategy (aggregator|direct) [%s]: ", cfg.Swap.Strategy)
	if line, _ := reader.ReadString('\n'); strings.TrimSpace(line) != "" {
		switch strategy := strings.TrimSpace(line); strategy {
		case "aggregator", "direct":
			cfg.Swap.Strategy = strategy
		default:
			fmt.Printf("unknown strategy, keeping %s\n", cfg.Swap.Strategy)
		}
	}
	cfg.Swap.SlippageBps = promptInt(reader, "Slippage tolerance (bps)", cfg.Swap.SlippageBps)
	cfg.Swap.DeadlineSecs = promptInt(reader, "Swap deadline (seconds)", cfg.Swap.DeadlineSecs)
	cfg.Chain.DefaultChainID = uint64(promptInt(reader, "Default chain id", int64(cfg.Chain.DefaultChainID)))
}

func editEndpoints(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Endpoints ---")
	cfg.Bridge.URL = promptString(reader, "Wallet bridge URL", cfg.Bridge.URL)
	cfg.Backend.BaseURL = promptString(reader, "Backend base URL", cfg.Backend.BaseURL)
	cfg.Swap.AggregatorURL = promptString(reader, "Aggregator quote URL", cfg.Swap.AggregatorURL)
}

func launchSwapper(reader *bufio.Reader) {
	from := promptString(reader, "From token", "ETH")
	to := promptString(reader, "To token", "USDC")
	amount := promptString(reader, "Amount", "0.1")

	fmt.Println("Fetching quote (Ctrl+C to stop)...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/swapper",
		"-from", from, "-to", to, "-amount", amount, "-quote-only")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start swapper: %v\n", err)
		return
	}

	go func() {
		_ = cmd.Wait()
		cancel()
	}()

	fmt.Print("\nPress ENTER to return to menu...")
	_, _ = reader.ReadString('\n')
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func promptInt(reader *bufio.Reader, label string, current int64) int64 {
	fmt.Printf("%s [%d]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.ParseInt(line, 10, 64)
	if err != nil {
		fmt.Printf("invalid number, keeping %d\n", current)
		return current
	}
	return val
}

func promptString(reader *bufio.Reader, label, current string) string {
	fmt.Printf("%s [%s]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	return line
}

func loadConfig() (*config.Config, error) {
	return config.Load(locateConfig())
}

func saveConfig(cfg *config.Config) error {
	return config.Save(locateConfig(), cfg)
}

func locateConfig() string {
	if filepath.IsAbs(defaultConfigPath) {
		return defaultConfigPath
	}
	return filepath.Clean(defaultConfigPath)
}
