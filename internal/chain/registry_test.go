package chain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestDefaultRegistryChains(t *testing.T) {
	r := Default()

	sepolia, ok := r.Chain(11155111)
	if !ok {
		t.Fatalf("expected sepolia entry")
	}
	if sepolia.Name != "sepolia" {
		t.Fatalf("unexpected chain name: %s", sepolia.Name)
	}
	if sepolia.Native.Symbol != "ETH" || sepolia.Native.Decimals != 18 {
		t.Fatalf("unexpected native currency: %+v", sepolia.Native)
	}
	if len(sepolia.RPCURLs) == 0 {
		t.Fatalf("expected at least one rpc url")
	}
	if _, ok := sepolia.Contract(RoleMarketplace); !ok {
		t.Fatalf("expected marketplace contract on sepolia")
	}
	if _, ok := sepolia.Contract(RoleQuoter); !ok {
		t.Fatalf("expected quoter contract on sepolia")
	}

	if _, ok := r.Chain(84532); !ok {
		t.Fatalf("expected base-sepolia entry")
	}
	if _, ok := r.Chain(1); ok {
		t.Fatalf("mainnet must not be registered")
	}
}

func TestTokenLookup(t *testing.T) {
	r := Default()

	eth, ok := r.Token(11155111, "ETH")
	if !ok {
		t.Fatalf("expected ETH token")
	}
	if !eth.IsNative() {
		t.Fatalf("ETH must use the native sentinel address")
	}

	usdc, ok := r.Token(11155111, "USDC")
	if !ok {
		t.Fatalf("expected USDC token")
	}
	if usdc.Decimals != 6 {
		t.Fatalf("unexpected USDC decimals: %d", usdc.Decimals)
	}
	if usdc.IsNative() {
		t.Fatalf("USDC must not be the native sentinel")
	}

	weth, ok := r.Wrapped(84532)
	if !ok {
		t.Fatalf("expected wrapped token on base-sepolia")
	}
	if weth.Address != common.HexToAddress("0x4200000000000000000000000000000000000006") {
		t.Fatalf("unexpected base-sepolia WETH address: %s", weth.Address.Hex())
	}
}

func TestSetContractOverride(t *testing.T) {
	r := Default()
	next := common.HexToAddress("0x00000000000000000000000000000000DeaDBeef")

	if !r.SetContract(11155111, RoleMarketplace, next) {
		t.Fatalf("override on known chain must succeed")
	}
	cfg, _ := r.Chain(11155111)
	if got, _ := cfg.Contract(RoleMarketplace); got != next {
		t.Fatalf("override not applied: %s", got.Hex())
	}

	if r.SetContract(999, RoleMarketplace, next) {
		t.Fatalf("override on unknown chain must fail")
	}
}
