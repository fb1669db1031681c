package chain

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Registry is the lookup table for chain configurations and their known tokens.
// Built once at startup; contract addresses may be overridden from the backend
// config endpoint before any flow runs.
type Registry struct {
	mu     sync.RWMutex
	chains map[uint64]Config
	tokens map[uint64]map[string]Token
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		chains: make(map[uint64]Config),
		tokens: make(map[uint64]map[string]Token),
	}
}

// Default returns the registry preloaded with the supported testnets.
func Default() *Registry {
	r := NewRegistry()

	r.AddChain(Config{
		ChainID:      11155111,
		Name:         "sepolia",
		Native:       NativeCurrency{Symbol: "ETH", Decimals: 18},
		RPCURLs:      []string{"https://rpc.sepolia.org", "https://ethereum-sepolia-rpc.publicnode.com"},
		ExplorerURLs: []string{"https://sepolia.etherscan.io"},
		Contracts: map[Role]common.Address{
			RoleMarketplace: common.HexToAddress("0xD089b7B482523405b026DF2a5caD007093252b15"),
			RoleNFT:         common.HexToAddress("0xDB9d9Bb58dB6774bbD72a9cBefb483F03Db1A5Fe"),
			RoleRouter:      common.HexToAddress("0x3bFA4769FB09eefC5a80d6E87c3B9C650f7Ae48E"),
			RoleQuoter:      common.HexToAddress("0xEd1f6473345F45b75F8179591dd5bA1888cf2FB3"),
			RoleWETH:        common.HexToAddress("0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14"),
		},
	})
	r.AddToken(11155111, Token{Address: NativeAddress, Symbol: "ETH", Decimals: 18, Name: "Ether"})
	r.AddToken(11155111, Token{Address: common.HexToAddress("0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14"), Symbol: "WETH", Decimals: 18, Name: "Wrapped Ether"})
	r.AddToken(11155111, Token{Address: common.HexToAddress("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"), Symbol: "USDC", Decimals: 6, Name: "USD Coin"})
	r.AddToken(11155111, Token{Address: common.HexToAddress("0x3e622317f8C93f7328350cF0B56d9eD4C620C5d6"), Symbol: "DAI", Decimals: 18, Name: "Dai Stablecoin"})

	r.AddChain(Config{
		ChainID:      84532,
		Name:         "base-sepolia",
		Native:       NativeCurrency{Symbol: "ETH", Decimals: 18},
		RPCURLs:      []string{"https://sepolia.base.org"},
		ExplorerURLs: []string{"https://sepolia.basescan.org"},
		Contracts: map[Role]common.Address{
			RoleMarketplace: common.HexToAddress("0x67d374fCE79f6F0Ad297b643792733a513735a54"),
			RoleNFT:         common.HexToAddress("0x6B15359C8dF1Cf4F6C3cB51d0788fED2A4B6aD9a"),
			RoleRouter:      common.HexToAddress("0x94cC0AaC535CCDB3C01d6787D6413C739ae12bc4"),
			RoleQuoter:      common.HexToAddress("0xC5290058841028F1614F3A6F0F5816cAd0df5E27"),
			RoleWETH:        common.HexToAddress("0x4200000000000000000000000000000000000006"),
		},
	})
	r.AddToken(84532, Token{Address: NativeAddress, Symbol: "ETH", Decimals: 18, Name: "Ether"})
	r.AddToken(84532, Token{Address: common.HexToAddress("0x4200000000000000000000000000000000000006"), Symbol: "WETH", Decimals: 18, Name: "Wrapped Ether"})
	r.AddToken(84532, Token{Address: common.HexToAddress("0x036CbD53842c5426634e7929541eC2318f3dCF7e"), Symbol: "USDC", Decimals: 6, Name: "USD Coin"})

	return r
}

// AddChain registers or replaces a chain configuration.
func (r *Registry) AddChain(cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chains[cfg.ChainID] = cfg
}

// AddToken registers a token under its symbol on the given chain.
func (r *Registry) AddToken(chainID uint64, tok Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bySym, ok := r.tokens[chainID]
	if !ok {
		bySym = make(map[string]Token)
		r.tokens[chainID] = bySym
	}
	bySym[tok.Symbol] = tok
}

// Chain looks up a chain configuration by id.
func (r *Registry) Chain(chainID uint64) (Config, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.chains[chainID]
	return cfg, ok
}

// Token looks up a token by chain id and symbol.
func (r *Registry) Token(chainID uint64, symbol string) (Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tok, ok := r.tokens[chainID][symbol]
	return tok, ok
}

// Tokens returns every token registered on the chain.
func (r *Registry) Tokens(chainID uint64) []Token {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Token, 0, len(r.tokens[chainID]))
	for _, tok := range r.tokens[chainID] {
		out = append(out, tok)
	}
	return out
}

// Wrapped returns the wrapped-native token for the chain. Routing and quoting
// contracts only understand the wrapped form, never the sentinel.
func (r *Registry) Wrapped(chainID uint64) (Token, bool) {
	return r.Token(chainID, "WETH")
}

// SetContract overrides a single contract address, typically from the backend
// configuration endpoint at startup.
func (r *Registry) SetContract(chainID uint64, role Role, addr common.Address) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.chains[chainID]
	if !ok {
		return false
	}
	contracts := make(map[Role]common.Address, len(cfg.Contracts)+1)
	for k, v := range cfg.Contracts {
		contracts[k] = v
	}
	contracts[role] = addr
	cfg.Contracts = contracts
	r.chains[chainID] = cfg
	return true
}
