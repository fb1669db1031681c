// Package chain holds the static table of supported chain configurations and their token lists.
package chain

import "github.com/ethereum/go-ethereum/common"

// Role names a contract slot inside a chain configuration.
type Role string

const (
	RoleMarketplace Role = "marketplace"
	RoleNFT         Role = "nft"
	RoleRouter      Role = "router"
	RoleQuoter      Role = "quoter"
	RoleWETH        Role = "weth"
)

// NativeCurrency describes the chain's gas asset.
type NativeCurrency struct {
	Symbol   string
	Decimals uint8
}

// Config is the immutable per-chain record: identity, endpoints, and the
// contract addresses this application talks to on that chain.
type Config struct {
	ChainID      uint64
	Name         string
	Native       NativeCurrency
	RPCURLs      []string
	ExplorerURLs []string
	Contracts    map[Role]common.Address
}

// Contract returns the address registered under the given role.
func (c Config) Contract(role Role) (common.Address, bool) {
	addr, ok := c.Contracts[role]
	return addr, ok
}

// Token describes an asset the swap and marketplace flows can reference.
// The zero address is the native-asset sentinel.
type Token struct {
	Address  common.Address
	Symbol   string
	Decimals int32
	Name     string
}

// NativeAddress is the sentinel address standing in for the chain's native asset.
var NativeAddress = common.Address{}

// IsNative reports whether the token is the native-asset sentinel.
func (t Token) IsNative() bool {
	return t.Address == NativeAddress
}
