package eth

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
)

// TransferTopic is the ERC-721/ERC-20 Transfer event signature hash.
var TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

var (
	addressT = mustType("address")
	uint256T = mustType("uint256")
	uint24T  = mustType("uint24")
	uint160T = mustType("uint160")
	boolT    = mustType("bool")
	stringT  = mustType("string")

	exactInputSingleT = mustTupleType([]abi.ArgumentMarshaling{
		{Name: "tokenIn", Type: "address"},
		{Name: "tokenOut", Type: "address"},
		{Name: "fee", Type: "uint24"},
		{Name: "recipient", Type: "address"},
		{Name: "deadline", Type: "uint256"},
		{Name: "amountIn", Type: "uint256"},
		{Name: "amountOutMinimum", Type: "uint256"},
		{Name: "sqrtPriceLimitX96", Type: "uint160"},
	})
)

func mustType(name string) abi.Type {
	t, err := abi.NewType(name, "", nil)
	if err != nil {
		panic(err)
	}
	return t
}

func mustTupleType(components []abi.ArgumentMarshaling) abi.Type {
	t, err := abi.NewType("tuple", "", components)
	if err != nil {
		panic(err)
	}
	return t
}

// Selector returns the 4-byte function selector for a canonical signature.
func Selector(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

func pack(signature string, args abi.Arguments, values ...interface{}) ([]byte, error) {
	encoded, err := args.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", signature, err)
	}
	return append(Selector(signature), encoded...), nil
}

func unpackBigInt(signature string, data []byte) (*big.Int, error) {
	args := abi.Arguments{{Type: uint256T}}
	out, err := args.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", signature, err)
	}
	value, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unpack %s: unexpected return type %T", signature, out[0])
	}
	return value, nil
}

func unpackBool(signature string, data []byte) (bool, error) {
	args := abi.Arguments{{Type: boolT}}
	out, err := args.Unpack(data)
	if err != nil {
		return false, fmt.Errorf("unpack %s: %w", signature, err)
	}
	value, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("unpack %s: unexpected return type %T", signature, out[0])
	}
	return value, nil
}
