package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

const weiDecimals = 18

// erc20ABI is the subset of the ERC-20 interface used for holdings.
const erc20ABI = `[{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"}]`

type evmCaller interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// EVMClient serves native and ERC-20 balances from one RPC endpoint.
type EVMClient struct {
	endpoint      string
	rpc           evmCaller
	erc20         abi.ABI
	tokenDecimals int32
}

func DialEVM(ctx context.Context, endpoint string, tokenDecimals int32) (*EVMClient, error) {
	client, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial evm endpoint %s: %w", endpoint, err)
	}
	return newEVMClient(endpoint, client, tokenDecimals)
}

func newEVMClient(endpoint string, rpc evmCaller, tokenDecimals int32) (*EVMClient, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 abi: %w", err)
	}
	return &EVMClient{
		endpoint:      endpoint,
		rpc:           rpc,
		erc20:         parsed,
		tokenDecimals: tokenDecimals,
	}, nil
}

func (c *EVMClient) NativeBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	if !common.IsHexAddress(address) {
		return decimal.Zero, fmt.Errorf("invalid evm address %q", address)
	}

	wei, err := c.rpc.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("eth_getBalance on %s: %w", c.endpoint, err)
	}

	return decimal.NewFromBigInt(wei, -weiDecimals), nil
}

func (c *EVMClient) TokenBalance(ctx context.Context, owner, tokenContract string) (decimal.Decimal, error) {
	if !common.IsHexAddress(owner) {
		return decimal.Zero, fmt.Errorf("invalid evm address %q", owner)
	}
	if !common.IsHexAddress(tokenContract) {
		return decimal.Zero, fmt.Errorf("invalid token contract %q", tokenContract)
	}

	data, err := c.erc20.Pack("balanceOf", common.HexToAddress(owner))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to pack balanceOf: %w", err)
	}

	token := common.HexToAddress(tokenContract)
	out, err := c.rpc.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balanceOf on %s: %w", c.endpoint, err)
	}

	values, err := c.erc20.Unpack("balanceOf", out)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to unpack balanceOf: %w", err)
	}
	if len(values) != 1 {
		return decimal.Zero, fmt.Errorf("balanceOf returned %d values", len(values))
	}

	raw, ok := values[0].(*big.Int)
	if !ok {
		return decimal.Zero, fmt.Errorf("balanceOf returned %T", values[0])
	}

	return decimal.NewFromBigInt(raw, -c.tokenDecimals), nil
}
