package test

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// MockRPCClient is a mock implementation of the types.RPCClient interface
// for testing. Unset hooks fall back to fixed values.
type MockRPCClient struct {
	CallContractFn       func(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SuggestGasPriceFn    func(ctx context.Context) (*big.Int, error)
	EstimateGasFn        func(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	TransactionReceiptFn func(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

// CallContract returns an empty word unless a hook is set
func (m *MockRPCClient) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if m.CallContractFn != nil {
		return m.CallContractFn(ctx, call, blockNumber)
	}
	return make([]byte, 32), nil
}

// SuggestGasPrice returns a fixed gas price for testing
func (m *MockRPCClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if m.SuggestGasPriceFn != nil {
		return m.SuggestGasPriceFn(ctx)
	}
	return big.NewInt(1000000000), nil // 1 Gwei
}

// EstimateGas returns a fixed gas limit for testing
func (m *MockRPCClient) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	if m.EstimateGasFn != nil {
		return m.EstimateGasFn(ctx, call)
	}
	return 21000, nil
}

// TransactionReceipt returns a successful receipt unless a hook is set
func (m *MockRPCClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	if m.TransactionReceiptFn != nil {
		return m.TransactionReceiptFn(ctx, txHash)
	}
	return &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful, TxHash: txHash}, nil
}
