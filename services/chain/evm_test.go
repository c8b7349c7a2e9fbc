package chain

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kycdao/kycdao-go/config"
	verifErrors "github.com/kycdao/kycdao-go/services/verification/errors"
	"github.com/kycdao/kycdao-go/types"
	"github.com/kycdao/kycdao-go/utils/test"
)

var contractAddress = common.HexToAddress("0x205Cd0b93C2e9A67e1F17a232237f7c0Ef47d2B5")

func newTestMembership(t *testing.T, rpc types.RPCClient) *Membership {
	t.Helper()

	membership, err := NewMembership(rpc, contractAddress)
	require.NoError(t, err)

	membership.conf = &config.ChainConfiguration{
		GasPriceFloor:           new(big.Int).Mul(big.NewInt(50), big.NewInt(1_000_000_000)),
		TransactionPollInterval: time.Millisecond,
		EmailPollInterval:       time.Millisecond,
	}
	return membership
}

// uint256Word encodes a big.Int as a 32-byte ABI word
func uint256Word(value *big.Int) []byte {
	word := make([]byte, 32)
	value.FillBytes(word)
	return word
}

func TestApplySlippage(t *testing.T) {
	assert.Equal(t, big.NewInt(110), ApplySlippage(big.NewInt(100)))
	// 109/10 truncates to 10
	assert.Equal(t, big.NewInt(119), ApplySlippage(big.NewInt(109)))
	assert.Equal(t, big.NewInt(0), ApplySlippage(big.NewInt(0)))
	assert.Equal(t, big.NewInt(9), ApplySlippage(big.NewInt(9)))
}

func TestSubscriptionCostDecimals(t *testing.T) {
	t.Run("valid decimals", func(t *testing.T) {
		rpc := &test.MockRPCClient{
			CallContractFn: func(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
				return uint256Word(big.NewInt(8)), nil
			},
		}
		membership := newTestMembership(t, rpc)

		decimals, err := membership.SubscriptionCostDecimals(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint8(8), decimals)
	})

	t.Run("value out of uint8 range", func(t *testing.T) {
		rpc := &test.MockRPCClient{
			CallContractFn: func(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
				return uint256Word(big.NewInt(256)), nil
			},
		}
		membership := newTestMembership(t, rpc)

		_, err := membership.SubscriptionCostDecimals(context.Background())
		require.Error(t, err)
		assert.IsType(t, verifErrors.ErrInvalidContractResponse{}, err)
	})
}

func TestRequiredMintCostForCode(t *testing.T) {
	rpc := &test.MockRPCClient{
		CallContractFn: func(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
			assert.Equal(t, &contractAddress, call.To)
			return uint256Word(big.NewInt(1000)), nil
		},
	}
	membership := newTestMembership(t, rpc)

	cost, err := membership.RequiredMintCostForCode(context.Background(), 1234, common.HexToAddress("0x1"))
	require.NoError(t, err)
	// quoted cost plus the 10% buffer
	assert.Equal(t, big.NewInt(1100), cost)
}

func TestBuildMintTransaction(t *testing.T) {
	membership := newTestMembership(t, &test.MockRPCClient{})

	tx, err := membership.BuildMintTransaction(1234, big.NewInt(500))
	require.NoError(t, err)

	assert.Equal(t, contractAddress, tx.To)
	assert.Equal(t, big.NewInt(500), tx.Value)

	// selector plus one padded uint32 argument
	require.Len(t, tx.Data, 36)
	expected, err := membership.abi.Pack("mintWithCode", uint32(1234))
	require.NoError(t, err)
	assert.Equal(t, expected, tx.Data)
}

func TestEstimateGas(t *testing.T) {
	currency := types.NativeCurrency{Symbol: "MATIC", Decimals: 18}

	t.Run("floors a low reported gas price", func(t *testing.T) {
		rpc := &test.MockRPCClient{
			SuggestGasPriceFn: func(ctx context.Context) (*big.Int, error) {
				return big.NewInt(1_000_000_000), nil // 1 gwei, below the floor
			},
			EstimateGasFn: func(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
				return 100_000, nil
			},
		}
		membership := newTestMembership(t, rpc)

		tx, err := membership.BuildMintTransaction(1, big.NewInt(0))
		require.NoError(t, err)

		estimation, err := membership.EstimateGas(context.Background(), common.HexToAddress("0x1"), tx, currency)
		require.NoError(t, err)

		floor := new(big.Int).Mul(big.NewInt(50), big.NewInt(1_000_000_000))
		assert.Equal(t, floor, estimation.Price)
		assert.Equal(t, uint64(100_000), estimation.Amount)
		assert.Equal(t, new(big.Int).Mul(floor, big.NewInt(100_000)), estimation.Fee)
		assert.Equal(t, currency, estimation.Currency)
	})

	t.Run("keeps a price above the floor", func(t *testing.T) {
		price := new(big.Int).Mul(big.NewInt(80), big.NewInt(1_000_000_000))
		rpc := &test.MockRPCClient{
			SuggestGasPriceFn: func(ctx context.Context) (*big.Int, error) {
				return new(big.Int).Set(price), nil
			},
		}
		membership := newTestMembership(t, rpc)

		tx, err := membership.BuildMintTransaction(1, big.NewInt(0))
		require.NoError(t, err)

		estimation, err := membership.EstimateGas(context.Background(), common.HexToAddress("0x1"), tx, currency)
		require.NoError(t, err)
		assert.Equal(t, price, estimation.Price)
	})
}

func TestWaitForTransaction(t *testing.T) {
	txHash := common.HexToHash("0xabc123")

	t.Run("retries until the receipt is available", func(t *testing.T) {
		calls := 0
		rpc := &test.MockRPCClient{
			TransactionReceiptFn: func(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
				calls++
				if calls < 3 {
					return nil, ethereum.NotFound
				}
				return &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful, TxHash: hash}, nil
			},
		}
		membership := newTestMembership(t, rpc)

		receipt, err := membership.WaitForTransaction(context.Background(), txHash)
		require.NoError(t, err)
		assert.Equal(t, ethtypes.ReceiptStatusSuccessful, receipt.Status)
		assert.Equal(t, 3, calls)
	})

	t.Run("propagates other RPC errors immediately", func(t *testing.T) {
		rpc := &test.MockRPCClient{
			TransactionReceiptFn: func(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
				return nil, assert.AnError
			},
		}
		membership := newTestMembership(t, rpc)

		_, err := membership.WaitForTransaction(context.Background(), txHash)
		require.Error(t, err)
		assert.IsType(t, verifErrors.ErrRPC{}, err)
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		rpc := &test.MockRPCClient{
			TransactionReceiptFn: func(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
				return nil, ethereum.NotFound
			},
		}
		membership := newTestMembership(t, rpc)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := membership.WaitForTransaction(ctx, txHash)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestParseMintedToken(t *testing.T) {
	transferID := crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	to := common.HexToAddress("0x96216849c49358B10257cb55b28eA603c874b05E")
	txHash := common.HexToHash("0xdef456")

	transferLog := func(tokenID int64) *ethtypes.Log {
		return &ethtypes.Log{
			Address: contractAddress,
			Topics: []common.Hash{
				transferID,
				common.Hash{}, // mint: from the zero address
				common.BytesToHash(to.Bytes()),
				common.BigToHash(big.NewInt(tokenID)),
			},
		}
	}

	membership := newTestMembership(t, &test.MockRPCClient{})

	t.Run("takes the first matching event", func(t *testing.T) {
		receipt := &ethtypes.Receipt{
			TxHash: txHash,
			Logs:   []*ethtypes.Log{transferLog(42), transferLog(43)},
		}

		token, err := membership.ParseMintedToken(receipt)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(42), token.TokenID)
		assert.Equal(t, to, token.To)
		assert.Equal(t, txHash.Hex(), token.TxHash)
	})

	t.Run("skips logs that do not match the event layout", func(t *testing.T) {
		malformed := &ethtypes.Log{Topics: []common.Hash{transferID}} // missing indexed fields
		unrelated := &ethtypes.Log{Topics: []common.Hash{common.HexToHash("0x1"), {}, {}, {}}}

		receipt := &ethtypes.Receipt{
			TxHash: txHash,
			Logs:   []*ethtypes.Log{malformed, unrelated, transferLog(7)},
		}

		token, err := membership.ParseMintedToken(receipt)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(7), token.TokenID)
	})

	t.Run("errors when no event is present", func(t *testing.T) {
		receipt := &ethtypes.Receipt{TxHash: txHash}

		_, err := membership.ParseMintedToken(receipt)
		assert.ErrorIs(t, err, ErrTransferEventNotFound)
	})
}

func TestMintingProperties(t *testing.T) {
	membership := newTestMembership(t, &test.MockRPCClient{})

	tx, err := membership.BuildMintTransaction(9, big.NewInt(1500))
	require.NoError(t, err)

	estimation := &types.GasEstimation{
		Price:  big.NewInt(50_000_000_000),
		Amount: 100_000,
		Fee:    big.NewInt(5_000_000_000_000_000),
	}

	props := MintingProperties(tx, estimation)
	assert.Equal(t, contractAddress.Hex(), props.ContractAddress)
	assert.Equal(t, "0x186a0", props.GasAmount)
	assert.Equal(t, "0xba43b7400", props.GasPrice)
	assert.Equal(t, "0x5dc", props.PaymentAmount)
	assert.NotEmpty(t, props.ContractABI)

	t.Run("zero value omits the payment amount", func(t *testing.T) {
		free, err := membership.BuildMintTransaction(9, big.NewInt(0))
		require.NoError(t, err)

		props := MintingProperties(free, estimation)
		assert.Empty(t, props.PaymentAmount)
	})
}
