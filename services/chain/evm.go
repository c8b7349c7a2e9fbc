package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/kycdao/kycdao-go/config"
	"github.com/kycdao/kycdao-go/services/contracts"
	verifErrors "github.com/kycdao/kycdao-go/services/verification/errors"
	"github.com/kycdao/kycdao-go/types"
)

// ErrTransferEventNotFound is returned when a mint receipt carries no
// parseable ERC-721 Transfer event.
var ErrTransferEventNotFound = errors.New("no Transfer event found in transaction receipt")

// Membership provides read and transaction-building access to one deployed
// membership NFT contract over a generic RPC capability.
type Membership struct {
	rpc             types.RPCClient
	contractAddress common.Address
	abi             abi.ABI
	conf            *config.ChainConfiguration
}

// NewMembership creates a contract client bound to one contract address.
func NewMembership(rpc types.RPCClient, contractAddress common.Address) (*Membership, error) {
	parsed, err := contracts.MembershipMetaData.GetAbi()
	if err != nil {
		return nil, fmt.Errorf("failed to parse membership ABI: %w", err)
	}

	return &Membership{
		rpc:             rpc,
		contractAddress: contractAddress,
		abi:             *parsed,
		conf:            config.ChainConfig(),
	}, nil
}

// Address returns the bound contract address.
func (m *Membership) Address() common.Address {
	return m.contractAddress
}

// call packs a view function, executes it over RPC and unpacks the outputs.
func (m *Membership) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := m.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	result, err := m.rpc.CallContract(ctx, ethereum.CallMsg{To: &m.contractAddress, Data: data}, nil)
	if err != nil {
		return nil, verifErrors.ErrRPC{Err: err}
	}

	out, err := m.abi.Unpack(method, result)
	if err != nil {
		return nil, verifErrors.ErrRPC{Err: fmt.Errorf("failed to unpack %s result: %w", method, err)}
	}

	return out, nil
}

// SubscriptionCostDecimals reads the contract's cost decimals constant.
// The contract reports a uint256; anything that does not fit a uint8 is a
// broken deployment.
func (m *Membership) SubscriptionCostDecimals(ctx context.Context) (uint8, error) {
	out, err := m.call(ctx, "SUBSCRIPTION_COST_DECIMALS")
	if err != nil {
		return 0, err
	}

	decimals := out[0].(*big.Int)
	if decimals.Cmp(big.NewInt(256)) >= 0 {
		return 0, verifErrors.ErrInvalidContractResponse{
			Err: fmt.Errorf("subscription cost decimals %s does not fit uint8", decimals.String()),
		}
	}

	return uint8(decimals.Uint64()), nil
}

// SubscriptionCostPerYearUSD reads the yearly membership cost in contract
// base units.
func (m *Membership) SubscriptionCostPerYearUSD(ctx context.Context) (*big.Int, error) {
	out, err := m.call(ctx, "getSubscriptionCostPerYearUSD")
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// RequiredMintCostForCode reads the exact native-currency cost the contract
// expects for one authorization code, with the slippage buffer applied.
func (m *Membership) RequiredMintCostForCode(ctx context.Context, authCode uint32, destination common.Address) (*big.Int, error) {
	out, err := m.call(ctx, "getRequiredMintCostForCode", authCode, destination)
	if err != nil {
		return nil, err
	}
	return ApplySlippage(out[0].(*big.Int)), nil
}

// RequiredMintCostForSeconds reads the native-currency cost of a membership
// of the given duration.
func (m *Membership) RequiredMintCostForSeconds(ctx context.Context, seconds uint32) (*big.Int, error) {
	out, err := m.call(ctx, "getRequiredMintCostForSeconds", seconds)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// HasValidToken reports whether the wallet already holds a valid membership
// token on this contract.
func (m *Membership) HasValidToken(ctx context.Context, wallet common.Address) (bool, error) {
	out, err := m.call(ctx, "hasValidToken", wallet)
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

// BuildMintTransaction constructs the mintWithCode call locally. It never
// touches the network.
func (m *Membership) BuildMintTransaction(authCode uint32, value *big.Int) (*types.MintTransaction, error) {
	data, err := m.abi.Pack("mintWithCode", authCode)
	if err != nil {
		return nil, fmt.Errorf("failed to pack mintWithCode ABI: %w", err)
	}

	return &types.MintTransaction{
		To:    m.contractAddress,
		Data:  data,
		Value: value,
	}, nil
}

// EstimateGas asks the RPC endpoint for the current gas price and the gas
// units of the given transaction. The effective price is floored at the
// configured minimum to guard against a misreporting endpoint.
func (m *Membership) EstimateGas(ctx context.Context, from common.Address, tx *types.MintTransaction, currency types.NativeCurrency) (*types.GasEstimation, error) {
	price, err := m.rpc.SuggestGasPrice(ctx)
	if err != nil {
		return nil, verifErrors.ErrRPC{Err: fmt.Errorf("failed to suggest gas price: %w", err)}
	}
	if price.Cmp(m.conf.GasPriceFloor) < 0 {
		price = new(big.Int).Set(m.conf.GasPriceFloor)
	}

	msg := ethereum.CallMsg{
		From:  from,
		To:    &tx.To,
		Data:  tx.Data,
		Value: tx.Value,
	}
	amount, err := m.rpc.EstimateGas(ctx, msg)
	if err != nil {
		return nil, verifErrors.ErrRPC{Err: fmt.Errorf("failed to estimate gas: %w", err)}
	}

	return &types.GasEstimation{
		Price:    price,
		Amount:   amount,
		Fee:      new(big.Int).Mul(price, new(big.Int).SetUint64(amount)),
		Currency: currency,
	}, nil
}

// WaitForTransaction polls for the receipt of a submitted transaction. A
// missing receipt is retried on the configured interval until the context is
// cancelled; every other RPC failure is propagated immediately.
func (m *Membership) WaitForTransaction(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	for {
		receipt, err := m.rpc.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, verifErrors.ErrRPC{Err: fmt.Errorf("failed to get receipt for tx %s: %w", txHash.Hex(), err)}
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled waiting for tx %s: %w", txHash.Hex(), ctx.Err())
		case <-time.After(m.conf.TransactionPollInterval):
		}
	}
}

// ParseMintedToken extracts the first ERC-721 Transfer event from a mint
// receipt. Logs that do not match the event layout are skipped, not treated
// as errors.
func (m *Membership) ParseMintedToken(receipt *ethtypes.Receipt) (*types.MintedToken, error) {
	transferID := m.abi.Events["Transfer"].ID

	for _, log := range receipt.Logs {
		if len(log.Topics) != 4 || log.Topics[0] != transferID {
			continue
		}

		return &types.MintedToken{
			From:    common.BytesToAddress(log.Topics[1].Bytes()),
			To:      common.BytesToAddress(log.Topics[2].Bytes()),
			TokenID: new(big.Int).SetBytes(log.Topics[3].Bytes()),
			TxHash:  receipt.TxHash.Hex(),
		}, nil
	}

	return nil, ErrTransferEventNotFound
}

// MintingProperties assembles the hex-encoded bundle the wallet capability
// expects for signing and submitting the mint.
func MintingProperties(tx *types.MintTransaction, estimation *types.GasEstimation) types.MintingProperties {
	props := types.MintingProperties{
		ContractAddress: tx.To.Hex(),
		ContractABI:     hexutil.Encode(tx.Data),
		GasAmount:       hexutil.EncodeUint64(estimation.Amount),
		GasPrice:        hexutil.EncodeBig(estimation.Price),
	}
	if tx.Value != nil && tx.Value.Sign() > 0 {
		props.PaymentAmount = hexutil.EncodeBig(tx.Value)
	}
	return props
}

// ApplySlippage adds the 10% buffer the flow funds mints with. Integer
// division keeps the result aligned with on-chain amounts.
func ApplySlippage(cost *big.Int) *big.Int {
	buffer := new(big.Int).Div(cost, big.NewInt(10))
	return new(big.Int).Add(cost, buffer)
}
