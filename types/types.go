package types

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// RPCClient is an interface for interacting with the blockchain.
type RPCClient interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (gas uint64, err error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

// Custom type that implements RPCClient
type ethRPC struct {
	*ethclient.Client
}

// NewEthClient creates an RPCClient backed by a real JSON-RPC endpoint
func NewEthClient(endpoint string) (RPCClient, error) {
	ethClient, err := ethclient.Dial(endpoint)
	if err != nil {
		return nil, err
	}

	return &ethRPC{ethClient}, nil
}

// WalletSession is the capability the embedding wallet provides to the
// verification flow: it reports the chain it is connected to, signs a text
// with an address it controls and submits a prepared minting transaction,
// returning the tx hash.
type WalletSession interface {
	ChainID() string
	Sign(ctx context.Context, walletAddress string, message string) (string, error)
	SendMintingTransaction(ctx context.Context, walletAddress string, props MintingProperties) (string, error)
}

// MintingProperties is the hex-encoded transaction bundle handed to the
// wallet for signing and submission, compatible with common EVM
// wallet-signing protocols.
type MintingProperties struct {
	ContractAddress string `json:"contract_address"`
	ContractABI     string `json:"contract_abi"`
	GasAmount       string `json:"gas_amount"`
	GasPrice        string `json:"gas_price"`
	PaymentAmount   string `json:"payment_amount,omitempty"`
}

// MintTransaction is a locally constructed, not yet submitted contract call.
type MintTransaction struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// GasEstimation is the result of estimating a minting transaction.
// Fee is always Price * Amount.
type GasEstimation struct {
	Price    *big.Int
	Amount   uint64
	Fee      *big.Int
	Currency NativeCurrency
}

// MintedToken is the decoded ERC-721 Transfer event of a successful mint.
type MintedToken struct {
	From    common.Address
	To      common.Address
	TokenID *big.Int
	TxHash  string
}

// IdentityFlowStatus is the terminal status reported by the identity
// verification provider's flow.
type IdentityFlowStatus string

const (
	IdentityFlowCompleted IdentityFlowStatus = "completed"
	IdentityFlowCancelled IdentityFlowStatus = "cancelled"
)

// IdentityFlowConfig configures one run of the identity provider's flow.
// InquiryID and SessionToken are set when resuming a previously cancelled
// inquiry for the same reference id.
type IdentityFlowConfig struct {
	ReferenceID  string
	TemplateID   string
	Sandbox      bool
	InquiryID    string
	SessionToken string
}

// IdentityFlowResult is what the identity provider reports back. On
// cancellation InquiryID and SessionToken allow a later resume.
type IdentityFlowResult struct {
	Status       IdentityFlowStatus
	InquiryID    string
	SessionToken string
}

// IdentityLauncher is the capability that runs the identity provider's UI
// flow. Launch blocks until the flow reports completed, cancelled or error.
type IdentityLauncher interface {
	Launch(ctx context.Context, config IdentityFlowConfig) (*IdentityFlowResult, error)
}

// NativeCurrency describes a network's gas currency.
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// NetworkResponse is one entry of the backend's GET /networks response.
type NetworkResponse struct {
	ID              string         `json:"id"`
	BlockchainType  string         `json:"blockchain"`
	Name            string         `json:"name"`
	CAIP2ID         string         `json:"caip2id"`
	ChainID         *int64         `json:"chain_id"`
	NativeCurrency  NativeCurrency `json:"native_currency"`
	ExplorerURL     string         `json:"explorer_url"`
	TransactionPath string         `json:"transaction_path"`
}

// SmartContractInfo is a per-network, per-verification-type contract entry
// from the backend's GET /status response.
type SmartContractInfo struct {
	Address                string `json:"address"`
	PaymentDiscountPercent uint32 `json:"payment_discount_percent"`
}

// PersonaStatus carries the identity provider configuration from GET /status.
type PersonaStatus struct {
	TemplateID string `json:"template_id"`
	Sandbox    bool   `json:"sandbox"`
}

// StatusResponse is the backend's GET /status response.
// SmartContractsInfo is keyed by network id, then verification type.
type StatusResponse struct {
	SmartContractsInfo map[string]map[string]SmartContractInfo `json:"smart_contracts_info"`
	Persona            *PersonaStatus                          `json:"persona"`
}

// SessionResponse is the backend's representation of a verification session.
type SessionResponse struct {
	ID            string        `json:"id"`
	Nonce         string        `json:"nonce"`
	DiscountYears *uint32       `json:"discount_years"`
	User          *UserResponse `json:"user"`
}

// UserResponse is the backend's representation of a user.
// EmailConfirmed and DisclaimerAccepted are timestamps encoded as strings;
// a non-empty value is the confirmation signal, not mere field presence.
type UserResponse struct {
	ID                   int64                         `json:"id"`
	ExtID                *string                       `json:"ext_id"`
	Email                *string                       `json:"email"`
	EmailConfirmed       *string                       `json:"email_confirmed"`
	ResidencyCode        *string                       `json:"residency"`
	LegalEntity          *bool                         `json:"legal_entity"`
	DisclaimerAccepted   *string                       `json:"disclaimer_accepted"`
	VerificationRequests []VerificationRequestResponse `json:"verification_requests"`
	AvailableImages      map[string]TokenImageResponse `json:"available_images"`
	SubscriptionExpiry   *time.Time                    `json:"subscription_expiry"`
}

// VerificationRequestResponse is one verification request row on the user.
type VerificationRequestResponse struct {
	ID               int64  `json:"id"`
	UserID           int64  `json:"user_id"`
	VerificationType string `json:"verification_type"`
	Status           string `json:"status"`
}

// TokenImageResponse is one entry of the user's available_images map.
type TokenImageResponse struct {
	ImageType string `json:"image_type"`
	URL       string `json:"url"`
}

// CreateSessionPayload is the payload for creating a verification session.
type CreateSessionPayload struct {
	WalletAddress string `json:"address"`
	Network       string `json:"blockchain_network"`
}

// LoginPayload carries the wallet signature over the login message.
type LoginPayload struct {
	Signature string `json:"signature"`
}

// UpdateUserPayload is the payload for the PUT user endpoint.
type UpdateUserPayload struct {
	Email         string `json:"email"`
	ResidencyCode string `json:"residency"`
	LegalEntity   *bool  `json:"legal_entity,omitempty"`
}

// MintingAuthorizationPayload requests a minting authorization code.
// SubscriptionDuration is an ISO-8601 period string, e.g. "P3Y".
type MintingAuthorizationPayload struct {
	Network              string `json:"network"`
	SelectedImageID      string `json:"selected_image_id"`
	SubscriptionDuration string `json:"subscription_duration"`
}

// MintingAuthorizationResponse is the backend's minting authorization.
type MintingAuthorizationResponse struct {
	Code   string `json:"code"`
	TxHash string `json:"tx_hash"`
}

// TokenDetailsPayload reports a completed mint back to the backend.
type TokenDetailsPayload struct {
	AuthorizationCode string `json:"authorization_code"`
	TokenID           string `json:"token_id"`
	MintingTxID       string `json:"minting_tx_id"`
	Network           string `json:"network"`
}

// MintingResult is returned to the caller after a successful mint.
type MintingResult struct {
	TokenID     string `json:"token_id"`
	TxHash      string `json:"tx_hash"`
	ExplorerURL string `json:"explorer_url"`
	ImageURL    string `json:"image_url,omitempty"`
}
