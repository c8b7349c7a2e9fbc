package verification

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/kycdao/kycdao-go/config"
	"github.com/kycdao/kycdao-go/services/backend"
	"github.com/kycdao/kycdao-go/services/chain"
	"github.com/kycdao/kycdao-go/services/identity"
	verifErrors "github.com/kycdao/kycdao-go/services/verification/errors"
	"github.com/kycdao/kycdao-go/types"
	"github.com/kycdao/kycdao-go/utils"
	"github.com/kycdao/kycdao-go/utils/logger"
)

const (
	loginMessagePrefix = "kycDAO-login-"
	secondsPerYear     = 365 * 24 * 60 * 60
)

// PersonalData is the user information the backend requires before identity
// verification can start.
type PersonalData struct {
	Email         string
	ResidencyCode string
	LegalEntity   bool
}

// PriceEstimation is the full cost of minting one membership token.
type PriceEstimation struct {
	PaymentAmount *big.Int
	GasFee        *big.Int
	Currency      types.NativeCurrency
}

// PaymentAmountText renders the payment amount in the network's native
// currency.
func (p PriceEstimation) PaymentAmountText() string {
	return utils.NativeDecimalText(p.PaymentAmount, p.Currency)
}

// GasFeeText renders the gas fee in the network's native currency.
func (p PriceEstimation) GasFeeText() string {
	return utils.NativeDecimalText(p.GasFee, p.Currency)
}

// Total is the payment amount plus the gas fee as a full-precision decimal.
func (p PriceEstimation) Total() decimal.Decimal {
	return utils.NativeDecimal(p.PaymentAmount, p.Currency).
		Add(utils.NativeDecimal(p.GasFee, p.Currency))
}

// PaymentEstimation is the projected membership payment for a duration,
// after backend discount years and contract discount percent.
type PaymentEstimation struct {
	PaymentAmount *big.Int
	DiscountYears uint32
	Currency      types.NativeCurrency
}

// PaymentAmountText renders the payment amount in the network's native
// currency.
func (p PaymentEstimation) PaymentAmountText() string {
	return utils.NativeDecimalText(p.PaymentAmount, p.Currency)
}

// Session drives one user's verification and minting flow. It owns the
// backend-derived session snapshot and the short-lived minting authorization
// state. Mutating operations must be serialized by the caller; the session
// performs no internal locking beyond the identity flow slot.
type Session struct {
	walletAddress string
	wallet        types.WalletSession
	network       types.NetworkResponse

	backend  *backend.Client
	contract *chain.Membership
	identity *identity.Coordinator

	kycConfig        types.SmartContractInfo
	accreditedConfig *types.SmartContractInfo
	persona          *types.PersonaStatus

	snapshot *SessionSnapshot
	authCode string

	chainConf *config.ChainConfiguration
}

// NewVerificationSession resolves the wallet's network against the backend,
// resolves the deployed contract configuration, creates a backend session
// and returns the orchestrator. All network and contract resolution happens
// here; operations on the returned session never re-resolve.
func NewVerificationSession(ctx context.Context, walletAddress string, wallet types.WalletSession) (*Session, error) {
	if walletAddress == "" {
		return nil, verifErrors.ErrMissingBlockchainAccount{}
	}

	backendClient := backend.NewClient()
	chainID := wallet.ChainID()

	networks, err := backendClient.GetNetworks(ctx)
	if err != nil {
		return nil, fmt.Errorf("createSession.getNetworks: %w", err)
	}

	var network *types.NetworkResponse
	for i := range networks {
		if networks[i].CAIP2ID == chainID {
			network = &networks[i]
			break
		}
	}
	if network == nil {
		return nil, verifErrors.ErrUnsupportedNetwork{ChainID: chainID}
	}

	chainConf := config.ChainConfig()
	rpcURL, ok := chainConf.RPCURLOverrides[network.CAIP2ID]
	if !ok {
		rpcURL, ok = config.DefaultRPCURL(network.CAIP2ID)
	}
	if !ok {
		return nil, verifErrors.ErrMissingNetworkConfiguration{Network: network.ID}
	}

	status, err := backendClient.GetStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("createSession.getStatus: %w", err)
	}

	contractsInfo := status.SmartContractsInfo[network.ID]
	kycConfig, ok := contractsInfo[string(VerificationTypeKYC)]
	if !ok || kycConfig.Address == "" {
		return nil, verifErrors.ErrMissingContractAddress{Network: network.ID}
	}
	var accreditedConfig *types.SmartContractInfo
	if cfg, ok := contractsInfo[string(VerificationTypeAccreditedInvestor)]; ok {
		accreditedConfig = &cfg
	}

	rpc, err := types.NewEthClient(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("createSession.dialRPC: %w", err)
	}

	contract, err := chain.NewMembership(rpc, common.HexToAddress(kycConfig.Address))
	if err != nil {
		return nil, fmt.Errorf("createSession.contract: %w", err)
	}

	sessionRes, err := backendClient.CreateSession(ctx, types.CreateSessionPayload{
		WalletAddress: walletAddress,
		Network:       network.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("createSession.post: %w", err)
	}

	logger.Infof("verification session created", logger.Fields{
		"session": sessionRes.ID,
		"network": network.ID,
	})

	return &Session{
		walletAddress:    walletAddress,
		wallet:           wallet,
		network:          *network,
		backend:          backendClient,
		contract:         contract,
		identity:         identity.NewCoordinator(),
		kycConfig:        kycConfig,
		accreditedConfig: accreditedConfig,
		persona:          status.Persona,
		snapshot:         snapshotFromResponse(sessionRes),
		chainConf:        chainConf,
	}, nil
}

// ChainID returns the CAIP-2 id of the session's network.
func (s *Session) ChainID() string {
	return s.network.CAIP2ID
}

// WalletAddress returns the address this session was created for.
func (s *Session) WalletAddress() string {
	return s.walletAddress
}

// LoggedIn reports whether login has completed.
func (s *Session) LoggedIn() bool {
	return s.snapshot.LoggedIn()
}

// EmailConfirmed reports whether the backend recorded an email confirmation.
func (s *Session) EmailConfirmed() bool {
	return s.snapshot.EmailConfirmed()
}

// DisclaimerAccepted reports whether the disclaimer has been accepted.
func (s *Session) DisclaimerAccepted() bool {
	return s.snapshot.DisclaimerAccepted()
}

// RequiredInformationProvided reports whether all required personal data is
// present.
func (s *Session) RequiredInformationProvided() bool {
	return s.snapshot.RequiredInformationProvided()
}

// HasMembership reports whether the user currently holds a membership.
func (s *Session) HasMembership() bool {
	return s.snapshot.HasMembership()
}

// VerificationStatus returns the simplified verification status.
func (s *Session) VerificationStatus() Status {
	return s.snapshot.VerificationStatus()
}

func (s *Session) requireLoggedIn() error {
	if !s.snapshot.LoggedIn() {
		return verifErrors.ErrUserNotLoggedIn{}
	}
	return nil
}

func (s *Session) requireDisclaimerAccepted() error {
	if err := s.requireLoggedIn(); err != nil {
		return err
	}
	if !s.snapshot.DisclaimerAccepted() {
		return verifErrors.ErrDisclaimerNotAccepted{}
	}
	return nil
}

func (s *Session) requirePersonalData() error {
	if err := s.requireDisclaimerAccepted(); err != nil {
		return err
	}
	if !s.snapshot.RequiredInformationProvided() {
		return verifErrors.ErrRequiredInformationNotProvided{}
	}
	return nil
}

// RefreshUser replaces the snapshot's user with the backend's latest
// representation.
func (s *Session) RefreshUser(ctx context.Context) error {
	user, err := s.backend.GetUser(ctx)
	if err != nil {
		return err
	}
	s.snapshot.User = userFromResponse(user)
	return nil
}

// RefreshSession replaces the whole snapshot with the backend's latest
// representation.
func (s *Session) RefreshSession(ctx context.Context) error {
	res, err := s.backend.GetSession(ctx)
	if err != nil {
		return err
	}
	s.snapshot = snapshotFromResponse(res)
	return nil
}

// Login signs the server nonce with the wallet and logs the user in. A
// backend "already logged in" response is absorbed by refreshing the user.
func (s *Session) Login(ctx context.Context) error {
	signature, err := s.wallet.Sign(ctx, s.walletAddress, loginMessagePrefix+s.snapshot.Nonce)
	if err != nil {
		return fmt.Errorf("login.sign: %w", err)
	}

	user, err := s.backend.Login(ctx, types.LoginPayload{Signature: signature})
	if err != nil {
		if backend.HasErrorCode(err, backend.CodeUserAlreadyLoggedIn) {
			return s.RefreshUser(ctx)
		}
		return err
	}

	s.snapshot.User = userFromResponse(user)
	return nil
}

// AcceptDisclaimer records disclaimer acceptance. Accepting twice is not an
// error; the backend's "already accepted" code is treated as success.
func (s *Session) AcceptDisclaimer(ctx context.Context) error {
	if err := s.requireLoggedIn(); err != nil {
		return err
	}

	err := s.backend.AcceptDisclaimer(ctx)
	if err != nil && !backend.HasErrorCode(err, backend.CodeDisclaimerAlreadyAccepted) {
		return err
	}

	return s.RefreshUser(ctx)
}

// SetPersonalData submits the user's personal data.
func (s *Session) SetPersonalData(ctx context.Context, data PersonalData) error {
	if err := s.requireDisclaimerAccepted(); err != nil {
		return err
	}

	legalEntity := data.LegalEntity
	user, err := s.backend.UpdateUser(ctx, types.UpdateUserPayload{
		Email:         data.Email,
		ResidencyCode: data.ResidencyCode,
		LegalEntity:   &legalEntity,
	})
	if err != nil {
		return err
	}

	s.snapshot.User = userFromResponse(user)
	return nil
}

// UpdateEmail replaces the user's email, reusing the current residency and
// legal-entity flag.
func (s *Session) UpdateEmail(ctx context.Context, email string) error {
	if err := s.requirePersonalData(); err != nil {
		return err
	}

	user, err := s.backend.UpdateUser(ctx, types.UpdateUserPayload{
		Email:         email,
		ResidencyCode: *s.snapshot.User.ResidencyCode,
		LegalEntity:   s.snapshot.User.LegalEntity,
	})
	if err != nil {
		return err
	}

	s.snapshot.User = userFromResponse(user)
	return nil
}

// ResendConfirmationEmail asks the backend to send the confirmation email
// again.
func (s *Session) ResendConfirmationEmail(ctx context.Context) error {
	if err := s.requirePersonalData(); err != nil {
		return err
	}
	return s.backend.SendConfirmationEmail(ctx)
}

// ResumeOnEmailConfirmed blocks until the backend records the email
// confirmation. Transport errors during refresh are logged and retried. The
// loop has no timeout of its own; cancel ctx to bound it.
func (s *Session) ResumeOnEmailConfirmed(ctx context.Context) error {
	if err := s.requirePersonalData(); err != nil {
		return err
	}

	for {
		if s.snapshot.EmailConfirmed() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.chainConf.EmailPollInterval):
		}

		if err := s.RefreshUser(ctx); err != nil {
			logger.Errorf("email confirmation poll: refresh failed: %v", logger.Fields{
				"session": s.snapshot.SessionID,
			}, err)
		}
	}
}

// StartIdentification runs the identity provider's flow for this user,
// resuming a previously cancelled provider inquiry when one is cached. Only
// one flow may be in progress per session; a concurrent call fails with a
// busy error. It blocks until the provider reports a terminal status.
func (s *Session) StartIdentification(ctx context.Context, launcher types.IdentityLauncher) (types.IdentityFlowStatus, error) {
	if err := s.requirePersonalData(); err != nil {
		return "", err
	}

	if s.snapshot.User.ExtID == nil || *s.snapshot.User.ExtID == "" {
		return "", verifErrors.ErrInternal{Err: fmt.Errorf("user has no external reference id")}
	}
	if s.persona == nil || s.persona.TemplateID == "" {
		return "", verifErrors.ErrInternal{Err: fmt.Errorf("identity provider template id missing from backend status")}
	}

	referenceID := *s.snapshot.User.ExtID
	resume, err := s.identity.Begin(referenceID)
	if err != nil {
		return "", err
	}

	result, err := launcher.Launch(ctx, types.IdentityFlowConfig{
		ReferenceID:  referenceID,
		TemplateID:   s.persona.TemplateID,
		Sandbox:      s.persona.Sandbox,
		InquiryID:    resume.InquiryID,
		SessionToken: resume.SessionToken,
	})
	s.identity.Finish(referenceID, result)
	if err != nil {
		return "", verifErrors.ErrIdentityProvider{Err: err}
	}

	return result.Status, nil
}

// ResumeOnVerificationCompleted blocks until any KYC-typed verification
// request reaches verified. Cancel ctx to bound the wait.
func (s *Session) ResumeOnVerificationCompleted(ctx context.Context) error {
	if err := s.requirePersonalData(); err != nil {
		return err
	}

	for {
		if s.snapshot.VerificationStatus() == StatusVerified {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.chainConf.EmailPollInterval):
		}

		if err := s.RefreshUser(ctx); err != nil {
			logger.Errorf("verification poll: refresh failed: %v", logger.Fields{
				"session": s.snapshot.SessionID,
			}, err)
		}
	}
}

// GetNFTImages returns the selectable identicon images, newest first.
func (s *Session) GetNFTImages() []TokenImage {
	return s.snapshot.Identicons()
}

// RegenerateNFTImages requests a fresh identicon set and returns it.
func (s *Session) RegenerateNFTImages(ctx context.Context) ([]TokenImage, error) {
	if err := s.backend.RegenerateIdenticons(ctx); err != nil {
		return nil, err
	}
	if err := s.RefreshUser(ctx); err != nil {
		return nil, err
	}
	return s.snapshot.Identicons(), nil
}

// GetMembershipCostPerYear reads the yearly membership cost from the
// contract and renders it with the contract's cost decimals.
func (s *Session) GetMembershipCostPerYear(ctx context.Context) (string, error) {
	cost, err := s.contract.SubscriptionCostPerYearUSD(ctx)
	if err != nil {
		return "", err
	}

	decimals, err := s.contract.SubscriptionCostDecimals(ctx)
	if err != nil {
		return "", err
	}

	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return utils.DecimalText(cost, divisor, utils.DefaultDecimalDigits), nil
}

// HasValidToken reports whether a wallet already holds a valid membership
// token on the session's contract.
func (s *Session) HasValidToken(ctx context.Context, walletAddress string) (bool, error) {
	return s.contract.HasValidToken(ctx, common.HexToAddress(walletAddress))
}

// EstimatePayment projects the membership payment for the given duration.
// The session is refreshed first so the latest discount years apply; only
// non-discounted years are charged, less the contract's discount percent.
func (s *Session) EstimatePayment(ctx context.Context, years uint32) (*PaymentEstimation, error) {
	if err := s.requirePersonalData(); err != nil {
		return nil, err
	}

	if err := s.RefreshSession(ctx); err != nil {
		return nil, err
	}

	discountYears := s.snapshot.DiscountYears
	if discountYears > years {
		discountYears = years
	}

	estimation := &PaymentEstimation{
		PaymentAmount: big.NewInt(0),
		DiscountYears: discountYears,
		Currency:      s.network.NativeCurrency,
	}

	paidYears := years - discountYears
	if paidYears == 0 {
		return estimation, nil
	}

	// The contract takes the duration as uint32 seconds, which caps out
	// around 136 years.
	seconds := uint64(paidYears) * secondsPerYear
	if seconds > math.MaxUint32 {
		return nil, fmt.Errorf("estimatePayment: %d years exceeds the longest representable membership duration", years)
	}

	cost, err := s.contract.RequiredMintCostForSeconds(ctx, uint32(seconds))
	if err != nil {
		return nil, err
	}

	if discount := s.kycConfig.PaymentDiscountPercent; discount > 0 {
		cost = new(big.Int).Div(
			new(big.Int).Mul(cost, big.NewInt(int64(100-discount))),
			big.NewInt(100),
		)
	}

	estimation.PaymentAmount = cost
	return estimation, nil
}

// RequestMinting obtains a minting authorization for the selected image and
// duration, then waits for the backend's authorization transaction to
// succeed on-chain. Cancel ctx to bound the wait.
func (s *Session) RequestMinting(ctx context.Context, imageID string, membershipYears uint32) error {
	if err := s.requirePersonalData(); err != nil {
		return err
	}
	if s.snapshot.VerificationStatus() != StatusVerified {
		return verifErrors.ErrIdentityNotVerified{}
	}
	if s.walletAddress == "" {
		return verifErrors.ErrMissingBlockchainAccount{}
	}

	auth, err := s.backend.AuthorizeMinting(ctx, types.MintingAuthorizationPayload{
		Network:              s.network.ID,
		SelectedImageID:      imageID,
		SubscriptionDuration: fmt.Sprintf("P%dY", membershipYears),
	})
	if err != nil {
		return err
	}
	if auth.Code == "" || auth.TxHash == "" {
		return verifErrors.ErrInternal{Err: fmt.Errorf("minting authorization missing code or tx hash")}
	}

	s.authCode = auth.Code

	receipt, err := s.contract.WaitForTransaction(ctx, common.HexToHash(auth.TxHash))
	if err != nil {
		return err
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return verifErrors.ErrInternal{Err: fmt.Errorf("authorization tx %s reverted", auth.TxHash)}
	}

	logger.Infof("minting authorized", logger.Fields{
		"session": s.snapshot.SessionID,
		"network": s.network.ID,
	})

	return nil
}

// parseAuthCode converts the stored authorization code for contract calls.
func (s *Session) parseAuthCode() (uint32, error) {
	if s.authCode == "" {
		return 0, verifErrors.ErrUnauthorizedMinting{}
	}
	code, err := strconv.ParseUint(s.authCode, 10, 32)
	if err != nil {
		return 0, verifErrors.ErrInternal{Err: fmt.Errorf("authorization code %q is not numeric: %w", s.authCode, err)}
	}
	return uint32(code), nil
}

// GetMintingPrice quotes the full cost of minting with the current
// authorization: required payment plus estimated gas.
func (s *Session) GetMintingPrice(ctx context.Context) (*PriceEstimation, error) {
	code, err := s.parseAuthCode()
	if err != nil {
		return nil, err
	}

	wallet := common.HexToAddress(s.walletAddress)
	cost, err := s.contract.RequiredMintCostForCode(ctx, code, wallet)
	if err != nil {
		return nil, err
	}

	tx, err := s.contract.BuildMintTransaction(code, cost)
	if err != nil {
		return nil, err
	}

	estimation, err := s.contract.EstimateGas(ctx, wallet, tx, s.network.NativeCurrency)
	if err != nil {
		return nil, err
	}

	return &PriceEstimation{
		PaymentAmount: cost,
		GasFee:        estimation.Fee,
		Currency:      s.network.NativeCurrency,
	}, nil
}

// Mint funds and submits the mint transaction through the wallet, waits for
// its receipt, extracts the minted token and reports it to the backend. The
// authorization code is consumed on success.
func (s *Session) Mint(ctx context.Context) (*types.MintingResult, error) {
	code, err := s.parseAuthCode()
	if err != nil {
		return nil, err
	}

	wallet := common.HexToAddress(s.walletAddress)
	cost, err := s.contract.RequiredMintCostForCode(ctx, code, wallet)
	if err != nil {
		return nil, err
	}

	tx, err := s.contract.BuildMintTransaction(code, cost)
	if err != nil {
		return nil, err
	}

	estimation, err := s.contract.EstimateGas(ctx, wallet, tx, s.network.NativeCurrency)
	if err != nil {
		return nil, err
	}

	txHash, err := s.wallet.SendMintingTransaction(ctx, s.walletAddress, chain.MintingProperties(tx, estimation))
	if err != nil {
		return nil, fmt.Errorf("mint.send: %w", err)
	}

	receipt, err := s.contract.WaitForTransaction(ctx, common.HexToHash(txHash))
	if err != nil {
		return nil, err
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return nil, verifErrors.ErrInternal{Err: fmt.Errorf("mint tx %s reverted", txHash)}
	}

	token, err := s.contract.ParseMintedToken(receipt)
	if err != nil {
		return nil, verifErrors.ErrInternal{Err: err}
	}

	if err := s.backend.ReportMint(ctx, types.TokenDetailsPayload{
		AuthorizationCode: s.authCode,
		TokenID:           token.TokenID.String(),
		MintingTxID:       txHash,
		Network:           s.network.ID,
	}); err != nil {
		return nil, err
	}

	s.authCode = ""

	logger.Infof("membership minted", logger.Fields{
		"session": s.snapshot.SessionID,
		"network": s.network.ID,
		"token":   token.TokenID.String(),
	})

	return &types.MintingResult{
		TokenID:     token.TokenID.String(),
		TxHash:      txHash,
		ExplorerURL: s.network.ExplorerURL + s.network.TransactionPath + txHash,
	}, nil
}
