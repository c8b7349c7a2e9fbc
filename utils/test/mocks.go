package test

import (
	"context"

	"github.com/kycdao/kycdao-go/types"
)

// MockWalletSession is a mock wallet capability
type MockWalletSession struct {
	Chain     string
	Signature string
	TxHash    string
	SignErr   error
	SendErr   error

	SignedMessages []string
	SentProps      []types.MintingProperties
}

// ChainID returns the configured CAIP-2 chain id
func (m *MockWalletSession) ChainID() string {
	return m.Chain
}

// Sign records the message and returns the configured signature
func (m *MockWalletSession) Sign(ctx context.Context, walletAddress string, message string) (string, error) {
	if m.SignErr != nil {
		return "", m.SignErr
	}
	m.SignedMessages = append(m.SignedMessages, message)
	return m.Signature, nil
}

// SendMintingTransaction records the properties and returns the configured
// tx hash
func (m *MockWalletSession) SendMintingTransaction(ctx context.Context, walletAddress string, props types.MintingProperties) (string, error) {
	if m.SendErr != nil {
		return "", m.SendErr
	}
	m.SentProps = append(m.SentProps, props)
	return m.TxHash, nil
}

// MockIdentityLauncher is a mock identity provider capability
type MockIdentityLauncher struct {
	Result   *types.IdentityFlowResult
	Err      error
	Launches []types.IdentityFlowConfig
}

// Launch records the config and returns the configured result
func (m *MockIdentityLauncher) Launch(ctx context.Context, config types.IdentityFlowConfig) (*types.IdentityFlowResult, error) {
	m.Launches = append(m.Launches, config)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}
