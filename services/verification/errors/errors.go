package errors

import "fmt"

// Typed failures of the verification and minting flow. Precondition errors
// are returned before any network call is made.
type (
	ErrUserNotLoggedIn                struct{}
	ErrDisclaimerNotAccepted          struct{}
	ErrRequiredInformationNotProvided struct{}
	ErrIdentityNotVerified            struct{}
	ErrUnauthorizedMinting            struct{}
	ErrIdentityFlowBusy               struct{}
	ErrMissingBlockchainAccount       struct{}
	ErrUnsupportedNetwork             struct{ ChainID string }
	ErrMissingContractAddress         struct{ Network string }
	ErrMissingNetworkConfiguration    struct{ Network string }
	ErrInvalidContractResponse        struct{ Err error }
	ErrRPC                            struct{ Err error }
	ErrIdentityProvider               struct{ Err error }
	ErrInternal                       struct{ Err error }
)

func (e ErrUserNotLoggedIn) Error() string {
	return "user is not logged in to this session"
}

func (e ErrDisclaimerNotAccepted) Error() string {
	return "disclaimer has not been accepted"
}

func (e ErrRequiredInformationNotProvided) Error() string {
	return "required personal information has not been provided"
}

func (e ErrIdentityNotVerified) Error() string {
	return "identity verification has not been completed"
}

func (e ErrUnauthorizedMinting) Error() string {
	return "no minting authorization code present, request minting first"
}

func (e ErrIdentityFlowBusy) Error() string {
	return "an identity verification flow is already in progress for this session"
}

func (e ErrMissingBlockchainAccount) Error() string {
	return "session has no blockchain account"
}

func (e ErrUnsupportedNetwork) Error() string {
	return fmt.Sprintf("network %s is not supported by the backend", e.ChainID)
}

func (e ErrMissingContractAddress) Error() string {
	return fmt.Sprintf("no membership contract deployed for network %s", e.Network)
}

func (e ErrMissingNetworkConfiguration) Error() string {
	return fmt.Sprintf("no RPC endpoint configured for network %s", e.Network)
}

func (e ErrInvalidContractResponse) Error() string {
	return fmt.Sprintf("contract returned an out of range value: %v", e.Err)
}

func (e ErrRPC) Error() string {
	return fmt.Sprintf("blockchain RPC call failed: %v", e.Err)
}

// Unwrap returns the underlying RPC transport error
func (e ErrRPC) Unwrap() error {
	return e.Err
}

func (e ErrIdentityProvider) Error() string {
	return fmt.Sprintf("identity provider error: %v", e.Err)
}

func (e ErrIdentityProvider) Unwrap() error {
	return e.Err
}

func (e ErrInternal) Error() string {
	return fmt.Sprintf("internal error: %v", e.Err)
}

func (e ErrInternal) Unwrap() error {
	return e.Err
}
