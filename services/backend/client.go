package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	fastshot "github.com/opus-domini/fast-shot"

	"github.com/kycdao/kycdao-go/config"
	"github.com/kycdao/kycdao-go/types"
)

// Machine-readable backend error codes the flow absorbs at specific call
// sites instead of propagating.
const (
	CodeDisclaimerAlreadyAccepted = "disclaimer_already_accepted"
	CodeUserAlreadyLoggedIn       = "user_already_logged_in"
)

// APIError is a failed backend call. StatusCode is zero when the request
// never produced a response; ErrorCode is empty when the error body carried
// no machine-readable code.
type APIError struct {
	StatusCode int
	ErrorCode  string
	RawBody    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backend request failed: %v", e.Err)
	}
	if e.ErrorCode != "" {
		return fmt.Sprintf("backend returned %d (%s): %s", e.StatusCode, e.ErrorCode, e.RawBody)
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.RawBody)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// HasErrorCode reports whether err is an APIError carrying the given
// machine-readable code.
func HasErrorCode(err error, code string) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.ErrorCode == code
}

// errorBody is the backend's structured error envelope.
type errorBody struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"error"`
}

// Client talks to the KYC backend. One client serves one verification
// session; the session id issued at creation authenticates later calls.
type Client struct {
	conf      *config.BackendConfiguration
	sessionID string
}

// NewClient creates a backend client from the ambient configuration.
func NewClient() *Client {
	return &Client{
		conf: config.BackendConfig(),
	}
}

// SetSessionID attaches the server-issued session id to subsequent requests.
func (c *Client) SetSessionID(sessionID string) {
	c.sessionID = sessionID
}

func (c *Client) headers() map[string]string {
	h := map[string]string{
		"Content-Type": "application/json",
		"X-Request-ID": uuid.NewString(),
	}
	if c.conf.APIKey != "" {
		h["Authorization"] = "Bearer " + c.conf.APIKey
	}
	if c.sessionID != "" {
		h["X-Session-ID"] = c.sessionID
	}
	return h
}

// do executes one backend call and decodes a 2xx JSON body into out when
// out is non-nil. The caller's ctx bounds the whole request, so polling
// loops can interrupt an in-flight call.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	client := fastshot.NewClient(c.conf.BaseURL).
		Config().SetTimeout(c.conf.Timeout).
		Build()

	var req *fastshot.RequestBuilder
	switch method {
	case http.MethodPost:
		req = client.POST(path)
	case http.MethodPut:
		req = client.PUT(path)
	default:
		req = client.GET(path)
	}

	req = req.Context().Set(ctx).Header().AddAll(c.headers())
	if body != nil {
		req = req.Body().AsJSON(body)
	}

	res, err := req.Send()
	if err != nil {
		return &APIError{Err: err}
	}

	// RawBody is a one-shot reader, so read it once for both paths.
	raw, err := io.ReadAll(res.RawBody())
	if err != nil {
		return &APIError{StatusCode: res.StatusCode(), Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if res.IsError() {
		apiErr := &APIError{StatusCode: res.StatusCode(), RawBody: string(raw)}

		var envelope errorBody
		if jsonErr := json.Unmarshal(raw, &envelope); jsonErr == nil {
			apiErr.ErrorCode = envelope.ErrorCode
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &APIError{StatusCode: res.StatusCode(), Err: fmt.Errorf("failed to decode response: %w", err)}
		}
	}

	return nil
}

// CreateSession registers a new verification session for a wallet address.
func (c *Client) CreateSession(ctx context.Context, payload types.CreateSessionPayload) (*types.SessionResponse, error) {
	var session types.SessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/session", payload, &session); err != nil {
		return nil, err
	}
	c.SetSessionID(session.ID)
	return &session, nil
}

// GetSession fetches the backend's latest representation of the session.
func (c *Client) GetSession(ctx context.Context) (*types.SessionResponse, error) {
	var session types.SessionResponse
	if err := c.do(ctx, http.MethodGet, "/api/session", nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Login submits the wallet signature over the login payload and returns the
// logged-in user.
func (c *Client) Login(ctx context.Context, payload types.LoginPayload) (*types.UserResponse, error) {
	var user types.UserResponse
	if err := c.do(ctx, http.MethodPost, "/api/user", payload, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser fetches the backend's latest representation of the user.
func (c *Client) GetUser(ctx context.Context) (*types.UserResponse, error) {
	var user types.UserResponse
	if err := c.do(ctx, http.MethodGet, "/api/user", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser replaces the user's personal data.
func (c *Client) UpdateUser(ctx context.Context, payload types.UpdateUserPayload) (*types.UserResponse, error) {
	var user types.UserResponse
	if err := c.do(ctx, http.MethodPut, "/api/user", payload, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// AcceptDisclaimer records the user's disclaimer acceptance.
func (c *Client) AcceptDisclaimer(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/disclaimer", nil, nil)
}

// SendConfirmationEmail asks the backend to (re)send the confirmation email.
func (c *Client) SendConfirmationEmail(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/user/email_confirmation", nil, nil)
}

// GetStatus fetches deployed contract info and identity provider settings.
func (c *Client) GetStatus(ctx context.Context) (*types.StatusResponse, error) {
	var status types.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetNetworks fetches the networks the backend supports.
func (c *Client) GetNetworks(ctx context.Context) ([]types.NetworkResponse, error) {
	var networks []types.NetworkResponse
	if err := c.do(ctx, http.MethodGet, "/api/networks", nil, &networks); err != nil {
		return nil, err
	}
	return networks, nil
}

// AuthorizeMinting requests a minting authorization code for the session.
func (c *Client) AuthorizeMinting(ctx context.Context, payload types.MintingAuthorizationPayload) (*types.MintingAuthorizationResponse, error) {
	var auth types.MintingAuthorizationResponse
	if err := c.do(ctx, http.MethodPost, "/api/authorize_minting", payload, &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

// RegenerateIdenticons asks the backend to generate a fresh identicon set.
func (c *Client) RegenerateIdenticons(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/token/identicon", nil, nil)
}

// ReportMint records a completed mint against its authorization code.
func (c *Client) ReportMint(ctx context.Context, payload types.TokenDetailsPayload) error {
	return c.do(ctx, http.MethodPost, "/api/token", payload, nil)
}
