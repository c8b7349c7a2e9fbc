package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kycdao/kycdao-go/config"
	"github.com/kycdao/kycdao-go/types"
)

const testBaseURL = "https://kyc.example.com"

func newTestClient() *Client {
	return &Client{
		conf: &config.BackendConfiguration{
			BaseURL: testBaseURL,
			APIKey:  "test-api-key",
			Timeout: 5 * time.Second,
		},
	}
}

func TestCreateSession(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", testBaseURL+"/api/session",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer test-api-key", req.Header.Get("Authorization"))
			assert.NotEmpty(t, req.Header.Get("X-Request-ID"))

			var payload types.CreateSessionPayload
			require.NoError(t, json.NewDecoder(req.Body).Decode(&payload))
			assert.Equal(t, "0xabc", payload.WalletAddress)
			assert.Equal(t, "eip155:137", payload.Network)

			return httpmock.NewJsonResponse(200, map[string]interface{}{
				"id":    "session-1",
				"nonce": "nonce-1",
			})
		},
	)

	client := newTestClient()
	session, err := client.CreateSession(context.Background(), types.CreateSessionPayload{
		WalletAddress: "0xabc",
		Network:       "eip155:137",
	})
	require.NoError(t, err)
	assert.Equal(t, "session-1", session.ID)
	assert.Equal(t, "nonce-1", session.Nonce)

	// the issued session id authenticates later calls
	httpmock.RegisterResponder("GET", testBaseURL+"/api/user",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "session-1", req.Header.Get("X-Session-ID"))
			return httpmock.NewJsonResponse(200, map[string]interface{}{"ext_id": "user-1"})
		},
	)

	user, err := client.GetUser(context.Background())
	require.NoError(t, err)
	require.NotNil(t, user.ExtID)
	assert.Equal(t, "user-1", *user.ExtID)
}

func TestDoErrorHandling(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	t.Run("structured error body", func(t *testing.T) {
		httpmock.RegisterResponder("POST", testBaseURL+"/api/disclaimer",
			httpmock.NewStringResponder(400, `{"error_code":"disclaimer_already_accepted","error":"already accepted"}`),
		)

		err := newTestClient().AcceptDisclaimer(context.Background())
		require.Error(t, err)

		apiErr, ok := err.(*APIError)
		require.True(t, ok)
		assert.Equal(t, 400, apiErr.StatusCode)
		assert.Equal(t, CodeDisclaimerAlreadyAccepted, apiErr.ErrorCode)
		assert.True(t, HasErrorCode(err, CodeDisclaimerAlreadyAccepted))
		assert.False(t, HasErrorCode(err, CodeUserAlreadyLoggedIn))
	})

	t.Run("unstructured error body", func(t *testing.T) {
		httpmock.RegisterResponder("GET", testBaseURL+"/api/status",
			httpmock.NewStringResponder(502, "bad gateway"),
		)

		_, err := newTestClient().GetStatus(context.Background())
		require.Error(t, err)

		apiErr, ok := err.(*APIError)
		require.True(t, ok)
		assert.Equal(t, 502, apiErr.StatusCode)
		assert.Empty(t, apiErr.ErrorCode)
		assert.Contains(t, apiErr.Error(), "bad gateway")
		assert.False(t, HasErrorCode(err, CodeDisclaimerAlreadyAccepted))
	})

	t.Run("cancelled context aborts the request", func(t *testing.T) {
		httpmock.RegisterResponder("GET", testBaseURL+"/api/session",
			httpmock.NewStringResponder(200, `{}`),
		)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newTestClient().GetSession(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("transport failure", func(t *testing.T) {
		httpmock.RegisterResponder("GET", testBaseURL+"/api/networks",
			httpmock.NewErrorResponder(assert.AnError),
		)

		_, err := newTestClient().GetNetworks(context.Background())
		require.Error(t, err)

		apiErr, ok := err.(*APIError)
		require.True(t, ok)
		assert.Zero(t, apiErr.StatusCode)
		assert.Error(t, apiErr.Unwrap())
	})
}

func TestGetNetworks(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	chainID := int64(137)
	httpmock.RegisterResponder("GET", testBaseURL+"/api/networks",
		httpmock.NewStringResponder(200, `[
			{"caip2id":"eip155:137","chain_id":137,"explorer_url":"https://polygonscan.com","transaction_path":"/tx/","native_currency":{"name":"Matic","symbol":"MATIC","decimals":18}},
			{"caip2id":"solana:mainnet","explorer_url":"https://solscan.io","transaction_path":"/tx/"}
		]`),
	)

	networks, err := newTestClient().GetNetworks(context.Background())
	require.NoError(t, err)
	require.Len(t, networks, 2)
	assert.Equal(t, "eip155:137", networks[0].CAIP2ID)
	require.NotNil(t, networks[0].ChainID)
	assert.Equal(t, chainID, *networks[0].ChainID)
	assert.Equal(t, uint8(18), networks[0].NativeCurrency.Decimals)
	assert.Nil(t, networks[1].ChainID)
}

func TestAuthorizeMinting(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", testBaseURL+"/api/authorize_minting",
		func(req *http.Request) (*http.Response, error) {
			var payload types.MintingAuthorizationPayload
			require.NoError(t, json.NewDecoder(req.Body).Decode(&payload))
			assert.Equal(t, "eip155:137", payload.Network)
			assert.Equal(t, "P3Y", payload.SubscriptionDuration)

			return httpmock.NewJsonResponse(200, map[string]interface{}{
				"code":    "5678",
				"tx_hash": "0xfeed",
			})
		},
	)

	auth, err := newTestClient().AuthorizeMinting(context.Background(), types.MintingAuthorizationPayload{
		Network:              "eip155:137",
		SelectedImageID:      "img-1",
		SubscriptionDuration: "P3Y",
	})
	require.NoError(t, err)
	assert.Equal(t, "5678", auth.Code)
	assert.Equal(t, "0xfeed", auth.TxHash)
}
