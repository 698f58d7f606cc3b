package custody

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/novavault/recovery-middleware/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *CircleClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewCircleClient(&config.CustodyConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
	}, zap.NewNop())
}

func TestCircleClient_GetBalance(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "/v1/w3s/wallets/wallet-1/balances", r.URL.Path)
		assert.Equal(t, "AVAX-FUJI", r.URL.Query().Get("blockchain"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"tokenBalances": []map[string]any{
					{"token": map[string]any{"symbol": "USDC", "tokenAddress": "0xusdc"}, "amount": "25.5"},
					{"token": map[string]any{"symbol": "AVAX", "isNative": true}, "amount": "1.2"},
					{"token": map[string]any{"symbol": "LINK", "tokenAddress": "0xlink"}, "amount": "3"},
				},
			},
		})
	})

	balance, err := client.GetBalance(context.Background(), "wallet-1", "AVAX-FUJI")
	require.NoError(t, err)
	assert.Equal(t, "25.5", balance.USDC)
	assert.Equal(t, "1.2", balance.Native)
	require.Len(t, balance.Tokens, 1)
	assert.Equal(t, "LINK", balance.Tokens[0].Symbol)
	assert.Equal(t, "0xlink", balance.Tokens[0].TokenAddress)
}

func TestCircleClient_SubmitContractCall(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/w3s/developer/transactions/contractExecution", r.URL.Path)

		var req contractExecutionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "wallet-1", req.WalletID)
		assert.Equal(t, "approve(address,uint256)", req.ABIFunctionSignature)
		assert.NotEmpty(t, req.IdempotencyKey)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": "op-123", "state": "INITIATED"},
		})
	})

	opID, err := client.SubmitContractCall(context.Background(), ContractCallRequest{
		WalletRef:         "wallet-1",
		ContractAddress:   "0xcontract",
		FunctionSignature: "approve(address,uint256)",
		Params:            []string{"0xspender", "1000000"},
	})
	require.NoError(t, err)
	assert.Equal(t, "op-123", opID)
}

func TestCircleClient_GetOperationStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/w3s/transactions/op-123", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"transaction": map[string]any{
					"id":     "op-123",
					"state":  "COMPLETE",
					"txHash": "0xabc",
				},
			},
		})
	})

	op, err := client.GetOperationStatus(context.Background(), "op-123")
	require.NoError(t, err)
	assert.Equal(t, OperationStateComplete, op.State)
	assert.True(t, op.State.Terminal())
	assert.True(t, op.State.Succeeded())
	assert.Equal(t, "0xabc", op.TxHash)
}

func TestCircleClient_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
	})

	_, err := client.GetOperationStatus(context.Background(), "op-404")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "custody provider returned 500")
}
