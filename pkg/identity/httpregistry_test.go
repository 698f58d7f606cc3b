package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/novavault/recovery-middleware/pkg/config"
)

func newTestRegistry(t *testing.T, handler http.HandlerFunc) *HTTPRegistry {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	registry, err := NewHTTPRegistry(&config.IdentityConfig{
		BaseURL:        srv.URL,
		APIKey:         "test-key",
		RequestTimeout: time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	return registry
}

func TestHTTPRegistry_GetGuardianConfig(t *testing.T) {
	registry := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/names/alice.nova/guardians", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]any{
			"guardians":     []string{"0xaa", "0xbb"},
			"threshold":     2,
			"walletAddress": "wallet-1",
		})
	})

	cfg, err := registry.GetGuardianConfig(context.Background(), "alice.nova")
	require.NoError(t, err)
	assert.Equal(t, []string{"0xaa", "0xbb"}, cfg.Guardians)
	assert.Equal(t, 2, cfg.Threshold)
	assert.Equal(t, "wallet-1", cfg.WalletAddress)
}

func TestHTTPRegistry_TextRecords(t *testing.T) {
	var putBody map[string]string
	registry := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, "/v1/names/alice.nova/text/recovery.guardians", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]string{"value": "0xaa,0xbb"})
		case http.MethodPut:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&putBody))
			w.WriteHeader(http.StatusOK)
		}
	})

	value, err := registry.GetTextRecord(context.Background(), "alice.nova", "recovery.guardians")
	require.NoError(t, err)
	assert.Equal(t, "0xaa,0xbb", value)

	require.NoError(t, registry.SetTextRecord(context.Background(), "alice.nova", "recovery.guardians", "0xcc"))
	assert.Equal(t, "0xcc", putBody["value"])
}

func TestHTTPRegistry_TransferOwnership(t *testing.T) {
	var got map[string]string
	registry := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/names/alice.nova/owner", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	err := registry.TransferOwnership(context.Background(), "alice.nova", "0xnew")
	require.NoError(t, err)
	assert.Equal(t, "0xnew", got["newOwner"])
}

func TestHTTPRegistry_ServerErrorSurfacesStatus(t *testing.T) {
	registry := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "name not registered", http.StatusNotFound)
	})

	_, err := registry.GetGuardianConfig(context.Background(), "nobody.nova")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "name not registered")
}
