package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/novavault/recovery-middleware/pkg/config"
)

// HTTPRegistry talks to the identity registry service over JSON. The
// service fronts the on-chain registry and resolver contracts; this client
// never signs anything itself.
type HTTPRegistry struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPRegistry creates a registry client from configuration.
func NewHTTPRegistry(cfg *config.IdentityConfig, logger *zap.Logger) (*HTTPRegistry, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("identity registry base URL is required")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPRegistry{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

type guardianConfigResponse struct {
	Guardians     []string `json:"guardians"`
	Threshold     int      `json:"threshold"`
	WalletAddress string   `json:"walletAddress"`
}

// GetGuardianConfig reads the guardian setup stored against a name.
func (r *HTTPRegistry) GetGuardianConfig(ctx context.Context, name string) (*GuardianConfig, error) {
	path := fmt.Sprintf("/v1/names/%s/guardians", url.PathEscape(name))

	var resp guardianConfigResponse
	if err := r.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch guardian config for %s: %w", name, err)
	}

	return &GuardianConfig{
		Guardians:     resp.Guardians,
		Threshold:     resp.Threshold,
		WalletAddress: resp.WalletAddress,
	}, nil
}

type textRecordResponse struct {
	Value string `json:"value"`
}

// GetTextRecord reads one text record of a name.
func (r *HTTPRegistry) GetTextRecord(ctx context.Context, name, key string) (string, error) {
	path := fmt.Sprintf("/v1/names/%s/text/%s", url.PathEscape(name), url.PathEscape(key))

	var resp textRecordResponse
	if err := r.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", fmt.Errorf("failed to fetch text record %s of %s: %w", key, name, err)
	}
	return resp.Value, nil
}

// SetTextRecord writes one text record of a name.
func (r *HTTPRegistry) SetTextRecord(ctx context.Context, name, key, value string) error {
	path := fmt.Sprintf("/v1/names/%s/text/%s", url.PathEscape(name), url.PathEscape(key))

	body := map[string]string{"value": value}
	if err := r.doJSON(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("failed to set text record %s of %s: %w", key, name, err)
	}
	return nil
}

// TransferOwnership re-points the name to a new owner address. This is the
// single on-chain side effect of a recovery.
func (r *HTTPRegistry) TransferOwnership(ctx context.Context, name, newOwner string) error {
	path := fmt.Sprintf("/v1/names/%s/owner", url.PathEscape(name))

	body := map[string]string{"newOwner": newOwner}
	if err := r.doJSON(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("failed to transfer ownership of %s: %w", name, err)
	}

	r.logger.Info("Identity ownership transferred",
		zap.String("name", name),
		zap.String("new_owner", newOwner))
	return nil
}

func (r *HTTPRegistry) doJSON(ctx context.Context, method, path string, reqBody, respBody any) error {
	var reader io.Reader
	if reqBody != nil {
		payload, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("identity registry returned %d: %s", resp.StatusCode, raw)
	}

	if respBody != nil {
		if err := json.Unmarshal(raw, respBody); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
