// Package attestation polls the remote attestation service for proof that a
// CCTP burn is finalized and safe to mint against.
package attestation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/novavault/recovery-middleware/internal/metrics"
	"github.com/novavault/recovery-middleware/pkg/config"
)

const (
	// StatusComplete is the attestation status that allows minting.
	StatusComplete = "complete"

	defaultPollInterval = 5 * time.Second
	defaultMaxAttempts  = 60
)

var (
	// ErrNotReady means the attestation service has not finalized the burn
	// yet. Callers keep polling; it is never a failure by itself.
	ErrNotReady = errors.New("attestation not yet available")

	// ErrTimeout means the polling ceiling was exceeded without a complete
	// attestation.
	ErrTimeout = errors.New("attestation polling ceiling exceeded")
)

// Attestation is the message/attestation pair returned once a burn is
// finalized.
type Attestation struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Attestation string `json:"attestation"`
}

// Client polls the attestation service keyed by (source domain, burn tx hash).
type Client struct {
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	maxAttempts  uint64
	logger       *zap.Logger
}

// NewClient creates an attestation client from configuration.
func NewClient(cfg *config.AttestationConfig, logger *zap.Logger) *Client {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	maxAttempts := uint64(cfg.MaxAttempts)
	if maxAttempts == 0 {
		maxAttempts = defaultMaxAttempts
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}
	return &Client{
		baseURL:      cfg.BaseURL,
		httpClient:   &http.Client{Timeout: requestTimeout},
		pollInterval: pollInterval,
		maxAttempts:  maxAttempts,
		logger:       logger,
	}
}

type messagesResponse struct {
	Messages []Attestation `json:"messages"`
}

// GetAttestation fetches the attestation for one burn. It returns ErrNotReady
// both for a 404 and for a response whose status is not complete.
func (c *Client) GetAttestation(ctx context.Context, domain uint32, burnTxHash string) (*Attestation, error) {
	url := fmt.Sprintf("%s/v2/messages/%d?transactionHash=%s", c.baseURL, domain, burnTxHash)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build attestation request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("attestation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		metrics.AttestationPollsTotal.WithLabelValues("not_ready").Inc()
		return nil, ErrNotReady
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		metrics.AttestationPollsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("attestation service returned %d: %s", resp.StatusCode, raw)
	}

	var body messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode attestation response: %w", err)
	}
	if len(body.Messages) == 0 {
		metrics.AttestationPollsTotal.WithLabelValues("not_ready").Inc()
		return nil, ErrNotReady
	}

	att := body.Messages[0]
	if att.Status != StatusComplete {
		metrics.AttestationPollsTotal.WithLabelValues("not_ready").Inc()
		return nil, ErrNotReady
	}

	metrics.AttestationPollsTotal.WithLabelValues("complete").Inc()
	return &att, nil
}

// WaitForAttestation polls at a fixed interval until the attestation is
// complete or the attempt ceiling is reached. A not-yet-available response
// keeps polling; any other poll failure is logged and retried up to the same
// ceiling.
func (c *Client) WaitForAttestation(ctx context.Context, domain uint32, burnTxHash string) (*Attestation, error) {
	attempt := 0
	operation := func() (*Attestation, error) {
		attempt++
		att, err := c.GetAttestation(ctx, domain, burnTxHash)
		if err != nil {
			if !errors.Is(err, ErrNotReady) {
				c.logger.Warn("Attestation poll failed, retrying",
					zap.Uint32("domain", domain),
					zap.String("burn_tx_hash", burnTxHash),
					zap.Int("attempt", attempt),
					zap.Error(err))
			}
			return nil, err
		}
		return att, nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.pollInterval), c.maxAttempts-1),
		ctx,
	)

	att, err := backoff.RetryWithData(operation, policy)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: no complete attestation for burn %s after %d attempts",
			ErrTimeout, burnTxHash, c.maxAttempts)
	}

	c.logger.Info("Attestation complete",
		zap.Uint32("domain", domain),
		zap.String("burn_tx_hash", burnTxHash),
		zap.Int("attempts", attempt))

	return att, nil
}
