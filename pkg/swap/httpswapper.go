package swap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/novavault/recovery-middleware/pkg/config"
)

// HTTPSwapper talks to the swap execution service over JSON. The service
// routes orders to the on-chain DEX and reports the realized output.
type HTTPSwapper struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPSwapper creates a swap client from configuration.
func NewHTTPSwapper(cfg *config.SwapConfig, logger *zap.Logger) *HTTPSwapper {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		// Swaps wait for on-chain confirmation, so the budget is generous.
		timeout = 60 * time.Second
	}
	return &HTTPSwapper{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type swapRequest struct {
	TokenIn  string `json:"tokenIn"`
	TokenOut string `json:"tokenOut"`
	AmountIn string `json:"amountIn"`
	Network  string `json:"network"`
}

type quoteResponse struct {
	AmountOut string `json:"amountOut"`
}

type swapResponse struct {
	TxHash    string `json:"txHash"`
	AmountOut string `json:"amountOut"`
}

// Quote returns the expected output amount without executing anything.
func (s *HTTPSwapper) Quote(ctx context.Context, tokenIn, tokenOut string, amountIn decimal.Decimal, network string) (decimal.Decimal, error) {
	body := swapRequest{TokenIn: tokenIn, TokenOut: tokenOut, AmountIn: amountIn.String(), Network: network}

	var resp quoteResponse
	if err := s.doJSON(ctx, "/v1/quote", body, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("failed to quote %s -> %s on %s: %w", tokenIn, tokenOut, network, err)
	}

	out, err := decimal.NewFromString(resp.AmountOut)
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed quote amount %q: %w", resp.AmountOut, err)
	}
	return out, nil
}

// Swap executes the conversion and returns the tx hash and realized output.
func (s *HTTPSwapper) Swap(ctx context.Context, tokenIn, tokenOut string, amountIn decimal.Decimal, network string) (*Result, error) {
	body := swapRequest{TokenIn: tokenIn, TokenOut: tokenOut, AmountIn: amountIn.String(), Network: network}

	var resp swapResponse
	if err := s.doJSON(ctx, "/v1/swap", body, &resp); err != nil {
		return nil, fmt.Errorf("failed to swap %s -> %s on %s: %w", tokenIn, tokenOut, network, err)
	}

	out, err := decimal.NewFromString(resp.AmountOut)
	if err != nil {
		return nil, fmt.Errorf("malformed swap output %q: %w", resp.AmountOut, err)
	}

	s.logger.Info("Swap executed",
		zap.String("network", network),
		zap.String("token_in", tokenIn),
		zap.String("amount_in", amountIn.String()),
		zap.String("amount_out", out.String()),
		zap.String("tx_hash", resp.TxHash))

	return &Result{TxHash: resp.TxHash, AmountOut: out}, nil
}

func (s *HTTPSwapper) doJSON(ctx context.Context, path string, reqBody, respBody any) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("swap service returned %d: %s", resp.StatusCode, raw)
	}

	if respBody != nil {
		if err := json.Unmarshal(raw, respBody); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
