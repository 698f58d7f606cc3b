package custody

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/novavault/recovery-middleware/pkg/config"
)

// CircleClient talks to a Circle-style developer-controlled wallets API.
// Wallets are addressed by wallet ID; the provider signs and broadcasts
// transactions itself, so this client only submits and polls.
type CircleClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewCircleClient creates a custody client from configuration.
func NewCircleClient(cfg *config.CustodyConfig, logger *zap.Logger) *CircleClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CircleClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type balanceResponse struct {
	Data struct {
		TokenBalances []struct {
			Token struct {
				Symbol       string `json:"symbol"`
				TokenAddress string `json:"tokenAddress"`
				IsNative     bool   `json:"isNative"`
			} `json:"token"`
			Amount string `json:"amount"`
		} `json:"tokenBalances"`
	} `json:"data"`
}

// GetBalance fetches a wallet's holdings on one chain and splits them into
// USDC, native gas, and other tokens.
func (c *CircleClient) GetBalance(ctx context.Context, walletRef, chain string) (*Balance, error) {
	path := fmt.Sprintf("/v1/w3s/wallets/%s/balances?blockchain=%s", walletRef, chain)

	var resp balanceResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch balances for wallet %s on %s: %w", walletRef, chain, err)
	}

	balance := &Balance{USDC: "0", Native: "0"}
	for _, tb := range resp.Data.TokenBalances {
		switch {
		case tb.Token.IsNative:
			balance.Native = tb.Amount
		case tb.Token.Symbol == "USDC":
			balance.USDC = tb.Amount
		default:
			balance.Tokens = append(balance.Tokens, TokenBalance{
				Symbol:       tb.Token.Symbol,
				Balance:      tb.Amount,
				TokenAddress: tb.Token.TokenAddress,
			})
		}
	}
	return balance, nil
}

type contractExecutionRequest struct {
	WalletID             string   `json:"walletId"`
	ContractAddress      string   `json:"contractAddress"`
	ABIFunctionSignature string   `json:"abiFunctionSignature"`
	ABIParameters        []string `json:"abiParameters"`
	IdempotencyKey       string   `json:"idempotencyKey"`
	FeeLevel             string   `json:"feeLevel"`
}

type contractExecutionResponse struct {
	Data struct {
		ID    string `json:"id"`
		State string `json:"state"`
	} `json:"data"`
}

// SubmitContractCall submits a contract invocation through the provider-held
// wallet and returns the provider's operation ID. The idempotency key makes
// retried submissions safe on the provider side.
func (c *CircleClient) SubmitContractCall(ctx context.Context, req ContractCallRequest) (string, error) {
	body := contractExecutionRequest{
		WalletID:             req.WalletRef,
		ContractAddress:      req.ContractAddress,
		ABIFunctionSignature: req.FunctionSignature,
		ABIParameters:        req.Params,
		IdempotencyKey:       uuid.NewString(),
		FeeLevel:             "MEDIUM",
	}

	var resp contractExecutionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/w3s/developer/transactions/contractExecution", body, &resp); err != nil {
		return "", fmt.Errorf("failed to submit contract call %s: %w", req.FunctionSignature, err)
	}

	c.logger.Info("Contract call submitted",
		zap.String("operation_id", resp.Data.ID),
		zap.String("contract", req.ContractAddress),
		zap.String("function", req.FunctionSignature))

	return resp.Data.ID, nil
}

type transactionResponse struct {
	Data struct {
		Transaction struct {
			ID          string `json:"id"`
			State       string `json:"state"`
			TxHash      string `json:"txHash"`
			ErrorReason string `json:"errorReason"`
		} `json:"transaction"`
	} `json:"data"`
}

// GetOperationStatus fetches the current state of a submitted operation.
func (c *CircleClient) GetOperationStatus(ctx context.Context, operationID string) (*Operation, error) {
	path := fmt.Sprintf("/v1/w3s/transactions/%s", operationID)

	var resp transactionResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch operation %s: %w", operationID, err)
	}

	tx := resp.Data.Transaction
	return &Operation{
		ID:          tx.ID,
		State:       OperationState(tx.State),
		TxHash:      tx.TxHash,
		ErrorReason: tx.ErrorReason,
	}, nil
}

func (c *CircleClient) doJSON(ctx context.Context, method, path string, reqBody, respBody any) error {
	var reader io.Reader
	if reqBody != nil {
		payload, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("custody provider returned %d: %s", resp.StatusCode, raw)
	}

	if respBody != nil {
		if err := json.Unmarshal(raw, respBody); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
