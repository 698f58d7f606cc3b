package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/novavault/recovery-middleware/pkg/bridge"
	"github.com/novavault/recovery-middleware/pkg/custody"
	"github.com/novavault/recovery-middleware/pkg/identity"
	"github.com/novavault/recovery-middleware/pkg/swap"
)

// MockRegistry is a mock implementation of identity.Registry
type MockRegistry struct {
	GetGuardianConfigFunc func(ctx context.Context, name string) (*identity.GuardianConfig, error)
	TransferOwnershipFunc func(ctx context.Context, name, newOwner string) error

	Transferred []string
}

func (m *MockRegistry) GetGuardianConfig(ctx context.Context, name string) (*identity.GuardianConfig, error) {
	if m.GetGuardianConfigFunc != nil {
		return m.GetGuardianConfigFunc(ctx, name)
	}
	return &identity.GuardianConfig{
		Guardians:     []string{guardian1, guardian2, guardian3},
		Threshold:     2,
		WalletAddress: "wallet-old",
	}, nil
}

func (m *MockRegistry) GetTextRecord(ctx context.Context, name, key string) (string, error) {
	return "", nil
}

func (m *MockRegistry) SetTextRecord(ctx context.Context, name, key, value string) error {
	return nil
}

func (m *MockRegistry) TransferOwnership(ctx context.Context, name, newOwner string) error {
	m.Transferred = append(m.Transferred, name+"->"+newOwner)
	if m.TransferOwnershipFunc != nil {
		return m.TransferOwnershipFunc(ctx, name, newOwner)
	}
	return nil
}

// MockBalanceReader is a mock implementation of BalanceReader
type MockBalanceReader struct {
	GetBalanceFunc func(ctx context.Context, walletRef, chain string) (*custody.Balance, error)
}

func (m *MockBalanceReader) GetBalance(ctx context.Context, walletRef, chain string) (*custody.Balance, error) {
	if m.GetBalanceFunc != nil {
		return m.GetBalanceFunc(ctx, walletRef, chain)
	}
	return &custody.Balance{USDC: "0", Native: "0"}, nil
}

// MockBridger is a mock implementation of Bridger
type MockBridger struct {
	TransferFunc func(ctx context.Context, req bridge.TransferRequest) (*bridge.Operation, error)

	Requests []bridge.TransferRequest
}

func (m *MockBridger) Transfer(ctx context.Context, req bridge.TransferRequest) (*bridge.Operation, error) {
	m.Requests = append(m.Requests, req)
	if m.TransferFunc != nil {
		return m.TransferFunc(ctx, req)
	}
	return &bridge.Operation{
		SourceChain:      req.SourceChain,
		DestinationChain: req.DestinationChain,
		Amount:           req.Amount,
		Status:           bridge.StatusCompleted,
		Step:             bridge.StepDone,
		BurnTxHash:       fmt.Sprintf("0xburn-%s", req.SourceChain),
		MintTxHash:       fmt.Sprintf("0xmint-%s", req.SourceChain),
	}, nil
}

// MockSwapper is a mock implementation of swap.Swapper
type MockSwapper struct {
	QuoteFunc func(ctx context.Context, tokenIn, tokenOut string, amountIn decimal.Decimal, network string) (decimal.Decimal, error)
	SwapFunc  func(ctx context.Context, tokenIn, tokenOut string, amountIn decimal.Decimal, network string) (*swap.Result, error)
}

func (m *MockSwapper) Quote(ctx context.Context, tokenIn, tokenOut string, amountIn decimal.Decimal, network string) (decimal.Decimal, error) {
	if m.QuoteFunc != nil {
		return m.QuoteFunc(ctx, tokenIn, tokenOut, amountIn, network)
	}
	return amountIn, nil
}

func (m *MockSwapper) Swap(ctx context.Context, tokenIn, tokenOut string, amountIn decimal.Decimal, network string) (*swap.Result, error) {
	if m.SwapFunc != nil {
		return m.SwapFunc(ctx, tokenIn, tokenOut, amountIn, network)
	}
	return &swap.Result{TxHash: "0xswap-" + network, AmountOut: amountIn}, nil
}
