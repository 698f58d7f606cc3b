// Package swap defines the DEX swap collaborator used to convert non-USDC
// balances before bridging.
package swap

import (
	"context"

	"github.com/shopspring/decimal"
)

// Result reports a completed swap.
type Result struct {
	TxHash    string
	AmountOut decimal.Decimal
}

// Swapper is the on-chain swap collaborator interface.
type Swapper interface {
	// Quote returns the expected output amount for swapping amountIn of
	// tokenIn into tokenOut on the given network.
	Quote(ctx context.Context, tokenIn, tokenOut string, amountIn decimal.Decimal, network string) (decimal.Decimal, error)
	// Swap executes the conversion and returns the tx hash and realized output.
	Swap(ctx context.Context, tokenIn, tokenOut string, amountIn decimal.Decimal, network string) (*Result, error)
}
