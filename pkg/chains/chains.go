// Package chains is the closed registry of networks the recovery service
// can migrate funds across. Adding a chain is a data change here, not a
// code change elsewhere.
package chains

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// USDCDecimals is the fixed decimal precision of USDC on every supported chain.
const USDCDecimals = 6

// Chain describes one supported network: its custody-provider name, its
// CCTP domain, and the contract addresses the bridge engine needs.
type Chain struct {
	// Name is the chain identifier in custody-provider notation, e.g. "ETH-SEPOLIA".
	Name string
	// Domain is the CCTP protocol domain, distinct from the native network ID.
	Domain uint32
	// USDCAddress is the USDC token contract on this chain.
	USDCAddress common.Address
	// TokenMessenger is the CCTP burn entrypoint contract.
	TokenMessenger common.Address
	// MessageTransmitter is the CCTP mint (receiveMessage) contract.
	MessageTransmitter common.Address
}

var registry = map[string]Chain{
	"ETH-SEPOLIA": {
		Name:               "ETH-SEPOLIA",
		Domain:             0,
		USDCAddress:        common.HexToAddress("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"),
		TokenMessenger:     common.HexToAddress("0x9f3B8679c73C2Fef8b59B4f3444d4e156fb70AA5"),
		MessageTransmitter: common.HexToAddress("0x7865fAfC2db2093669d92c0F33AeEF291086BEFD"),
	},
	"AVAX-FUJI": {
		Name:               "AVAX-FUJI",
		Domain:             1,
		USDCAddress:        common.HexToAddress("0x5425890298aed601595a70AB815c96711a31Bc65"),
		TokenMessenger:     common.HexToAddress("0x9f3B8679c73C2Fef8b59B4f3444d4e156fb70AA5"),
		MessageTransmitter: common.HexToAddress("0xa9fB1b3009DCb79E2fe346c16a604B8Fa8aE0a79"),
	},
	"ARB-SEPOLIA": {
		Name:               "ARB-SEPOLIA",
		Domain:             3,
		USDCAddress:        common.HexToAddress("0x75faf114eafb1BDbe2F0316DF893fd58CE46AA4d"),
		TokenMessenger:     common.HexToAddress("0x9f3B8679c73C2Fef8b59B4f3444d4e156fb70AA5"),
		MessageTransmitter: common.HexToAddress("0xaCF1ceeF35caAc005e15888dDb8A3515C41B4872"),
	},
	"BASE-SEPOLIA": {
		Name:               "BASE-SEPOLIA",
		Domain:             6,
		USDCAddress:        common.HexToAddress("0x036CbD53842c5426634e7929541eC2318f3dCF7e"),
		TokenMessenger:     common.HexToAddress("0x9f3B8679c73C2Fef8b59B4f3444d4e156fb70AA5"),
		MessageTransmitter: common.HexToAddress("0x7865fAfC2db2093669d92c0F33AeEF291086BEFD"),
	},
	"MATIC-AMOY": {
		Name:               "MATIC-AMOY",
		Domain:             7,
		USDCAddress:        common.HexToAddress("0x41E94Eb019C0762f9Bfcf9Fb1E58725BfB0e7582"),
		TokenMessenger:     common.HexToAddress("0x9f3B8679c73C2Fef8b59B4f3444d4e156fb70AA5"),
		MessageTransmitter: common.HexToAddress("0x7865fAfC2db2093669d92c0F33AeEF291086BEFD"),
	},
}

// Get returns the chain registered under the given name.
func Get(name string) (Chain, bool) {
	c, ok := registry[name]
	return c, ok
}

// MustGet returns the chain registered under the given name or an error
// suitable for wrapping into a validation failure.
func MustGet(name string) (Chain, error) {
	c, ok := registry[name]
	if !ok {
		return Chain{}, fmt.Errorf("unsupported chain %q", name)
	}
	return c, nil
}

// All returns every registered chain, ordered by name for deterministic iteration.
func All() []Chain {
	out := make([]Chain, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
