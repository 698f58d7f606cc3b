// Package identity defines the ENS-like identity registry contract. The
// registry is a key-value store for guardian lists and recovery metadata;
// name registration itself is out of scope.
package identity

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// GuardianConfig is the guardian setup stored against an identity name.
type GuardianConfig struct {
	Guardians     []string
	Threshold     int
	WalletAddress string
}

// Registry is the identity registry collaborator interface. The recovery
// service uses it to seed guardian sets and to execute the ownership
// transfer that actually re-points the identity.
type Registry interface {
	GetGuardianConfig(ctx context.Context, name string) (*GuardianConfig, error)
	GetTextRecord(ctx context.Context, name, key string) (string, error)
	SetTextRecord(ctx context.Context, name, key, value string) error
	TransferOwnership(ctx context.Context, name, newOwner string) error
}

// Namehash computes the ENS namehash of an identity name: the keccak256
// recursion over the name's labels, right to left. The result is the
// stable identity key used throughout the recovery registry.
func Namehash(name string) common.Hash {
	node := common.Hash{}
	if name == "" {
		return node
	}

	labels := strings.Split(strings.ToLower(name), ".")
	for i := len(labels) - 1; i >= 0; i-- {
		labelHash := crypto.Keccak256([]byte(labels[i]))
		node = crypto.Keccak256Hash(node.Bytes(), labelHash)
	}
	return node
}

// ValidAddress reports whether s is a well-formed hex address.
func ValidAddress(s string) bool {
	return common.IsHexAddress(s)
}

// NormalizeAddress lowercases an address for case-insensitive comparison.
// Guardian membership checks must not depend on EIP-55 casing.
func NormalizeAddress(s string) string {
	return strings.ToLower(s)
}
