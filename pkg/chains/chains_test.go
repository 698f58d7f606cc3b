package chains

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	c, ok := Get("ETH-SEPOLIA")
	require.True(t, ok)
	assert.Equal(t, uint32(0), c.Domain)
	assert.Equal(t, "ETH-SEPOLIA", c.Name)

	_, ok = Get("DOGE-MAINNET")
	assert.False(t, ok)
}

func TestMustGet_Unsupported(t *testing.T) {
	_, err := MustGet("SOL-DEVNET")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported chain")
}

func TestDomainsAreUnique(t *testing.T) {
	seen := map[uint32]string{}
	for _, c := range All() {
		if prev, ok := seen[c.Domain]; ok {
			t.Fatalf("domain %d shared by %s and %s", c.Domain, prev, c.Name)
		}
		seen[c.Domain] = c.Name
	}
}
