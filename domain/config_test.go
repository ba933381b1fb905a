package domain

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	zeroAddress    = "EQAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAM9c"
	jettonAddress  = "EQCxE6mUtQJKFnGfaROTKOt1lZbDiiX1kCixRv7Nw2Id_sDs"
	electorAddress = "Ef8zMzMzMzMzMzMzMzMzMzMzMzMzMzMzMzMzMzMzMzMzM0vF"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadConfig(t *testing.T) {
	path := writeConfig(t, `
network: testnet
treasury_address: `+zeroAddress+`
staked_jetton_master: `+jettonAddress+`
pending_ttl: 30s
lending_api_url: https://lending.example/
watch_addresses:
  - `+zeroAddress+`
adapters:
  - protocol: wallet
  - protocol: dex
    address: `+electorAddress+`
    lp_master: `+jettonAddress+`
    deployed_at: 100
  - protocol: lending
supplied_source:
  dex: Supply APY
`)

	config, err := ReadConfig(path)
	require.NoError(t, err)

	assert.True(t, config.IsTestNet())
	assert.Equal(t, Address(zeroAddress), config.TreasuryAddress)
	assert.Equal(t, Address(jettonAddress), config.StakedJettonMaster)
	assert.Equal(t, "https://lending.example", config.LendingAPIURL)
	assert.Equal(t, 30*time.Second, config.PendingTTL)
	assert.Equal(t, 5*time.Second, config.NegativeTTL)
	assert.Equal(t, int64(10000), config.CacheSize)
	assert.Equal(t, 4, config.MaxParallelAdapters)
	assert.Equal(t, uint8(9), config.StakedDecimals)
	assert.Equal(t, "hTON", config.StakedSymbol)
	assert.Equal(t, []Address{zeroAddress}, config.WatchAddresses)

	require.Len(t, config.Adapters, 3)
	assert.Equal(t, AdapterKindWallet, config.Adapters[0].Kind)
	assert.Equal(t, ProtocolDex, config.Adapters[1].Protocol)
	assert.Equal(t, uint64(100), config.Adapters[1].DeployedAt)
	assert.Equal(t, Address(electorAddress), config.Adapters[1].Address)
	assert.Equal(t, AdapterKindLending, config.Adapters[2].Kind)

	assert.Equal(t, "Supply APY", config.SuppliedSource[ProtocolDex])
}

func TestReadConfigErrors(t *testing.T) {
	base := "treasury_address: " + zeroAddress + "\nstaked_jetton_master: " + jettonAddress + "\n"

	tests := []struct {
		name    string
		content string
		err     error
	}{
		{"network", base + "network: moon\n", ErrorInvalidNetwork},
		{"treasury", "treasury_address: nope\nstaked_jetton_master: " + jettonAddress + "\n", ErrorInvalidTreausryAddress},
		{"ttl", base + "pending_ttl: soon\n", ErrorInvalidPendingTTL},
		{"vault without db", base + "adapters:\n  - protocol: vault\n", ErrorMissingIndexDatabase},
		{"lending without index", base + "adapters:\n  - protocol: lending\n", ErrorMissingLendingIndex},
		{"duplicate", base + "adapters:\n  - protocol: wallet\n  - protocol: wallet\n", ErrorDuplicateAdapter},
		{"dex address", base + "adapters:\n  - protocol: dex\n    address: x\n", ErrorInvalidAdapterAddress},
		{"supplied source", base + "supplied_source:\n  bridge: x\n", ErrorInvalidSuppliedSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadConfig(writeConfig(t, tt.content))
			assert.True(t, errors.Is(err, tt.err), "got %v", err)
		})
	}
}

func TestParseAddress(t *testing.T) {
	address, err := ParseAddress(" " + jettonAddress + " ")
	require.NoError(t, err)
	assert.Equal(t, Address(jettonAddress), address)

	_, err = ParseAddress("not-an-address")
	assert.True(t, errors.Is(err, ErrorInvalidAddress))
}
