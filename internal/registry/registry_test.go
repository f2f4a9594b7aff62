package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockcoders/nxtp-sdk/internal/types"
)

func TestLookup_BundledChainFound(t *testing.T) {
	r := NewRegistry()
	entry, ok := r.Lookup(1)
	require.True(t, ok)
	require.Equal(t, "Ethereum Mainnet", entry.Name)
}

func TestLookup_UnknownChainNotFound(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup(99999)
	require.False(t, ok)
}

func TestChainIds_SortedAscending(t *testing.T) {
	r := NewRegistry()
	ids := r.ChainIds()
	for i := 1; i < len(ids); i++ {
		require.Less(t, ids[i-1], ids[i])
	}
}

func TestResolveTransactionManager_OverridePreferred(t *testing.T) {
	r := NewRegistry()
	override := types.Address{0xFF}
	got, err := ResolveTransactionManager(r, 1, override)
	require.NoError(t, err)
	require.Equal(t, override, got)
}

func TestResolveTransactionManager_FallsBackToBundled(t *testing.T) {
	r := NewRegistry()
	got, err := ResolveTransactionManager(r, 1, types.Address{})
	require.NoError(t, err)
	require.NotEqual(t, types.Address{}, got)
}

func TestResolveTransactionManager_UnknownChainErrors(t *testing.T) {
	r := NewRegistry()
	_, err := ResolveTransactionManager(r, 99999, types.Address{})
	require.Error(t, err)
	require.True(t, types.IsKind(err, types.KindNoTransactionManager))
}

func TestResolveSubgraph_UnknownChainErrors(t *testing.T) {
	r := NewRegistry()
	_, err := ResolveSubgraph(r, 99999, "")
	require.Error(t, err)
	require.True(t, types.IsKind(err, types.KindNoSubgraph))
}

func TestResolvePriceOracle_OverridePreferred(t *testing.T) {
	r := NewRegistry()
	override := types.Address{0xAB}
	got, err := ResolvePriceOracle(r, 137, override)
	require.NoError(t, err)
	require.Equal(t, override, got)
}
