package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockcoders/nxtp-sdk/internal/types"
)

func TestNewDefaultConfig_MatchesSpecTimeouts(t *testing.T) {
	c := NewDefaultConfig()
	require.Equal(t, NetworkMainnet, c.Network)
	require.Equal(t, float64(300), c.MetaTxTimeout.Seconds())
	require.Equal(t, float64(6), c.AuctionTimeout.Seconds())
}

func TestChainOverrides_IndexesByChainId(t *testing.T) {
	c := &SDKConfig{
		Chains: []ChainConfig{
			{ChainId: 1, CustomRPCEndpoint: "https://one.example"},
			{ChainId: 137, CustomRPCEndpoint: "https://poly.example"},
		},
	}
	overrides := c.ChainOverrides()
	require.Len(t, overrides, 2)
	require.Equal(t, "https://one.example", overrides[types.ChainId(1)].CustomRPCEndpoint)
	require.Equal(t, "https://poly.example", overrides[types.ChainId(137)].CustomRPCEndpoint)
}

func TestChainOverrides_EmptyWhenNoChains(t *testing.T) {
	c := &SDKConfig{}
	require.Empty(t, c.ChainOverrides())
}
