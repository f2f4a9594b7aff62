// Package config holds the SDK's per-chain and ambient configuration,
// generalized from the teacher's internal/app.AppConfig (version, settings,
// per-provider config list) from a wallet-app settings blob into the
// chain/provider wiring TransferOrchestrator needs at construction time.
package config

import (
	"time"

	"github.com/blockcoders/nxtp-sdk/internal/types"
)

// Network selects a bundled deployment environment.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
	NetworkLocal   Network = "local"
)

// ChainConfig is the per-chain override set named in spec.md §6: any zero
// value falls back to the bundled registry.
type ChainConfig struct {
	ChainId                   types.ChainId
	ProviderAPIKey            string
	CustomRPCEndpoint         string
	TransactionManagerAddress types.Address
	PriceOracleAddress        types.Address
	SubgraphURL               string
}

// SDKConfig is the top-level configuration an SDK caller supplies at
// construction, mirroring the teacher's AppConfig's role as the one object
// threading settings into every subsystem.
type SDKConfig struct {
	Network            Network
	Chains              []ChainConfig
	RedisAddr           string
	MetaTxTimeout       time.Duration
	AuctionTimeout      time.Duration
	Development         bool // verbose logging, matches internal/cli/mode.go's interactive switch
}

// NewDefaultConfig returns an SDKConfig with the documented timeout
// defaults (spec.md §5) and mainnet network selection.
func NewDefaultConfig() *SDKConfig {
	return &SDKConfig{
		Network:        NetworkMainnet,
		MetaTxTimeout:  300 * time.Second,
		AuctionTimeout: 6 * time.Second,
	}
}

// ChainOverrides indexes Chains by chain id for constant-time lookup during
// component construction.
func (c *SDKConfig) ChainOverrides() map[types.ChainId]ChainConfig {
	out := make(map[types.ChainId]ChainConfig, len(c.Chains))
	for _, cc := range c.Chains {
		out[cc.ChainId] = cc
	}
	return out
}
