// Package registry implements the bundled ContractRegistry external
// collaborator named in spec.md §1 and §6: per-chain transaction-manager,
// price-oracle, and subgraph addresses/URLs, resolved by chainId when a
// caller's ChainConfig leaves them unset. Structurally this is the teacher's
// coinregistry.Registry (a slice + symbol index, pre-populated with a
// bundled list) generalized from "coin metadata by symbol" to "contract
// addresses by chainId."
package registry

import (
	"fmt"
	"sort"

	"github.com/blockcoders/nxtp-sdk/internal/types"
)

// ChainEntry is the bundled, per-chain set of well-known addresses/URLs.
type ChainEntry struct {
	ChainId                 types.ChainId
	Name                    string
	TransactionManagerAddress types.Address
	PriceOracleAddress      types.Address
	SubgraphURL             string
	SubgraphSyncBuffer      uint64
}

// Registry is a bundled, read-only lookup table from chainId to ChainEntry.
// It is populated once at construction and never mutated afterward, so
// lookups require no locking.
type Registry struct {
	entries map[types.ChainId]ChainEntry
}

// NewRegistry returns a Registry pre-populated with the bundled chain list.
// Callers may layer their own ChainConfig overrides on top via
// ResolveTransactionManager, ResolveSubgraph and ResolvePriceOracle.
func NewRegistry() *Registry {
	r := &Registry{entries: make(map[types.ChainId]ChainEntry)}
	for _, e := range bundledChains {
		r.entries[e.ChainId] = e
	}
	return r
}

// bundledChains mirrors the teacher's "populated with N mainstream
// cryptocurrencies" seed list (coinregistry.NewRegistry), generalized to
// the handful of EVM chains this protocol is commonly deployed across.
// Addresses are illustrative placeholders for a bundled registry; production
// deployments override them via ChainConfig (spec.md §6).
var bundledChains = []ChainEntry{
	{
		ChainId:                   1,
		Name:                      "Ethereum Mainnet",
		TransactionManagerAddress: types.Address{0x11},
		PriceOracleAddress:        types.Address{0x12},
		SubgraphURL:               "https://api.thegraph.com/subgraphs/name/connext/nxtp-mainnet",
		SubgraphSyncBuffer:        25,
	},
	{
		ChainId:                   137,
		Name:                      "Polygon",
		TransactionManagerAddress: types.Address{0x21},
		PriceOracleAddress:        types.Address{0x22},
		SubgraphURL:               "https://api.thegraph.com/subgraphs/name/connext/nxtp-polygon",
		SubgraphSyncBuffer:        100,
	},
	{
		ChainId:                   42161,
		Name:                      "Arbitrum One",
		TransactionManagerAddress: types.Address{0x31},
		PriceOracleAddress:        types.Address{0x32},
		SubgraphURL:               "https://api.thegraph.com/subgraphs/name/connext/nxtp-arbitrum-one",
		SubgraphSyncBuffer:        100,
	},
	{
		ChainId:                   10,
		Name:                      "Optimism",
		TransactionManagerAddress: types.Address{0x41},
		PriceOracleAddress:        types.Address{0x42},
		SubgraphURL:               "https://api.thegraph.com/subgraphs/name/connext/nxtp-optimism",
		SubgraphSyncBuffer:        100,
	},
}

// Lookup returns the bundled entry for chainId, or false if the registry
// has no entry for it (construction must then fail per spec.md §6 unless
// the caller supplied an explicit override).
func (r *Registry) Lookup(chainId types.ChainId) (ChainEntry, bool) {
	e, ok := r.entries[chainId]
	return e, ok
}

// ChainIds returns the set of chain ids the bundled registry knows about, in
// ascending order — useful for CLI/debug output.
func (r *Registry) ChainIds() []types.ChainId {
	ids := make([]types.ChainId, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ResolveTransactionManager returns override if non-zero, else the bundled
// address, else NoTransactionManager (spec.md §6).
func ResolveTransactionManager(r *Registry, chainId types.ChainId, override types.Address) (types.Address, error) {
	if override != (types.Address{}) {
		return override, nil
	}
	entry, ok := r.Lookup(chainId)
	if !ok || entry.TransactionManagerAddress == (types.Address{}) {
		return types.Address{}, types.New(types.KindNoTransactionManager, types.NonRetryable,
			fmt.Sprintf("no transaction manager address configured for chain %d", chainId))
	}
	return entry.TransactionManagerAddress, nil
}

// ResolveSubgraph returns override if non-empty, else the bundled URL, else
// NoSubgraph (spec.md §6).
func ResolveSubgraph(r *Registry, chainId types.ChainId, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	entry, ok := r.Lookup(chainId)
	if !ok || entry.SubgraphURL == "" {
		return "", types.New(types.KindNoSubgraph, types.NonRetryable,
			fmt.Sprintf("no subgraph configured for chain %d", chainId))
	}
	return entry.SubgraphURL, nil
}

// ResolvePriceOracle returns override if non-zero, else the bundled address,
// else NoPriceOracle (spec.md §6).
func ResolvePriceOracle(r *Registry, chainId types.ChainId, override types.Address) (types.Address, error) {
	if override != (types.Address{}) {
		return override, nil
	}
	entry, ok := r.Lookup(chainId)
	if !ok || entry.PriceOracleAddress == (types.Address{}) {
		return types.Address{}, types.New(types.KindNoPriceOracle, types.NonRetryable,
			fmt.Sprintf("no price oracle configured for chain %d", chainId))
	}
	return entry.PriceOracleAddress, nil
}
