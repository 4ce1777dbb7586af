package config

// Chain IDs with known endpoints.
const (
	BSCMainnet     int64 = 56
	Arbitrum       int64 = 42161
	Avalanche      int64 = 43114
	ArbitrumGoerli int64 = 421613
	Harmony        int64 = 1666600000
)

// DefaultBackendURL serves chains without a dedicated stats backend.
const DefaultBackendURL = "https://stats.gmx.io"

var backendURLs = map[int64]string{
	BSCMainnet:     "https://gambit-server-staging.uc.r.appspot.com",
	ArbitrumGoerli: "https://gambit-server-devnet.uc.r.appspot.com",
	Arbitrum:       "https://gmx-server-mainnet.uw.r.appspot.com",
	Avalanche:      "https://gmx-avax-server.uc.r.appspot.com",
	Harmony:        "https://gmx-harmony.uw.r.appspot.com",
}

var subgraphURLs = map[int64]string{
	Arbitrum:       "https://subgraph.satsuma-prod.com/3b2ced13c8d9/gmx/synthetics-arbitrum-stats/api",
	Avalanche:      "https://subgraph.satsuma-prod.com/3b2ced13c8d9/gmx/synthetics-avalanche-stats/api",
	ArbitrumGoerli: "https://api.thegraph.com/subgraphs/name/gmx-io/synthetics-goerli-stats",
}

var explorerURLs = map[int64]string{
	BSCMainnet:     "https://bscscan.com/",
	Arbitrum:       "https://arbiscan.io/",
	Avalanche:      "https://snowtrace.io/",
	ArbitrumGoerli: "https://goerli.arbiscan.io/",
	Harmony:        "https://explorer.harmony.one/",
}

// BackendURL returns the stats backend base URL of chainID, falling back to
// DefaultBackendURL.
func BackendURL(chainID int64) string {
	if u, ok := backendURLs[chainID]; ok {
		return u
	}
	return DefaultBackendURL
}

// ServerURL joins the chain's backend base URL and path.
func ServerURL(chainID int64, path string) string {
	return BackendURL(chainID) + path
}

// SubgraphURL returns the stats subgraph endpoint of chainID. Chains
// without synthetics markets have none.
func SubgraphURL(chainID int64) (string, bool) {
	u, ok := subgraphURLs[chainID]
	return u, ok
}

// ExplorerURL returns the block explorer base URL of chainID, with a
// trailing slash, or "" for an unknown chain.
func ExplorerURL(chainID int64) string {
	return explorerURLs[chainID]
}
