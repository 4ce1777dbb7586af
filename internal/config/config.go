// Package config loads the service configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/atmx/synthetics-engine/internal/fixedpoint"
)

// Config holds all service configuration.
type Config struct {
	Port     string
	LogLevel slog.Level
	ChainID  int64

	// Storage. Both are optional; without DATABASE_URL reference data lives
	// in memory, seeded from RefDataPath.
	DatabaseURL string
	RedisURL    string
	CacheTTL    time.Duration
	RefDataPath string

	// Indexer
	SubgraphURL   string
	IndexerRPS    float64
	PageCacheSize int
	PageCacheTTL  time.Duration

	// MinCollateralUsd is the smallest collateral a position may keep,
	// as a 30-decimal USD value. Shown alongside liquidations.
	MinCollateralUsd *big.Int

	// Prices
	BackendURL        string
	ExplorerURL       string
	PricePollInterval time.Duration
	NATSURL           string
	NATSPriceSubject  string
}

// Load reads the configuration. A missing .env file is not an error. Every
// invalid value is reported in one combined error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	var errs []string
	var err error

	cfg.Port = getEnv("PORT", "8080")

	cfg.LogLevel, err = parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		errs = append(errs, err.Error())
	}

	cfg.ChainID, err = strconv.ParseInt(getEnv("CHAIN_ID", strconv.FormatInt(Arbitrum, 10)), 10, 64)
	if err != nil || cfg.ChainID <= 0 {
		errs = append(errs, fmt.Sprintf("invalid CHAIN_ID %q", os.Getenv("CHAIN_ID")))
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.RefDataPath = os.Getenv("REFDATA_PATH")
	cfg.CacheTTL = getDuration("CACHE_TTL", 30*time.Second, &errs)

	defaultSubgraph, _ := SubgraphURL(cfg.ChainID)
	cfg.SubgraphURL = getEnv("SUBGRAPH_URL", defaultSubgraph)

	cfg.IndexerRPS, err = strconv.ParseFloat(getEnv("INDEXER_RPS", "5"), 64)
	if err != nil || cfg.IndexerRPS < 0 {
		errs = append(errs, fmt.Sprintf("invalid INDEXER_RPS %q", os.Getenv("INDEXER_RPS")))
	}

	cfg.PageCacheSize, err = strconv.Atoi(getEnv("PAGE_CACHE_SIZE", "512"))
	if err != nil || cfg.PageCacheSize <= 0 {
		errs = append(errs, fmt.Sprintf("invalid PAGE_CACHE_SIZE %q", os.Getenv("PAGE_CACHE_SIZE")))
	}
	cfg.PageCacheTTL = getDuration("PAGE_CACHE_TTL", 60*time.Second, &errs)

	minCollateral, err := decimal.NewFromString(getEnv("MIN_COLLATERAL_USD", "1"))
	if err != nil || minCollateral.IsNegative() {
		errs = append(errs, fmt.Sprintf("invalid MIN_COLLATERAL_USD %q", os.Getenv("MIN_COLLATERAL_USD")))
	} else {
		cfg.MinCollateralUsd = fixedpoint.FromDecimal(minCollateral, fixedpoint.USDDecimals)
	}

	cfg.BackendURL = strings.TrimRight(getEnv("STATS_BACKEND_URL", BackendURL(cfg.ChainID)), "/")
	cfg.ExplorerURL = getEnv("EXPLORER_URL", ExplorerURL(cfg.ChainID))
	if cfg.ExplorerURL != "" && !strings.HasSuffix(cfg.ExplorerURL, "/") {
		cfg.ExplorerURL += "/"
	}
	cfg.PricePollInterval = getDuration("PRICE_POLL_INTERVAL", 5*time.Second, &errs)
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.NATSPriceSubject = getEnv("NATS_PRICE_SUBJECT", "synthetics.prices.>")

	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getDuration accepts Go durations ("30s") and bare seconds ("30").
func getDuration(key string, defaultValue time.Duration, errs *[]string) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		*errs = append(*errs, fmt.Sprintf("invalid %s %q", key, raw))
		return defaultValue
	}
	return d
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
	return level, nil
}
