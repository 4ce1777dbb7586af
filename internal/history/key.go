// Package history pages through an account's claim and trade actions on the
// stats subgraph, classifies the raw records against a reference-data
// snapshot and renders trade actions as readable rows.
//
// Pages are loaded on demand and accumulate in memory. Page loads go through
// a Fetcher, which caches pages under a normalized key and lets at most one
// load per key run at a time.
package history

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/atmx/synthetics-engine/internal/subgraph"
)

// DefaultPageSize is used when Filters.PageSize is not positive.
const DefaultPageSize = 100

var (
	// ErrInvalidAccount is returned for an account that is not a hex address.
	ErrInvalidAccount = errors.New("history: invalid account address")
)

// Scope separates claim pages from trade pages in the cache.
type Scope string

const (
	ScopeClaims Scope = "claims"
	ScopeTrades Scope = "trades"
)

// Filters narrow an account's history. Zero timestamps leave the range open
// and empty slices do not filter. OrderTypes only applies to trades.
type Filters struct {
	PageSize        int      `json:"page_size"`
	FromTimestamp   int64    `json:"from_timestamp,omitempty"`
	ToTimestamp     int64    `json:"to_timestamp,omitempty"`
	EventNames      []string `json:"event_names,omitempty"`
	MarketAddresses []string `json:"market_addresses,omitempty"`
	OrderTypes      []int    `json:"order_types,omitempty"`
}

func (f Filters) pageSize() int {
	if f.PageSize <= 0 {
		return DefaultPageSize
	}
	return f.PageSize
}

// PageKey identifies one page of one account's history under a normalized
// filter set. Filters that differ only in slice order or address case map
// to the same key.
type PageKey struct {
	ChainID         int64
	Scope           Scope
	Account         string
	Page            int
	PageSize        int
	FromTimestamp   int64
	ToTimestamp     int64
	EventNames      string
	MarketAddresses string
	OrderTypes      string
}

// NewPageKey normalizes filters into the key of page.
func NewPageKey(chainID int64, scope Scope, account string, page int, f Filters) PageKey {
	return PageKey{
		ChainID:         chainID,
		Scope:           scope,
		Account:         strings.ToLower(account),
		Page:            page,
		PageSize:        f.pageSize(),
		FromTimestamp:   f.FromTimestamp,
		ToTimestamp:     f.ToTimestamp,
		EventNames:      sortedJoin(f.EventNames, false),
		MarketAddresses: sortedJoin(f.MarketAddresses, true),
		OrderTypes:      sortedInts(f.OrderTypes),
	}
}

// String is the cache key.
func (k PageKey) String() string {
	return strings.Join([]string{
		strconv.FormatInt(k.ChainID, 10),
		string(k.Scope),
		k.Account,
		strconv.Itoa(k.Page),
		strconv.Itoa(k.PageSize),
		strconv.FormatInt(k.FromTimestamp, 10),
		strconv.FormatInt(k.ToTimestamp, 10),
		k.EventNames,
		k.MarketAddresses,
		k.OrderTypes,
	}, "|")
}

// Query is the indexer query that loads the page.
func (k PageKey) Query() subgraph.Query {
	return subgraph.Query{
		Account:         k.Account,
		Skip:            k.Page * k.PageSize,
		First:           k.PageSize,
		FromTimestamp:   k.FromTimestamp,
		ToTimestamp:     k.ToTimestamp,
		EventNames:      split(k.EventNames),
		MarketAddresses: split(k.MarketAddresses),
		OrderTypes:      splitInts(k.OrderTypes),
	}
}

func sortedJoin(in []string, lower bool) string {
	if len(in) == 0 {
		return ""
	}
	out := make([]string, len(in))
	for i, s := range in {
		if lower {
			s = strings.ToLower(s)
		}
		out[i] = s
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}

func sortedInts(in []int) string {
	if len(in) == 0 {
		return ""
	}
	out := append([]int(nil), in...)
	sort.Ints(out)
	parts := make([]string, len(out))
	for i, v := range out {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func split(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func splitInts(s string) []int {
	parts := split(s)
	if parts == nil {
		return nil
	}
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		if v, err := strconv.Atoi(p); err == nil {
			out = append(out, v)
		}
	}
	return out
}
