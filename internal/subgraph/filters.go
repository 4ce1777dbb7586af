// Package subgraph is the transport to the synthetics stats indexer: it
// builds GraphQL filter literals, runs the claim and trade action queries
// and decodes the raw records.
package subgraph

import (
	"encoding/json"
	"sort"
	"strings"
)

// Filter is a GraphQL "where" input object. Values may be strings, numbers,
// bools, nested Filters, []Filter or slices of scalars. Nil values, empty
// slices and filters that end up empty are left out of the rendered body,
// so optional predicates can be set unconditionally.
type Filter map[string]any

// BuildFiltersBody renders f as a GraphQL input literal with keys sorted,
// for example {account:"0xab",transaction:{timestamp_gte:1700000000}}.
func BuildFiltersBody(f Filter) string {
	body, ok := renderFilter(f)
	if !ok {
		return "{}"
	}
	return body
}

func renderFilter(f Filter) (string, bool) {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v, ok := renderValue(f[k])
		if !ok {
			continue
		}
		parts = append(parts, k+":"+v)
	}
	if len(parts) == 0 {
		return "", false
	}
	return "{" + strings.Join(parts, ",") + "}", true
}

func renderValue(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		if val == "" {
			return "", false
		}
		b, _ := json.Marshal(val)
		return string(b), true
	case Filter:
		return renderFilter(val)
	case map[string]any:
		return renderFilter(Filter(val))
	case []Filter:
		items := make([]any, len(val))
		for i := range val {
			items[i] = val[i]
		}
		return renderList(items)
	case []any:
		return renderList(val)
	case []string:
		items := make([]any, len(val))
		for i := range val {
			items[i] = val[i]
		}
		return renderList(items)
	case []int:
		items := make([]any, len(val))
		for i := range val {
			items[i] = val[i]
		}
		return renderList(items)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

func renderList(items []any) (string, bool) {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := renderValue(it); ok {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return "[" + strings.Join(parts, ",") + "]", true
}

// Query selects one page of actions for an account. Zero timestamps leave
// that side of the range open; empty slices do not filter.
type Query struct {
	Account         string
	Skip            int
	First           int
	FromTimestamp   int64
	ToTimestamp     int64
	EventNames      []string
	MarketAddresses []string
	OrderTypes      []int
}

func (q Query) timestampRange() Filter {
	f := Filter{}
	if q.FromTimestamp > 0 {
		f["timestamp_gte"] = q.FromTimestamp
	}
	if q.ToTimestamp > 0 {
		f["timestamp_lte"] = q.ToTimestamp
	}
	return f
}

func lowerAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

// ClaimActionsWhere is the filter of the claimActions query. A record
// matches any of the requested markets.
func ClaimActionsWhere(q Query) Filter {
	markets := make([]Filter, 0, len(q.MarketAddresses))
	for _, addr := range lowerAll(q.MarketAddresses) {
		markets = append(markets, Filter{"marketAddresses_contains": []string{addr}})
	}
	return Filter{
		"and": []Filter{
			{
				"account":      strings.ToLower(q.Account),
				"transaction":  q.timestampRange(),
				"eventName_in": q.EventNames,
			},
			{"or": markets},
		},
	}
}

// TradeActionsWhere is the filter of the tradeActions query.
func TradeActionsWhere(q Query) Filter {
	return Filter{
		"account":          strings.ToLower(q.Account),
		"transaction":      q.timestampRange(),
		"eventName_in":     q.EventNames,
		"marketAddress_in": lowerAll(q.MarketAddresses),
		"orderType_in":     q.OrderTypes,
	}
}
