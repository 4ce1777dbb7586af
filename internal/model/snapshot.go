package model

import "sort"

// Snapshot is an immutable view of the token and market tables used for one
// computation. Callers build a new snapshot when reference data changes
// rather than mutating one in place.
type Snapshot struct {
	ChainID int64
	tokens  map[string]*Token
	markets map[string]*MarketInfo
}

// NewSnapshot indexes tokens and markets by checksum address. Markets whose
// index, long or short token is not in tokens are left out.
func NewSnapshot(chainID int64, tokens []Token, markets []Market) *Snapshot {
	s := &Snapshot{
		ChainID: chainID,
		tokens:  make(map[string]*Token, len(tokens)),
		markets: make(map[string]*MarketInfo, len(markets)),
	}
	for i := range tokens {
		t := tokens[i]
		t.Address = NormalizeAddress(t.Address)
		s.tokens[t.Address] = &t
	}
	for _, m := range markets {
		m.MarketTokenAddress = NormalizeAddress(m.MarketTokenAddress)
		m.IndexTokenAddress = NormalizeAddress(m.IndexTokenAddress)
		m.LongTokenAddress = NormalizeAddress(m.LongTokenAddress)
		m.ShortTokenAddress = NormalizeAddress(m.ShortTokenAddress)

		index, okIndex := s.tokens[m.IndexTokenAddress]
		long, okLong := s.tokens[m.LongTokenAddress]
		short, okShort := s.tokens[m.ShortTokenAddress]
		if !okIndex || !okLong || !okShort {
			continue
		}
		s.markets[m.MarketTokenAddress] = &MarketInfo{
			Market:     m,
			IndexToken: index,
			LongToken:  long,
			ShortToken: short,
		}
	}
	return s
}

// Token looks a token up by address in any case.
func (s *Snapshot) Token(addr string) (*Token, bool) {
	if s == nil {
		return nil, false
	}
	t, ok := s.tokens[NormalizeAddress(addr)]
	return t, ok
}

// Market looks a market up by market token address in any case.
func (s *Snapshot) Market(addr string) (*MarketInfo, bool) {
	if s == nil {
		return nil, false
	}
	m, ok := s.markets[NormalizeAddress(addr)]
	return m, ok
}

// Tokens returns every token in the snapshot, ordered by address.
func (s *Snapshot) Tokens() []*Token {
	out := make([]*Token, 0, len(s.tokens))
	for _, t := range s.tokens {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Markets returns every resolvable market, ordered by address.
func (s *Snapshot) Markets() []*MarketInfo {
	out := make([]*MarketInfo, 0, len(s.markets))
	for _, m := range s.markets {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MarketTokenAddress < out[j].MarketTokenAddress })
	return out
}
