package subgraph

import (
	"strings"
	"testing"
)

func TestBuildFiltersBody(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   string
	}{
		{
			name:   "empty",
			filter: Filter{},
			want:   "{}",
		},
		{
			name:   "sorted keys and quoted strings",
			filter: Filter{"b": "x", "a": 1},
			want:   `{a:1,b:"x"}`,
		},
		{
			name:   "nil and empty values dropped",
			filter: Filter{"a": nil, "b": []string{}, "c": Filter{"d": nil}, "e": "", "f": true},
			want:   `{f:true}`,
		},
		{
			name:   "nested lists of filters",
			filter: Filter{"or": []Filter{{"x_in": []string{"1", "2"}}, {"y": 3}}},
			want:   `{or:[{x_in:["1","2"]},{y:3}]}`,
		},
	}
	for _, tt := range tests {
		if got := BuildFiltersBody(tt.filter); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, got)
		}
	}
}

func TestClaimActionsWhere(t *testing.T) {
	q := Query{
		Account:         "0xAbCdEf0000000000000000000000000000000001",
		FromTimestamp:   1700000000,
		EventNames:      []string{"ClaimFunding"},
		MarketAddresses: []string{"0x70D95587D40A2CAF56BD97485AB3EEC10BEE6336"},
	}
	got := BuildFiltersBody(ClaimActionsWhere(q))
	want := `{and:[{account:"0xabcdef0000000000000000000000000000000001",eventName_in:["ClaimFunding"],` +
		`transaction:{timestamp_gte:1700000000}},{or:[{marketAddresses_contains:["0x70d95587d40a2caf56bd97485ab3eec10bee6336"]}]}]}`
	if got != want {
		t.Errorf("expected\n%s\ngot\n%s", want, got)
	}
}

func TestClaimActionsWhere_NoOptionalFilters(t *testing.T) {
	got := BuildFiltersBody(ClaimActionsWhere(Query{Account: "0xAB"}))
	if got != `{and:[{account:"0xab"}]}` {
		t.Errorf("unexpected body %s", got)
	}
}

func TestTradeActionsWhere(t *testing.T) {
	got := BuildFiltersBody(TradeActionsWhere(Query{
		Account:     "0xAB",
		ToTimestamp: 5,
		OrderTypes:  []int{2, 3},
	}))
	if got != `{account:"0xab",orderType_in:[2,3],transaction:{timestamp_lte:5}}` {
		t.Errorf("unexpected body %s", got)
	}
}

func TestBuildQuery(t *testing.T) {
	q := BuildQuery("claimActions", 20, 10, Filter{"account": "0xab"}, "\n    id")
	for _, part := range []string{
		"claimActions(",
		"skip: 20,",
		"first: 10,",
		"orderBy: transaction__timestamp,",
		"orderDirection: desc,",
		`where: {account:"0xab"}`,
		"id",
	} {
		if !strings.Contains(q, part) {
			t.Errorf("query is missing %q:\n%s", part, q)
		}
	}
}
