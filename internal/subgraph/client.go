package subgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/machinebox/graphql"
	"golang.org/x/time/rate"

	"github.com/atmx/synthetics-engine/internal/metrics"
)

var (
	// ErrNoEndpoint is returned by NewClient when no indexer URL is configured
	// for the chain.
	ErrNoEndpoint = errors.New("subgraph: no endpoint configured")

	// ErrInvalidPage is returned for a negative skip or a non-positive page size.
	ErrInvalidPage = errors.New("subgraph: invalid page bounds")
)

// Client queries one chain's stats subgraph. Requests are throttled to the
// configured rate; callers block until a token is available or ctx ends.
type Client struct {
	gql     *graphql.Client
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	rps        float64
}

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithRateLimit caps the request rate. Zero or less disables throttling.
func WithRateLimit(rps float64) Option {
	return func(o *clientOptions) { o.rps = rps }
}

// NewClient creates a client for the GraphQL endpoint.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}
	o := clientOptions{
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(&o)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if o.rps > 0 {
		burst := int(o.rps)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(o.rps), burst)
	}

	gql := graphql.NewClient(endpoint, graphql.WithHTTPClient(o.httpClient))
	gql.Log = func(s string) { slog.Debug("subgraph", "msg", s) }

	return &Client{gql: gql, limiter: limiter}, nil
}

// ClaimActions returns one page of claim actions, newest first.
func (c *Client) ClaimActions(ctx context.Context, q Query) ([]RawClaimAction, error) {
	var resp struct {
		ClaimActions []RawClaimAction `json:"claimActions"`
	}
	if err := c.run(ctx, "claimActions", q, ClaimActionsWhere(q), claimActionFields, &resp); err != nil {
		return nil, err
	}
	return resp.ClaimActions, nil
}

// TradeActions returns one page of trade actions, newest first.
func (c *Client) TradeActions(ctx context.Context, q Query) ([]RawTradeAction, error) {
	var resp struct {
		TradeActions []RawTradeAction `json:"tradeActions"`
	}
	if err := c.run(ctx, "tradeActions", q, TradeActionsWhere(q), tradeActionFields, &resp); err != nil {
		return nil, err
	}
	return resp.TradeActions, nil
}

func (c *Client) run(ctx context.Context, entity string, q Query, where Filter, fields string, resp any) error {
	if q.Skip < 0 || q.First <= 0 {
		return fmt.Errorf("%w: skip=%d first=%d", ErrInvalidPage, q.Skip, q.First)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", entity, err)
	}

	req := graphql.NewRequest(BuildQuery(entity, q.Skip, q.First, where, fields))

	start := time.Now()
	err := c.gql.Run(ctx, req, resp)
	metrics.IndexerQueryDuration.WithLabelValues(entity).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.IndexerQueries.WithLabelValues(entity, "error").Inc()
		return fmt.Errorf("%s: %w", entity, err)
	}
	metrics.IndexerQueries.WithLabelValues(entity, "ok").Inc()
	return nil
}

// BuildQuery renders a paginated query over entity ordered by transaction
// timestamp, newest first.
func BuildQuery(entity string, skip, first int, where Filter, fields string) string {
	return fmt.Sprintf(`{
  %s(
    skip: %d,
    first: %d,
    orderBy: transaction__timestamp,
    orderDirection: desc,
    where: %s
  ) {%s
  }
}`, entity, skip, first, BuildFiltersBody(where), fields)
}
