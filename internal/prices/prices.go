// Package prices keeps the token table's prices fresh. Ticks arrive either
// by polling the stats backend or from a NATS subject; both paths write to
// the store and announce the applied ticks to connected clients.
package prices

import (
	"context"
	"errors"

	"github.com/atmx/synthetics-engine/internal/metrics"
	"github.com/atmx/synthetics-engine/internal/model"
	"github.com/atmx/synthetics-engine/internal/store"
)

// ErrBadTick is returned for a tick whose prices cannot be parsed.
var ErrBadTick = errors.New("prices: malformed tick")

// Price sources, used as metric labels.
const (
	SourceBackend = "backend"
	SourceNATS    = "nats"
)

// Broadcaster pushes applied price ticks to subscribers.
type Broadcaster interface {
	BroadcastPrices(updates []model.PriceUpdate)
}

// apply writes updates to st and broadcasts them when any were applied.
func apply(ctx context.Context, st store.Store, hub Broadcaster, source string, updates []model.PriceUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	applied, err := st.UpdateTokenPrices(ctx, updates)
	if err != nil {
		return 0, err
	}
	metrics.PriceUpdates.WithLabelValues(source).Add(float64(applied))
	if applied > 0 && hub != nil {
		hub.BroadcastPrices(updates)
	}
	return applied, nil
}
