package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/atmx/synthetics-engine/internal/fixedpoint"
	"github.com/atmx/synthetics-engine/internal/model"
	"github.com/atmx/synthetics-engine/internal/store"
)

// DefaultSubject matches every per-token price subject.
const DefaultSubject = "synthetics.prices.>"

// Tick is the NATS message body. Prices are USD per whole token scaled by
// 10^30, as decimal strings.
type Tick struct {
	TokenAddress string `json:"token_address"`
	MinPrice     string `json:"min_price"`
	MaxPrice     string `json:"max_price"`
	Timestamp    int64  `json:"timestamp"`
}

// NATSSubscriber applies price ticks published on a NATS subject.
type NATSSubscriber struct {
	st  store.Store
	hub Broadcaster
	sub *nats.Subscription
}

// NewNATSSubscriber creates a subscriber writing to st and announcing on hub.
func NewNATSSubscriber(st store.Store, hub Broadcaster) *NATSSubscriber {
	return &NATSSubscriber{st: st, hub: hub}
}

// Subscribe starts consuming subject on nc. Messages are handled on the
// connection's dispatch goroutine, one at a time.
func (s *NATSSubscriber) Subscribe(ctx context.Context, nc *nats.Conn, subject string) error {
	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		if err := s.Handle(ctx, msg.Data); err != nil {
			slog.Warn("price tick rejected", "subject", msg.Subject, "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	s.sub = sub
	slog.Info("subscribed to price ticks", "subject", subject)
	return nil
}

// Handle decodes one message, a single tick or an array of ticks, and
// applies it.
func (s *NATSSubscriber) Handle(ctx context.Context, data []byte) error {
	var ticks []Tick
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &ticks); err != nil {
			return fmt.Errorf("%w: %v", ErrBadTick, err)
		}
	} else {
		var tk Tick
		if err := json.Unmarshal(data, &tk); err != nil {
			return fmt.Errorf("%w: %v", ErrBadTick, err)
		}
		ticks = []Tick{tk}
	}

	updates := make([]model.PriceUpdate, 0, len(ticks))
	for _, tk := range ticks {
		u, err := tk.priceUpdate()
		if err != nil {
			return err
		}
		updates = append(updates, u)
	}
	_, err := apply(ctx, s.st, s.hub, SourceNATS, updates)
	return err
}

func (tk Tick) priceUpdate() (model.PriceUpdate, error) {
	if !model.IsAddress(tk.TokenAddress) {
		return model.PriceUpdate{}, fmt.Errorf("%w: token address %q", ErrBadTick, tk.TokenAddress)
	}
	minPrice, err := fixedpoint.Parse(tk.MinPrice)
	if err != nil {
		return model.PriceUpdate{}, fmt.Errorf("%w: %v", ErrBadTick, err)
	}
	maxPrice, err := fixedpoint.Parse(tk.MaxPrice)
	if err != nil {
		return model.PriceUpdate{}, fmt.Errorf("%w: %v", ErrBadTick, err)
	}
	return model.PriceUpdate{
		TokenAddress: model.NormalizeAddress(tk.TokenAddress),
		MinPrice:     minPrice,
		MaxPrice:     maxPrice,
		Timestamp:    time.Unix(tk.Timestamp, 0).UTC(),
	}, nil
}

// Stop unsubscribes.
func (s *NATSSubscriber) Stop() {
	if s.sub == nil {
		return
	}
	if err := s.sub.Unsubscribe(); err != nil {
		slog.Warn("price unsubscribe failed", "err", err)
	}
	slog.Info("price subscriber stopped")
}

// ConnectNATS establishes a connection that reconnects forever.
func ConnectNATS(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("synthetics-engine"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("NATS reconnected")
		}),
	)
}
