package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/zachfi/nowplaying/pkg/station"
)

// Broadcaster resolves stations of one provider through its own services,
// trying each configured strategy in order.
type Broadcaster struct {
	def        *station.Provider
	strategies []strategy
	metrics    *Metrics
	logger     *slog.Logger
}

var _ Adapter = (*Broadcaster)(nil)

// NewBroadcaster builds the adapter for one provider table entry.
func NewBroadcaster(def *station.Provider, client *Client, metrics *Metrics, logger *slog.Logger) (*Broadcaster, error) {
	b := &Broadcaster{
		def:     def,
		metrics: metrics,
		logger:  logger.With("provider", def.Name),
	}

	for _, s := range def.Strategies {
		st, err := newStrategy(s, client, def.Brand)
		if err != nil {
			return nil, errors.Wrapf(err, "provider %s", def.Name)
		}
		b.strategies = append(b.strategies, st)
	}

	return b, nil
}

// Name is the provider's table name.
func (b *Broadcaster) Name() string {
	return b.def.Name
}

func (b *Broadcaster) Resolve(ctx context.Context, target station.Target) (Result, error) {
	start := time.Now()
	display := b.def.DisplayName()

	id, ok := b.def.StationID(target)
	if !ok {
		return Result{}, &Error{Provider: display, Kind: ErrUnknownStation}
	}

	var lastErr error
	for _, s := range b.strategies {
		t, err := s.NowPlaying(ctx, id)
		if err != nil {
			b.logger.Warn("strategy failed", "strategy", s.Kind(), "station", id, "err", err)
			b.metrics.observe(b.def.Name, s.Kind(), resultError)
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if t == "" {
			b.metrics.observe(b.def.Name, s.Kind(), resultMiss)
			continue
		}

		b.metrics.observe(b.def.Name, s.Kind(), resultHit)
		return Result{
			Title:    t,
			Provider: b.def.Name,
			Brand:    b.def.Brand,
			Quality: Quality{
				Bitrate:      b.def.Quality.Bitrate,
				Format:       b.def.Quality.Format,
				ResponseTime: time.Since(start),
				Source:       b.def.Name + "-" + s.Kind(),
			},
		}, nil
	}

	q := Quality{ResponseTime: time.Since(start)}
	if lastErr != nil {
		return Result{}, &Error{Provider: display, Kind: ErrUnavailable, Err: lastErr, Quality: q}
	}

	return Result{}, &Error{Provider: display, Kind: ErrNoMetadata, Quality: q}
}
