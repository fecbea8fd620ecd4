package provider

import (
	"log/slog"

	"github.com/zachfi/nowplaying/pkg/station"
)

// Router picks the adapter for a stream URL. Stations listed in the provider
// table go to their broadcaster, everything else to the generic ICY adapter.
type Router struct {
	table        *station.Table
	generic      Adapter
	broadcasters map[string]*Broadcaster
}

// NewRouter builds one broadcaster, with its own client and circuit breaker,
// per provider in table.
func NewRouter(table *station.Table, generic Adapter, clientCfg ClientConfig, metrics *Metrics, logger *slog.Logger) (*Router, error) {
	r := &Router{
		table:        table,
		generic:      generic,
		broadcasters: make(map[string]*Broadcaster, len(table.Providers)),
	}

	for i := range table.Providers {
		p := &table.Providers[i]
		client := NewClient(p.Name, clientCfg, logger.With("provider", p.Name))

		b, err := NewBroadcaster(p, client, metrics, logger)
		if err != nil {
			return nil, err
		}
		r.broadcasters[p.Name] = b
	}

	return r, nil
}

// Select never fails: unknown or malformed URLs get the generic adapter.
func (r *Router) Select(rawURL string) Adapter {
	return r.SelectTarget(station.ParseTarget(rawURL))
}

// SelectTarget is Select for an already parsed target.
func (r *Router) SelectTarget(target station.Target) Adapter {
	if p, ok := r.table.Match(target); ok {
		if b, ok := r.broadcasters[p.Name]; ok {
			return b
		}
	}
	return r.generic
}

// ProviderName reports which provider an adapter belongs to, for logs and metrics.
func ProviderName(a Adapter) string {
	if b, ok := a.(*Broadcaster); ok {
		return b.Name()
	}
	return ICYProvider
}
