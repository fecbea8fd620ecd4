// Package provider resolves what is playing on a station, either from the
// stream itself or from a broadcaster's own now-playing service.
package provider

import (
	"context"
	"time"

	"github.com/zachfi/nowplaying/pkg/station"
)

// Adapter looks up the current title for one kind of station.
type Adapter interface {
	Resolve(ctx context.Context, target station.Target) (Result, error)
}

// Result is a successful lookup. An empty Title means the station is up but
// announced nothing usable.
type Result struct {
	Title    string
	Quality  Quality
	Provider string

	// Brand words the caller should treat as station idents for this provider.
	Brand []string
}

// Quality describes the stream as far as it could be observed.
type Quality struct {
	Bitrate      string
	ContentType  string
	Format       string
	MetaInt      int
	ResponseTime time.Duration
	Server       string
	ICYHeaders   bool
	Source       string
}

// IsZero reports whether nothing was collected.
func (q Quality) IsZero() bool {
	return q == Quality{}
}
