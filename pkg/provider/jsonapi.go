package provider

import (
	"context"
	"net/http"

	"github.com/zachfi/nowplaying/pkg/station"
)

// jsonAPI reads artist and title from a provider's JSON now-playing endpoint.
type jsonAPI struct {
	def    station.Strategy
	client *Client
}

func (s *jsonAPI) Kind() string { return station.KindJSONAPI }

func (s *jsonAPI) NowPlaying(ctx context.Context, id string) (string, error) {
	resp, err := s.fetch(ctx, id)
	if err != nil {
		return "", err
	}

	// One hop to the provider's default channel, never more.
	if resp.StatusCode == http.StatusNotFound && s.def.Fallback != "" && s.def.Fallback != id {
		resp, err = s.fetch(ctx, s.def.Fallback)
		if err != nil {
			return "", err
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Code: resp.StatusCode}
	}

	doc, err := decodeJSON(resp.Body)
	if err != nil {
		return "", err
	}

	return joinTitle(lookup(doc, s.def.Artist), lookup(doc, s.def.Title)), nil
}

func (s *jsonAPI) fetch(ctx context.Context, id string) (*Response, error) {
	return s.client.Do(ctx, Request{
		URL:    expandID(s.def.URL, id),
		Header: headerOf(s.def.Headers),
	})
}
