package provider

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/zachfi/nowplaying/pkg/station"
)

// strategy is one way of asking a provider for the current title. A miss is
// reported as ("", nil); errors are reserved for upstream failures.
type strategy interface {
	Kind() string
	NowPlaying(ctx context.Context, stationID string) (string, error)
}

func newStrategy(s station.Strategy, client *Client, brand []string) (strategy, error) {
	switch s.Kind {
	case station.KindJSONAPI:
		return &jsonAPI{def: s, client: client}, nil
	case station.KindHTML:
		return &htmlPage{def: s, client: client, brand: brand}, nil
	case station.KindFormPost:
		return &formPost{def: s, client: client}, nil
	}
	return nil, errors.Errorf("unknown strategy kind %q", s.Kind)
}

func expandID(tmpl, id string) string {
	return strings.ReplaceAll(tmpl, station.IDPlaceholder, url.QueryEscape(id))
}

func headerOf(h map[string]string) map[string][]string {
	out := make(map[string][]string, len(h))
	for k, v := range h {
		out[k] = []string{v}
	}
	return out
}

func decodeJSON(body []byte) (interface{}, error) {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, errors.Wrap(err, "invalid JSON response")
	}
	return doc, nil
}

// lookup returns the first non-empty string found at one of the dotted paths.
// Numeric path segments index into arrays.
func lookup(doc interface{}, paths []string) string {
	for _, p := range paths {
		if v := strings.TrimSpace(lookupPath(doc, p)); v != "" {
			return v
		}
	}
	return ""
}

func lookupPath(doc interface{}, path string) string {
	cur := doc
	for _, key := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]interface{}:
			cur = node[key]
		case []interface{}:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return ""
			}
			cur = node[i]
		default:
			return ""
		}
	}

	switch v := cur.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func joinTitle(artist, song string) string {
	if song == "" {
		return ""
	}
	if artist == "" {
		return song
	}
	return artist + " - " + song
}
