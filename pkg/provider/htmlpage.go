package provider

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/zachfi/nowplaying/pkg/station"
)

// htmlPage scrapes a provider page that lists every station's current song.
// Patterns are scoped to the requested station so neighbouring entries on the
// same page can never match.
type htmlPage struct {
	def    station.Strategy
	client *Client
	brand  []string
}

func (s *htmlPage) Kind() string { return station.KindHTML }

func (s *htmlPage) NowPlaying(ctx context.Context, id string) (string, error) {
	h := headerOf(s.def.Headers)
	if _, ok := h["Accept"]; !ok {
		h["Accept"] = []string{"text/html,application/xhtml+xml"}
	}

	resp, err := s.client.Do(ctx, Request{
		URL:    expandID(s.def.URL, id),
		Header: h,
	})
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Code: resp.StatusCode}
	}

	return s.extract(string(resp.Body), id)
}

func (s *htmlPage) extract(page, id string) (string, error) {
	for _, pat := range s.def.Patterns {
		re, err := station.CompilePattern(pat, id)
		if err != nil {
			return "", errors.Wrap(err, "invalid pattern")
		}

		m := re.FindStringSubmatch(page)
		if len(m) < 3 {
			continue
		}

		artist := strings.TrimSpace(m[1])
		song := strings.TrimSpace(m[2])
		if artist == "" || song == "" || s.branded(artist) || s.branded(song) {
			continue
		}

		return artist + " - " + song, nil
	}

	return "", nil
}

func (s *htmlPage) branded(text string) bool {
	t := strings.ToLower(text)
	for _, b := range s.brand {
		if b = strings.ToLower(strings.TrimSpace(b)); b != "" && strings.Contains(t, b) {
			return true
		}
	}
	return false
}
