package provider

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/zachfi/nowplaying/pkg/station"
	"github.com/zachfi/nowplaying/pkg/title"
)

var firstItemRe = regexp.MustCompile(`(?is)<li[^>]*>(.*?)</li>`)

// formPost asks a provider API with a form encoded POST. The answer carries
// either artist and title fields or an HTML "last played" list.
type formPost struct {
	def    station.Strategy
	client *Client
}

func (s *formPost) Kind() string { return station.KindFormPost }

func (s *formPost) NowPlaying(ctx context.Context, id string) (string, error) {
	form := url.Values{}
	for k, v := range s.def.Fields {
		form.Set(k, strings.ReplaceAll(v, station.IDPlaceholder, id))
	}

	h := headerOf(s.def.Headers)
	h["Content-Type"] = []string{"application/x-www-form-urlencoded"}

	resp, err := s.client.Do(ctx, Request{
		Method: "POST",
		URL:    expandID(s.def.URL, id),
		Header: h,
		Body:   []byte(form.Encode()),
	})
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Code: resp.StatusCode}
	}

	doc, err := decodeJSON(resp.Body)
	if err != nil {
		return "", err
	}

	if t := joinTitle(lookup(doc, s.def.Artist), lookup(doc, s.def.Title)); t != "" {
		return t, nil
	}

	fragment := lookup(doc, s.def.Fragment)
	if fragment == "" {
		return "", nil
	}

	return firstItem(fragment), nil
}

func firstItem(fragment string) string {
	m := firstItemRe.FindStringSubmatch(fragment)
	if m == nil {
		return ""
	}
	return title.Clean(m[1])
}
