package station

import (
	"net/url"
	"strings"
)

// Stream URL suffixes players append to force a raw stream. They carry no
// routing information.
var suffixTokens = []string{";stream.nsv", ";*.mp3"}

// Target is a stream URL reduced to the tokens used for routing.
type Target struct {
	// Raw is the URL as the client sent it.
	Raw string

	// Host is hostname[:port], lower-cased.
	Host     string
	Hostname string
	Port     string

	// Path has suffix tokens, query and trailing slash removed.
	Path string
}

// ParseTarget normalizes a stream URL. It never fails: input that cannot be
// parsed yields a Target with an empty Host, which no table matches.
func ParseTarget(raw string) Target {
	t := Target{Raw: raw}

	s := strings.TrimSpace(raw)
	if s == "" {
		return t
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}

	s = stripSuffix(s)
	u, err := url.Parse(s)
	if err != nil {
		// "host:8000;" style suffixes break port parsing
		u, err = url.Parse(strings.ReplaceAll(s, ";", ""))
	}
	if err != nil || u.Host == "" {
		return t
	}

	t.Hostname = strings.ToLower(stripSuffix(u.Hostname()))
	t.Port = stripSuffix(u.Port())
	t.Host = t.Hostname
	if t.Port != "" {
		t.Host = t.Hostname + ":" + t.Port
	}
	t.Path = normalizePath(u.Path)

	return t
}

// Valid reports whether the URL had a usable host.
func (t Target) Valid() bool {
	return t.Hostname != ""
}

// Keys returns the lookup keys from most to least specific:
// host:port/path, hostname/path, host:port, hostname.
func (t Target) Keys() []string {
	if !t.Valid() {
		return nil
	}

	candidates := []string{
		t.Host + t.Path,
		t.Hostname + t.Path,
		t.Host,
		t.Hostname,
	}

	keys := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, k := range candidates {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	return keys
}

func (t Target) String() string {
	return t.Host + t.Path
}

func stripSuffix(s string) string {
	for _, tok := range suffixTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	return strings.TrimRight(s, ";")
}

func normalizePath(p string) string {
	p = strings.ToLower(stripSuffix(p))
	p = strings.TrimRight(p, "/")
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// NormalizeKey brings a table key into the form produced by Target.Keys.
func NormalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.TrimPrefix(key, "http://")
	key = strings.TrimPrefix(key, "https://")

	host, path, _ := strings.Cut(key, "/")
	host = stripSuffix(host)
	if path == "" {
		return host
	}
	return host + normalizePath("/"+path)
}
