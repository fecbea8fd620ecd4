package station

import (
	_ "embed"
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Strategy kinds understood by the broadcaster adapter.
const (
	KindJSONAPI  = "jsonapi"
	KindHTML     = "html"
	KindFormPost = "formpost"
)

// StationPlaceholder is replaced by the quoted station id in HTML patterns.
const StationPlaceholder = "{station}"

// IDPlaceholder is replaced by the station id in URLs and form fields.
const IDPlaceholder = "{id}"

//go:embed stations.yaml
var defaultTable []byte

// Table is the ordered list of bespoke providers. It is immutable once loaded.
type Table struct {
	Providers []Provider `yaml:"providers"`

	index map[string]int
}

// Provider describes one broadcaster with its own now-playing source.
type Provider struct {
	Name    string `yaml:"name"`
	Display string `yaml:"display,omitempty"`

	// Brand words are never part of a real title for this provider.
	Brand []string `yaml:"brand,omitempty"`

	// Hosts route to the provider even without a station entry.
	Hosts []string `yaml:"hosts,omitempty"`

	Quality QualityHint `yaml:"quality,omitempty"`

	// Stations maps a routing key to the provider's own station id.
	Stations map[string]string `yaml:"stations,omitempty"`

	Strategies []Strategy `yaml:"strategies"`

	stations map[string]string
}

// QualityHint is reported with every successful lookup.
type QualityHint struct {
	Bitrate string `yaml:"bitrate,omitempty"`
	Format  string `yaml:"format,omitempty"`
}

// Strategy is one way of asking a provider what is playing.
type Strategy struct {
	Kind string `yaml:"kind"`
	URL  string `yaml:"url"`

	Headers map[string]string `yaml:"headers,omitempty"`

	// jsonapi: station id retried once when the station endpoint 404s.
	Fallback string `yaml:"fallback,omitempty"`

	// jsonapi, formpost: dotted paths into the JSON document, tried in order.
	Artist []string `yaml:"artist,omitempty"`
	Title  []string `yaml:"title,omitempty"`

	// html: regular expressions with two groups, artist and song.
	Patterns []string `yaml:"patterns,omitempty"`

	// formpost: form body fields, values may use {id}.
	Fields map[string]string `yaml:"fields,omitempty"`

	// formpost: paths to an HTML fragment with a "last played" list.
	Fragment []string `yaml:"fragment,omitempty"`
}

// DefaultTable returns the built-in provider table.
func DefaultTable() (*Table, error) {
	return ParseTable(defaultTable)
}

// LoadTable reads a provider table from a YAML file.
func LoadTable(path string) (*Table, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read provider table")
	}

	t, err := ParseTable(buf)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load provider table %s", path)
	}

	return t, nil
}

// ParseTable decodes and validates a provider table.
func ParseTable(buf []byte) (*Table, error) {
	t := &Table{}
	if err := yaml.UnmarshalStrict(buf, t); err != nil {
		return nil, errors.Wrap(err, "failed to parse provider table")
	}

	if err := t.init(); err != nil {
		return nil, err
	}

	return t, nil
}

func (t *Table) init() error {
	t.index = make(map[string]int)
	names := make(map[string]struct{}, len(t.Providers))

	for i := range t.Providers {
		p := &t.Providers[i]
		if err := p.validate(); err != nil {
			return err
		}
		if _, ok := names[p.Name]; ok {
			return errors.Errorf("duplicate provider %s", p.Name)
		}
		names[p.Name] = struct{}{}

		p.stations = make(map[string]string, len(p.Stations))
		for k, id := range p.Stations {
			p.stations[NormalizeKey(k)] = id
		}

		keys := make([]string, 0, len(p.Stations)+len(p.Hosts))
		for k := range p.stations {
			keys = append(keys, k)
		}
		for _, h := range p.Hosts {
			keys = append(keys, NormalizeKey(h))
		}

		// Earlier providers keep the keys they claim.
		for _, k := range keys {
			if _, ok := t.index[k]; !ok {
				t.index[k] = i
			}
		}
	}

	return nil
}

// Match finds the provider serving target, trying the most specific key first.
func (t *Table) Match(target Target) (*Provider, bool) {
	if t == nil {
		return nil, false
	}

	for _, k := range target.Keys() {
		if i, ok := t.index[k]; ok {
			return &t.Providers[i], true
		}
	}

	return nil, false
}

// StationID returns the provider's id for the station at target.
func (p *Provider) StationID(target Target) (string, bool) {
	for _, k := range target.Keys() {
		if id, ok := p.stations[k]; ok {
			return id, true
		}
	}
	return "", false
}

// DisplayName is used as the prefix of client visible errors.
func (p *Provider) DisplayName() string {
	if p.Display != "" {
		return p.Display
	}
	return p.Name
}

func (p *Provider) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("provider without a name")
	}
	if len(p.Strategies) == 0 {
		return errors.Errorf("provider %s: no strategies", p.Name)
	}

	for i, s := range p.Strategies {
		if s.URL == "" {
			return errors.Errorf("provider %s: strategy %d has no url", p.Name, i)
		}

		switch s.Kind {
		case KindJSONAPI:
			if len(s.Title) == 0 {
				return errors.Errorf("provider %s: jsonapi strategy %d has no title path", p.Name, i)
			}
		case KindFormPost:
			if len(s.Title) == 0 && len(s.Fragment) == 0 {
				return errors.Errorf("provider %s: formpost strategy %d has neither title nor fragment path", p.Name, i)
			}
		case KindHTML:
			if len(s.Patterns) == 0 {
				return errors.Errorf("provider %s: html strategy %d has no patterns", p.Name, i)
			}
			for _, pat := range s.Patterns {
				re, err := CompilePattern(pat, "station")
				if err != nil {
					return errors.Wrapf(err, "provider %s: html strategy %d", p.Name, i)
				}
				if re.NumSubexp() < 2 {
					return errors.Errorf("provider %s: html pattern %q needs artist and song groups", p.Name, pat)
				}
			}
		default:
			return errors.Errorf("provider %s: unknown strategy kind %q", p.Name, s.Kind)
		}
	}

	return nil
}

// CompilePattern substitutes the quoted station id into an HTML pattern.
func CompilePattern(pattern, station string) (*regexp.Regexp, error) {
	return regexp.Compile(strings.ReplaceAll(pattern, StationPlaceholder, regexp.QuoteMeta(station)))
}
