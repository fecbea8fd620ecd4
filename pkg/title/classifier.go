package title

import (
	"flag"
	"strings"
	"unicode/utf8"

	"github.com/zachfi/zkit/pkg/util"
)

const (
	defaultMaxLength   = 50
	defaultMaxSegments = 4
	defaultMaxWords    = 10
)

// DefaultKeywords are the words broadcasters use when the metadata slot
// carries the station ident instead of a song.
var DefaultKeywords = []string{"radio", "fm", "station", "stream", "broadcast"}

// Classifier decides whether a piece of metadata text is a song title or a
// station announcing itself.
type Classifier struct {
	MaxLength   int      `yaml:"max-length,omitempty"`
	MaxSegments int      `yaml:"max-segments,omitempty"`
	MaxWords    int      `yaml:"max-words,omitempty"`
	Keywords    []string `yaml:"keywords,omitempty"`
}

// NewClassifier returns a Classifier with the default thresholds.
func NewClassifier() Classifier {
	return Classifier{
		MaxLength:   defaultMaxLength,
		MaxSegments: defaultMaxSegments,
		MaxWords:    defaultMaxWords,
		Keywords:    append([]string(nil), DefaultKeywords...),
	}
}

func (c *Classifier) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.IntVar(&c.MaxLength, util.PrefixConfig(prefix, "max-length"), defaultMaxLength, "Titles longer than this are treated as station idents.")
	f.IntVar(&c.MaxSegments, util.PrefixConfig(prefix, "max-segments"), defaultMaxSegments, "Titles with more hyphen separated segments are treated as station idents.")
	f.IntVar(&c.MaxWords, util.PrefixConfig(prefix, "max-words"), defaultMaxWords, "Titles with more words are treated as station idents.")
	c.Keywords = append([]string(nil), DefaultKeywords...)
}

// WithBrand returns a copy of c that also rejects the given brand words.
func (c Classifier) WithBrand(words ...string) Classifier {
	if len(words) == 0 {
		return c
	}

	kw := make([]string, 0, len(c.Keywords)+len(words))
	kw = append(kw, c.Keywords...)
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			kw = append(kw, w)
		}
	}
	c.Keywords = kw

	return c
}

// IsLikelyStationName reports whether text looks like a station ident rather
// than an "Artist - Title" string. Empty text is always a station name.
func (c Classifier) IsLikelyStationName(text string) bool {
	if strings.TrimSpace(text) == "" {
		return true
	}

	t := strings.ToLower(text)

	if c.MaxLength > 0 && utf8.RuneCountInString(t) > c.MaxLength {
		return true
	}
	if c.MaxSegments > 0 && len(strings.Split(t, "-")) > c.MaxSegments {
		return true
	}
	if c.MaxWords > 0 && len(strings.Split(t, " ")) > c.MaxWords {
		return true
	}

	for _, kw := range c.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(t, kw) {
			return true
		}
	}

	return false
}

// IsLikelyStationName applies the default classifier.
func IsLikelyStationName(text string) bool {
	return NewClassifier().IsLikelyStationName(text)
}
