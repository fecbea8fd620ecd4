package title

import (
	"regexp"
	"strings"
)

var (
	tagRe        = regexp.MustCompile(`</?[^>]+(>|$)`)
	urlRe        = regexp.MustCompile(`https?://\S+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Prefixes are the "now playing" labels stations put in front of the title.
// Longer labels come first so "Now Playing:" is not cut down to "Playing:".
var Prefixes = []string{
	"Trenutno:",
	"Now Playing:",
	"Current:",
	"Playing:",
	"On Air:",
	"NP:",
	"Now:",
	"♪",
}

var entities = strings.NewReplacer(
	"&amp;", "&",
	"&quot;", `"`,
	"&#039;", "'",
	"&#39;", "'",
	"&apos;", "'",
	"&lt;", "<",
	"&gt;", ">",
	"&nbsp;", " ",
)

// Clean strips markup, links, control bytes and "now playing" labels from a
// raw title. An empty result means there is nothing worth showing.
//
// Entity decoding can expose new markup ("&lt;b&gt;"), so the pass runs until
// the output no longer changes. Every pass either shortens the string or only
// rewrites whitespace, which settles after one more pass.
func Clean(raw string) string {
	cur := raw
	for {
		next := cleanPass(cur)
		if next == cur {
			return next
		}
		cur = next
	}
}

func cleanPass(s string) string {
	s = tagRe.ReplaceAllString(s, "")
	s = urlRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.TrimSpace(s)

	for _, p := range Prefixes {
		if strings.HasPrefix(s, p) {
			s = strings.TrimSpace(s[len(p):])
		}
	}

	s = whitespaceRe.ReplaceAllString(s, " ")
	s = entities.Replace(s)

	return strings.TrimSpace(s)
}
