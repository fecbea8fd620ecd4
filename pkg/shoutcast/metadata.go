package shoutcast

import (
	"errors"
	"regexp"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

const streamTitleKey = "StreamTitle="

// DefaultCharsets is the order in which metadata blocks are decoded.
var DefaultCharsets = []string{"utf-8", "iso-8859-1", "windows-1250"}

var (
	// ErrNoStreamTitle means no charset produced a block with a StreamTitle.
	ErrNoStreamTitle = errors.New("shoutcast: no StreamTitle in metadata")

	fieldRe = regexp.MustCompile(`([A-Za-z][A-Za-z0-9_]*)=(?:'([^']*)'|"([^"]*)")`)
)

// Metadata is a decoded ICY metadata block.
type Metadata struct {
	// StreamTitle is the current title, empty when the station sent none.
	StreamTitle string

	// Fields holds every key='value' pair found in the block, e.g. StreamUrl.
	Fields map[string]string

	// Charset is the name of the encoding that decoded the block.
	Charset string
}

// ParseMetadata decodes a raw metadata block. The charsets are tried in order
// and the first decoding that contains a StreamTitle assignment wins.
func ParseMetadata(block []byte, charsets ...string) (*Metadata, error) {
	if len(charsets) == 0 {
		charsets = DefaultCharsets
	}

	for _, cs := range charsets {
		text, err := decodeCharset(block, cs)
		if err != nil {
			continue
		}
		text = strings.TrimRight(text, "\x00")
		if !strings.Contains(text, streamTitleKey) {
			continue
		}

		m := &Metadata{
			Fields:  parseFields(text),
			Charset: cs,
		}
		m.StreamTitle = extractStreamTitle(text)
		m.Fields["StreamTitle"] = m.StreamTitle

		return m, nil
	}

	return nil, ErrNoStreamTitle
}

func decodeCharset(b []byte, name string) (string, error) {
	switch strings.ToLower(name) {
	case "utf-8", "utf8":
		s, _, err := transform.Bytes(encoding.UTF8Validator, b)
		return string(s), err
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder().String(string(b))
	case "windows-1250", "cp1250":
		return charmap.Windows1250.NewDecoder().String(string(b))
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", err
	}
	return enc.NewDecoder().String(string(b))
}

func parseFields(text string) map[string]string {
	fields := make(map[string]string)
	for _, m := range fieldRe.FindAllStringSubmatch(text, -1) {
		v := m[2]
		if v == "" {
			v = m[3]
		}
		fields[m[1]] = v
	}
	return fields
}

// extractStreamTitle pulls the StreamTitle value out of a metadata string.
// A quote only closes the value when it is followed by the end of the block
// or by ';' and another assignment, so titles like 'Guns N' Roses' survive.
func extractStreamTitle(meta string) string {
	idx := strings.Index(meta, streamTitleKey)
	if idx < 0 {
		return ""
	}

	meta = strings.TrimSpace(meta[idx+len(streamTitleKey):])
	if meta == "" {
		return ""
	}

	quote := byte(0)
	if meta[0] == '\'' || meta[0] == '"' {
		quote = meta[0]
		meta = meta[1:]
	}

	if quote == 0 {
		if end := strings.IndexByte(meta, ';'); end >= 0 {
			meta = meta[:end]
		}
		return strings.TrimSpace(meta)
	}

	end := -1
	for i := 0; i < len(meta); i++ {
		if meta[i] != quote {
			continue
		}
		j := i + 1
		for j < len(meta) && (meta[j] == ' ' || meta[j] == '\t') {
			j++
		}
		if j >= len(meta) {
			end = i
			break
		}
		if meta[j] == ';' {
			rest := meta[j+1:]
			if strings.TrimSpace(rest) == "" || strings.Contains(rest, "=") {
				end = i
				break
			}
		}
	}
	if end < 0 {
		end = strings.LastIndexByte(meta, quote)
	}
	if end >= 0 {
		meta = meta[:end]
	}

	return strings.TrimSpace(meta)
}
