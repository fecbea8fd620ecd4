package shoutcast

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const (
	// DefaultMaxIntervals is how many metadata intervals are read before giving up.
	DefaultMaxIntervals = 3

	// ScanWindow is how much of a stream head is searched for an inline title.
	ScanWindow = 4096

	maxMetadataLen = 255 * 16
)

var (
	// ErrNoTitle means the decoder read every allowed interval without finding a usable title.
	ErrNoTitle = errors.New("shoutcast: no title in stream")

	// ErrNoMetaInt is returned when the stream did not announce a metadata interval.
	ErrNoMetaInt = errors.New("shoutcast: stream has no metadata interval")

	inlineTitleRe = regexp.MustCompile(`StreamTitle=['"]([^'"]*)['"]`)
)

// Decoder extracts the current StreamTitle from a stream carrying in-band
// metadata every MetaInt audio bytes.
type Decoder struct {
	MetaInt      int
	MaxIntervals int
	Charsets     []string

	// Reject, when set, discards titles such as station idents. A rejected
	// title moves the decoder on to the next interval.
	Reject func(string) bool
}

// Decode reads from r until a title is found.
func (d Decoder) Decode(r io.Reader) (string, error) {
	m, err := d.DecodeBuffer(NewBuffer(r, d.BufferLimit()))
	if err != nil {
		return "", err
	}
	return m.StreamTitle, nil
}

// DecodeBuffer reads metadata intervals from b. The bytes consumed stay in b
// so the caller can still inspect the audio head.
func (d Decoder) DecodeBuffer(b *Buffer) (*Metadata, error) {
	if d.MetaInt <= 0 {
		return nil, ErrNoMetaInt
	}

	intervals := d.MaxIntervals
	if intervals <= 0 {
		intervals = DefaultMaxIntervals
	}

	for i := 0; i < intervals; i++ {
		if err := b.Skip(d.MetaInt); err != nil {
			return nil, fmt.Errorf("reading audio interval %d: %w", i, err)
		}

		lb, err := b.Next(1)
		if err != nil {
			return nil, fmt.Errorf("reading metadata length: %w", err)
		}

		n := int(lb[0]) * 16
		if n == 0 {
			continue
		}

		block, err := b.Next(n)
		if err != nil {
			return nil, fmt.Errorf("reading metadata block: %w", err)
		}

		m, err := ParseMetadata(block, d.Charsets...)
		if err != nil {
			continue
		}

		if strings.TrimSpace(m.StreamTitle) == "" {
			return nil, ErrNoTitle
		}
		if d.Reject != nil && d.Reject(m.StreamTitle) {
			continue
		}

		return m, nil
	}

	return nil, ErrNoTitle
}

// BufferLimit is the most the decoder holds at once: a length byte and the
// largest possible metadata block. Audio intervals are skipped, not held.
func (d Decoder) BufferLimit() int {
	return 1 + maxMetadataLen
}

// ScanTitle looks for an inline StreamTitle assignment in the head of a
// stream, as sent by SHOUTcast v1 servers that do not honour icy-metaint.
func ScanTitle(head []byte) string {
	if len(head) > ScanWindow {
		head = head[:ScanWindow]
	}

	text, err := decodeCharset(head, "iso-8859-1")
	if err != nil {
		return ""
	}

	m := inlineTitleRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}

	return strings.TrimSpace(m[1])
}
