package shoutcast

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// DefaultUserAgent is sent when the caller does not configure one.
const DefaultUserAgent = "iTunes/12.9.2 (Macintosh; OS X 10.14.3) AppleWebKit/606.4.5"

// MaxMetaInt is the largest metadata interval accepted from a server. Real
// servers announce 8 to 64 KiB; anything larger is treated as no interval.
const MaxMetaInt = 64 * 1024

// Stream represents an open shoutcast stream.
type Stream struct {
	// The name of the server
	Name string

	// What category the server falls under
	Genre string

	// The description of the stream
	Description string

	// Homepage of the server
	URL string

	// Bitrate of the server
	Bitrate int

	// Amount of bytes to read before expecting a metadata block
	MetaInt int

	// Content-Type of the audio payload
	ContentType string

	// Server software, from the Server header
	Server string

	// Title announced in the icy-title header, if any
	Title string

	// ICYHeaders is true when the server sent any icy-* header
	ICYHeaders bool

	// The underlying data stream
	rc io.ReadCloser
}

// Open requests url with in-band metadata enabled. The returned stream reads
// the raw body, metadata blocks included. Header arrival is bounded by ctx
// and the client's transport.
func Open(ctx context.Context, client *http.Client, url, userAgent string) (*Stream, error) {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Charset", "utf-8")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Icy-MetaData", "1")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	s := &Stream{
		Name:        resp.Header.Get("icy-name"),
		Genre:       resp.Header.Get("icy-genre"),
		Description: resp.Header.Get("icy-description"),
		URL:         resp.Header.Get("icy-url"),
		Bitrate:     parseBitrate(resp.Header.Get("icy-br")),
		ContentType: resp.Header.Get("Content-Type"),
		Server:      resp.Header.Get("Server"),
		Title:       strings.TrimSpace(resp.Header.Get("icy-title")),
		rc:          resp.Body,
	}

	if mi, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("icy-metaint"))); err == nil && mi > 0 && mi <= MaxMetaInt {
		s.MetaInt = mi
	}

	for k := range resp.Header {
		if strings.HasPrefix(strings.ToLower(k), "icy-") {
			s.ICYHeaders = true
			break
		}
	}

	return s, nil
}

// icy-br is sometimes sent as "128,128" by multi-bitrate servers.
func parseBitrate(raw string) int {
	raw, _, _ = strings.Cut(raw, ",")
	br, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || br < 0 {
		return 0
	}
	return br
}

// Read implements the standard Read interface
func (s *Stream) Read(buf []byte) (int, error) {
	return s.rc.Read(buf)
}

// Close closes the stream
func (s *Stream) Close() error {
	return s.rc.Close()
}
