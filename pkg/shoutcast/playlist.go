package shoutcast

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// MaxPlaylistSize bounds how much of a playlist response is read.
const MaxPlaylistSize = 64 << 10

// IsPlaylist reports whether rawURL points at a .pls or .m3u playlist.
func IsPlaylist(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	switch strings.ToLower(path.Ext(u.Path)) {
	case ".pls", ".m3u", ".m3u8":
		return true
	}
	return false
}

// parsePLS parses a PLS playlist file and returns the first stream URL
func parsePLS(body io.Reader) (string, error) {
	sc := bufio.NewScanner(body)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "File") {
			continue
		}
		if _, u, ok := strings.Cut(line, "="); ok {
			if u = strings.TrimSpace(u); u != "" {
				return u, nil
			}
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("failed to read playlist: %w", err)
	}

	return "", fmt.Errorf("no stream URL found in PLS playlist")
}

// parseM3U parses an M3U playlist file and returns the first stream URL
func parseM3U(body io.Reader) (string, error) {
	sc := bufio.NewScanner(body)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			return line, nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("failed to read playlist: %w", err)
	}

	return "", fmt.Errorf("no stream URL found in M3U playlist")
}

// ResolvePlaylist fetches a playlist and returns the first stream URL in it.
// A response that already looks like a stream is returned unchanged.
func ResolvePlaylist(ctx context.Context, client *http.Client, rawURL, userAgent string) (string, error) {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch playlist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("playlist returned status %d", resp.StatusCode)
	}

	// Already a stream
	if resp.Header.Get("icy-metaint") != "" {
		return rawURL, nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxPlaylistSize))
	if err != nil {
		return "", fmt.Errorf("failed to read playlist: %w", err)
	}
	content := string(data)
	contentType := resp.Header.Get("Content-Type")

	isPLS := strings.Contains(contentType, "audio/x-scpls") ||
		strings.Contains(contentType, "application/pls+xml") ||
		strings.Contains(content, "[playlist]") ||
		strings.Contains(content, "File1=")

	var streamURL string
	if isPLS {
		streamURL, err = parsePLS(strings.NewReader(content))
	} else {
		streamURL, err = parseM3U(strings.NewReader(content))
	}
	if err != nil {
		return "", err
	}

	return resolveReference(rawURL, streamURL), nil
}

func resolveReference(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
