package shoutcast

import (
	"bytes"
	"strings"
)

// Audio formats recognised by SniffFormat.
const (
	FormatMP3 = "MP3"
	FormatAAC = "AAC"
	FormatOGG = "OGG"
)

var oggCapture = []byte("OggS")

// SniffFormat guesses the audio format from the first bytes of a stream.
// It returns an empty string when no frame sync is found.
func SniffFormat(data []byte) string {
	if bytes.HasPrefix(data, oggCapture) {
		return FormatOGG
	}

	for i := 0; i < len(data)-1; i++ {
		if data[i] != 0xFF {
			continue
		}
		switch {
		// ADTS: 12 sync bits, then layer bits 00
		case data[i+1]&0xF6 == 0xF0:
			return FormatAAC
		// MPEG audio: 11 sync bits, layer bits non-zero
		case data[i+1]&0xE0 == 0xE0 && data[i+1]&0x06 != 0:
			return FormatMP3
		}
	}

	if bytes.Contains(data, oggCapture) {
		return FormatOGG
	}

	return ""
}

// FormatFromContentType maps an audio Content-Type to a short format name.
// Unrecognised types return their subtype, or "Unknown".
func FormatFromContentType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case ct == "":
		return ""
	case strings.Contains(ct, "ogg"):
		return FormatOGG
	case strings.Contains(ct, "mpeg"):
		return FormatMP3
	case strings.Contains(ct, "aac"):
		return FormatAAC
	case strings.Contains(ct, "wav"):
		return "WAV"
	case strings.Contains(ct, "flac"):
		return "FLAC"
	}

	mediaType, _, _ := strings.Cut(ct, ";")
	if _, sub, ok := strings.Cut(mediaType, "/"); ok && strings.TrimSpace(sub) != "" {
		return strings.TrimSpace(sub)
	}
	return "Unknown"
}
