package shoutcast

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

// buildBlock encodes text as an ICY metadata block: length byte, payload, NUL padding.
func buildBlock(text string) []byte {
	if text == "" {
		return []byte{0x00}
	}

	payload := []byte(text)
	blocks := (len(payload) + 15) / 16

	var buf bytes.Buffer
	buf.WriteByte(byte(blocks))
	buf.Write(payload)
	buf.Write(make([]byte, blocks*16-len(payload)))

	return buf.Bytes()
}

// buildStream interleaves metaInt bytes of fake audio with the given blocks.
func buildStream(metaInt int, blocks ...[]byte) []byte {
	var buf bytes.Buffer
	audio := bytes.Repeat([]byte{0xAA}, metaInt)
	for _, b := range blocks {
		buf.Write(audio)
		buf.Write(b)
	}
	buf.Write(audio)
	return buf.Bytes()
}

func TestDecoderDecode(t *testing.T) {
	tests := []struct {
		name    string
		stream  []byte
		reject  func(string) bool
		want    string
		wantErr bool
	}{
		{
			name:   "single title",
			stream: buildStream(100, buildBlock("StreamTitle='Artist - Song';")),
			want:   "Artist - Song",
		},
		{
			name:    "empty title",
			stream:  buildStream(100, buildBlock("StreamTitle='';")),
			wantErr: true,
		},
		{
			name:   "empty interval then title",
			stream: buildStream(100, buildBlock(""), buildBlock("StreamTitle='Second';")),
			want:   "Second",
		},
		{
			name:   "apostrophe inside title",
			stream: buildStream(100, buildBlock("StreamTitle='Guns N' Roses - Patience';StreamUrl='';")),
			want:   "Guns N' Roses - Patience",
		},
		{
			name:   "double quoted",
			stream: buildStream(100, buildBlock(`StreamTitle="Artist - Song";`)),
			want:   "Artist - Song",
		},
		{
			name:   "unquoted",
			stream: buildStream(100, buildBlock("StreamTitle=Artist - Song;")),
			want:   "Artist - Song",
		},
		{
			name: "station ident skipped",
			stream: buildStream(100,
				buildBlock("StreamTitle='Best Radio';"),
				buildBlock("StreamTitle='Artist - Song';"),
			),
			reject: func(s string) bool { return strings.Contains(s, "Radio") },
			want:   "Artist - Song",
		},
		{
			name: "gives up after three intervals",
			stream: buildStream(100,
				buildBlock(""), buildBlock(""), buildBlock(""),
				buildBlock("StreamTitle='Too Late';"),
			),
			wantErr: true,
		},
		{
			name:    "truncated stream",
			stream:  buildStream(100)[:50],
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decoder{MetaInt: 100, Reject: tt.reject}
			got, err := d.Decode(bytes.NewReader(tt.stream))
			if tt.wantErr {
				require.Error(t, err)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecoderNoMetaInt(t *testing.T) {
	_, err := Decoder{}.Decode(bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrNoMetaInt)
}

func TestDecodeBufferKeepsHead(t *testing.T) {
	stream := buildStream(100, buildBlock("StreamTitle='A - B';StreamUrl='http://example.com';"))
	b := NewBuffer(bytes.NewReader(stream), 0)

	m, err := Decoder{MetaInt: 100}.DecodeBuffer(b)
	require.NoError(t, err)
	assert.Equal(t, "A - B", m.StreamTitle)
	assert.Equal(t, "http://example.com", m.Fields["StreamUrl"])
	assert.Equal(t, "utf-8", m.Charset)
	assert.Equal(t, byte(0xAA), b.Bytes()[0])
}

func TestParseMetadataCharsets(t *testing.T) {
	latin, err := charmap.ISO8859_1.NewEncoder().String("StreamTitle='Björk - Jóga';")
	require.NoError(t, err)

	m, err := ParseMetadata([]byte(latin))
	require.NoError(t, err)
	assert.Equal(t, "Björk - Jóga", m.StreamTitle)
	assert.Equal(t, "iso-8859-1", m.Charset)

	cp1250, err := charmap.Windows1250.NewEncoder().String("StreamTitle='Đorđe Balašević - Ćaletova pesma';")
	require.NoError(t, err)

	m, err = ParseMetadata([]byte(cp1250), "utf-8", "windows-1250")
	require.NoError(t, err)
	assert.Equal(t, "Đorđe Balašević - Ćaletova pesma", m.StreamTitle)
	assert.Equal(t, "windows-1250", m.Charset)

	m, err = ParseMetadata([]byte("StreamTitle='Ђорђе';"))
	require.NoError(t, err)
	assert.Equal(t, "Ђорђе", m.StreamTitle)
	assert.Equal(t, "utf-8", m.Charset)
}

func TestParseMetadataNoTitle(t *testing.T) {
	_, err := ParseMetadata([]byte("StreamUrl='x';"))
	assert.ErrorIs(t, err, ErrNoStreamTitle)
}

func TestScanTitle(t *testing.T) {
	head := append(bytes.Repeat([]byte{0xFF, 0xFB}, 100), []byte("StreamTitle='Inline - Title';")...)
	assert.Equal(t, "Inline - Title", ScanTitle(head))

	late := append(bytes.Repeat([]byte{0x00}, ScanWindow), []byte("StreamTitle='x';")...)
	assert.Empty(t, ScanTitle(late))
	assert.Empty(t, ScanTitle(nil))
}

func TestBuffer(t *testing.T) {
	b := NewBuffer(strings.NewReader("0123456789"), 8)

	p, err := b.Next(3)
	require.NoError(t, err)
	assert.Equal(t, "012", string(p))
	require.NoError(t, b.Skip(2))
	assert.Equal(t, 5, b.Offset())

	_, err = b.Next(10)
	assert.ErrorIs(t, err, ErrBufferFull)

	b = NewBuffer(strings.NewReader("abc"), 0)
	_, err = b.Next(4)
	assert.Error(t, err)
}

func TestSniffFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{name: "mp3", data: []byte{0x00, 0xFF, 0xFB, 0x90, 0x64}, want: FormatMP3},
		{name: "adts", data: []byte{0xFF, 0xF1, 0x50, 0x80}, want: FormatAAC},
		{name: "ogg", data: []byte("OggS\x00\x02"), want: FormatOGG},
		{name: "unknown", data: []byte("hello"), want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SniffFormat(tt.data))
		})
	}
}

func TestIsPlaylist(t *testing.T) {
	assert.True(t, IsPlaylist("http://example.com/listen.pls"))
	assert.True(t, IsPlaylist("http://example.com/live.M3U?x=1"))
	assert.False(t, IsPlaylist("http://example.com/stream"))
	assert.False(t, IsPlaylist("http://example.com/;stream.nsv"))
}

func TestResolvePlaylist(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/listen.pls", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "audio/x-scpls")
		fmt.Fprint(w, "[playlist]\nNumberOfEntries=1\nFile1=http://stream.example.com:8000/live\n")
	})
	mux.HandleFunc("/live.m3u", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXTINF:-1,Live\n/relative/stream\n")
	})
	mux.HandleFunc("/abs.m3u", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "#EXTM3U\nhttps://cdn.example.com/a\n")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()

	got, err := ResolvePlaylist(ctx, srv.Client(), srv.URL+"/listen.pls", "")
	require.NoError(t, err)
	assert.Equal(t, "http://stream.example.com:8000/live", got)

	got, err = ResolvePlaylist(ctx, srv.Client(), srv.URL+"/abs.m3u", "")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a", got)

	// M3U entries must be absolute
	_, err = ResolvePlaylist(ctx, srv.Client(), srv.URL+"/live.m3u", "")
	assert.Error(t, err)
}

func TestOpenICYStatusLine(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	body := buildStream(16, buildBlock("StreamTitle='Old School - Server';"))
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		buf := make([]byte, 1024)
		_, _ = c.Read(buf)
		fmt.Fprintf(c, "ICY 200 OK\r\nicy-name: Test\r\nicy-br: 128,128\r\nicy-metaint: 16\r\nContent-Type: audio/mpeg\r\n\r\n")
		_, _ = c.Write(body)
	}()

	client := &http.Client{Transport: NewTransport(time.Second)}
	s, err := Open(context.Background(), client, "http://"+ln.Addr().String()+"/", "")
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "Test", s.Name)
	assert.Equal(t, 128, s.Bitrate)
	assert.Equal(t, 16, s.MetaInt)
	assert.Equal(t, "audio/mpeg", s.ContentType)
	assert.True(t, s.ICYHeaders)

	got, err := Decoder{MetaInt: s.MetaInt}.Decode(s)
	require.NoError(t, err)
	assert.Equal(t, "Old School - Server", got)
}

func TestOpenHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.Header.Get("Icy-MetaData"))
		assert.Equal(t, "custom/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("icy-title", " Header - Title ")
		w.Header().Set("Server", "Icecast 2.4.4")
	}))
	defer srv.Close()

	s, err := Open(context.Background(), srv.Client(), srv.URL, "custom/1.0")
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "Header - Title", s.Title)
	assert.Equal(t, "Icecast 2.4.4", s.Server)
	assert.Zero(t, s.MetaInt)
}

func TestFormatFromContentType(t *testing.T) {
	tests := map[string]string{
		"":                          "",
		"audio/mpeg":                "MP3",
		"application/ogg":           "OGG",
		"audio/aacp":                "AAC",
		"audio/x-wav":               "WAV",
		"audio/flac":                "FLAC",
		"audio/x-matroska; codec=1": "x-matroska",
		"garbage":                   "Unknown",
	}
	for ct, want := range tests {
		assert.Equal(t, want, FormatFromContentType(ct), ct)
	}
}

func TestBufferSkipIsBounded(t *testing.T) {
	stream := bytes.Repeat([]byte("0123456789"), 1000)
	b := NewBuffer(bytes.NewReader(stream), 16)

	require.NoError(t, b.Skip(9000))
	assert.Equal(t, 9000, b.Offset())
	assert.LessOrEqual(t, b.Len(), 16)

	p, err := b.Next(4)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(p))

	assert.Equal(t, stream[:ScanWindow], b.Bytes())

	err = b.Skip(5000)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestDecoderHugeMetaInt(t *testing.T) {
	d := Decoder{MetaInt: 1<<31 - 1}
	b := NewBuffer(bytes.NewReader(make([]byte, 8192)), d.BufferLimit())

	_, err := d.DecodeBuffer(b)
	require.Error(t, err)
	assert.Equal(t, 8192, b.Offset())
	assert.Len(t, b.Bytes(), ScanWindow)
}

func TestOpenRejectsOversizedMetaInt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("icy-metaint", "1099511627776")
	}))
	defer srv.Close()

	s, err := Open(context.Background(), srv.Client(), srv.URL, "")
	require.NoError(t, err)
	defer s.Close()

	assert.Zero(t, s.MetaInt)
	assert.True(t, s.ICYHeaders)
}
