package resolver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zachfi/nowplaying/pkg/provider"
	"github.com/zachfi/nowplaying/pkg/title"
)

const paradiseTable = `
providers:
  - name: radioparadise
    display: Radio Paradise
    hosts: [stream.radioparadise.com]
    quality: {bitrate: "320", format: AAC}
    stations:
      stream.radioparadise.com/aac-320: "0"
      stream.radioparadise.com/mellow-320: "1"
    strategies:
      - kind: jsonapi
        url: %s/api/now_playing?chan={id}
        fallback: "0"
        artist: [artist]
        title: [title]
`

func testConfig() Config {
	return Config{
		ICY: provider.ICYConfig{
			ConnectTimeout:  300 * time.Millisecond,
			MetadataTimeout: 300 * time.Millisecond,
			MaxIntervals:    3,
		},
		API:   provider.ClientConfig{Timeout: 2 * time.Second, BreakerFailures: 5, BreakerTimeout: time.Minute},
		Title: title.NewClassifier(),
	}
}

func newTestResolver(t *testing.T, cfg Config) (*Resolver, *prometheus.Registry) {
	t.Helper()

	reg := prometheus.NewRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r, err := New(cfg, "nowplaying", *logger, reg)
	require.NoError(t, err)

	return r, reg
}

func writeTable(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "stations.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func get(r http.Handler, stream string) *httptest.ResponseRecorder {
	target := "/"
	if stream != "" {
		target += "?url=" + url.QueryEscape(stream)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	return body
}

func TestResolveRadioParadise(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/api/now_playing", req.URL.Path)
		assert.Equal(t, "0", req.URL.Query().Get("chan"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"artist":"Pink Floyd","title":"Time"}`)
	}))
	defer api.Close()

	cfg := testConfig()
	cfg.StationsFile = writeTable(t, fmt.Sprintf(paradiseTable, api.URL))
	r, reg := newTestResolver(t, cfg)

	rec := get(r, "https://stream.radioparadise.com/aac-320")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "no-store, max-age=0", rec.Header().Get("Cache-Control"))

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Pink Floyd - Time", body["title"])
	assert.Equal(t, "Pink Floyd - Time", body["rawTitle"])
	assert.Equal(t, false, body["isStationName"])
	assert.Equal(t, true, body["hasMetadata"])

	quality, ok := body["quality"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "320", quality["bitrate"])
	assert.Equal(t, "AAC", quality["format"])

	assert.Equal(t, 1.0, testutil.ToFloat64(r.metrics.requests.WithLabelValues("radioparadise", "200")))

	n, err := testutil.GatherAndCount(reg, "nowplaying_strategy_results_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestResolveUnknownProviderStation(t *testing.T) {
	cfg := testConfig()
	cfg.StationsFile = writeTable(t, fmt.Sprintf(paradiseTable, "http://127.0.0.1:1"))
	r, _ := newTestResolver(t, cfg)

	rec := get(r, "https://stream.radioparadise.com/unknown")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Radio Paradise: Unknown Radio Paradise station", body["error"])
	assert.Empty(t, rec.Header().Get("Cache-Control"))
}

func TestResolveBadRequests(t *testing.T) {
	r, _ := newTestResolver(t, testConfig())

	tests := []struct {
		name   string
		stream string
		want   string
	}{
		{name: "missing", stream: "", want: errMissingURL},
		{name: "blank", stream: "   ", want: errMissingURL},
		{name: "no host", stream: "http://", want: errInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(r, tt.stream)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.want, body["error"])
			assert.Nil(t, body["quality"])
		})
	}
}

func TestResolveStreamTimeout(t *testing.T) {
	release := make(chan struct{})
	stream := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, req *http.Request) {
		select {
		case <-req.Context().Done():
		case <-release:
		}
	}))
	defer stream.Close()
	defer close(release)

	r, _ := newTestResolver(t, testConfig())

	rec := get(r, stream.URL+"/live")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Request timeout", body["error"])

	quality, ok := body["quality"].(map[string]interface{})
	require.True(t, ok)
	assert.Greater(t, quality["responseTime"], 0.0)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.metrics.requests.WithLabelValues(provider.ICYProvider, "500")))
}

func TestResolveICYStream(t *testing.T) {
	const metaInt = 64
	meta := "StreamTitle='Nick Cave &amp; The Bad Seeds - Red Right Hand';"
	blocks := (len(meta) + 15) / 16
	block := append([]byte{byte(blocks)}, meta...)
	block = append(block, make([]byte, blocks*16-len(meta))...)

	stream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "1", req.Header.Get("Icy-MetaData"))
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("icy-br", "192")
		w.Header().Set("icy-metaint", fmt.Sprint(metaInt))
		_, _ = w.Write(bytes.Repeat([]byte{0xAA}, metaInt))
		_, _ = w.Write(block)
		_, _ = w.Write(bytes.Repeat([]byte{0xAA}, metaInt))
	}))
	defer stream.Close()

	r, _ := newTestResolver(t, testConfig())

	rec := get(r, stream.URL+"/stream")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "Nick Cave & The Bad Seeds - Red Right Hand", body["title"])
	assert.Equal(t, "Nick Cave &amp; The Bad Seeds - Red Right Hand", body["rawTitle"])

	quality, ok := body["quality"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "192", quality["bitrate"])
	assert.Equal(t, "MP3", quality["format"])
	assert.Equal(t, float64(metaInt), quality["metaInt"])
}

func TestResolveNoTitle(t *testing.T) {
	stream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("icy-metaint", "16")
		_, _ = w.Write(bytes.Repeat([]byte{0xAA}, 16))
		_, _ = w.Write([]byte{0x00})
	}))
	defer stream.Close()

	r, _ := newTestResolver(t, testConfig())

	rec := get(r, stream.URL)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Nil(t, body["title"])
	assert.Nil(t, body["rawTitle"])
	assert.Equal(t, true, body["isStationName"])
	assert.Equal(t, false, body["hasMetadata"])
}

func TestPreflight(t *testing.T) {
	r, _ := newTestResolver(t, testConfig())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
}

func TestBadStationsFile(t *testing.T) {
	cfg := testConfig()
	cfg.StationsFile = writeTable(t, "providers:\n  - name: broken\n")

	_, err := New(cfg, "nowplaying", *slog.New(slog.NewTextHandler(io.Discard, nil)), prometheus.NewRegistry())
	assert.Error(t, err)
}
