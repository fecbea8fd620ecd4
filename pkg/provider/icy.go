package provider

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/zachfi/zkit/pkg/util"

	"github.com/zachfi/nowplaying/pkg/shoutcast"
	"github.com/zachfi/nowplaying/pkg/station"
	"github.com/zachfi/nowplaying/pkg/title"
)

// ICYProvider is the provider name reported for generic streams.
const ICYProvider = "icy"

var (
	errConnectTimeout  = errors.New("stream did not answer in time")
	errMetadataTimeout = errors.New("metadata read timed out")
)

// ICYConfig controls how streams are read.
type ICYConfig struct {
	ConnectTimeout  time.Duration `yaml:"connect-timeout,omitempty"`
	MetadataTimeout time.Duration `yaml:"metadata-timeout,omitempty"`
	UserAgent       string        `yaml:"user-agent,omitempty"`
	MaxIntervals    int           `yaml:"max-intervals,omitempty"`
	Charsets        []string      `yaml:"charsets,omitempty"`
}

func (cfg *ICYConfig) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.DurationVar(&cfg.ConnectTimeout, util.PrefixConfig(prefix, "connect-timeout"), 3*time.Second, "Time allowed for a stream to send its response headers.")
	f.DurationVar(&cfg.MetadataTimeout, util.PrefixConfig(prefix, "metadata-timeout"), 5*time.Second, "Time allowed for reading in-band metadata.")
	f.StringVar(&cfg.UserAgent, util.PrefixConfig(prefix, "user-agent"), "Mozilla/5.0 (compatible; IcecastMetadataFetcher/1.0)", "User-Agent sent to streams.")
	f.IntVar(&cfg.MaxIntervals, util.PrefixConfig(prefix, "max-intervals"), shoutcast.DefaultMaxIntervals, "Metadata intervals read before giving up.")
	cfg.Charsets = append([]string(nil), shoutcast.DefaultCharsets...)
}

// ICY reads the title straight from an ICY/SHOUTcast stream.
type ICY struct {
	cfg        ICYConfig
	client     *http.Client
	classifier title.Classifier
	logger     *slog.Logger
}

var _ Adapter = (*ICY)(nil)

// NewICY creates the generic stream adapter. Titles the classifier flags as
// station idents are skipped.
func NewICY(cfg ICYConfig, classifier title.Classifier, logger *slog.Logger) *ICY {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 3 * time.Second
	}
	if cfg.MetadataTimeout <= 0 {
		cfg.MetadataTimeout = 5 * time.Second
	}

	return &ICY{
		cfg:        cfg,
		client:     &http.Client{Transport: shoutcast.NewTransport(cfg.ConnectTimeout)},
		classifier: classifier,
		logger:     logger.With("provider", ICYProvider),
	}
}

func (a *ICY) Resolve(ctx context.Context, target station.Target) (Result, error) {
	start := time.Now()
	streamURL := streamURLOf(target)

	if shoutcast.IsPlaylist(streamURL) {
		pctx, cancel := context.WithTimeout(ctx, a.cfg.ConnectTimeout)
		resolved, err := shoutcast.ResolvePlaylist(pctx, a.client, streamURL, a.cfg.UserAgent)
		cancel()
		if err != nil {
			a.logger.Debug("playlist resolution failed", "url", streamURL, "err", err)
		} else if resolved != streamURL {
			a.logger.Debug("resolved playlist", "url", streamURL, "stream", resolved)
			streamURL = resolved
		}
	}

	sctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	connect := time.AfterFunc(a.cfg.ConnectTimeout, func() { cancel(errConnectTimeout) })
	s, err := shoutcast.Open(sctx, a.client, streamURL, a.cfg.UserAgent)
	if !connect.Stop() && err == nil {
		// The timer fired as the headers arrived; the body is already cancelled.
		s.Close()
		err = errConnectTimeout
	}

	q := Quality{ResponseTime: time.Since(start), Source: ICYProvider}
	if err != nil {
		if isTimeout(sctx, err) {
			return Result{}, &Error{Kind: ErrTimeout, Err: err, Quality: q}
		}
		return Result{}, &Error{Err: errors.Wrap(err, "failed to open stream"), Quality: q}
	}
	defer s.Close()

	q.ContentType = s.ContentType
	q.Server = s.Server
	q.MetaInt = s.MetaInt
	q.ICYHeaders = s.ICYHeaders
	if s.Bitrate > 0 {
		q.Bitrate = strconv.Itoa(s.Bitrate)
	}

	res := Result{Provider: ICYProvider, Quality: q}

	if s.Title != "" && !a.classifier.IsLikelyStationName(s.Title) {
		res.Title = s.Title
		return res, nil
	}

	read := time.AfterFunc(a.cfg.MetadataTimeout, func() { cancel(errMetadataTimeout) })
	defer read.Stop()

	decoder := shoutcast.Decoder{
		MetaInt:      s.MetaInt,
		MaxIntervals: a.cfg.MaxIntervals,
		Charsets:     a.cfg.Charsets,
		Reject:       a.classifier.IsLikelyStationName,
	}

	buf := shoutcast.NewBuffer(s, max(decoder.BufferLimit(), shoutcast.ScanWindow))

	if s.MetaInt > 0 {
		m, err := decoder.DecodeBuffer(buf)
		if err != nil {
			a.logger.Debug("no in-band title", "url", streamURL, "err", err, "cause", context.Cause(sctx))
		} else {
			res.Title = m.StreamTitle
			if su := m.Fields["StreamUrl"]; su != "" {
				a.logger.Debug("stream url announced", "url", streamURL, "stream_url", su)
			}
		}
	}

	if res.Title == "" {
		if s.MetaInt == 0 {
			_ = buf.Fill(shoutcast.ScanWindow)
		}
		if t := shoutcast.ScanTitle(buf.Bytes()); t != "" && !a.classifier.IsLikelyStationName(t) {
			res.Title = t
		}
	}

	if res.Quality.ContentType == "" {
		res.Quality.Format = shoutcast.SniffFormat(buf.Bytes())
	}

	return res, nil
}

func streamURLOf(t station.Target) string {
	u := strings.TrimSpace(t.Raw)
	if !strings.Contains(u, "://") {
		u = "http://" + u
	}
	return u
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, errConnectTimeout) || errors.Is(context.Cause(ctx), errConnectTimeout) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
