package resolver

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/grafana/dskit/services"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zachfi/zkit/pkg/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zachfi/nowplaying/pkg/provider"
	"github.com/zachfi/nowplaying/pkg/station"
	"github.com/zachfi/nowplaying/pkg/title"
)

const (
	errMissingURL = "Missing station URL parameter"
	errInvalidURL = "Invalid station URL"
)

// Resolver answers "what is playing on this stream" over HTTP.
type Resolver struct {
	services.Service
	cfg        *Config
	logger     *slog.Logger
	tracer     trace.Tracer
	classifier title.Classifier
	router     *provider.Router
	metrics    *metrics
}

var module = "resolver"

// New creates and returns a new Resolver. The provider table is read here so
// a broken stations file fails startup rather than the first request.
func New(cfg Config, namespace string, logger slog.Logger, reg prometheus.Registerer) (*Resolver, error) {
	r := &Resolver{
		cfg:        &cfg,
		logger:     logger.With("module", module),
		tracer:     otel.Tracer(module),
		classifier: cfg.Title,
		metrics:    newMetrics(namespace, reg),
	}

	if len(r.classifier.Keywords) == 0 && r.classifier.MaxLength == 0 {
		r.classifier = title.NewClassifier()
	}

	table, err := r.loadTable()
	if err != nil {
		return nil, err
	}

	icy := provider.NewICY(cfg.ICY, r.classifier, r.logger)
	router, err := provider.NewRouter(table, icy, cfg.API, provider.NewMetrics(namespace, reg), r.logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build router")
	}
	r.router = router

	r.Service = services.NewBasicService(r.starting, r.running, r.stopping)

	return r, nil
}

func (r *Resolver) loadTable() (*station.Table, error) {
	if r.cfg.StationsFile == "" {
		return station.DefaultTable()
	}

	t, err := station.LoadTable(r.cfg.StationsFile)
	if err != nil {
		return nil, err
	}
	r.logger.Info("loaded provider table", "file", r.cfg.StationsFile, "providers", len(t.Providers))

	return t, nil
}

func (r *Resolver) starting(_ context.Context) error {
	return nil
}

func (r *Resolver) running(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (r *Resolver) stopping(_ error) error {
	return nil
}

// ServeHTTP handles GET /?url=<stream> and its CORS preflight.
func (r *Resolver) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method == http.MethodOptions {
		writePreflight(w)
		return
	}

	raw := strings.TrimSpace(req.URL.Query().Get("url"))
	if raw == "" {
		r.write(w, http.StatusBadRequest, errorResponse{Error: errMissingURL})
		return
	}

	target := station.ParseTarget(raw)
	if !target.Valid() {
		r.write(w, http.StatusBadRequest, errorResponse{Error: errInvalidURL})
		return
	}

	ctx, span := r.tracer.Start(req.Context(), "Resolver.ServeHTTP")
	span.SetAttributes(attribute.String("url", raw))

	start := time.Now()
	adapter := r.router.SelectTarget(target)
	name := provider.ProviderName(adapter)
	span.SetAttributes(attribute.String("provider", name))

	res, err := adapter.Resolve(ctx, target)
	code := provider.StatusCode(err)

	r.metrics.requests.WithLabelValues(name, strconv.Itoa(code)).Inc()
	r.metrics.duration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	var l *slog.Logger
	if code >= http.StatusInternalServerError {
		l = r.logger.With("url", raw, "provider", name)
	}
	_ = tracing.ErrHandler(span, err, "lookup failed", l)

	if err != nil {
		r.logger.Debug("lookup failed", "url", raw, "provider", name, "code", code, "err", err)
		r.write(w, code, newError(err))
		return
	}

	r.logger.Debug("lookup", "url", raw, "provider", name, "title", res.Title)
	r.write(w, http.StatusOK, newSuccess(res, r.classifier))
}

func (r *Resolver) write(w http.ResponseWriter, code int, v interface{}) {
	if err := writeJSON(w, code, v); err != nil {
		r.logger.Error("failed to write response", "err", err)
	}
}

// Healthz reports that the process is serving.
func (r *Resolver) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}
