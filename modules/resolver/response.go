package resolver

import (
	"encoding/json"
	"net/http"

	"github.com/zachfi/nowplaying/pkg/provider"
	"github.com/zachfi/nowplaying/pkg/shoutcast"
	"github.com/zachfi/nowplaying/pkg/title"
)

type successResponse struct {
	Success       bool            `json:"success"`
	Title         *string         `json:"title"`
	RawTitle      *string         `json:"rawTitle"`
	IsStationName bool            `json:"isStationName"`
	HasMetadata   bool            `json:"hasMetadata"`
	Quality       *successQuality `json:"quality"`
}

type successQuality struct {
	Bitrate      string `json:"bitrate,omitempty"`
	Format       string `json:"format,omitempty"`
	MetaInt      int    `json:"metaInt,omitempty"`
	ResponseTime *int64 `json:"responseTime,omitempty"`
}

type errorResponse struct {
	Success bool          `json:"success"`
	Error   string        `json:"error"`
	Quality *errorQuality `json:"quality"`
}

type errorQuality struct {
	ResponseTime *int64 `json:"responseTime,omitempty"`
	Server       string `json:"server,omitempty"`
}

func newSuccess(res provider.Result, classifier title.Classifier) successResponse {
	raw := res.Title

	resp := successResponse{
		Success:       true,
		IsStationName: true,
		HasMetadata:   raw != "",
		Quality:       successQualityOf(res.Quality),
	}

	if raw != "" {
		resp.RawTitle = &raw
		resp.IsStationName = classifier.WithBrand(res.Brand...).IsLikelyStationName(raw)
		if cleaned := title.Clean(raw); cleaned != "" {
			resp.Title = &cleaned
		}
	}

	return resp
}

func successQualityOf(q provider.Quality) *successQuality {
	sq := successQuality{
		Bitrate: q.Bitrate,
		Format:  q.Format,
		MetaInt: q.MetaInt,
	}
	if sq.Format == "" {
		sq.Format = shoutcast.FormatFromContentType(q.ContentType)
	}
	if ms := q.ResponseTime.Milliseconds(); ms > 0 {
		sq.ResponseTime = &ms
	}

	if sq == (successQuality{}) {
		return nil
	}
	return &sq
}

func newError(err error) errorResponse {
	resp := errorResponse{Error: err.Error()}

	q := provider.QualityOf(err)
	eq := errorQuality{Server: q.Server}
	if ms := q.ResponseTime.Milliseconds(); ms > 0 {
		eq.ResponseTime = &ms
	}
	if eq != (errorQuality{}) {
		resp.Quality = &eq
	}

	return resp
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if code == http.StatusOK {
		w.Header().Set("Cache-Control", "no-store, max-age=0")
	}
	w.WriteHeader(code)

	return json.NewEncoder(w).Encode(v)
}

func writePreflight(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
	h.Set("Access-Control-Max-Age", "86400")
	w.WriteHeader(http.StatusOK)
}
