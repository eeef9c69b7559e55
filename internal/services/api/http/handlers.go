// Package http holds the nemseer API handlers
package http

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"nemseer/internal/core/forecast"
	"nemseer/internal/core/version"
	perr "nemseer/internal/platform/errors"
	"nemseer/internal/platform/logger"
	phttp "nemseer/internal/platform/net/http"
	"nemseer/internal/platform/net/http/bind"
	"nemseer/pkg/nemseer"
)

// Deps are the handler dependencies
type Deps struct {
	Client    *nemseer.Client
	Log       *logger.Logger
	StartedAt time.Time
}

type handlers struct {
	deps Deps
}

// Register mounts the API routes
func Register(r phttp.Router, d Deps) {
	h := &handlers{deps: d}

	phttp.GetJSON(r, "/healthz", h.health)
	phttp.GetJSON(r, "/version", h.version)

	r.Route("/v1", func(v1 phttp.Router) {
		phttp.GetJSON(v1, "/types", h.types)
		phttp.GetJSON(v1, "/runtimes", h.runtimes)
		phttp.GetJSON(v1, "/dateranges", h.dateRanges)
		phttp.GetJSON(v1, "/tables/{type}/{year}/{month}", h.tables)
		phttp.GetJSON(v1, "/filesize/{type}/{year}/{month}/{table}", h.fileSize)
		phttp.PostJSON(v1, "/download", h.download)
		phttp.PostJSON(v1, "/compile", h.compile)
	})
}

// HealthResponse is the health payload
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Started string `json:"started"`
	Uptime  int64  `json:"uptime"`
}

func (h *handlers) health(_ *http.Request) (any, error) {
	return HealthResponse{
		OK:      true,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Uptime:  int64(time.Since(h.deps.StartedAt) / time.Second),
	}, nil
}

func (h *handlers) version(_ *http.Request) (any, error) {
	b := version.Info("nemseer-api")
	b.Archive = h.deps.Client.Archive().BaseURL()
	return b, nil
}

// TypeResponse describes one forecast type
type TypeResponse struct {
	Name          string `json:"name"`
	Cadence       string `json:"cadence"`
	RunCol        string `json:"run_column"`
	ForecastedCol string `json:"forecasted_column"`
}

func (h *handlers) types(_ *http.Request) (any, error) {
	out := make([]TypeResponse, 0, len(forecast.Types()))
	for _, t := range forecast.Types() {
		out = append(out, TypeResponse{
			Name:          t.String(),
			Cadence:       t.Cadence().String(),
			RunCol:        t.RunCol(),
			ForecastedCol: t.ForecastedCol(),
		})
	}
	return out, nil
}

// RuntimesQuery is the query string of GET /v1/runtimes
type RuntimesQuery struct {
	ForecastedStart string `json:"forecasted_start" validate:"required,nemdatetime"`
	ForecastedEnd   string `json:"forecasted_end" validate:"required,nemdatetime"`
	ForecastType    string `json:"forecast_type" validate:"required,forecast_type"`
}

// RuntimesResponse is the run window covering a forecasted window
type RuntimesResponse struct {
	RunStart string `json:"run_start"`
	RunEnd   string `json:"run_end"`
}

func (h *handlers) runtimes(r *http.Request) (any, error) {
	q := r.URL.Query()
	in := RuntimesQuery{
		ForecastedStart: q.Get("forecasted_start"),
		ForecastedEnd:   q.Get("forecasted_end"),
		ForecastType:    q.Get("forecast_type"),
	}
	if err := bind.Struct(in); err != nil {
		return nil, err
	}
	rs, re, err := h.deps.Client.GenerateRuntimes(in.ForecastedStart, in.ForecastedEnd, in.ForecastType)
	if err != nil {
		return nil, err
	}
	return RuntimesResponse{RunStart: rs, RunEnd: re}, nil
}

// DateRangeResponse lists archive months per year
type DateRangeResponse struct {
	Years []YearMonths `json:"years"`
}

// YearMonths is one archive year
type YearMonths struct {
	Year   int   `json:"year"`
	Months []int `json:"months"`
}

func (h *handlers) dateRanges(r *http.Request) (any, error) {
	m, err := h.deps.Client.GetDataDateRange(r.Context())
	if err != nil {
		return nil, err
	}
	out := DateRangeResponse{Years: make([]YearMonths, 0, len(m))}
	for y, months := range m {
		out.Years = append(out.Years, YearMonths{Year: y, Months: months})
	}
	sort.Slice(out.Years, func(i, j int) bool { return out.Years[i].Year < out.Years[j].Year })
	return out, nil
}

// TablesResponse lists the tables of a forecast type in a month
type TablesResponse struct {
	ForecastType string   `json:"forecast_type"`
	Year         int      `json:"year"`
	Month        int      `json:"month"`
	Tables       []string `json:"tables"`
}

func (h *handlers) tables(r *http.Request) (any, error) {
	year, month, err := yearMonth(r)
	if err != nil {
		return nil, err
	}
	ft := phttp.Param(r, "type")
	tables, err := h.deps.Client.GetTables(r.Context(), year, month, ft)
	if err != nil {
		return nil, err
	}
	return TablesResponse{ForecastType: ft, Year: year, Month: int(month), Tables: tables}, nil
}

// FileSizeResponse is the archive size of one table file
type FileSizeResponse struct {
	Table  string  `json:"table"`
	SizeMB float64 `json:"size_mb"`
}

func (h *handlers) fileSize(r *http.Request) (any, error) {
	year, month, err := yearMonth(r)
	if err != nil {
		return nil, err
	}
	table := phttp.Param(r, "table")
	mb, err := h.deps.Client.GetFileSize(r.Context(), year, month, phttp.Param(r, "type"), table)
	if err != nil {
		return nil, err
	}
	return FileSizeResponse{Table: table, SizeMB: mb}, nil
}

func (h *handlers) download(r *http.Request, in nemseer.DownloadRequest) (any, error) {
	st, err := h.deps.Client.DownloadRawData(r.Context(), in)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// TableResponse is a compiled table; null cells are missing values. Kinds
// classifies each column as id, type, datetime or value
type TableResponse struct {
	Columns []string              `json:"columns"`
	Kinds   []forecast.ColumnKind `json:"kinds"`
	Rows    [][]*string           `json:"rows"`
}

func (h *handlers) compile(r *http.Request, in nemseer.CompileRequest) (any, error) {
	data, err := h.deps.Client.CompileData(r.Context(), in)
	if err != nil {
		return nil, err
	}
	out := make(map[string]TableResponse, len(data))
	for name, t := range data {
		kinds := make([]forecast.ColumnKind, len(t.Columns))
		for i, c := range t.Columns {
			kinds[i] = forecast.Classify(c)
		}
		out[name] = TableResponse{Columns: t.Columns, Kinds: kinds, Rows: t.Rows}
	}
	h.deps.Log.Debug().Int("tables", len(out)).Msg("compiled")
	return out, nil
}

func yearMonth(r *http.Request) (int, time.Month, error) {
	year, err := strconv.Atoi(phttp.Param(r, "year"))
	if err != nil || year < 1000 || year > 9999 {
		return 0, 0, perr.WithField(perr.InvalidArgf("year must be a four digit year"), "year")
	}
	month, err := strconv.Atoi(phttp.Param(r, "month"))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, perr.WithField(perr.InvalidArgf("month must be between 1 and 12"), "month")
	}
	return year, time.Month(month), nil
}
