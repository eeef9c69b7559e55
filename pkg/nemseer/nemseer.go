// Package nemseer downloads, caches and compiles AEMO MMSDM forecast data.
//
// Raw archive files are converted to parquet in a raw cache. Compiled, filtered
// tables can be kept in a separate processed cache and are reused by identical
// queries
package nemseer

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/afero"

	"nemseer/internal/adapters/columnar"
	"nemseer/internal/adapters/mmsdm"
	"nemseer/internal/core/forecast"
	"nemseer/internal/core/query"
	"nemseer/internal/core/validity"
	perr "nemseer/internal/platform/errors"
	"nemseer/internal/platform/logger"
	compile "nemseer/internal/services/compile/service"
	"nemseer/internal/services/download/domain"
	download "nemseer/internal/services/download/service"
)

// Table is a compiled table of string cells; nil cells are missing values
type Table = columnar.Table

// DownloadStats reports what a download did
type DownloadStats = domain.Stats

// Client is the entry point
type Client struct {
	opts    Options
	fs      afero.Fs
	log     *logger.Logger
	archive *mmsdm.Client
	codec   columnar.Codec
}

// ClientOption configures a Client beyond Options
type ClientOption func(*Client)

// WithFS sets the cache filesystem (OS filesystem by default)
func WithFS(fs afero.Fs) ClientOption { return func(c *Client) { c.fs = fs } }

// WithLogger sets the logger
func WithLogger(l *logger.Logger) ClientOption { return func(c *Client) { c.log = l } }

// WithArchive replaces the archive client
func WithArchive(a *mmsdm.Client) ClientOption { return func(c *Client) { c.archive = a } }

// New builds a Client
func New(opts Options, extra ...ClientOption) *Client {
	c := &Client{opts: opts}
	for _, o := range extra {
		o(c)
	}
	if c.fs == nil {
		c.fs = afero.NewOsFs()
	}
	c.log = logger.Or(c.log, "nemseer")
	if c.archive == nil {
		aopts := []mmsdm.Option{
			mmsdm.WithBaseURL(opts.ArchiveURL),
			mmsdm.WithLogger(c.log),
		}
		if opts.HTTPTimeout > 0 {
			aopts = append(aopts, mmsdm.WithTimeout(opts.HTTPTimeout))
		}
		if opts.RetryDelay > 0 || opts.MaxAttempts > 0 {
			aopts = append(aopts, mmsdm.WithRetry(opts.RetryDelay, opts.MaxAttempts))
		}
		c.archive = mmsdm.New(aopts...)
	}
	c.codec = columnar.Codec{Compression: opts.Compression}
	return c
}

// Archive is the archive client in use
func (c *Client) Archive() *mmsdm.Client { return c.archive }

// DownloadRequest asks for raw data. Give exactly one of the run pair or the
// forecasted pair
type DownloadRequest struct {
	ForecastType    string   `json:"forecast_type" validate:"required,forecast_type"`
	Tables          []string `json:"tables" validate:"required,min=1,dive,required"`
	RawCache        string   `json:"-"`
	RunStart        string   `json:"run_start,omitempty" validate:"omitempty,nemdatetime"`
	RunEnd          string   `json:"run_end,omitempty" validate:"omitempty,nemdatetime"`
	ForecastedStart string   `json:"forecasted_start,omitempty" validate:"omitempty,nemdatetime"`
	ForecastedEnd   string   `json:"forecasted_end,omitempty" validate:"omitempty,nemdatetime"`
	// KeepCSV overrides Options.KeepCSV when set
	KeepCSV *bool `json:"keep_csv,omitempty"`
}

// DownloadRawData fills the raw cache for the request
func (c *Client) DownloadRawData(ctx context.Context, req DownloadRequest) (DownloadStats, error) {
	hasRun := req.RunStart != "" && req.RunEnd != ""
	hasFc := req.ForecastedStart != "" && req.ForecastedEnd != ""
	anyRun := req.RunStart != "" || req.RunEnd != ""
	anyFc := req.ForecastedStart != "" || req.ForecastedEnd != ""

	qr := query.Request{
		ForecastType: req.ForecastType,
		Tables:       req.Tables,
		RawCache:     pick(req.RawCache, c.opts.RawCache),
	}
	var qopts []query.Option
	switch {
	case hasRun && !anyFc:
		qr.RunStart, qr.RunEnd = req.RunStart, req.RunEnd
		qr.ForecastedStart, qr.ForecastedEnd = req.RunStart, req.RunStart
		qopts = append(qopts, query.SkipForecastRule())
	case hasFc && !anyRun:
		rs, re, err := c.GenerateRuntimes(req.ForecastedStart, req.ForecastedEnd, req.ForecastType)
		if err != nil {
			return DownloadStats{}, err
		}
		qr.RunStart, qr.RunEnd = rs, re
		qr.ForecastedStart, qr.ForecastedEnd = req.ForecastedStart, req.ForecastedEnd
	default:
		return DownloadStats{}, perr.Validationf("Provide both of run_start and run_end (and no forecasted times), " +
			"or both of forecasted_start and forecasted_end (and no run times).")
	}

	q, err := c.query(ctx, qr, qopts...)
	if err != nil {
		return DownloadStats{}, err
	}
	keep := c.opts.KeepCSV
	if req.KeepCSV != nil {
		keep = *req.KeepCSV
	}
	return download.New(c.archive, c.codec, download.Config{KeepCSV: keep}, c.log).Run(ctx, q)
}

// CompileRequest asks for compiled data over a full run and forecasted window
type CompileRequest struct {
	RunStart        string   `json:"run_start" validate:"required,nemdatetime"`
	RunEnd          string   `json:"run_end" validate:"required,nemdatetime"`
	ForecastedStart string   `json:"forecasted_start" validate:"required,nemdatetime"`
	ForecastedEnd   string   `json:"forecasted_end" validate:"required,nemdatetime"`
	ForecastType    string   `json:"forecast_type" validate:"required,forecast_type"`
	Tables          []string `json:"tables" validate:"required,min=1,dive,required"`
	RawCache        string   `json:"-"`
	ProcessedCache  string   `json:"-"`
}

// CompileData returns one table per requested table, downloading raw data the
// processed cache cannot supply
func (c *Client) CompileData(ctx context.Context, req CompileRequest) (map[string]*Table, error) {
	q, err := c.query(ctx, query.Request{
		RunStart:        req.RunStart,
		RunEnd:          req.RunEnd,
		ForecastedStart: req.ForecastedStart,
		ForecastedEnd:   req.ForecastedEnd,
		ForecastType:    req.ForecastType,
		Tables:          req.Tables,
		RawCache:        pick(req.RawCache, c.opts.RawCache),
		ProcessedCache:  pick(req.ProcessedCache, c.opts.ProcessedCache),
	})
	if err != nil {
		return nil, err
	}

	found := map[string]string{}
	if q.ProcessedCache() != "" {
		if found, err = q.FindTableQueriesInProcessedCache(); err != nil {
			return nil, err
		}
	}
	if len(found) < len(q.RequestedTables()) {
		dl := download.New(c.archive, c.codec, download.Config{KeepCSV: c.opts.KeepCSV}, c.log)
		if _, err := dl.Run(ctx, q); err != nil {
			return nil, err
		}
	}
	return compile.New(c.codec, c.log).Run(ctx, q)
}

// GenerateRuntimes returns the run window (yyyy/mm/dd HH:MM) covering every run
// that forecasts the whole forecasted window
func (c *Client) GenerateRuntimes(forecastedStart, forecastedEnd, forecastType string) (string, string, error) {
	t, err := parseType(forecastType)
	if err != nil {
		return "", "", err
	}
	fs, err := query.ParseDatetime(forecastedStart)
	if err != nil {
		return "", "", perr.WithField(err, "forecasted_start")
	}
	fe, err := query.ParseDatetime(forecastedEnd)
	if err != nil {
		return "", "", perr.WithField(err, "forecasted_end")
	}
	rs, re, err := validity.GenerateRunWindow(t, fs, fe)
	if err != nil {
		return "", "", err
	}
	return query.FormatDatetime(rs), query.FormatDatetime(re), nil
}

// GetTables lists the tables published for a forecast type in a month
func (c *Client) GetTables(ctx context.Context, year int, month time.Month, forecastType string) ([]string, error) {
	if err := checkMonth(month); err != nil {
		return nil, err
	}
	t, err := parseType(forecastType)
	if err != nil {
		return nil, err
	}
	return c.archive.Tables(ctx, year, month, t)
}

// GetDataDateRange maps archive years to the months they hold
func (c *Client) GetDataDateRange(ctx context.Context) (map[int][]int, error) {
	return c.archive.DateRange(ctx)
}

// GetFileSize returns the archive file size in MB of a physical table
func (c *Client) GetFileSize(ctx context.Context, year int, month time.Month, forecastType, table string) (float64, error) {
	if err := checkMonth(month); err != nil {
		return 0, err
	}
	t, err := parseType(forecastType)
	if err != nil {
		return 0, err
	}
	return c.archive.FileSize(ctx, year, month, t, strings.ToUpper(strings.TrimSpace(table)))
}

func (c *Client) query(ctx context.Context, r query.Request, extra ...query.Option) (*query.Query, error) {
	opts := []query.Option{
		query.WithFS(c.fs),
		query.WithLogger(c.log),
		query.WithMetadataReader(c.codec),
	}
	if c.opts.CheckTables {
		opts = append(opts, query.WithCatalog(c.archive))
	}
	return query.New(ctx, r, append(opts, extra...)...)
}

func parseType(s string) (forecast.Type, error) {
	t, ok := forecast.Parse(s)
	if !ok {
		return "", perr.WithField(perr.Validationf("forecast_type must be in (%s)", forecast.Names()), "forecast_type")
	}
	return t, nil
}

func checkMonth(m time.Month) error {
	if m < time.January || m > time.December {
		return perr.WithField(perr.InvalidArgf("month must be between 1 and 12, got %d", int(m)), "month")
	}
	return nil
}

func pick(v, def string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return def
}
