// Package query builds validated, immutable forecast data queries and answers
// cache questions about them
package query

import (
	"context"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"nemseer/internal/core/forecast"
	"nemseer/internal/core/normalize"
	"nemseer/internal/core/resolve"
	"nemseer/internal/core/validity"
	perr "nemseer/internal/platform/errors"
	"nemseer/internal/platform/logger"
)

// Request is the raw user input for a query
type Request struct {
	RunStart        string
	RunEnd          string
	ForecastedStart string
	ForecastedEnd   string
	ForecastType    string
	Tables          []string
	RawCache        string
	ProcessedCache  string
}

// Catalog lists the tables published for a month
type Catalog interface {
	Tables(ctx context.Context, year int, month time.Month, t forecast.Type) ([]string, error)
}

// MetadataReader returns the key/value metadata stored in a processed cache file
type MetadataReader interface {
	ReadMetadata(fs afero.Fs, path string) (map[string]string, error)
}

// Query is a validated request. Only the processed cache index changes after New
type Query struct {
	runStart, runEnd               time.Time
	forecastedStart, forecastedEnd time.Time
	ftype                          forecast.Type
	requested                      []string
	tables                         []string
	meta                           Metadata
	rawCache                       string
	processedCache                 string

	fs         afero.Fs
	metaReader MetadataReader
	log        *logger.Logger

	mu        sync.Mutex
	indexed   bool
	processed map[string]string
}

type settings struct {
	fs         afero.Fs
	log        *logger.Logger
	skipRule   bool
	catalog    Catalog
	metaReader MetadataReader
}

// Option configures New
type Option func(*settings)

// WithFS sets the cache filesystem (OS filesystem by default)
func WithFS(fs afero.Fs) Option { return func(s *settings) { s.fs = fs } }

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option { return func(s *settings) { s.log = l } }

// SkipForecastRule skips the per type cadence and horizon rule. Used by run only
// downloads where the forecasted window is a placeholder
func SkipForecastRule() Option { return func(s *settings) { s.skipRule = true } }

// WithCatalog checks requested tables against the archive catalog for the run
// start month
func WithCatalog(c Catalog) Option { return func(s *settings) { s.catalog = c } }

// WithMetadataReader enables processed cache lookups
func WithMetadataReader(r MetadataReader) Option { return func(s *settings) { s.metaReader = r } }

// New validates req. Checks run in order: datetimes, run chronology, forecasted
// chronology, relative chronology, forecast type, forecast type rule, tables,
// raw cache, processed cache
func New(ctx context.Context, req Request, opts ...Option) (*Query, error) {
	st := settings{}
	for _, o := range opts {
		o(&st)
	}
	if st.fs == nil {
		st.fs = afero.NewOsFs()
	}
	log := logger.Or(st.log, "query")

	var dts [4]time.Time
	for i, f := range []struct{ name, v string }{
		{"run_start", req.RunStart},
		{"run_end", req.RunEnd},
		{"forecasted_start", req.ForecastedStart},
		{"forecasted_end", req.ForecastedEnd},
	} {
		t, err := ParseDatetime(f.v)
		if err != nil {
			return nil, perr.WithField(err, f.name)
		}
		dts[i] = t
	}
	rs, re, fs, fe := dts[0], dts[1], dts[2], dts[3]

	if rs.After(re) {
		return nil, perr.WithField(perr.Validationf("Forecast end datetime must be greater than or equal to run start datetime."), "run_end")
	}
	if fs.After(fe) {
		return nil, perr.WithField(perr.Validationf("Forecasted end datetime must be greater than or equal to forecasted start datetime."), "forecasted_end")
	}
	if rs.After(fs) {
		return nil, perr.WithField(perr.Validationf("Forecasted start datetime should be at or after run start datetime."), "forecasted_start")
	}
	ft, ok := forecast.Parse(req.ForecastType)
	if !ok {
		return nil, perr.WithField(perr.Validationf("forecast_type must be in (%s)", forecast.Names()), "forecast_type")
	}
	if !st.skipRule {
		if err := validity.Validate(ft, validity.Window{RunStart: rs, RunEnd: re, ForecastedStart: fs, ForecastedEnd: fe}); err != nil {
			return nil, err
		}
	}

	requested := normalize.Tables(req.Tables)
	if len(requested) == 0 {
		return nil, perr.WithField(perr.Validationf("at least one table is required"), "tables")
	}
	if st.catalog != nil {
		if err := checkTables(ctx, st.catalog, rs, ft, requested); err != nil {
			return nil, err
		}
	}
	for _, tbl := range requested {
		if ft.Deprecated(tbl) {
			log.Warn().Str("table", tbl).Str("forecast_type", ft.String()).
				Msgf("%s is deprecated for %s and may not be published for recent months", tbl, ft)
		}
	}

	raw, err := ensureDir(st.fs, req.RawCache, "raw_cache", log)
	if err != nil {
		return nil, err
	}
	var processed string
	if strings.TrimSpace(req.ProcessedCache) != "" {
		if samePath(req.RawCache, req.ProcessedCache) {
			return nil, perr.WithField(perr.Validationf("raw_cache should be distinct from processed_cache"), "raw_cache")
		}
		if processed, err = ensureDir(st.fs, req.ProcessedCache, "processed_cache", log); err != nil {
			return nil, err
		}
	}

	return &Query{
		runStart:        rs,
		runEnd:          re,
		forecastedStart: fs,
		forecastedEnd:   fe,
		ftype:           ft,
		requested:       requested,
		tables:          resolve.EnumerateTables(ft, requested),
		meta: Metadata{
			RunStart:        FormatDatetime(rs),
			RunEnd:          FormatDatetime(re),
			ForecastedStart: FormatDatetime(fs),
			ForecastedEnd:   FormatDatetime(fe),
			ForecastType:    ft.String(),
		},
		rawCache:       raw,
		processedCache: processed,
		fs:             st.fs,
		metaReader:     st.metaReader,
		log:            log,
	}, nil
}

func checkTables(ctx context.Context, c Catalog, rs time.Time, ft forecast.Type, requested []string) error {
	valid, err := c.Tables(ctx, rs.Year(), rs.Month(), ft)
	if err != nil {
		return perr.Wrapf(err, perr.CodeOf(err), "list tables for %d/%d", int(rs.Month()), rs.Year())
	}
	for _, tbl := range requested {
		if !slices.Contains(valid, tbl) {
			return perr.WithField(perr.NotFoundf("%s not in valid tables for %s in %d/%d: %s",
				tbl, ft, int(rs.Month()), rs.Year(), strings.Join(valid, ", ")), "tables")
		}
	}
	return nil
}

func ensureDir(fs afero.Fs, dir, field string, log *logger.Logger) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", perr.WithField(perr.Validationf("%s is required", field), field)
	}
	dir = filepath.Clean(dir)
	fi, err := fs.Stat(dir)
	switch {
	case err == nil && !fi.IsDir():
		return "", perr.WithField(perr.Filesystemf("%s %s exists and is not a directory", field, dir), field)
	case err == nil:
		return dir, nil
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", perr.WithField(perr.Wrapf(err, perr.ErrorCodeFilesystem, "create %s %s", field, dir), field)
	}
	log.Info().Str("dir", dir).Msgf("Created directory at %s", dir)
	return dir, nil
}

func samePath(a, b string) bool {
	aa, err1 := filepath.Abs(strings.TrimSpace(a))
	bb, err2 := filepath.Abs(strings.TrimSpace(b))
	if err1 != nil || err2 != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return aa == bb
}

// RunStart is the earliest run included
func (q *Query) RunStart() time.Time { return q.runStart }

// RunEnd is the latest run included
func (q *Query) RunEnd() time.Time { return q.runEnd }

// ForecastedStart is the earliest forecasted interval retained
func (q *Query) ForecastedStart() time.Time { return q.forecastedStart }

// ForecastedEnd is the latest forecasted interval retained
func (q *Query) ForecastedEnd() time.Time { return q.forecastedEnd }

// Type is the forecast type
func (q *Query) Type() forecast.Type { return q.ftype }

// RequestedTables are the logical tables as requested (normalised)
func (q *Query) RequestedTables() []string { return slices.Clone(q.requested) }

// Tables are the physical tables after enumeration
func (q *Query) Tables() []string { return slices.Clone(q.tables) }

// Metadata describes the query, without table
func (q *Query) Metadata() Metadata { return q.meta }

// RawCache is the raw cache directory
func (q *Query) RawCache() string { return q.rawCache }

// ProcessedCache is the processed cache directory, "" when unset
func (q *Query) ProcessedCache() string { return q.processedCache }

// FS is the cache filesystem
func (q *Query) FS() afero.Fs { return q.fs }

// Files resolves every archive file stub the run window needs
func (q *Query) Files() map[resolve.FileKey]string {
	return resolve.Resolve(q.runStart, q.runEnd, q.ftype, q.requested)
}

// FilesByTable groups Files under each requested logical table
func (q *Query) FilesByTable() map[string][]string {
	return resolve.MapFilesToTables(q.Files(), q.ftype, q.requested)
}

// RawPath returns the raw cache path for stub with ext (".parquet", ".CSV")
func (q *Query) RawPath(stub, ext string) string {
	return filepath.Join(q.rawCache, stub+ext)
}

// CheckAllRawDataInCache reports whether every resolved file is cached as parquet
func (q *Query) CheckAllRawDataInCache() (bool, error) {
	for _, stub := range q.Files() {
		ok, err := afero.Exists(q.fs, q.RawPath(stub, ".parquet"))
		if err != nil {
			return false, perr.Wrapf(err, perr.ErrorCodeFilesystem, "stat %s", stub)
		}
		if !ok {
			return false, nil
		}
	}
	q.log.Info().Str("raw_cache", q.rawCache).Msgf("Query raw data already downloaded to %s", q.rawCache)
	return true, nil
}

// FindTableQueriesInProcessedCache maps requested tables to processed cache files
// written for an identical query. The first call scans the cache; later calls
// return the same index
func (q *Query) FindTableQueriesInProcessedCache() (map[string]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.indexed {
		return q.processed, nil
	}
	found := map[string]string{}
	if q.processedCache != "" {
		if q.metaReader == nil {
			return nil, perr.Internalf("processed cache lookups need a metadata reader")
		}
		entries, err := afero.ReadDir(q.fs, q.processedCache)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeFilesystem, "read processed_cache %s", q.processedCache)
		}
		for _, e := range entries {
			if e.IsDir() || path.Ext(e.Name()) != ".parquet" {
				continue
			}
			p := filepath.Join(q.processedCache, e.Name())
			kv, err := q.metaReader.ReadMetadata(q.fs, p)
			if err != nil {
				q.log.Debug().Err(err).Str("file", p).Msg("skipping unreadable processed cache file")
				continue
			}
			m, err := DecodeMetadata(kv)
			if err != nil || m.Table == "" {
				continue
			}
			if slices.Contains(q.requested, m.Table) && m.SameQuery(q.meta) {
				found[m.Table] = p
			}
		}
	}
	q.processed = found
	q.indexed = true
	return q.processed, nil
}
