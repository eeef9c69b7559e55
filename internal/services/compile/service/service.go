// Package service compiles raw cache files into one filtered table per requested
// table and keeps the processed cache
package service

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/afero"

	"nemseer/internal/adapters/columnar"
	"nemseer/internal/adapters/ledger"
	"nemseer/internal/core/query"
	perr "nemseer/internal/platform/errors"
	"nemseer/internal/platform/logger"
	pstrings "nemseer/internal/platform/strings"
)

const nameLayout = "20060102T1504"

// Service implements the compiler
type Service struct {
	Codec columnar.Codec
	Log   *logger.Logger
}

// New builds a Service; a nil logger logs as "compile"
func New(codec columnar.Codec, l *logger.Logger) *Service {
	return &Service{Codec: codec, Log: logger.Or(l, "compile")}
}

// ProcessedName is the processed cache file name of one table of q
func ProcessedName(q *query.Query, table string) string {
	return fmt.Sprintf("%s_%s_r%s_%s_f%s_%s.parquet", q.Type(), table,
		q.RunStart().Format(nameLayout), q.RunEnd().Format(nameLayout),
		q.ForecastedStart().Format(nameLayout), q.ForecastedEnd().Format(nameLayout))
}

// Run returns one table per requested table. Tables already in the processed cache
// are read from it; the rest are compiled from the raw cache and, when q has a
// processed cache, written to it
func (s *Service) Run(ctx context.Context, q *query.Query) (map[string]*columnar.Table, error) {
	log := logger.Or(s.Log, "compile")
	found := map[string]string{}
	if q.ProcessedCache() != "" {
		var err error
		if found, err = q.FindTableQueriesInProcessedCache(); err != nil {
			return nil, err
		}
	}
	invalid, err := ledger.Open(q.FS(), q.RawCache()).Stubs()
	if err != nil {
		return nil, err
	}

	byTable := q.FilesByTable()
	out := make(map[string]*columnar.Table, len(q.RequestedTables()))
	for _, table := range q.RequestedTables() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if p, ok := found[table]; ok {
			tbl, _, err := s.Codec.Read(q.FS(), p)
			if err != nil {
				return nil, err
			}
			log.Info().Str("table", table).Str("file", p).Msgf("Loaded %s from processed_cache", table)
			out[table] = tbl
			continue
		}

		tbl, err := s.compile(q, table, byTable[table], invalid, log)
		if err != nil {
			return nil, err
		}
		out[table] = tbl
		if q.ProcessedCache() != "" {
			p := filepath.Join(q.ProcessedCache(), ProcessedName(q, table))
			if err := s.Codec.Write(q.FS(), p, tbl, q.Metadata().WithTable(table).Map()); err != nil {
				return nil, err
			}
			log.Info().Str("table", table).Str("file", p).Msgf("Wrote %s to processed_cache", table)
		}
	}
	return out, nil
}

func (s *Service) compile(q *query.Query, table string, stubs, invalid []string, log *logger.Logger) (*columnar.Table, error) {
	var valid, skipped []string
	for _, stub := range stubs {
		if slices.Contains(invalid, stub) {
			skipped = append(skipped, stub)
			continue
		}
		valid = append(valid, stub)
	}
	if len(valid) == 0 {
		return nil, perr.WithField(perr.Integrityf("All files for %s are listed as invalid/corrupted in %s",
			table, ledger.Open(q.FS(), q.RawCache()).Path()), "tables")
	}
	if len(skipped) > 0 {
		log.Warn().Strs("stubs", skipped).Str("table", table).
			Msgf("%d of %d files for %s are invalid/corrupted and were excluded", len(skipped), len(stubs), table)
	}

	parts := make([]*columnar.Table, 0, len(valid))
	for _, stub := range valid {
		p := q.RawPath(stub, ".parquet")
		ok, err := afero.Exists(q.FS(), p)
		if err != nil {
			return nil, perr.WithOp(perr.Wrapf(err, perr.ErrorCodeFilesystem, "stat %s", p), "compile.Raw")
		}
		if !ok {
			return nil, perr.NotFoundf("%s.parquet is not in raw_cache %s; download the raw data first", stub, q.RawCache())
		}
		t, _, err := s.Codec.Read(q.FS(), p)
		if err != nil {
			return nil, err
		}
		parts = append(parts, t)
	}
	tbl := columnar.Concat(parts...)

	ft := q.Type()
	filterWindow(tbl, ft.RunCol(), q.RunStart(), q.RunEnd())
	filterWindow(tbl, ft.ForecastedCol(), q.ForecastedStart(), q.ForecastedEnd())
	if n := tbl.Dedupe(); n > 0 {
		log.Info().Str("table", table).Int("duplicates", n).Msgf("Dropped %d duplicate rows from %s", n, table)
	}
	log.Info().Str("table", table).Int("rows", tbl.Len()).Msgf("Compiled %s", table)
	return tbl, nil
}

// filterWindow keeps rows whose col lies in [start, end]; absent columns are not filtered
func filterWindow(t *columnar.Table, col string, start, end time.Time) {
	j := t.Index(col)
	if j < 0 {
		return
	}
	t.Filter(func(row []*string) bool {
		v, ok := columnar.ParseTime(pstrings.Deref(row[j]))
		return ok && !v.Before(start) && !v.After(end)
	})
}
