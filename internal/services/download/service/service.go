// Package service fetches the archive files a query resolves to and converts them
// into the parquet raw cache
package service

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"

	"nemseer/internal/adapters/columnar"
	"nemseer/internal/adapters/ledger"
	"nemseer/internal/core/query"
	"nemseer/internal/core/resolve"
	perr "nemseer/internal/platform/errors"
	"nemseer/internal/platform/logger"
	"nemseer/internal/services/download/domain"
)

// Config holds downloader options
type Config struct {
	// KeepCSV leaves the extracted <stub>.CSV beside its parquet
	KeepCSV bool
}

// Service implements the downloader
type Service struct {
	Fetch domain.Fetcher
	Codec columnar.Codec
	Cfg   Config
	Log   *logger.Logger
}

// New builds a Service; a nil logger logs as "download"
func New(f domain.Fetcher, codec columnar.Codec, cfg Config, l *logger.Logger) *Service {
	return &Service{Fetch: f, Codec: codec, Cfg: cfg, Log: logger.Or(l, "download")}
}

// errCorrupt marks an archive that could not be read back
var errCorrupt = perr.Integrityf("corrupt archive")

// Run downloads every resolved file of q missing from the raw cache. Files in the
// ledger are skipped and corrupt archives are added to it
func (s *Service) Run(ctx context.Context, q *query.Query) (domain.Stats, error) {
	var st domain.Stats
	files := q.Files()
	all, err := q.CheckAllRawDataInCache()
	if err != nil {
		return st, err
	}
	if all {
		st.Cached = len(files)
		return st, nil
	}

	keys := make([]resolve.FileKey, 0, len(files))
	for k := range files {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	log := logger.Or(s.Log, "download")
	led := ledger.Open(q.FS(), q.RawCache())
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		stub := files[k]
		ok, err := afero.Exists(q.FS(), q.RawPath(stub, ".parquet"))
		if err != nil {
			return st, perr.Wrapf(err, perr.ErrorCodeFilesystem, "stat %s", stub)
		}
		if ok {
			log.Info().Str("stub", stub).Msgf("%s for %d/%d in raw_cache", k.Table, int(k.Month), k.Year)
			st.Cached++
			continue
		}
		bad, err := led.Contains(stub)
		if err != nil {
			return st, err
		}
		if bad {
			log.Warn().Str("stub", stub).Str("ledger", led.Path()).
				Msgf("%s previously found to be invalid/corrupted. Skipping download for this file. "+
					"To retry, remove the line from %s", stub, led.Path())
			st.Skipped++
			continue
		}

		log.Info().Str("stub", stub).Msgf("Downloading %s for %d/%d", k.Table, int(k.Month), k.Year)
		err = s.fetch(ctx, q, k, stub)
		switch {
		case err == nil:
			st.Downloaded++
		case errors.Is(err, errCorrupt):
			log.Error().Err(err).Str("stub", stub).Msgf("%s is corrupted and was added to %s", stub, led.Path())
			if _, lerr := led.Add(stub); lerr != nil {
				return st, lerr
			}
			st.Invalid++
		default:
			return st, err
		}
	}
	return st, nil
}

// fetch downloads one zip to a temp file and converts its single CSV
func (s *Service) fetch(ctx context.Context, q *query.Query, k resolve.FileKey, stub string) (err error) {
	fs := q.FS()
	tmp := q.RawPath(stub, ".zip.part-"+uuid.NewString())
	f, err := fs.Create(tmp)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeFilesystem, "create %s", tmp)
	}
	defer func() {
		if rerr := fs.Remove(tmp); rerr != nil && err == nil {
			err = perr.Wrapf(rerr, perr.ErrorCodeFilesystem, "remove %s", tmp)
		}
	}()

	url, n, err := s.Fetch.Download(ctx, k.Year, k.Month, q.Type(), k.Table, f)
	if cerr := f.Close(); cerr != nil {
		err = multierror.Append(err, cerr).ErrorOrNil()
	}
	if err != nil {
		return err
	}

	zf, err := fs.Open(tmp)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeFilesystem, "open %s", tmp)
	}
	defer func() { _ = zf.Close() }()
	zr, err := zip.NewReader(zf, n)
	if err != nil {
		return perr.Wrapf(errCorrupt, perr.ErrorCodeIntegrity, "%s from %s: %v", stub, url, err)
	}
	if len(zr.File) != 1 || !strings.EqualFold(zr.File[0].Name, stub+".CSV") {
		return perr.Integrityf("Unexpected contents in zipfile from %s", url)
	}
	return s.convert(q, zr.File[0], stub, url)
}

func (s *Service) convert(q *query.Query, zf *zip.File, stub, url string) (err error) {
	rc, err := zf.Open()
	if err != nil {
		return perr.Wrapf(errCorrupt, perr.ErrorCodeIntegrity, "%s from %s: %v", stub, url, err)
	}
	defer func() { _ = rc.Close() }()

	var r io.Reader = rc
	if s.Cfg.KeepCSV {
		csvPath := q.RawPath(stub, ".CSV")
		out, cerr := q.FS().Create(csvPath)
		if cerr != nil {
			return perr.Wrapf(cerr, perr.ErrorCodeFilesystem, "create %s", csvPath)
		}
		defer func() {
			if closeErr := out.Close(); closeErr != nil {
				err = multierror.Append(err, closeErr).ErrorOrNil()
			}
			if err != nil {
				_ = q.FS().Remove(csvPath)
			}
		}()
		r = io.TeeReader(rc, out)
	}

	tbl, rep, err := columnar.ReadAEMOCSV(r)
	if err != nil {
		return perr.Wrapf(errCorrupt, perr.ErrorCodeIntegrity, "%s from %s: %v", stub, url, err)
	}
	if rep.Duplicates > 0 {
		logger.Or(s.Log, "download").Warn().Str("stub", stub).Int("duplicates", rep.Duplicates).
			Msgf("Dropped %d duplicate rows from %s", rep.Duplicates, stub)
	}
	return s.Codec.Write(q.FS(), q.RawPath(stub, ".parquet"), tbl, nil)
}
