package columnar

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	perr "nemseer/internal/platform/errors"
)

// ColumnsKey is the key/value metadata entry holding the original column names
const ColumnsKey = "nemseer.columns"

// Compression names a parquet codec
type Compression string

const (
	// Snappy is the default codec
	Snappy Compression = "SNAPPY"
	// Gzip trades speed for size
	Gzip Compression = "GZIP"
	// Uncompressed disables compression
	Uncompressed Compression = "NONE"
)

// Compressions lists the accepted codec names
var Compressions = []string{string(Snappy), string(Gzip), string(Uncompressed)}

func (c Compression) codec() (parquet.CompressionCodec, error) {
	switch strings.ToUpper(string(c)) {
	case "", string(Snappy):
		return parquet.CompressionCodec_SNAPPY, nil
	case string(Gzip):
		return parquet.CompressionCodec_GZIP, nil
	case string(Uncompressed), "UNCOMPRESSED":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	}
	return 0, perr.InvalidArgf("unsupported parquet compression %q", string(c))
}

// Codec reads and writes tables as parquet files. Every column is an optional
// UTF8 byte array; typing is left to readers
type Codec struct {
	Compression Compression
	// Parallelism is parquet-go's np, 1 when unset
	Parallelism int64
}

func (c Codec) np() int64 {
	if c.Parallelism <= 0 {
		return 1
	}
	return c.Parallelism
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_]`)

func schema(cols []string) []string {
	md := make([]string, len(cols))
	used := map[string]bool{}
	for i, c := range cols {
		name := unsafeName.ReplaceAllString(c, "_")
		if name == "" || used[name] {
			name = fmt.Sprintf("%s_%d", name, i)
		}
		used[name] = true
		md[i] = "name=" + name + ", type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"
	}
	return md
}

// Write stores t at path with kv as file metadata. The file is written beside
// path and renamed into place so readers never see a partial file
func (c Codec) Write(fs afero.Fs, path string, t *Table, kv map[string]string) (err error) {
	if len(t.Columns) == 0 {
		return perr.InvalidArgf("table for %s has no columns", filepath.Base(path))
	}
	codec, err := c.Compression.codec()
	if err != nil {
		return err
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeFilesystem, "mkdir %s", filepath.Dir(path))
	}
	tmp := path + ".part-" + uuid.NewString()
	f, err := createFile(fs, tmp)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeFilesystem, "create %s", tmp)
	}

	var merr *multierror.Error
	defer func() {
		if err != nil {
			_ = fs.Remove(tmp)
		}
	}()

	pw, err := writer.NewCSVWriterFromWriter(schema(t.Columns), f, c.np())
	if err != nil {
		_ = f.Close()
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "parquet schema for %s", filepath.Base(path))
	}
	pw.CompressionType = codec
	for _, row := range t.Rows {
		if werr := pw.WriteString(row); werr != nil {
			merr = multierror.Append(merr, werr)
			break
		}
	}
	meta := map[string]string{ColumnsKey: strings.Join(t.Columns, ",")}
	for k, v := range kv {
		meta[k] = v
	}
	for k, v := range meta {
		pw.Footer.KeyValueMetadata = append(pw.Footer.KeyValueMetadata, &parquet.KeyValue{Key: k, Value: &v})
	}
	if serr := stop(pw); serr != nil {
		merr = multierror.Append(merr, serr)
	}
	if cerr := f.Close(); cerr != nil {
		merr = multierror.Append(merr, cerr)
	}
	if merr.ErrorOrNil() != nil {
		return perr.Wrapf(merr, perr.ErrorCodeFilesystem, "write parquet %s", path)
	}
	if rerr := fs.Rename(tmp, path); rerr != nil {
		return perr.Wrapf(rerr, perr.ErrorCodeFilesystem, "rename %s", tmp)
	}
	return nil
}

// WriteStop can panic on malformed pages
func stop(pw *writer.CSVWriter) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parquet writer panicked during WriteStop: %v", r)
		}
	}()
	return pw.WriteStop()
}

// Read loads the table and its key/value metadata
func (c Codec) Read(fs afero.Fs, path string) (*Table, map[string]string, error) {
	f, pr, err := c.open(fs, path)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = f.Close() }()
	defer pr.ReadStop()

	kv := footerKV(pr.Footer)
	n := pr.GetNumRows()
	ncols := len(pr.SchemaHandler.ValueColumns)
	cols := columnNames(kv, pr.SchemaHandler.ValueColumns)
	t := &Table{Columns: cols, Rows: make([][]*string, n)}
	for i := range t.Rows {
		t.Rows[i] = make([]*string, ncols)
	}
	if n == 0 {
		return t, kv, nil
	}
	for j := 0; j < ncols; j++ {
		vals, _, _, err := pr.ReadColumnByIndex(int64(j), n)
		if err != nil {
			return nil, nil, perr.Wrapf(err, perr.ErrorCodeIntegrity, "read column %s of %s", cols[j], path)
		}
		for i := 0; i < len(vals) && i < int(n); i++ {
			if vals[i] == nil {
				continue
			}
			s := fmt.Sprint(vals[i])
			t.Rows[i][j] = &s
		}
	}
	return t, kv, nil
}

// ReadMetadata returns only the key/value metadata of the file at path
func (c Codec) ReadMetadata(fs afero.Fs, path string) (map[string]string, error) {
	f, pr, err := c.open(fs, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	defer pr.ReadStop()
	return footerKV(pr.Footer), nil
}

var magic = []byte("PAR1")

// open checks the parquet magic at both ends before handing the file to the
// footer reader
func (c Codec) open(fs afero.Fs, path string) (_ *aferoFile, _ *reader.ParquetReader, err error) {
	f, err := openFile(fs, path)
	if err != nil {
		return nil, nil, perr.Wrapf(err, perr.ErrorCodeFilesystem, "open %s", path)
	}
	fail := func(cause error) (*aferoFile, *reader.ParquetReader, error) {
		_ = f.Close()
		return nil, nil, perr.Wrapf(cause, perr.ErrorCodeIntegrity, "%s is not a parquet file", path)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, perr.Wrapf(err, perr.ErrorCodeFilesystem, "stat %s", path)
	}
	if fi.Size() < int64(2*len(magic)+4) {
		return fail(fmt.Errorf("%d bytes", fi.Size()))
	}
	head, tail := make([]byte, len(magic)), make([]byte, len(magic))
	if _, err := f.ReadAt(head, 0); err != nil {
		return fail(err)
	}
	if _, err := f.ReadAt(tail, fi.Size()-int64(len(magic))); err != nil {
		return fail(err)
	}
	if !bytes.Equal(head, magic) || !bytes.Equal(tail, magic) {
		return fail(fmt.Errorf("bad magic"))
	}

	defer func() {
		if r := recover(); r != nil {
			_ = f.Close()
			err = perr.Integrityf("read parquet footer %s: %v", path, r)
		}
	}()
	pr, err := reader.NewParquetColumnReader(f, c.np())
	if err != nil {
		return fail(err)
	}
	return f, pr, nil
}

func footerKV(md *parquet.FileMetaData) map[string]string {
	kv := map[string]string{}
	if md == nil {
		return kv
	}
	for _, e := range md.KeyValueMetadata {
		if e == nil {
			continue
		}
		v := ""
		if e.Value != nil {
			v = *e.Value
		}
		kv[e.Key] = v
	}
	return kv
}

// columnNames prefers the stored original names, falling back to the schema leaves
func columnNames(kv map[string]string, leaves []string) []string {
	if s, ok := kv[ColumnsKey]; ok {
		if names := strings.Split(s, ","); len(names) == len(leaves) {
			return names
		}
	}
	out := make([]string, len(leaves))
	for i, p := range leaves {
		parts := strings.Split(p, "\x01")
		out[i] = parts[len(parts)-1]
	}
	return out
}
