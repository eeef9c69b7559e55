package columnar

import (
	"testing"

	"github.com/spf13/afero"

	perr "nemseer/internal/platform/errors"
	kit "nemseer/internal/platform/testkit"
)

func TestCodec_RoundTrip(t *testing.T) {
	for _, comp := range []Compression{Snappy, Gzip, Uncompressed} {
		t.Run(string(comp), func(t *testing.T) {
			fs := kit.MemFS()
			tb := NewTable("REGIONID", "RUN DATETIME", "RRP")
			tb.Append("NSW1", "2021/02/01 00:05:00", "50.1")
			tb.Append("VIC1", "", "-3")
			c := Codec{Compression: comp}

			kit.MustNoErr(t, c.Write(fs, "/p/a.parquet", tb, map[string]string{"table": "PRICE"}))
			got, kv, err := c.Read(fs, "/p/a.parquet")
			kit.MustNoErr(t, err)

			if kv["table"] != "PRICE" {
				t.Fatalf("kv = %v", kv)
			}
			if len(got.Columns) != 3 || got.Columns[1] != "RUN DATETIME" {
				t.Fatalf("columns = %v", got.Columns)
			}
			if got.Len() != 2 {
				t.Fatalf("rows = %d", got.Len())
			}
			if v, _ := got.Value(1, "RRP"); v != "-3" {
				t.Fatalf("RRP = %q", v)
			}
			if _, ok := got.Value(1, "RUN DATETIME"); ok {
				t.Fatalf("null should survive the round trip")
			}

			md, err := c.ReadMetadata(fs, "/p/a.parquet")
			kit.MustNoErr(t, err)
			if md["table"] != "PRICE" || md[ColumnsKey] == "" {
				t.Fatalf("metadata = %v", md)
			}

			entries, _ := afero.ReadDir(fs, "/p")
			if len(entries) != 1 {
				t.Fatalf("temp file left behind: %d entries", len(entries))
			}
		})
	}
}

func TestCodec_EmptyTable(t *testing.T) {
	fs := kit.MemFS()
	c := Codec{}
	kit.MustNoErr(t, c.Write(fs, "/p/e.parquet", NewTable("A"), nil))
	got, _, err := c.Read(fs, "/p/e.parquet")
	kit.MustNoErr(t, err)
	if got.Len() != 0 || len(got.Columns) != 1 {
		t.Fatalf("empty table = %+v", got)
	}
}

func TestCodec_Errors(t *testing.T) {
	fs := kit.MemFS()
	kit.MustErrCode(t, Codec{}.Write(fs, "/p/x.parquet", NewTable(), nil), perr.ErrorCodeInvalidArgument)
	kit.MustErrCode(t, Codec{Compression: "LZMA"}.Write(fs, "/p/x.parquet", NewTable("A"), nil), perr.ErrorCodeInvalidArgument)

	_, _, err := Codec{}.Read(fs, "/p/missing.parquet")
	kit.MustErrCode(t, err, perr.ErrorCodeFilesystem)

	kit.MustNoErr(t, afero.WriteFile(fs, "/p/junk.parquet", []byte("not parquet at all"), 0o644))
	_, err = Codec{}.ReadMetadata(fs, "/p/junk.parquet")
	kit.MustErrCode(t, err, perr.ErrorCodeIntegrity)
}
