package mmsdm

import (
	"bytes"
	"context"
	"net/http"
	"reflect"
	"strings"
	"testing"
	"time"

	"nemseer/internal/adapters/mmsdm/mmsdmtest"
	"nemseer/internal/core/forecast"
	perr "nemseer/internal/platform/errors"
	kit "nemseer/internal/platform/testkit"
)

func newTestClient(t *testing.T, a *mmsdmtest.Archive, opts ...Option) (*Client, *int) {
	t.Helper()
	l, _ := kit.BufLogger()
	c := New(append([]Option{WithBaseURL(a.Base()), WithLogger(l)}, opts...)...)
	sleeps := 0
	kit.Swap(t, &c.sleep, func(ctx context.Context, _ time.Duration) error {
		sleeps++
		return ctx.Err()
	})
	return c, &sleeps
}

func TestURLs(t *testing.T) {
	c := New()
	got := c.FileURL(2021, time.February, forecast.P5MIN, "REGIONSOLUTION")
	want := DefaultBaseURL + "2021/MMSDM_2021_02/MMSDM_Historical_Data_SQLLoader/DATA/PUBLIC_DVD_P5MIN_REGIONSOLUTION_202102010000.zip"
	if got != want {
		t.Fatalf("FileURL\n got %s\nwant %s", got, want)
	}
	got = c.FileURL(2021, time.February, forecast.PREDISPATCH, "PRICE")
	kit.MustContain(t, got, "/PREDISP_ALL_DATA/PUBLIC_DVD_PREDISPATCHPRICE_202102010000.zip")

	c = New(WithBaseURL("http://mirror.local/mmsdm"))
	if c.BaseURL() != "http://mirror.local/mmsdm/" {
		t.Fatalf("base url not normalised: %s", c.BaseURL())
	}
}

func TestTables(t *testing.T) {
	a := mmsdmtest.New()
	defer a.Close()
	for _, tbl := range []string{"REGIONSOLUTION", "CONSTRAINTSOLUTION1", "CONSTRAINTSOLUTION2", "INTERCONNECTORSOLN"} {
		a.PutTable(2021, time.January, forecast.P5MIN, tbl, "x")
	}
	a.PutTable(2021, time.January, forecast.PREDISPATCH, "CASESOLUTION", "x")
	a.PutTable(2021, time.January, forecast.PREDISPATCH, "MNSPBIDTRK", "x")
	c, _ := newTestClient(t, a)

	got, err := c.Tables(context.Background(), 2021, time.January, forecast.P5MIN)
	kit.MustNoErr(t, err)
	want := []string{"CONSTRAINTSOLUTION", "INTERCONNECTORSOLN", "REGIONSOLUTION"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("P5MIN tables = %v, want %v", got, want)
	}

	// no PREDISP_ALL_DATA folder this month
	got, err = c.Tables(context.Background(), 2021, time.January, forecast.PREDISPATCH)
	kit.MustNoErr(t, err)
	if !reflect.DeepEqual(got, []string{"CASESOLUTION", "MNSPBIDTRK"}) {
		t.Fatalf("PREDISPATCH tables = %v", got)
	}

	a.PutTable(2021, time.January, forecast.PREDISPATCH, "PRICE", "x")
	got, err = c.Tables(context.Background(), 2021, time.January, forecast.PREDISPATCH)
	kit.MustNoErr(t, err)
	if !reflect.DeepEqual(got, []string{"CASESOLUTION", "MNSPBIDTRK", "PRICE"}) {
		t.Fatalf("PREDISPATCH tables with all data = %v", got)
	}

	_, err = c.Tables(context.Background(), 2021, time.January, forecast.Type("NOPE"))
	kit.MustErrCode(t, err, perr.ErrorCodeValidation)

	_, err = c.Tables(context.Background(), 2030, time.January, forecast.P5MIN)
	kit.MustErrCode(t, err, perr.ErrorCodeNotFound)
}

func TestListingRetries(t *testing.T) {
	a := mmsdmtest.New()
	defer a.Close()
	a.PutTable(2021, time.January, forecast.P5MIN, "REGIONSOLUTION", "x")
	folder := mmsdmtest.FolderPath(2021, time.January, "DATA")
	a.FailNext(folder, http.StatusForbidden, http.StatusServiceUnavailable)

	c, sleeps := newTestClient(t, a)
	got, err := c.Tables(context.Background(), 2021, time.January, forecast.P5MIN)
	kit.MustNoErr(t, err)
	if len(got) != 1 || got[0] != "REGIONSOLUTION" {
		t.Fatalf("tables = %v", got)
	}
	if n := a.Requests(folder); n != 3 {
		t.Fatalf("requests = %d, want 3", n)
	}
	if *sleeps != 2 {
		t.Fatalf("sleeps = %d, want 2", *sleeps)
	}
}

func TestListingGivesUp(t *testing.T) {
	a := mmsdmtest.New()
	defer a.Close()
	a.PutTable(2021, time.January, forecast.P5MIN, "REGIONSOLUTION", "x")
	folder := mmsdmtest.FolderPath(2021, time.January, "DATA")
	a.FailNext(folder, 403, 403, 403)

	c, _ := newTestClient(t, a, WithRetry(0, 2))
	_, err := c.Listing(context.Background(), a.Base()+strings.TrimPrefix(folder, "/"), nil)
	kit.MustErrCode(t, err, perr.ErrorCodeUnavailable)
	if e, _ := perr.As(err); e.Op() != "mmsdm.Listing" {
		t.Fatalf("op = %q", e.Op())
	}
	if n := a.Requests(folder); n != 2 {
		t.Fatalf("requests = %d, want 2", n)
	}

	// not found is final
	_, err = c.Listing(context.Background(), a.Base()+"1999/", nil)
	kit.MustErrCode(t, err, perr.ErrorCodeNotFound)
	if n := a.Requests("/1999/"); n != 1 {
		t.Fatalf("404 retried %d times", n)
	}
}

func TestListingStopsOnCancel(t *testing.T) {
	a := mmsdmtest.New()
	defer a.Close()
	a.FailNext("/", 500, 500, 500, 500)
	c, _ := newTestClient(t, a)
	ctx, cancel := context.WithCancel(context.Background())
	kit.Swap(t, &c.sleep, func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	})
	_, err := c.Listing(ctx, a.Base(), nil)
	if err == nil || !strings.Contains(err.Error(), "canceled") {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestDateRange(t *testing.T) {
	a := mmsdmtest.New()
	defer a.Close()
	a.PutTable(2021, time.November, forecast.P5MIN, "REGIONSOLUTION", "x")
	a.PutTable(2021, time.December, forecast.P5MIN, "REGIONSOLUTION", "x")
	a.PutTable(2022, time.January, forecast.P5MIN, "REGIONSOLUTION", "x")
	c, _ := newTestClient(t, a)

	got, err := c.DateRange(context.Background())
	kit.MustNoErr(t, err)
	want := map[int][]int{2021: {11, 12}, 2022: {1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("date range = %v, want %v", got, want)
	}
	var referer bool
	for _, h := range a.Headers() {
		if h.Get("Referer") == a.Base() {
			referer = true
		}
	}
	if !referer {
		t.Fatalf("year listings should send the archive root as Referer")
	}
}

func TestFileSize(t *testing.T) {
	a := mmsdmtest.New()
	defer a.Close()
	a.Put(mmsdmtest.TablePath(2021, time.January, forecast.P5MIN, "REGIONSOLUTION"), make([]byte, 3*1024*1024/2))
	c, _ := newTestClient(t, a)

	mb, err := c.FileSize(context.Background(), 2021, time.January, forecast.P5MIN, "REGIONSOLUTION")
	kit.MustNoErr(t, err)
	if mb != 1.5 {
		t.Fatalf("size = %v, want 1.5", mb)
	}
	_, err = c.FileSize(context.Background(), 2021, time.January, forecast.P5MIN, "CONSTRAINTSOLUTION1")
	kit.MustErrCode(t, err, perr.ErrorCodeNotFound)
}

func TestRoundMB(t *testing.T) {
	cases := []struct {
		bytes float64
		want  float64
	}{
		{0, 0},
		{1024 * 1024, 1},
		{5242, 0.00},
		{5243, 0.01},
		{10 * 1024 * 1024 * 1.234, 12.34},
	}
	for _, tc := range cases {
		if got := roundMB(tc.bytes); got != tc.want {
			t.Fatalf("roundMB(%v) = %v, want %v", tc.bytes, got, tc.want)
		}
	}
}

func TestHeadersAndAgents(t *testing.T) {
	a := mmsdmtest.New()
	defer a.Close()
	c, _ := newTestClient(t, a, WithUserAgents("agent-a", "agent-b"))
	for i := 0; i < 3; i++ {
		_, err := c.Listing(context.Background(), a.Base(), nil)
		kit.MustNoErr(t, err)
	}
	hs := a.Headers()
	if len(hs) != 3 {
		t.Fatalf("requests = %d", len(hs))
	}
	for i, want := range []string{"agent-a", "agent-b", "agent-a"} {
		if got := hs[i].Get("User-Agent"); got != want {
			t.Fatalf("request %d agent = %q, want %q", i, got, want)
		}
	}
	if hs[0].Get("Accept-Language") == "" || hs[0].Get("Upgrade-Insecure-Requests") != "1" {
		t.Fatalf("browser headers missing: %v", hs[0])
	}
}

func TestDownloadGzip(t *testing.T) {
	a := mmsdmtest.New()
	defer a.Close()
	a.Gzip = true
	body := mmsdmtest.Zip(map[string]string{"PUBLIC_DVD_P5MIN_REGIONSOLUTION_202101010000.CSV": "a,b\n"})
	a.Put(mmsdmtest.TablePath(2021, time.January, forecast.P5MIN, "REGIONSOLUTION"), body)
	c, _ := newTestClient(t, a)

	var buf bytes.Buffer
	url, n, err := c.Download(context.Background(), 2021, time.January, forecast.P5MIN, "REGIONSOLUTION", &buf)
	kit.MustNoErr(t, err)
	kit.MustContain(t, url, "PUBLIC_DVD_P5MIN_REGIONSOLUTION_202101010000.zip")
	if n != int64(len(body)) || !bytes.Equal(buf.Bytes(), body) {
		t.Fatalf("downloaded %d bytes, want %d identical bytes", n, len(body))
	}

	_, _, err = c.Download(context.Background(), 2021, time.January, forecast.P5MIN, "MISSING", &buf)
	kit.MustErrCode(t, err, perr.ErrorCodeNotFound)
}
