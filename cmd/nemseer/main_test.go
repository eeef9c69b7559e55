package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"nemseer/internal/adapters/mmsdm/mmsdmtest"
	"nemseer/internal/core/forecast"
	perr "nemseer/internal/platform/errors"
	kit "nemseer/internal/platform/testkit"
	"nemseer/pkg/nemseer"
)

func testClient(t *testing.T) *nemseer.Client {
	t.Helper()
	a := mmsdmtest.New()
	t.Cleanup(a.Close)
	a.PutTable(2021, time.January, forecast.P5MIN, "REGIONSOLUTION", mmsdmtest.CSV(forecast.P5MIN, "REGIONSOLUTION",
		[]string{"RUN_DATETIME", "INTERVAL_DATETIME", "RRP"},
		[]string{"2021/01/15 12:00:00", "2021/01/15 12:05:00", "41"},
	))
	opts := nemseer.DefaultOptions()
	opts.ArchiveURL = a.Base()
	opts.RawCache = "/raw"
	l, _ := kit.BufLogger()
	return nemseer.New(opts, nemseer.WithFS(kit.MemFS()), nemseer.WithLogger(l))
}

func TestCommands(t *testing.T) {
	c := testClient(t)
	var out bytes.Buffer
	kit.MustNoErr(t, runtimes(context.Background(), c,
		[]string{"-type", "P5MIN", "-fs", "2021/01/15 12:00", "-fe", "2021/01/15 12:30"}, &out))
	if out.String() != "2021/01/15 11:05\t2021/01/15 12:30\n" {
		t.Fatalf("runtimes = %q", out.String())
	}

	out.Reset()
	kit.MustNoErr(t, tables(context.Background(), c, []string{"-type", "P5MIN", "-year", "2021", "-month", "1"}, &out))
	if out.String() != "REGIONSOLUTION\n" {
		t.Fatalf("tables = %q", out.String())
	}

	out.Reset()
	kit.MustNoErr(t, download(context.Background(), c,
		[]string{"-type", "P5MIN", "-tables", "regionsolution", "-rs", "2021/01/15 12:00", "-re", "2021/01/15 12:00"}, &out))
	kit.MustContain(t, out.String(), `"downloaded": 1`)

	out.Reset()
	kit.MustNoErr(t, printVersion(context.Background(), c, nil, &out))
	kit.MustContain(t, out.String(), "nemseer ")
}

func TestCommandErrors(t *testing.T) {
	c := testClient(t)
	var out bytes.Buffer
	err := runtimes(context.Background(), c, []string{"-type", "NOPE", "-fs", "2021/01/15 12:00", "-fe", "2021/01/15 12:30"}, &out)
	kit.MustErrCode(t, err, perr.ErrorCodeValidation)

	err = download(context.Background(), c, []string{"-type", "P5MIN", "-tables", "REGIONSOLUTION", "-rs", "2021/01/15 12:00"}, &out)
	kit.MustErrCode(t, err, perr.ErrorCodeValidation)

	err = tables(context.Background(), c, []string{"-type", "P5MIN", "-year", "2021"}, &out)
	kit.MustErrCode(t, err, perr.ErrorCodeInvalidArgument)
	err = fileSize(context.Background(), c, []string{"-type", "P5MIN", "-year", "2021", "-month", "13", "-table", "REGIONSOLUTION"}, &out)
	kit.MustErrCode(t, err, perr.ErrorCodeInvalidArgument)
}
