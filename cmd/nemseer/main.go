// Command nemseer downloads and compiles AEMO MMSDM forecast data from the shell.
//
//	nemseer runtimes   -type P5MIN -fs "2021/01/15 12:00" -fe "2021/01/15 12:30"
//	nemseer download   -type P5MIN -tables REGIONSOLUTION -rs "2021/01/15 12:00" -re "2021/01/15 12:30"
//	nemseer compile    -type P5MIN -tables REGIONSOLUTION -rs ... -re ... -fs ... -fe ...
//	nemseer tables     -type P5MIN -year 2021 -month 1
//	nemseer dateranges
//	nemseer filesize   -type P5MIN -year 2021 -month 1 -table REGIONSOLUTION
//	nemseer version
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"nemseer/internal/core/normalize"
	"nemseer/internal/core/version"
	"nemseer/internal/platform/config"
	"nemseer/internal/platform/logger"
	"nemseer/pkg/nemseer"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, c *nemseer.Client, args []string, out io.Writer) error
}

var commands = []command{
	{"runtimes", "run window covering a forecasted window", runtimes},
	{"download", "fill the raw cache", download},
	{"compile", "compile filtered tables as JSON", compile},
	{"tables", "tables published for a type in a month", tables},
	{"dateranges", "archive months per year", dateRanges},
	{"filesize", "archive size of one table in MB", fileSize},
	{"version", "build info", printVersion},
}

func main() {
	_ = godotenv.Load()
	logger.Init(logger.FromEnv())
	l := logger.Named("nemseer")

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	name := os.Args[1]
	var cmd *command
	for i := range commands {
		if commands[i].name == name {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		usage(os.Stderr)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := nemseer.New(nemseer.FromConfig(config.New()), nemseer.WithLogger(l))
	if err := cmd.run(ctx, client, os.Args[2:], os.Stdout); err != nil {
		l.Error().Err(err).Str("command", name).Msg("failed")
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: nemseer <command> [flags]")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-11s %s\n", c.name, c.usage)
	}
}

// window holds the flags shared by the query commands
type window struct {
	forecastType, tables, rs, re, fs, fe *string
}

func windowFlags(fs *flag.FlagSet) window {
	return window{
		forecastType: fs.String("type", "", "forecast type (P5MIN, PREDISPATCH, PDPASA, STPASA, MTPASA)"),
		tables:       fs.String("tables", "", "comma separated tables"),
		rs:           fs.String("rs", "", "run start yyyy/mm/dd HH:MM"),
		re:           fs.String("re", "", "run end yyyy/mm/dd HH:MM"),
		fs:           fs.String("fs", "", "forecasted start yyyy/mm/dd HH:MM"),
		fe:           fs.String("fe", "", "forecasted end yyyy/mm/dd HH:MM"),
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runtimes(_ context.Context, c *nemseer.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("runtimes", flag.ContinueOnError)
	w := windowFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	rs, re, err := c.GenerateRuntimes(*w.fs, *w.fe, *w.forecastType)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\t%s\n", rs, re)
	return err
}

func download(ctx context.Context, c *nemseer.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	w := windowFlags(fs)
	raw := fs.String("raw-cache", "", "raw cache directory (NEMSEER_RAW_CACHE by default)")
	keep := fs.Bool("keep-csv", false, "keep the extracted CSV next to the parquet")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req := nemseer.DownloadRequest{
		ForecastType:    *w.forecastType,
		Tables:          normalize.SplitTables(*w.tables),
		RawCache:        *raw,
		RunStart:        *w.rs,
		RunEnd:          *w.re,
		ForecastedStart: *w.fs,
		ForecastedEnd:   *w.fe,
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "keep-csv" {
			req.KeepCSV = keep
		}
	})
	st, err := c.DownloadRawData(ctx, req)
	if err != nil {
		return err
	}
	return writeJSON(out, st)
}

func compile(ctx context.Context, c *nemseer.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	w := windowFlags(fs)
	raw := fs.String("raw-cache", "", "raw cache directory (NEMSEER_RAW_CACHE by default)")
	processed := fs.String("processed-cache", "", "processed cache directory (NEMSEER_PROCESSED_CACHE by default)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	data, err := c.CompileData(ctx, nemseer.CompileRequest{
		RunStart:        *w.rs,
		RunEnd:          *w.re,
		ForecastedStart: *w.fs,
		ForecastedEnd:   *w.fe,
		ForecastType:    *w.forecastType,
		Tables:          normalize.SplitTables(*w.tables),
		RawCache:        *raw,
		ProcessedCache:  *processed,
	})
	if err != nil {
		return err
	}
	return writeJSON(out, data)
}

func monthFlags(fs *flag.FlagSet) (forecastType *string, year, month *int) {
	forecastType = fs.String("type", "", "forecast type")
	year = fs.Int("year", 0, "archive year")
	month = fs.Int("month", 0, "archive month 1-12")
	return
}

func tables(ctx context.Context, c *nemseer.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("tables", flag.ContinueOnError)
	ft, year, month := monthFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	names, err := c.GetTables(ctx, *year, time.Month(*month), *ft)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, strings.Join(names, "\n"))
	return err
}

func dateRanges(ctx context.Context, c *nemseer.Client, _ []string, out io.Writer) error {
	m, err := c.GetDataDateRange(ctx)
	if err != nil {
		return err
	}
	return writeJSON(out, m)
}

func fileSize(ctx context.Context, c *nemseer.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("filesize", flag.ContinueOnError)
	ft, year, month := monthFlags(fs)
	table := fs.String("table", "", "table name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	mb, err := c.GetFileSize(ctx, *year, time.Month(*month), *ft, *table)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%.2f\n", mb)
	return err
}

func printVersion(_ context.Context, c *nemseer.Client, _ []string, out io.Writer) error {
	b := version.Info("nemseer")
	b.Archive = c.Archive().BaseURL()
	_, err := fmt.Fprintln(out, b.String())
	return err
}
