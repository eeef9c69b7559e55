// Package resolve maps run windows and tables to MMSDM archive file names
package resolve

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"time"

	"nemseer/internal/core/forecast"
	pstrings "nemseer/internal/platform/strings"
	ptime "nemseer/internal/platform/time"
)

const (
	// FolderData is the archive folder most tables live in
	FolderData = "DATA"
	// FolderAllData holds PREDISPATCH tables with every forecasted value
	FolderAllData = "PREDISP_ALL_DATA"
)

// FileKey identifies one monthly archive file
type FileKey struct {
	Year  int
	Month time.Month
	Table string
}

func (k FileKey) String() string {
	return fmt.Sprintf("%s %d/%d", k.Table, int(k.Month), k.Year)
}

// Resolve returns the archive file stub for every (month, physical table) the run
// window touches. Logical enumerated tables are expanded first
func Resolve(runStart, runEnd time.Time, t forecast.Type, tables []string) map[FileKey]string {
	physical := EnumerateTables(t, tables)
	out := make(map[FileKey]string, len(physical))
	for _, ym := range Months(runStart, runEnd) {
		for _, tbl := range physical {
			k := FileKey{Year: ym.Year, Month: ym.Month, Table: tbl}
			out[k] = Stub(ym.Year, ym.Month, t, tbl)
		}
	}
	return out
}

// YearMonth is one calendar month
type YearMonth struct {
	Year  int
	Month time.Month
}

// MonthSpan counts the calendar months a window touches, minus one.
// start + span months (day clamped) never passes end; one extra month is counted
// when the window spills into end's month by a non zero remainder
func MonthSpan(start, end time.Time) int {
	m := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	for m > 0 && ptime.AddMonths(start, m).After(end) {
		m--
	}
	shifted := ptime.AddMonths(start, m)
	if shifted.Month() != end.Month() && !ptime.IsMonthStart(end) && end.Sub(shifted) != 0 {
		m++
	}
	return m
}

// Months enumerates the months a window touches, starting at start's month
func Months(start, end time.Time) []YearMonth {
	span := MonthSpan(start, end)
	out := make([]YearMonth, 0, span+1)
	first := ptime.MonthStart(start)
	for i := 0; i <= span; i++ {
		m := ptime.AddMonths(first, i)
		out = append(out, YearMonth{Year: m.Year(), Month: m.Month()})
	}
	return out
}

// EnumerateTables swaps each enumerated logical table for its numbered physical
// tables, keeping the rest as is and the order stable
func EnumerateTables(t forecast.Type, tables []string) []string {
	out := make([]string, 0, len(tables))
	for _, tbl := range tables {
		n, ok := t.EnumerationOf(tbl)
		if !ok {
			out = append(out, tbl)
			continue
		}
		for i := 1; i <= n; i++ {
			out = append(out, tbl+strconv.Itoa(i))
		}
	}
	return compactStable(out)
}

// Logical returns the logical table behind a physical table name
func Logical(t forecast.Type, physical string) string {
	base := pstrings.StripDigits(physical)
	if base != physical {
		if _, ok := t.EnumerationOf(base); ok {
			return base
		}
	}
	return physical
}

// Stub builds the archive file name without extension
func Stub(year int, month time.Month, t forecast.Type, table string) string {
	sep := "_"
	if t == forecast.PREDISPATCH && table != "MNSPBIDTRK" {
		sep = ""
	}
	return fmt.Sprintf("PUBLIC_DVD_%s%s%s_%04d%02d010000", t, sep, table, year, int(month))
}

// Folder returns the archive folder serving the table
func Folder(t forecast.Type, table string) string {
	if t == forecast.PREDISPATCH && forecast.AllData(pstrings.StripDigits(table)) {
		return FolderAllData
	}
	return FolderData
}

// MapFilesToTables groups resolved stubs under the logical table they belong to.
// Stubs within a table are sorted
func MapFilesToTables(files map[FileKey]string, t forecast.Type, logical []string) map[string][]string {
	out := make(map[string][]string, len(logical))
	for _, tbl := range logical {
		out[tbl] = nil
	}
	for k, stub := range files {
		l := Logical(t, k.Table)
		if _, ok := out[l]; ok {
			out[l] = append(out[l], stub)
		}
	}
	for tbl := range out {
		sort.Strings(out[tbl])
	}
	return out
}

func compactStable(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
