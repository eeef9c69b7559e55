package columnar

import (
	"encoding/csv"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"nemseer/internal/core/normalize"
	perr "nemseer/internal/platform/errors"
)

const (
	// SeqNoCol is the PREDISPATCH run sequence column
	SeqNoCol = "PREDISPATCHSEQNO"
	// SeqRunCol is the run datetime derived from SeqNoCol
	SeqRunCol = "PREDISPATCH_RUN_DATETIME"

	// AEMO prefixes every record with I/D, report, table and version
	controlCols = 4
)

// CleanReport holds what the cleaner removed
type CleanReport struct {
	Duplicates int
}

// ReadAEMOCSV parses an MMSDM SQLLoader CSV. The leading C record and the
// trailing END OF REPORT record are dropped as are the four control columns.
// PREDISPATCHSEQNO gains a PREDISPATCH_RUN_DATETIME column and duplicate rows
// are removed
func ReadAEMOCSV(r io.Reader) (*Table, CleanReport, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	if _, err := cr.Read(); err != nil {
		return nil, CleanReport{}, perr.Wrap(err, perr.ErrorCodeIntegrity, "csv is missing its report header")
	}
	header, err := cr.Read()
	if err != nil {
		return nil, CleanReport{}, perr.Wrap(err, perr.ErrorCodeIntegrity, "csv is missing its column header")
	}
	t := NewTable(cleanAll(header)...)

	var last []string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, CleanReport{}, perr.Wrap(err, perr.ErrorCodeIntegrity, "parse csv record")
		}
		if last != nil {
			t.Append(fit(last, len(t.Columns))...)
		}
		last = rec
	}
	if last != nil && !endOfReport(last) {
		t.Append(fit(last, len(t.Columns))...)
	}

	t.DropColumns(controlCols)
	if t.Has(SeqNoCol) {
		j := t.Index(SeqNoCol)
		t.AddColumn(SeqRunCol, func(row []*string) *string {
			if row[j] == nil {
				return nil
			}
			v, ok := SeqNoRunTime(*row[j])
			if !ok {
				return nil
			}
			s := v.Format(layoutSeconds)
			return &s
		})
	}
	rep := CleanReport{Duplicates: t.Dedupe()}
	return t, rep, nil
}

func endOfReport(rec []string) bool {
	if len(rec) == 0 {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(rec[0]), "C") {
		return true
	}
	return strings.Contains(strings.ToUpper(strings.Join(rec, ",")), "END OF REPORT")
}

func fit(rec []string, n int) []string {
	out := make([]string, n)
	for i := 0; i < n && i < len(rec); i++ {
		out[i] = normalize.Sanitize(strings.TrimSpace(rec[i]))
	}
	return out
}

func cleanAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = normalize.Sanitize(strings.TrimSpace(s))
	}
	return out
}

var seqNoRe = regexp.MustCompile(`^(\d{8})(\d{2})$`)

// SeqNoRunTime converts a PREDISPATCHSEQNO (yyyymmdd + period) to its run time.
// Period 1 is the 04:30 run of the trading day
func SeqNoRunTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '.'); i >= 0 && strings.Trim(s[i+1:], "0") == "" {
		s = s[:i]
	}
	m := seqNoRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	day, err := time.Parse("20060102", m[1])
	if err != nil {
		return time.Time{}, false
	}
	n, _ := strconv.Atoi(m[2])
	return day.Add(time.Duration(n-1)*30*time.Minute + 4*time.Hour + 30*time.Minute), true
}

const layoutSeconds = "2006/01/02 15:04:05"

var layouts = []string{layoutSeconds, "2006/01/02 15:04", "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006/01/02"}

// ParseTime parses an AEMO datetime cell, tolerating missing seconds
func ParseTime(s string) (time.Time, bool) {
	s = strings.Trim(strings.TrimSpace(s), `"`)
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
