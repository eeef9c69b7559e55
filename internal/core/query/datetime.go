package query

import (
	"regexp"
	"strconv"
	"time"

	"nemseer/internal/core/forecast"
	perr "nemseer/internal/platform/errors"
)

// yyyy/mm/dd HH:MM with optional :SS, leading zeros optional
var datetimeRe = regexp.MustCompile(`^(\d{4})/(\d{1,2})/(\d{1,2}) (\d{1,2}):(\d{1,2})(?::(\d{1,2}))?$`)

const datetimeMsg = "Datetime invalid. Datetime should be provided as yyyy/mm/dd HH:MM, or yyyy/mm/dd HH:MM:00."

// ParseDatetime parses a user datetime. Seconds, when given, must be zero
func ParseDatetime(s string) (time.Time, error) {
	m := datetimeRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, perr.New(perr.ErrorCodeValidation, datetimeMsg)
	}
	n := make([]int, 6)
	for i := 1; i <= 6; i++ {
		if m[i] == "" {
			continue
		}
		v, err := strconv.Atoi(m[i])
		if err != nil {
			return time.Time{}, perr.New(perr.ErrorCodeValidation, datetimeMsg)
		}
		n[i-1] = v
	}
	y, mo, d, hh, mm, ss := n[0], n[1], n[2], n[3], n[4], n[5]
	if ss != 0 || mo < 1 || mo > 12 || hh > 23 || mm > 59 {
		return time.Time{}, perr.New(perr.ErrorCodeValidation, datetimeMsg)
	}
	t := time.Date(y, time.Month(mo), d, hh, mm, 0, 0, time.UTC)
	// time.Date normalises Feb 30 into March
	if t.Day() != d || int(t.Month()) != mo {
		return time.Time{}, perr.New(perr.ErrorCodeValidation, datetimeMsg)
	}
	return t, nil
}

// FormatDatetime renders t in the canonical yyyy/mm/dd HH:MM layout
func FormatDatetime(t time.Time) string { return t.Format(forecast.DatetimeFormat) }
