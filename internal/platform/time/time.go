// Package time contains calendar helpers shared by the resolver and the validity rules
package time

import "time"

// AddMonths adds n calendar months to t, clamping the day to the end of the target month
// (Jan 31 + 1 month is Feb 28 or 29, never Mar 3)
func AddMonths(t time.Time, n int) time.Time {
	y, m := t.Year(), int(t.Month())-1+n
	y += m / 12
	m %= 12
	if m < 0 {
		m += 12
		y--
	}
	d := t.Day()
	if last := DaysIn(y, time.Month(m+1)); d > last {
		d = last
	}
	return time.Date(y, time.Month(m+1), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// AddYears adds n years to t. Feb 29 always lands on Feb 28 of the target year
func AddYears(t time.Time, n int) time.Time {
	d := t.Day()
	if t.Month() == time.February && d == 29 {
		d = 28
	}
	return time.Date(t.Year()+n, t.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// DaysIn returns the number of days in month m of year y
func DaysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AtClock returns t's date at hh:mm:00
func AtClock(t time.Time, hh, mm int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hh, mm, 0, 0, t.Location())
}

// MonthStart returns 00:00 on the first day of t's month
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// IsMonthStart reports whether t is exactly 00:00 on day 1
func IsMonthStart(t time.Time) bool {
	return t.Day() == 1 && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}
