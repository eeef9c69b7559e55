// Package strings provides small string and slice helpers
package strings

import (
	"slices"
	std "strings"
)

// IfEmpty returns def if in is empty, otherwise returns in
func IfEmpty[T any](in []T, def []T) []T {
	if len(in) == 0 {
		return def
	}
	return in
}

// Ptr returns a pointer to s, or nil if s is empty
// parquet writers take nil as a null cell
func Ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns "" if ps is nil, else *ps.
func Deref(ps *string) string {
	if ps == nil {
		return ""
	}
	return *ps
}

// StripDigits removes every ASCII digit, CONSTRAINT1 becomes CONSTRAINT
func StripDigits(s string) string {
	return std.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return -1
		}
		return r
	}, s)
}

// SortedUnique returns a sorted copy of in without duplicates or blanks
func SortedUnique(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if std.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
