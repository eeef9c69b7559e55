// Package normalize canonicalises user supplied table names and cleans raw AEMO
// CSV cells
// Table pipeline
// 1 drop invalid UTF-8 and control runes
// 2 NFKC, strip format chars, width fold
// 3 upper case
// 4 trim and drop inner whitespace
package normalize

import (
	"slices"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKC,
			runes.Remove(runes.In(unicode.Cf)), // ZWJ ZWNJ FEFF etc
			width.Fold,
			cases.Upper(language.Und),
		)
	},
}

// Table returns the canonical form of one table name, " price " and "ＰＲＩＣＥ" become PRICE
func Table(s string) string {
	s = Sanitize(s)
	if s == "" {
		return ""
	}
	tr := chainPool.Get().(transform.Transformer)
	ns, _, _ := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	return strings.Join(strings.Fields(ns), "")
}

// Tables canonicalises every name, dropping blanks and duplicates while keeping
// first seen order
func Tables(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		n := Table(s)
		if n == "" || slices.Contains(out, n) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// SplitTables accepts the "one table or a comma separated list" form used by the
// CLI and query strings
func SplitTables(s string) []string {
	return Tables(strings.Split(s, ","))
}
