// Package forecast holds the closed set of AEMO forecast types and the static
// lookup tables keyed by them
package forecast

import (
	"slices"
	"strings"
	"time"
)

// Type is an AEMO forecast type
type Type string

const (
	// P5MIN is the 5 minute pre-dispatch forecast
	P5MIN Type = "P5MIN"
	// PREDISPATCH is the 30 minute pre-dispatch forecast
	PREDISPATCH Type = "PREDISPATCH"
	// PDPASA is pre-dispatch projected assessment of system adequacy
	PDPASA Type = "PDPASA"
	// STPASA is short term PASA
	STPASA Type = "STPASA"
	// MTPASA is medium term PASA
	MTPASA Type = "MTPASA"
)

// DatetimeFormat is the user facing datetime layout (yyyy/mm/dd HH:MM)
const DatetimeFormat = "2006/01/02 15:04"

// LedgerFile is the invalid file ledger kept in the raw cache
const LedgerFile = ".invalid_aemo_files.txt"

// Enumerated is a logical table published as N numbered physical tables
type Enumerated struct {
	Table string
	N     int
}

type info struct {
	runCol        string
	forecastedCol string
	cadence       time.Duration
	enumerated    []Enumerated
	deprecated    []string
}

var types = []Type{P5MIN, PREDISPATCH, PDPASA, STPASA, MTPASA}

var table = map[Type]info{
	P5MIN: {
		runCol:        "RUN_DATETIME",
		forecastedCol: "INTERVAL_DATETIME",
		cadence:       5 * time.Minute,
		enumerated:    []Enumerated{{"CONSTRAINTSOLUTION", 4}},
	},
	PREDISPATCH: {
		runCol:        "PREDISPATCH_RUN_DATETIME",
		forecastedCol: "DATETIME",
		cadence:       30 * time.Minute,
		enumerated:    []Enumerated{{"CONSTRAINT", 2}, {"LOAD", 2}},
	},
	PDPASA: {
		runCol:        "RUN_DATETIME",
		forecastedCol: "INTERVAL_DATETIME",
		cadence:       30 * time.Minute,
	},
	STPASA: {
		runCol:        "RUN_DATETIME",
		forecastedCol: "INTERVAL_DATETIME",
		cadence:       time.Hour,
	},
	MTPASA: {
		runCol:        "RUN_DATETIME",
		forecastedCol: "DAY",
		cadence:       24 * time.Hour,
		deprecated:    []string{"CASESOLUTION"},
	},
}

// predispAllData lists PREDISPATCH tables served from PREDISP_ALL_DATA; the DATA
// variants only carry the latest forecasted value
var predispAllData = []string{"CONSTRAINT", "INTERCONNECTORRES", "PRICE", "LOAD", "REGIONSUM"}

// Types returns every forecast type in canonical order
func Types() []Type { return slices.Clone(types) }

// Parse returns the Type named s, ignoring case and surrounding space
func Parse(s string) (Type, bool) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	return t, t.Valid()
}

// Valid reports whether t is a known forecast type
func (t Type) Valid() bool {
	_, ok := table[t]
	return ok
}

func (t Type) String() string { return string(t) }

// RunCol is the column used for run time filtering
func (t Type) RunCol() string { return table[t].runCol }

// ForecastedCol is the column used for forecasted time filtering
func (t Type) ForecastedCol() string { return table[t].forecastedCol }

// Cadence is the nominal interval between runs
func (t Type) Cadence() time.Duration { return table[t].cadence }

// Enumerated returns the enumerated tables for t
func (t Type) Enumerated() []Enumerated { return slices.Clone(table[t].enumerated) }

// EnumerationOf returns how many physical tables back the logical table name
func (t Type) EnumerationOf(name string) (int, bool) {
	for _, e := range table[t].enumerated {
		if e.Table == name {
			return e.N, true
		}
	}
	return 0, false
}

// Deprecated reports whether the table is deprecated for t
func (t Type) Deprecated(name string) bool {
	return slices.Contains(table[t].deprecated, name)
}

// AllData reports whether the PREDISPATCH base table is served from PREDISP_ALL_DATA
func AllData(base string) bool { return slices.Contains(predispAllData, base) }

// Names joins every forecast type for error messages
func Names() string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return strings.Join(out, ", ")
}
