package forecast

import (
	"testing"
	"time"
)

func TestParseAndValid(t *testing.T) {
	for _, s := range []string{"P5MIN", "PREDISPATCH", "PDPASA", "STPASA", "MTPASA"} {
		ty, ok := Parse(s)
		if !ok || ty.String() != s {
			t.Fatalf("Parse(%q) = %v, %v", s, ty, ok)
		}
	}
	for s, want := range map[string]Type{"p5min": P5MIN, " PreDispatch ": PREDISPATCH, "mtpasa": MTPASA} {
		if ty, ok := Parse(s); !ok || ty != want {
			t.Fatalf("Parse(%q) = %v, %v", s, ty, ok)
		}
	}
	for _, s := range []string{"", "P 5MIN", "DISPATCH", "PASA"} {
		if _, ok := Parse(s); ok {
			t.Fatalf("Parse(%q) should fail", s)
		}
	}
	if len(Types()) != 5 {
		t.Fatalf("expected 5 types")
	}
	if Names() != "P5MIN, PREDISPATCH, PDPASA, STPASA, MTPASA" {
		t.Fatalf("Names() = %q", Names())
	}
}

func TestColumns(t *testing.T) {
	cases := []struct {
		t          Type
		run, fcast string
	}{
		{P5MIN, "RUN_DATETIME", "INTERVAL_DATETIME"},
		{PREDISPATCH, "PREDISPATCH_RUN_DATETIME", "DATETIME"},
		{PDPASA, "RUN_DATETIME", "INTERVAL_DATETIME"},
		{STPASA, "RUN_DATETIME", "INTERVAL_DATETIME"},
		{MTPASA, "RUN_DATETIME", "DAY"},
	}
	for _, c := range cases {
		if c.t.RunCol() != c.run || c.t.ForecastedCol() != c.fcast {
			t.Fatalf("%s columns = %s/%s", c.t, c.t.RunCol(), c.t.ForecastedCol())
		}
	}
	if P5MIN.Cadence() != 5*time.Minute || STPASA.Cadence() != time.Hour {
		t.Fatalf("unexpected cadence")
	}
}

func TestEnumeration(t *testing.T) {
	if n, ok := P5MIN.EnumerationOf("CONSTRAINTSOLUTION"); !ok || n != 4 {
		t.Fatalf("P5MIN CONSTRAINTSOLUTION = %d, %v", n, ok)
	}
	if n, ok := PREDISPATCH.EnumerationOf("LOAD"); !ok || n != 2 {
		t.Fatalf("PREDISPATCH LOAD = %d, %v", n, ok)
	}
	if _, ok := STPASA.EnumerationOf("CONSTRAINTSOLUTION"); ok {
		t.Fatalf("STPASA has no enumerated tables")
	}
	e := PREDISPATCH.Enumerated()
	e[0].N = 99
	if n, _ := PREDISPATCH.EnumerationOf("CONSTRAINT"); n != 2 {
		t.Fatalf("Enumerated must return a copy")
	}
}

func TestDeprecatedAndAllData(t *testing.T) {
	if !MTPASA.Deprecated("CASESOLUTION") || STPASA.Deprecated("CASESOLUTION") {
		t.Fatalf("deprecated lookup mismatch")
	}
	for _, b := range []string{"CONSTRAINT", "INTERCONNECTORRES", "PRICE", "LOAD", "REGIONSUM"} {
		if !AllData(b) {
			t.Fatalf("%s should route to PREDISP_ALL_DATA", b)
		}
	}
	if AllData("MNSPBIDTRK") {
		t.Fatalf("MNSPBIDTRK is a DATA table")
	}
}

func TestClassify(t *testing.T) {
	cases := map[string]ColumnKind{
		"REGIONID":         KindID,
		"RUNTYPE":          KindType,
		"EFFECTIVEDATE":    KindDatetime,
		"DAY":              KindDatetime,
		"RRP":              KindValue,
		"VERSION_DATETIME": KindDatetime,
	}
	for col, want := range cases {
		if got := Classify(col); got != want {
			t.Fatalf("Classify(%s) = %s, want %s", col, got, want)
		}
	}
	if !IsDatetime("PREDISPATCH_RUN_DATETIME") || IsDatetime("RRP") {
		t.Fatalf("IsDatetime mismatch")
	}
}
