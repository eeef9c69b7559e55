package columnar

import (
	"strings"
	"testing"

	perr "nemseer/internal/platform/errors"
	kit "nemseer/internal/platform/testkit"
)

const predispatchCSV = `C,SETP.WORLD,DVD_PREDISPATCHPRICE,AEMO,PUBLIC,2021/03/02,00:00:00,0000000123,DVD,0000000123
I,PREDISPATCH,PRICE,5,PREDISPATCHSEQNO,RUNNO,REGIONID,DATETIME,RRP
D,PREDISPATCH,PRICE,5,2021020101,1,NSW1,"2021/02/01 05:00:00",50.1
D,PREDISPATCH,PRICE,5,2021020101,1,NSW1,"2021/02/01 05:00:00",50.1
D,PREDISPATCH,PRICE,5,2021020148,1,VIC1,"2021/02/02 04:00:00",
C,"END OF REPORT",5
`

func TestReadAEMOCSV(t *testing.T) {
	tb, rep, err := ReadAEMOCSV(strings.NewReader(predispatchCSV))
	kit.MustNoErr(t, err)

	want := []string{"PREDISPATCHSEQNO", "RUNNO", "REGIONID", "DATETIME", "RRP", "PREDISPATCH_RUN_DATETIME"}
	if strings.Join(tb.Columns, ",") != strings.Join(want, ",") {
		t.Fatalf("columns = %v", tb.Columns)
	}
	if rep.Duplicates != 1 || tb.Len() != 2 {
		t.Fatalf("duplicates=%d rows=%d", rep.Duplicates, tb.Len())
	}
	if v, _ := tb.Value(0, SeqRunCol); v != "2021/02/01 04:30:00" {
		t.Fatalf("first run time = %q", v)
	}
	if v, _ := tb.Value(1, SeqRunCol); v != "2021/02/02 04:00:00" {
		t.Fatalf("period 48 run time = %q", v)
	}
	if _, ok := tb.Value(1, "RRP"); ok {
		t.Fatalf("blank RRP should be null")
	}
}

func TestReadAEMOCSV_NoEndOfReport(t *testing.T) {
	in := "C,x\nI,P5MIN,PRICE,1,RUN_DATETIME,RRP\nD,P5MIN,PRICE,1,2021/02/01 00:05:00,10\n"
	tb, _, err := ReadAEMOCSV(strings.NewReader(in))
	kit.MustNoErr(t, err)
	if tb.Len() != 1 || tb.Has(SeqRunCol) {
		t.Fatalf("unexpected table %+v", tb)
	}
}

func TestReadAEMOCSV_Truncated(t *testing.T) {
	_, _, err := ReadAEMOCSV(strings.NewReader("C,only one line\n"))
	kit.MustErrCode(t, err, perr.ErrorCodeIntegrity)
}

func TestSeqNoRunTime(t *testing.T) {
	cases := map[string]string{
		"2021020101":   "2021/02/01 04:30",
		"2021020102":   "2021/02/01 05:00",
		"2021020148":   "2021/02/02 04:00",
		"2021020101.0": "2021/02/01 04:30",
	}
	for in, want := range cases {
		got, ok := SeqNoRunTime(in)
		if !ok || got.Format("2006/01/02 15:04") != want {
			t.Fatalf("SeqNoRunTime(%q) = %v, %v want %s", in, got, ok, want)
		}
	}
	for _, in := range []string{"", "202102011", "x021020101", "2021023201"} {
		if _, ok := SeqNoRunTime(in); ok {
			t.Fatalf("SeqNoRunTime(%q) should fail", in)
		}
	}
}

func TestParseTime(t *testing.T) {
	for _, in := range []string{"2021/02/01 04:30:00", "2021/02/01 04:30", `"2021/02/01 04:30:00"`, "2021-02-01 04:30:00"} {
		got, ok := ParseTime(in)
		if !ok || !got.Equal(kit.DT(t, "2021/02/01 04:30")) {
			t.Fatalf("ParseTime(%q) = %v, %v", in, got, ok)
		}
	}
	if _, ok := ParseTime("yesterday"); ok {
		t.Fatalf("garbage should not parse")
	}
}
