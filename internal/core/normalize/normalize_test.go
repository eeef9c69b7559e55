package normalize

import "testing"

func TestTable(t *testing.T) {
	tests := []struct {
		name string
		in   string
		out  string
	}{
		{"identity", "PRICE", "PRICE"},
		{"upper case", "regionsolution", "REGIONSOLUTION"},
		{"trim and inner space", "  constraint solution \t", "CONSTRAINTSOLUTION"},
		{"width fold fullwidth", "ＰＲＩＣＥ", "PRICE"},
		{"zero widths", "PR\u200bICE\ufeff", "PRICE"},
		{"controls and bad utf8", string([]byte{'L', 0x00, 'O', 0xff, 'A', 0x7f, 'D'}), "LOAD"},
		{"keeps digits and underscores", "constraintsolution1", "CONSTRAINTSOLUTION1"},
		{"empty", "   ", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Table(tc.in); got != tc.out {
				t.Fatalf("Table(%q) = %q, want %q", tc.in, got, tc.out)
			}
		})
	}
}

func TestTables(t *testing.T) {
	got := Tables([]string{"price", "PRICE", "", " load ", "MNSPBIDTRK"})
	want := []string{"PRICE", "LOAD", "MNSPBIDTRK"}
	if len(got) != len(want) {
		t.Fatalf("Tables = %#v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Tables[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if s := SplitTables("price,,load"); len(s) != 2 || s[1] != "LOAD" {
		t.Fatalf("SplitTables = %#v", s)
	}
}

func TestSanitize(t *testing.T) {
	if got := Sanitize("a\tb\r\nc"); got != "a\tb\r\nc" {
		t.Fatalf("whitespace controls should survive: %q", got)
	}
	if got := Sanitize("a\x00b\x1bc\u0085d"); got != "abcd" {
		t.Fatalf("Sanitize = %q", got)
	}
	if got := Sanitize(string([]byte{'x', 0xc3})); got != "x" {
		t.Fatalf("invalid utf8 should drop: %q", got)
	}
}
