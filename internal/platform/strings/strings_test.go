package strings

import "testing"

func TestIfEmpty(t *testing.T) {
	t.Parallel()

	in := []int{1, 2, 3}
	got := IfEmpty(in, []int{9})
	if len(got) != 3 || got[0] != 1 {
		t.Fatalf("IfEmpty returned wrong slice: %#v", got)
	}

	var empty []string
	got2 := IfEmpty(empty, []string{"x"})
	if len(got2) != 1 || got2[0] != "x" {
		t.Fatalf("IfEmpty did not return default: %#v", got2)
	}
}

func TestPtrDeref(t *testing.T) {
	t.Parallel()

	if Ptr("") != nil {
		t.Fatalf("empty string should map to nil")
	}
	p := Ptr("x")
	if p == nil || *p != "x" {
		t.Fatalf("Ptr(x) = %v", p)
	}
	if Deref(nil) != "" || Deref(p) != "x" {
		t.Fatalf("Deref mismatch")
	}
}

func TestStripDigits(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"CONSTRAINT1":         "CONSTRAINT",
		"CONSTRAINTSOLUTION4": "CONSTRAINTSOLUTION",
		"REGIONSUM":           "REGIONSUM",
		"":                    "",
		"P5MIN":               "PMIN",
	}
	for in, want := range cases {
		if got := StripDigits(in); got != want {
			t.Fatalf("StripDigits(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSortedUnique(t *testing.T) {
	t.Parallel()

	got := SortedUnique([]string{"PRICE", "", "LOAD", "PRICE", " ", "CASESOLUTION"})
	want := []string{"CASESOLUTION", "LOAD", "PRICE"}
	if len(got) != len(want) {
		t.Fatalf("SortedUnique = %#v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SortedUnique[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
