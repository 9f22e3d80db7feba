package facts

import "testing"

func TestFactsBool(t *testing.T) {
	f := Facts{"a": true, "b": false, "c": "true"}

	if !f.Bool("a") {
		t.Error("Bool(a) = false, want true")
	}
	if f.Bool("b") {
		t.Error("Bool(b) = true, want false")
	}
	if f.Bool("c") {
		t.Error("Bool(c) = true, string value must not coerce")
	}
	if f.Bool("missing") {
		t.Error("Bool(missing) = true, want false")
	}
}

func TestFactsNumber(t *testing.T) {
	f := Facts{
		"json":   1250.5,
		"int":    3,
		"int64":  int64(4),
		"string": "5",
	}

	tests := []struct {
		key    string
		want   float64
		wantOK bool
	}{
		{"json", 1250.5, true},
		{"int", 3, true},
		{"int64", 4, true},
		{"string", 0, false},
		{"missing", 0, false},
	}

	for _, tt := range tests {
		got, ok := f.Number(tt.key)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Number(%q) = (%v, %v), want (%v, %v)", tt.key, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestFactsDate(t *testing.T) {
	f := Facts{
		"good":    "2026-03-15",
		"bad":     "15/03/2026",
		"numeric": 20260315,
	}

	if d, ok := f.Date("good"); !ok || d.Year() != 2026 || int(d.Month()) != 3 || d.Day() != 15 {
		t.Errorf("Date(good) = (%v, %v), want 2026-03-15", d, ok)
	}
	if _, ok := f.Date("bad"); ok {
		t.Error("Date(bad) parsed a non-canonical format")
	}
	if _, ok := f.Date("numeric"); ok {
		t.Error("Date(numeric) parsed a number")
	}
	if _, ok := f.Date("missing"); ok {
		t.Error("Date(missing) reported ok")
	}
}
