package core

import "testing"

func TestParseSignedCents(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"12.34", 1234, true},
		{"12,34", 1234, true},
		{"-12.34", -1234, true},
		{"+5", 500, true},
		{"12.345", 1234, true},
		{"12.346", 1235, true},
		{"-0.01", -1, true},
		{".5", 50, true},
		{"0", 0, false},
		{"0.00", 0, false},
		{"", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"12a", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseSignedCents(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("%q: expected ok, got %v", tc.in, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q: expected error", tc.in)
		}
		if tc.ok && got != tc.want {
			t.Fatalf("%q: got %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestMoneyHelpers(t *testing.T) {
	m := Money{Cents: -2050}
	if m.Units() != -20.50 {
		t.Fatalf("Units() = %v", m.Units())
	}
	if m.Abs() != 2050 {
		t.Fatalf("Abs() = %d", m.Abs())
	}
	if m.Neg().Cents != 2050 {
		t.Fatalf("Neg() = %d", m.Neg().Cents)
	}
}
