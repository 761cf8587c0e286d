package core

import "testing"

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{"2024-01-05", true},
		{"2024-12-31", true},
		{"2024-1-5", false}, // not zero-padded
		{"2024-02-30", false},
		{"20240105", false},
		{"", false},
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateCompare(t *testing.T) {
	if !Date("2024-01-05").Before("2024-01-06") {
		t.Fatalf("expected 01-05 before 01-06")
	}
	if Date("2024-01-05").Before("2024-01-05") {
		t.Fatalf("equal dates are not before each other")
	}
	// Lexicographic order holds across month and year boundaries for
	// zero-padded strings.
	if !Date("2023-12-31").Before("2024-01-01") {
		t.Fatalf("expected year boundary ordering")
	}
}

func TestDaysBetween(t *testing.T) {
	cases := []struct {
		a, b Date
		want int
	}{
		{"2024-01-10", "2024-01-12", 2},
		{"2024-01-12", "2024-01-10", -2},
		{"2024-02-28", "2024-03-01", 2}, // leap year
		{"2024-01-10", "2024-01-10", 0},
	}
	for i, tc := range cases {
		if got := DaysBetween(tc.a, tc.b); got != tc.want {
			t.Fatalf("case %d: got %d, want %d", i, got, tc.want)
		}
	}
}

func TestAddDays(t *testing.T) {
	if got := Date("2024-01-30").AddDays(2); got != "2024-02-01" {
		t.Fatalf("got %s", got)
	}
	if got := Date("2024-01-02").AddDays(-2); got != "2023-12-31" {
		t.Fatalf("got %s", got)
	}
}
