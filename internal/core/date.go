package core

import "time"

const dateLayout = "2006-01-02"

// Date is an ISO calendar date stored as a zero-padded "YYYY-MM-DD" string.
// Dates compare lexicographically, which for well-formed values is identical
// to chronological order; Validate guarantees well-formedness at the
// boundary. The empty string is "no date".
type Date string

// Today returns the current date in UTC.
func Today() Date {
	return Date(time.Now().UTC().Format(dateLayout))
}

// DateOf converts a time to its UTC calendar date.
func DateOf(t time.Time) Date {
	return Date(t.UTC().Format(dateLayout))
}

// Validate rejects anything that is not a real, zero-padded calendar date.
func (d Date) Validate() error {
	t, err := time.Parse(dateLayout, string(d))
	if err != nil {
		return ErrInvalidDate
	}
	// time.Parse accepts some non-canonical spellings; round-trip to make
	// sure the stored string is the zero-padded form compare relies on.
	if t.Format(dateLayout) != string(d) {
		return ErrInvalidDate
	}
	return nil
}

// Before reports whether d is strictly earlier than other, by string compare.
func (d Date) Before(other Date) bool {
	return string(d) < string(other)
}

// Time parses the date at midnight UTC. Returns the zero time for invalid
// or empty dates.
func (d Date) Time() time.Time {
	t, err := time.Parse(dateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddDays returns the date shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// DaysBetween returns the signed number of calendar days from a to b.
func DaysBetween(a, b Date) int {
	return int(b.Time().Sub(a.Time()).Hours() / 24)
}
