// Recurring rule dueness is a strategy per repetition type. Each checker
// encapsulates the calendar logic for one frequency, keyed off the rule's
// start date and the date it last posted.

package services

import (
	"fmt"
	"time"

	"hearth/internal/core"
)

// DuenessChecker decides whether a recurring rule should post now. A zero
// lastPosted means the rule has never posted.
type DuenessChecker interface {
	IsDue(lastPosted, now time.Time, startDate core.Date) bool
}

type DailyChecker struct{}

// IsDue returns true if the rule did not post today.
func (DailyChecker) IsDue(lastPosted, now time.Time, _ core.Date) bool {
	if lastPosted.IsZero() {
		return true
	}
	return core.DateOf(lastPosted) != core.DateOf(now)
}

type WeeklyChecker struct{}

// IsDue returns true once 7 or more days have passed since the last post.
func (WeeklyChecker) IsDue(lastPosted, now time.Time, _ core.Date) bool {
	if lastPosted.IsZero() {
		return true
	}
	daysSince := now.Sub(lastPosted).Hours() / 24
	return daysSince >= 7
}

type MonthlyChecker struct{}

// IsDue returns true in a new month once the start date's day of month is
// reached. Short months clamp the target day to their last day.
func (MonthlyChecker) IsDue(lastPosted, now time.Time, startDate core.Date) bool {
	if lastPosted.IsZero() {
		return true
	}
	if lastPosted.Year() == now.Year() && lastPosted.Month() == now.Month() {
		return false
	}
	return now.Day() >= clampDay(startDate.Time().Day(), now)
}

type YearlyChecker struct{}

// IsDue returns true in a new year once the start date's month and day are
// reached.
func (YearlyChecker) IsDue(lastPosted, now time.Time, startDate core.Date) bool {
	if lastPosted.IsZero() {
		return true
	}
	if lastPosted.Year() == now.Year() {
		return false
	}

	start := startDate.Time()
	if now.Month() < start.Month() {
		return false
	}
	if now.Month() == start.Month() {
		return now.Day() >= clampDay(start.Day(), now)
	}
	return true
}

// clampDay caps a target day of month to the length of now's month, so a
// rule anchored on the 31st still fires in February.
func clampDay(targetDay int, now time.Time) int {
	lastDayOfMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if targetDay > lastDayOfMonth {
		return lastDayOfMonth
	}
	return targetDay
}

var duenessStrategies = map[core.RepetitionType]DuenessChecker{
	core.Daily:   DailyChecker{},
	core.Weekly:  WeeklyChecker{},
	core.Monthly: MonthlyChecker{},
	core.Yearly:  YearlyChecker{},
}

// GetDuenessChecker returns the checker for a repetition type.
func GetDuenessChecker(frequency core.RepetitionType) (DuenessChecker, error) {
	checker, ok := duenessStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown repetition type: %s", frequency)
	}
	return checker, nil
}
