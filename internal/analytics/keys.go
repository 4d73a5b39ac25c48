package analytics

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the calendar date format used in keys and queries.
	DateLayout = "2006-01-02"
	// MonthLayout is the year-month format used for monthly queries.
	MonthLayout = "2006-01"

	// RecentCap bounds the recent-events ring.
	RecentCap = 100
	// RecentQueryLimit is how many ring entries a stats query returns.
	RecentQueryLimit = 20
)

const keyPrefix = "visitors"

func dailyKey(date string) string { return keyPrefix + ":" + date }

func monthlyKey(month string) string { return keyPrefix + ":month:" + month }

func countryKey(date, country string) string {
	return keyPrefix + ":country:" + date + ":" + country
}

func referrerKey(date, referrer string) string {
	return keyPrefix + ":referrer:" + date + ":" + referrer
}

// countriesSetKey indexes the country values seen on date.
func countriesSetKey(date string) string { return keyPrefix + ":countries:" + date }

// referrersSetKey indexes the referrer hosts seen on date.
func referrersSetKey(date string) string { return keyPrefix + ":referrers:" + date }

func recentKey() string { return keyPrefix + ":recent" }

func detailKey(date string) string { return keyPrefix + ":detail:" + date }

// Period selects the granularity of a stats query.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod maps a query parameter onto a Period. An empty value means day.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "day":
		return PeriodDay, nil
	case "month":
		return PeriodMonth, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
}

// DaysInMonth returns the number of calendar days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// FormatDate renders t as a UTC calendar date.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDay validates a YYYY-MM-DD date.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// ParseMonth accepts a year-month or a full date and returns the first day
// of that month.
func ParseMonth(s string) (time.Time, error) {
	if len(s) >= len(MonthLayout) {
		if t, err := time.Parse(MonthLayout, s[:len(MonthLayout)]); err == nil {
			if len(s) == len(MonthLayout) {
				return t, nil
			}
			if _, err := time.Parse(DateLayout, s); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}
