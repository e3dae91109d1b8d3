package models

import (
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the calendar-date form used in queries, exports and logs.
const DateLayout = "2006-01-02"

// dateLayouts are the row formats accepted from backing stores. Spreadsheet
// exports are inconsistent about this, so several are tried in order.
var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	"02/01/2006",
	"01-02-06",
	"2006/01/02",
	time.RFC3339,
}

// Day truncates a timestamp to UTC midnight. All dataset dates are stored
// at day granularity.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AddDays returns the date n days after t, at day granularity.
func AddDays(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, n)
}

// ParseDay parses a cell into a calendar date. Numeric cells are treated as
// spreadsheet serial dates (days since 1899-12-30).
func ParseDay(cell string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return Day(t), nil
		}
	}
	if serial, err := strconv.ParseFloat(cell, 64); err == nil && serial > 0 {
		epoch := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
		return Day(epoch.AddDate(0, 0, int(serial))), nil
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", cell)
}
