// Package models provides the journal's record types.
package models

import "time"

// DateLayout is the calendar-day format used for record dates.
const DateLayout = "2006-01-02"

// FormatDate renders t as a local calendar day in loc.
func FormatDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD calendar day.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// NowMillis returns t as epoch milliseconds, the createdAt resolution.
func NowMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// Tab identifies one of the six panels.
type Tab string

const (
	TabAuto     Tab = "auto"
	TabToday    Tab = "today"
	TabPatterns Tab = "patterns"
	TabJournal  Tab = "journal"
	TabStats    Tab = "stats"
	TabSettings Tab = "settings"
)

// Tabs lists the panels in display order.
var Tabs = []Tab{TabAuto, TabToday, TabPatterns, TabJournal, TabStats, TabSettings}

// Valid reports whether t names a known panel.
func (t Tab) Valid() bool {
	for _, known := range Tabs {
		if t == known {
			return true
		}
	}
	return false
}
