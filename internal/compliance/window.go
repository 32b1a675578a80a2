// Package compliance computes when an outbound message may legally and
// operationally be sent: business-hour windows, weekend policy, and
// holiday calendars, combined into a pure next-compliant-instant function.
package compliance

import (
	"fmt"
	"time"
)

// Window is the compliance rule set for one jurisdiction/region. It is a
// value object injected per campaign, never a module-level constant, so
// multiple regions can run concurrently with different calendars.
type Window struct {
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int

	// ExcludeWeekends skips Saturday and Sunday entirely.
	ExcludeWeekends bool

	// Holidays lists excluded dates. Only year/month/day are compared,
	// in the candidate instant's location.
	Holidays []time.Time
}

// Validate checks that the window describes a non-empty daily interval.
func (w Window) Validate() error {
	if w.StartHour < 0 || w.StartHour > 23 || w.EndHour < 0 || w.EndHour > 24 {
		return fmt.Errorf("compliance window hours out of range: %02d:%02d-%02d:%02d",
			w.StartHour, w.StartMinute, w.EndHour, w.EndMinute)
	}
	if w.Duration() <= 0 {
		return fmt.Errorf("compliance window must end after it starts: %02d:%02d-%02d:%02d",
			w.StartHour, w.StartMinute, w.EndHour, w.EndMinute)
	}
	return nil
}

// Duration returns the length of the daily sending window.
func (w Window) Duration() time.Duration {
	start := time.Duration(w.StartHour)*time.Hour + time.Duration(w.StartMinute)*time.Minute
	end := time.Duration(w.EndHour)*time.Hour + time.Duration(w.EndMinute)*time.Minute
	return end - start
}

// StartOn returns the window's opening instant on the same day as t.
func (w Window) StartOn(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), w.StartHour, w.StartMinute, 0, 0, t.Location())
}

// EndOn returns the window's closing instant on the same day as t.
func (w Window) EndOn(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), w.EndHour, w.EndMinute, 0, 0, t.Location())
}

// IsHoliday reports whether t falls on a listed holiday date.
func (w Window) IsHoliday(t time.Time) bool {
	for _, h := range w.Holidays {
		if t.Year() == h.Year() && t.Month() == h.Month() && t.Day() == h.Day() {
			return true
		}
	}
	return false
}
