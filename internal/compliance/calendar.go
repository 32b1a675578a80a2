package compliance

import "time"

// maxAdvances bounds the search for a compliant day. Malformed holiday data
// (e.g. every day of the year listed) must not loop forever; after a full
// year of advances the candidate is returned as-is.
const maxAdvances = 366

// NextCompliantInstant returns the earliest instant >= candidate that falls
// inside the window: within [start, end) of the business day, not on an
// excluded weekend, not on a holiday. A compliant instant maps to itself.
func NextCompliantInstant(candidate time.Time, w Window) time.Time {
	t := candidate
	for i := 0; i < maxAdvances; i++ {
		if w.ExcludeWeekends && (t.Weekday() == time.Saturday || t.Weekday() == time.Sunday) {
			t = w.StartOn(t.AddDate(0, 0, 1))
			continue
		}
		if w.IsHoliday(t) {
			t = w.StartOn(t.AddDate(0, 0, 1))
			continue
		}
		if t.Before(w.StartOn(t)) {
			t = w.StartOn(t)
			continue
		}
		if !t.Before(w.EndOn(t)) {
			t = w.StartOn(t.AddDate(0, 0, 1))
			continue
		}
		return t
	}
	return t
}

// USHolidays returns the US holiday dates observed by the default sending
// calendar for the given year. Floating holidays are computed; the list is
// ordered by date.
func USHolidays(year int) []time.Time {
	day := func(month time.Month, d int) time.Time {
		return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
	}

	thanksgiving := nthWeekdayInMonth(year, time.November, time.Thursday, 4)

	holidays := []time.Time{
		day(time.January, 1), // New Year's Day
		nthWeekdayInMonth(year, time.January, time.Monday, 3),  // MLK Day
		nthWeekdayInMonth(year, time.February, time.Monday, 3), // Presidents' Day
		lastWeekdayInMonth(year, time.May, time.Monday),        // Memorial Day
		day(time.July, 4), // Independence Day
		nthWeekdayInMonth(year, time.September, time.Monday, 1), // Labor Day
		thanksgiving,
		thanksgiving.AddDate(0, 0, 1), // day after Thanksgiving
		day(time.December, 24),        // Christmas Eve
		day(time.December, 25),        // Christmas
		day(time.December, 31),        // New Year's Eve
	}
	return holidays
}

func nthWeekdayInMonth(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	count := 0
	for d := 1; d <= 31; d++ {
		candidate := time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
		if candidate.Month() != month {
			break
		}
		if candidate.Weekday() == weekday {
			count++
			if count == n {
				return candidate
			}
		}
	}
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

func lastWeekdayInMonth(year int, month time.Month, weekday time.Weekday) time.Time {
	var last time.Time
	for d := 1; d <= 31; d++ {
		candidate := time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
		if candidate.Month() != month {
			break
		}
		if candidate.Weekday() == weekday {
			last = candidate
		}
	}
	return last
}
