// Package calendar produces the exchange trading days the daily driver iterates.
package calendar

import (
	"time"
)

// Calendar yields ascending, duplicate-free trading dates within [start, end].
type Calendar interface {
	TradingDates(start, end time.Time) []time.Time
}

// NYSE excludes weekends and the exchange's full-day holidays.
type NYSE struct{}

// TradingDates returns midnight-UTC dates for every session in [start, end].
func (NYSE) TradingDates(start, end time.Time) []time.Time {
	start, end = Day(start), Day(end)
	if end.Before(start) {
		return nil
	}
	holidays := make(map[time.Time]struct{})
	for y := start.Year(); y <= end.Year(); y++ {
		for _, h := range Holidays(y) {
			holidays[h] = struct{}{}
		}
	}

	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		if _, ok := holidays[d]; ok {
			continue
		}
		out = append(out, d)
	}
	return out
}

// IsTradingDay reports whether d is a session.
func (c NYSE) IsTradingDay(d time.Time) bool {
	return len(c.TradingDates(d, d)) == 1
}

// Window returns the trading dates from months before end through end.
func Window(c Calendar, end time.Time, months int) []time.Time {
	if months <= 0 {
		months = 1
	}
	end = Day(end)
	return c.TradingDates(end.AddDate(0, -months, 0), end)
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Holidays lists the observed full-day closures for a year.
func Holidays(year int) []time.Time {
	days := []time.Time{
		newYear(year),
		nthWeekday(year, time.January, time.Monday, 3),
		nthWeekday(year, time.February, time.Monday, 3),
		easter(year).AddDate(0, 0, -2),
		lastWeekday(year, time.May, time.Monday),
		observed(date(year, time.July, 4)),
		nthWeekday(year, time.September, time.Monday, 1),
		nthWeekday(year, time.November, time.Thursday, 4),
		observed(date(year, time.December, 25)),
	}
	if year >= 2022 {
		days = append(days, observed(date(year, time.June, 19)))
	}
	return days
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Saturday holidays close the Friday before, Sunday ones the Monday after.
func observed(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

// New Year's Day on a Saturday is not made up on the prior Friday.
func newYear(y int) time.Time {
	d := date(y, time.January, 1)
	if d.Weekday() == time.Sunday {
		return d.AddDate(0, 0, 1)
	}
	return d
}

func nthWeekday(y int, m time.Month, wd time.Weekday, n int) time.Time {
	d := date(y, m, 1)
	offset := (int(wd) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset+7*(n-1))
}

func lastWeekday(y int, m time.Month, wd time.Weekday) time.Time {
	d := date(y, m+1, 1).AddDate(0, 0, -1)
	offset := (int(d.Weekday()) - int(wd) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// easter is the Gregorian Easter Sunday (anonymous algorithm).
func easter(y int) time.Time {
	a := y % 19
	b, c := y/100, y%100
	d, e := b/4, b%4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i, k := c/4, c%4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return date(y, time.Month(month), day)
}
