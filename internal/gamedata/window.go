package gamedata

import (
	"fmt"
	"time"
)

// MonthDay is a calendar date without a year.
type MonthDay struct {
	Month time.Month
	Day   int
}

func (d MonthDay) String() string {
	return fmt.Sprintf("%02d-%02d", int(d.Month), d.Day)
}

// Before reports whether d falls earlier in the calendar year than o.
func (d MonthDay) Before(o MonthDay) bool {
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// ParseMonthDay parses "MM-DD". 02-29 is accepted.
func ParseMonthDay(s string) (MonthDay, error) {
	// Year 0 is a leap year.
	t, err := time.Parse("01-02", s)
	if err != nil {
		return MonthDay{}, fmt.Errorf("date %q must be MM-DD: %w", s, err)
	}
	return MonthDay{Month: t.Month(), Day: t.Day()}, nil
}

// Window is an inclusive span of calendar days that recurs every year. A
// window whose End precedes its Start wraps over the new year.
type Window struct {
	Start MonthDay
	End   MonthDay
}

// ParseWindow parses two MM-DD bounds.
func ParseWindow(start, end string) (Window, error) {
	s, err := ParseMonthDay(start)
	if err != nil {
		return Window{}, fmt.Errorf("start: %w", err)
	}
	e, err := ParseMonthDay(end)
	if err != nil {
		return Window{}, fmt.Errorf("end: %w", err)
	}
	return Window{Start: s, End: e}, nil
}

// Wraps reports whether w spans the new year.
func (w Window) Wraps() bool {
	return w.End.Before(w.Start)
}

// Contains reports whether t's calendar day, in t's location, lies in w.
func (w Window) Contains(t time.Time) bool {
	day := MonthDay{Month: t.Month(), Day: t.Day()}
	if w.Wraps() {
		return !day.Before(w.Start) || !w.End.Before(day)
	}
	return !day.Before(w.Start) && !w.End.Before(day)
}

func (w Window) String() string {
	return w.Start.String() + ".." + w.End.String()
}
