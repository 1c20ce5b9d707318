// Package schedule computes the bookable time slots for a calendar day.
package schedule

import (
	"context"
	"strings"
	"time"
)

// DateLayout is the textual date format users type (day/month/year).
const DateLayout = "02/01/2006"

// dateLayoutShort accepts the same format without zero padding, e.g. 5/1/2026.
const dateLayoutShort = "2/1/2006"

func parseDate(dateStr string, loc *time.Location) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	date, err := time.ParseInLocation(DateLayout, dateStr, loc)
	if err != nil {
		date, err = time.ParseInLocation(dateLayoutShort, dateStr, loc)
	}
	return date, err
}

// Slot is a labeled offer within the daily business window. Index is the
// 1-based display position after exclusions, so the list the user sees is
// always contiguous.
type Slot struct {
	Index int
	Label string
	Start time.Time
}

// BookedTimesLister supplies the stored UTC timestamps of non-cancelled
// appointments inside [from, to).
type BookedTimesLister interface {
	ScheduledBetween(ctx context.Context, from, to time.Time) ([]time.Time, error)
}

// Calendar derives available slots from the business window, the current
// time, and existing bookings. Results are recomputed on every call; nothing
// is cached across turns.
type Calendar struct {
	appointments BookedTimesLister
	loc          *time.Location
	openHour     int
	closeHour    int
	now          func() time.Time
}

// NewCalendar builds a calendar over the given business window. Hours are
// local civil time; one slot per whole hour, closeHour exclusive.
func NewCalendar(appointments BookedTimesLister, loc *time.Location, openHour, closeHour int) *Calendar {
	return NewCalendarWithClock(appointments, loc, openHour, closeHour, time.Now)
}

// NewCalendarWithClock allows injecting the clock for tests.
func NewCalendarWithClock(appointments BookedTimesLister, loc *time.Location, openHour, closeHour int, now func() time.Time) *Calendar {
	if appointments == nil {
		panic("schedule: appointments lister required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Calendar{
		appointments: appointments,
		loc:          loc,
		openHour:     openHour,
		closeHour:    closeHour,
		now:          now,
	}
}

// Location returns the civil timezone the calendar operates in.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// AvailableSlots returns the bookable slots for the given date string.
// Unparsable or past dates yield an empty list, not an error; only a
// storage failure is an error. Excluded are slots already started (for
// today) and slots coinciding with an existing non-cancelled appointment
// that day, regardless of service. Indices are renumbered contiguously.
func (c *Calendar) AvailableSlots(ctx context.Context, dateStr string) ([]Slot, error) {
	date, err := parseDate(dateStr, c.loc)
	if err != nil {
		return nil, nil
	}

	now := c.now().In(c.loc)
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.loc)
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, c.loc)
	if dayStart.Before(todayStart) {
		return nil, nil
	}
	dayEnd := dayStart.AddDate(0, 0, 1)

	booked, err := c.appointments.ScheduledBetween(ctx, dayStart.UTC(), dayEnd.UTC())
	if err != nil {
		return nil, err
	}
	// Compare on local wall-clock labels derived from the stored UTC value.
	taken := make(map[string]struct{}, len(booked))
	for _, t := range booked {
		taken[t.In(c.loc).Format("15:04")] = struct{}{}
	}

	var slots []Slot
	for hour := c.openHour; hour < c.closeHour; hour++ {
		start := time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, c.loc)
		if start.Before(now) {
			continue
		}
		label := start.Format("15:04")
		if _, ok := taken[label]; ok {
			continue
		}
		slots = append(slots, Slot{Index: len(slots) + 1, Label: label, Start: start})
	}
	return slots, nil
}
