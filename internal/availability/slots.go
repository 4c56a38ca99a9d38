package availability

import (
	"fmt"
	"time"

	"github.com/careslot/careslot/internal/schedule"
)

// SlotMinutes is the fixed slot length. Schedules are expressed in minute
// offsets, so a 60-minute window yields four slots.
const SlotMinutes = 15

type Slot struct {
	Start time.Time
	Value string // "HH:MM", the wire format used in booked-slot sets
	Label string // "9:15 AM", for display
}

// Slots returns the open slot start times for a doctor on day, in
// chronological order. booked holds the "HH:MM" values already taken that
// day. When day is the current day, slots not strictly in the future are
// dropped. The result is recomputed from scratch on every call.
//
// day and now must be in the same location.
func Slots(weekly schedule.Weekly, day time.Time, booked []string, now time.Time) []Slot {
	win, ok := weekly.On(day.Weekday())
	if !ok {
		return nil
	}

	taken := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		taken[b] = struct{}{}
	}

	sameDay := day.Year() == now.Year() && day.YearDay() == now.YearDay()

	var out []Slot
	for t := win.Start; t < win.End; t += SlotMinutes {
		hh, mm := t/60, t%60
		start := time.Date(day.Year(), day.Month(), day.Day(), hh, mm, 0, 0, day.Location())
		if sameDay && !start.After(now) {
			continue
		}
		value := fmt.Sprintf("%02d:%02d", hh, mm)
		if _, dup := taken[value]; dup {
			continue
		}
		out = append(out, Slot{
			Start: start,
			Value: value,
			Label: start.Format("3:04 PM"),
		})
	}
	return out
}
