package availability

import (
	"testing"
	"time"

	"github.com/careslot/careslot/internal/schedule"
)

func values(slots []Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Value)
	}
	return out
}

func TestSlots_BookedExcluded(t *testing.T) {
	weekly := schedule.Weekly{"Monday": {Start: 540, End: 600}} // 9:00-10:00
	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)         // a future Monday
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	got := values(Slots(weekly, day, []string{"09:15"}, now))
	want := []string{"09:00", "09:30", "09:45"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestSlots_NonWorkingDay(t *testing.T) {
	weekly := schedule.Weekly{"Monday": {Start: 540, End: 600}}
	sunday := time.Date(2026, 9, 6, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	if got := Slots(weekly, sunday, nil, now); len(got) != 0 {
		t.Fatalf("expected no slots on a non-working day, got %v", values(got))
	}
	if got := Slots(schedule.Weekly{}, sunday, nil, now); len(got) != 0 {
		t.Fatalf("expected no slots with an empty schedule, got %v", values(got))
	}
}

func TestSlots_TodayPastFiltered(t *testing.T) {
	weekly := schedule.Weekly{"Monday": {Start: 540, End: 600}}
	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 9, 7, 9, 30, 0, 0, time.UTC) // same Monday, 09:30

	got := values(Slots(weekly, day, nil, now))
	// 09:00 and 09:15 are past; 09:30 is not strictly in the future.
	want := []string{"09:45"}
	if len(got) != 1 || got[0] != want[0] {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSlots_WithinWindowAndOrdered(t *testing.T) {
	weekly := schedule.Weekly{"Tuesday": {Start: 630, End: 720}} // 10:30-12:00
	day := time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	got := Slots(weekly, day, nil, now)
	if len(got) != 6 {
		t.Fatalf("expected 6 slots, got %d", len(got))
	}
	for i, s := range got {
		mins := s.Start.Hour()*60 + s.Start.Minute()
		if mins < 630 || mins >= 720 {
			t.Fatalf("slot %s outside window", s.Value)
		}
		if mins%SlotMinutes != 0 {
			t.Fatalf("slot %s not aligned to %d minutes", s.Value, SlotMinutes)
		}
		if i > 0 && !got[i-1].Start.Before(s.Start) {
			t.Fatal("slots out of order")
		}
	}
	if got[0].Label != "10:30 AM" {
		t.Fatalf("unexpected label %q", got[0].Label)
	}
}
