package schedule

import (
	"encoding/json"
	"fmt"
	"time"
)

const MinutesPerDay = 24 * 60

// Window is a working interval within one day, expressed as minutes from
// midnight, half-open [Start, End). 540-600 means 09:00-10:00.
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Weekly maps long weekday names ("Monday") to the working window for that
// day. Days absent from the map are non-working days.
type Weekly map[string]Window

var weekdayNames = map[string]bool{
	"Sunday": true, "Monday": true, "Tuesday": true, "Wednesday": true,
	"Thursday": true, "Friday": true, "Saturday": true,
}

// Parse decodes and validates a schedule submitted as JSON.
func Parse(raw []byte) (Weekly, error) {
	var w Weekly
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("schedule must be a JSON object of weekday ranges: %w", err)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// Validate rejects unknown weekday names and empty or out-of-range windows.
// Window validity is enforced here, at authoring time, so slot generation
// can assume well-formed input.
func (w Weekly) Validate() error {
	for day, win := range w {
		if !weekdayNames[day] {
			return fmt.Errorf("unknown weekday %q", day)
		}
		if win.Start < 0 || win.End > MinutesPerDay {
			return fmt.Errorf("%s: window must lie within 0..%d minutes", day, MinutesPerDay)
		}
		if win.End <= win.Start {
			return fmt.Errorf("%s: window end must be after start", day)
		}
	}
	return nil
}

// On returns the working window for the given weekday, if any.
func (w Weekly) On(day time.Weekday) (Window, bool) {
	win, ok := w[day.String()]
	return win, ok
}
