package schedule

import (
	"testing"
	"time"
)

func TestParseValid(t *testing.T) {
	raw := []byte(`{"Monday":{"start":540,"end":600},"Friday":{"start":600,"end":1020}}`)
	w, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	win, ok := w.On(time.Monday)
	if !ok {
		t.Fatal("expected Monday window")
	}
	if win.Start != 540 || win.End != 600 {
		t.Fatalf("unexpected Monday window %+v", win)
	}
	if _, ok := w.On(time.Sunday); ok {
		t.Fatal("Sunday should be non-working")
	}
}

func TestValidateRejectsBadWindows(t *testing.T) {
	cases := map[string]Weekly{
		"end before start": {"Monday": {Start: 600, End: 540}},
		"end equals start": {"Tuesday": {Start: 540, End: 540}},
		"negative start":   {"Wednesday": {Start: -15, End: 300}},
		"end past midnight": {"Thursday": {Start: 540, End: 1500}},
		"unknown day":      {"Funday": {Start: 540, End: 600}},
	}
	for name, w := range cases {
		if err := w.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestValidateEmpty(t *testing.T) {
	if err := (Weekly{}).Validate(); err != nil {
		t.Fatalf("empty schedule should be valid: %v", err)
	}
}
