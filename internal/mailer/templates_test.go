package mailer

import (
	"strings"
	"testing"
	"time"

	"github.com/careslot/careslot/internal/outbox"
)

func samplePayload() outbox.AppointmentPayload {
	return outbox.AppointmentPayload{
		AppointmentID: "a1",
		PatientName:   "Rahim Uddin",
		PatientEmail:  "rahim@example.org",
		DoctorName:    "Karim Ahmed",
		DoctorEmail:   "karim@example.org",
		Time:          time.Date(2026, 9, 7, 9, 15, 0, 0, time.UTC),
		Disease:       "migraine",
		Status:        "pending",
	}
}

func TestRenderBookedNotifiesBothParties(t *testing.T) {
	msgs := Render(outbox.EventAppointmentBooked, samplePayload())
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].To != "rahim@example.org" || msgs[1].To != "karim@example.org" {
		t.Errorf("unexpected recipients: %s, %s", msgs[0].To, msgs[1].To)
	}
	if !strings.Contains(msgs[1].Body, "migraine") {
		t.Error("doctor email should mention the reason")
	}
}

func TestRenderStatusEventsGoToPatient(t *testing.T) {
	for _, eventType := range []string{
		outbox.EventAppointmentConfirmed,
		outbox.EventAppointmentCancelled,
		outbox.EventAppointmentDone,
		outbox.EventPrescriptionAttached,
	} {
		msgs := Render(eventType, samplePayload())
		if len(msgs) != 1 {
			t.Fatalf("%s: expected 1 message, got %d", eventType, len(msgs))
		}
		if msgs[0].To != "rahim@example.org" {
			t.Errorf("%s: expected patient recipient, got %s", eventType, msgs[0].To)
		}
		if !strings.Contains(msgs[0].Body, "Karim Ahmed") {
			t.Errorf("%s: body should name the doctor", eventType)
		}
	}
}

func TestRenderUnknownEvent(t *testing.T) {
	if msgs := Render("appointment.unknown", samplePayload()); msgs != nil {
		t.Errorf("unknown event should render nothing, got %d messages", len(msgs))
	}
}
