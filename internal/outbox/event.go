package outbox

import (
	"encoding/json"
	"time"
)

// Event types double as Kafka topic names.
const (
	EventAppointmentBooked    = "appointment.booked"
	EventAppointmentConfirmed = "appointment.confirmed"
	EventAppointmentCancelled = "appointment.cancelled"
	EventAppointmentDone      = "appointment.done"
	EventPrescriptionAttached = "prescription.attached"
)

type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// AppointmentPayload is the envelope body for all appointment lifecycle
// events; the mailer renders emails from it.
type AppointmentPayload struct {
	AppointmentID string    `json:"appointment_id"`
	PatientName   string    `json:"patient_name"`
	PatientEmail  string    `json:"patient_email"`
	DoctorName    string    `json:"doctor_name"`
	DoctorEmail   string    `json:"doctor_email"`
	Time          time.Time `json:"appointment_time"`
	Disease       string    `json:"disease"`
	Status        string    `json:"status"`
}

func NewAppointmentEvent(eventType string, p AppointmentPayload) (Event, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "appointment",
		AggregateID:   p.AppointmentID,
		EventType:     eventType,
		Payload:       raw,
	}, nil
}
