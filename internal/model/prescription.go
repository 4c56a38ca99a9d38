package model

import "time"

// Prescription is attached one-to-one to a confirmed appointment and
// completes it.
type Prescription struct {
	ID            string
	AppointmentID string
	Prescription  string
	Notes         string
	Disease       string
	CreatedAt     time.Time
}
