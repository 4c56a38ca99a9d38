package model

import "time"

// Status is the appointment lifecycle state. An appointment starts out
// pending; cancelled and done are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusDone      Status = "done"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusDone:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusDone
}

// CanTransition reports whether an appointment may move from s to next.
// pending may be confirmed or cancelled; confirmed may only complete to
// done (which happens when a prescription is attached).
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusCancelled
	case StatusConfirmed:
		return next == StatusDone
	}
	return false
}

type Appointment struct {
	ID        string
	PatientID string
	DoctorID  string
	Time      time.Time
	Disease   string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}
