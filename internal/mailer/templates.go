package mailer

import (
	"fmt"
	"time"

	"github.com/careslot/careslot/internal/outbox"
)

// Message is a rendered email ready to hand to a Sender.
type Message struct {
	To      string
	Subject string
	Body    string
}

const timeLayout = "Monday, 2 Jan 2006 at 3:04 PM"

// Render turns an appointment lifecycle event into the emails it should
// produce. Unknown event types render nothing.
func Render(eventType string, p outbox.AppointmentPayload) []Message {
	when := p.Time.Format(timeLayout)

	switch eventType {
	case outbox.EventAppointmentBooked:
		return []Message{
			{
				To:      p.PatientEmail,
				Subject: "Appointment request received",
				Body: fmt.Sprintf("Hi %s,\n\nYour appointment request with Dr. %s on %s has been received and is awaiting confirmation.\n\nReason: %s\n",
					p.PatientName, p.DoctorName, when, p.Disease),
			},
			{
				To:      p.DoctorEmail,
				Subject: "New appointment request",
				Body: fmt.Sprintf("Dr. %s,\n\n%s has requested an appointment on %s.\n\nReason: %s\n",
					p.DoctorName, p.PatientName, when, p.Disease),
			},
		}
	case outbox.EventAppointmentConfirmed:
		return []Message{{
			To:      p.PatientEmail,
			Subject: "Appointment confirmed",
			Body: fmt.Sprintf("Hi %s,\n\nDr. %s has confirmed your appointment on %s.\n",
				p.PatientName, p.DoctorName, when),
		}}
	case outbox.EventAppointmentCancelled:
		return []Message{{
			To:      p.PatientEmail,
			Subject: "Appointment cancelled",
			Body: fmt.Sprintf("Hi %s,\n\nYour appointment with Dr. %s on %s has been cancelled.\n",
				p.PatientName, p.DoctorName, when),
		}}
	case outbox.EventAppointmentDone:
		return []Message{{
			To:      p.PatientEmail,
			Subject: "Visit complete",
			Body: fmt.Sprintf("Hi %s,\n\nYour visit with Dr. %s on %s is complete. Any prescription is available in your account.\n",
				p.PatientName, p.DoctorName, when),
		}}
	case outbox.EventPrescriptionAttached:
		return []Message{{
			To:      p.PatientEmail,
			Subject: "Prescription available",
			Body: fmt.Sprintf("Hi %s,\n\nDr. %s has issued a prescription for your visit on %s. Log in to view it.\n",
				p.PatientName, p.DoctorName, when),
		}}
	}
	return nil
}

// OTPBody renders the one-time code email used during registration.
func OTPBody(code string, ttl time.Duration) (string, string) {
	subject := "Your verification code"
	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.\n", code, int(ttl.Minutes()))
	return subject, body
}

// ResetBody renders the password reset email.
func ResetBody(link string, ttl time.Duration) (string, string) {
	subject := "Password reset"
	body := fmt.Sprintf("A password reset was requested for your account.\n\nReset link: %s\n\nThe link expires in %d minutes. If you did not request this, ignore this email.\n", link, int(ttl.Minutes()))
	return subject, body
}
