package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/careslot/careslot/internal/availability"
	"github.com/careslot/careslot/internal/model"
	"github.com/careslot/careslot/internal/outbox"
	"github.com/careslot/careslot/internal/policy"
	"github.com/careslot/careslot/internal/storage"
)

// AppointmentHandler serves booking, status transitions and the slot
// queries that drive the booking screen.
type AppointmentHandler struct {
	appointments *storage.AppointmentRepository
	users        *storage.UserRepository
	doctors      *storage.DoctorRepository
	outbox       *outbox.Repository
	now          func() time.Time
}

func NewAppointmentHandler(appointments *storage.AppointmentRepository, users *storage.UserRepository, doctors *storage.DoctorRepository, outboxRepo *outbox.Repository) *AppointmentHandler {
	return &AppointmentHandler{
		appointments: appointments,
		users:        users,
		doctors:      doctors,
		outbox:       outboxRepo,
		now:          time.Now,
	}
}

type bookRequest struct {
	DoctorID string `json:"doctor_id"`
	Time     string `json:"appointment_time"`
	Disease  string `json:"disease"`
}

func (h *AppointmentHandler) Add(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	if !allow(actor, policy.ActionBookAppointment, true) {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Disease = strings.TrimSpace(req.Disease)
	if err := validateDisease(req.Disease); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	when, err := time.Parse(time.RFC3339, req.Time)
	if err != nil {
		writeError(w, http.StatusBadRequest, "appointment_time must be RFC 3339")
		return
	}
	if !when.After(h.now()) {
		writeError(w, http.StatusBadRequest, "appointment_time must be in the future")
		return
	}
	if when.Minute()%availability.SlotMinutes != 0 || when.Second() != 0 || when.Nanosecond() != 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("appointment_time must align to %d-minute slots", availability.SlotMinutes))
		return
	}

	ctx := r.Context()
	doc, err := h.doctors.GetByID(ctx, req.DoctorID)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "doctor not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load doctor")
		return
	}
	if !doc.Available {
		writeError(w, http.StatusConflict, "doctor is not accepting appointments")
		return
	}

	win, working := doc.Schedule.On(when.Weekday())
	minute := when.Hour()*60 + when.Minute()
	if !working || minute < win.Start || minute >= win.End {
		writeError(w, http.StatusBadRequest, "appointment_time is outside the doctor's working hours")
		return
	}

	patient, err := h.users.GetByID(ctx, actor.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load patient")
		return
	}

	tx, err := h.appointments.Begin(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start transaction")
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := h.appointments.CreateTx(ctx, tx, model.Appointment{
		PatientID: patient.ID,
		DoctorID:  doc.ID,
		Time:      when,
		Disease:   req.Disease,
		Status:    model.StatusPending,
	})
	if err != nil {
		if storage.IsConflict(err) {
			writeError(w, http.StatusConflict, "slot is already booked")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create appointment")
		return
	}

	evt, err := outbox.NewAppointmentEvent(outbox.EventAppointmentBooked, appointmentPayload(appt, patient, doc))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build event")
		return
	}
	if err := h.outbox.Insert(ctx, tx, evt); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to enqueue notification")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		if storage.IsConflict(err) {
			writeError(w, http.StatusConflict, "slot is already booked")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to commit transaction")
		return
	}

	writeJSON(w, http.StatusCreated, appointmentResponse(appt))
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus moves an appointment along pending -> confirmed -> done,
// or to cancelled. Doctors act only on their own appointments; a row
// belonging to another doctor reads as missing.
func (h *AppointmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	actor, _ := ActorFromContext(r.Context())

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	next := model.Status(strings.ToLower(strings.TrimSpace(req.Status)))
	if !next.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	ctx := r.Context()
	tx, err := h.appointments.Begin(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start transaction")
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var appt model.Appointment
	if allow(actor, policy.ActionTransitionStatus, false) {
		appt, err = h.appointments.GetForUpdate(ctx, tx, id)
	} else if allow(actor, policy.ActionTransitionStatus, true) {
		appt, err = h.appointments.GetForDoctorForUpdate(ctx, tx, id, actor.ID)
	} else {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "appointment not found or not allowed")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load appointment")
		return
	}

	if !appt.Status.CanTransition(next) {
		writeError(w, http.StatusConflict, fmt.Sprintf("cannot transition from %s to %s", appt.Status, next))
		return
	}

	updated, err := h.appointments.UpdateStatusTx(ctx, tx, appt.ID, next)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update status")
		return
	}

	if eventType := statusEventType(next); eventType != "" {
		patient, doc, err := h.participants(ctx, updated)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load participants")
			return
		}
		evt, err := outbox.NewAppointmentEvent(eventType, appointmentPayload(updated, patient, doc))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to build event")
			return
		}
		if err := h.outbox.Insert(ctx, tx, evt); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to enqueue notification")
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to commit transaction")
		return
	}

	writeJSON(w, http.StatusOK, appointmentResponse(updated))
}

func (h *AppointmentHandler) ListForPatient(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	page, limit, offset := pageParams(r)
	rows, total, err := h.appointments.ListByPatient(r.Context(), actor.ID, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"appointments": appointmentRowsResponse(rows),
		"pagination":   paginate(total, page, limit),
	})
}

func (h *AppointmentHandler) ListForDoctor(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	page, limit, offset := pageParams(r)
	rows, total, err := h.appointments.ListByDoctor(r.Context(), actor.ID, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"appointments": appointmentRowsResponse(rows),
		"pagination":   paginate(total, page, limit),
	})
}

func (h *AppointmentHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r)
	rows, total, err := h.appointments.ListAll(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"appointments": appointmentRowsResponse(rows),
		"pagination":   paginate(total, page, limit),
	})
}

// BookedSlots returns the HH:MM times already held against a doctor on a
// given day.
func (h *AppointmentHandler) BookedSlots(w http.ResponseWriter, r *http.Request) {
	doctorID := r.URL.Query().Get("doctorId")
	day, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil || doctorID == "" {
		writeError(w, http.StatusBadRequest, "doctorId and date (YYYY-MM-DD) are required")
		return
	}

	booked, err := h.appointments.BookedTimes(r.Context(), doctorID, day)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load booked slots")
		return
	}
	if booked == nil {
		booked = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"booked": booked})
}

// Slots returns the doctor's free slots for a day: schedule windows cut
// into 15-minute steps, minus booked and already-passed times.
func (h *AppointmentHandler) Slots(w http.ResponseWriter, r *http.Request) {
	doctorID := r.URL.Query().Get("doctorId")
	day, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil || doctorID == "" {
		writeError(w, http.StatusBadRequest, "doctorId and date (YYYY-MM-DD) are required")
		return
	}

	doc, err := h.doctors.GetByID(r.Context(), doctorID)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "doctor not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load doctor")
		return
	}

	booked, err := h.appointments.BookedTimes(r.Context(), doctorID, day)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load booked slots")
		return
	}

	slots := availability.Slots(doc.Schedule, day, booked, h.now())
	out := make([]map[string]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, map[string]string{"value": s.Value, "label": s.Label})
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": out})
}

// History returns a patient's completed visits with prescriptions.
func (h *AppointmentHandler) History(w http.ResponseWriter, r *http.Request) {
	rows, err := h.appointments.History(r.Context(), r.PathValue("userId"), "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": historyResponse(rows)})
}

// Search matches appointments by patient name prefix, for the admin
// typeahead.
func (h *AppointmentHandler) Search(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	rows, err := h.appointments.SearchByPatientName(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to search appointments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": appointmentRowsResponse(rows)})
}

func (h *AppointmentHandler) participants(ctx context.Context, appt model.Appointment) (model.User, model.Doctor, error) {
	patient, err := h.users.GetByID(ctx, appt.PatientID)
	if err != nil {
		return model.User{}, model.Doctor{}, err
	}
	doc, err := h.doctors.GetByID(ctx, appt.DoctorID)
	if err != nil {
		return model.User{}, model.Doctor{}, err
	}
	return patient, doc, nil
}

func statusEventType(status model.Status) string {
	switch status {
	case model.StatusConfirmed:
		return outbox.EventAppointmentConfirmed
	case model.StatusCancelled:
		return outbox.EventAppointmentCancelled
	case model.StatusDone:
		return outbox.EventAppointmentDone
	}
	return ""
}

func appointmentPayload(appt model.Appointment, patient model.User, doc model.Doctor) outbox.AppointmentPayload {
	return outbox.AppointmentPayload{
		AppointmentID: appt.ID,
		PatientName:   patient.Name,
		PatientEmail:  patient.Email,
		DoctorName:    doc.Name,
		DoctorEmail:   doc.Email,
		Time:          appt.Time,
		Disease:       appt.Disease,
		Status:        string(appt.Status),
	}
}

func appointmentResponse(a model.Appointment) map[string]any {
	return map[string]any{
		"id":               a.ID,
		"patient_id":       a.PatientID,
		"doctor_id":        a.DoctorID,
		"appointment_time": a.Time,
		"disease":          a.Disease,
		"status":           a.Status,
		"created_at":       a.CreatedAt,
		"updated_at":       a.UpdatedAt,
	}
}

func appointmentRowsResponse(rows []storage.AppointmentRow) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		entry := appointmentResponse(row.Appointment)
		entry["patient_name"] = row.PatientName
		entry["doctor_name"] = row.DoctorName
		entry["specialization"] = row.Specialization
		out = append(out, entry)
	}
	return out
}
