package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/careslot/careslot/internal/model"
	"github.com/careslot/careslot/internal/outbox"
	"github.com/careslot/careslot/internal/policy"
	"github.com/careslot/careslot/internal/storage"
)

// PrescriptionHandler attaches prescriptions to completed visits and
// serves them back to the involved parties.
type PrescriptionHandler struct {
	prescriptions *storage.PrescriptionRepository
	appointments  *storage.AppointmentRepository
	users         *storage.UserRepository
	doctors       *storage.DoctorRepository
	outbox        *outbox.Repository
}

func NewPrescriptionHandler(prescriptions *storage.PrescriptionRepository, appointments *storage.AppointmentRepository, users *storage.UserRepository, doctors *storage.DoctorRepository, outboxRepo *outbox.Repository) *PrescriptionHandler {
	return &PrescriptionHandler{
		prescriptions: prescriptions,
		appointments:  appointments,
		users:         users,
		doctors:       doctors,
		outbox:        outboxRepo,
	}
}

type addPrescriptionRequest struct {
	AppointmentID string `json:"appointment_id"`
	Prescription  string `json:"prescription"`
	Notes         string `json:"notes"`
	Disease       string `json:"disease"`
}

// Add stores the prescription and marks the visit done in one
// transaction, so a prescription never exists against a non-done
// appointment and vice versa.
func (h *PrescriptionHandler) Add(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	var req addPrescriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Prescription = strings.TrimSpace(req.Prescription)
	if req.AppointmentID == "" || req.Prescription == "" {
		writeError(w, http.StatusBadRequest, "appointment_id and prescription are required")
		return
	}

	ctx := r.Context()
	tx, err := h.appointments.Begin(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start transaction")
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := h.appointments.GetForDoctorForUpdate(ctx, tx, req.AppointmentID, actor.ID)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "appointment not found or not allowed")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load appointment")
		return
	}

	if !appt.Status.CanTransition(model.StatusDone) {
		writeError(w, http.StatusConflict, fmt.Sprintf("cannot complete an appointment in status %s", appt.Status))
		return
	}

	created, err := h.prescriptions.CreateTx(ctx, tx, model.Prescription{
		AppointmentID: appt.ID,
		Prescription:  req.Prescription,
		Notes:         strings.TrimSpace(req.Notes),
		Disease:       strings.TrimSpace(req.Disease),
	})
	if err != nil {
		if storage.IsConflict(err) {
			writeError(w, http.StatusConflict, "appointment already has a prescription")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create prescription")
		return
	}

	updated, err := h.appointments.UpdateStatusTx(ctx, tx, appt.ID, model.StatusDone)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update status")
		return
	}

	patient, err := h.users.GetByID(ctx, updated.PatientID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load patient")
		return
	}
	doc, err := h.doctors.GetByID(ctx, updated.DoctorID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load doctor")
		return
	}
	evt, err := outbox.NewAppointmentEvent(outbox.EventPrescriptionAttached, appointmentPayload(updated, patient, doc))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build event")
		return
	}
	if err := h.outbox.Insert(ctx, tx, evt); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to enqueue notification")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to commit transaction")
		return
	}

	writeJSON(w, http.StatusCreated, prescriptionResponse(created))
}

func (h *PrescriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	appointmentID := r.PathValue("appointmentId")
	actor, _ := ActorFromContext(r.Context())

	appt, err := h.appointments.GetByID(r.Context(), appointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "appointment not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load appointment")
		return
	}

	owns := actor.ID == appt.PatientID || actor.ID == appt.DoctorID
	if !allow(actor, policy.ActionViewPrescription, owns) {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	p, err := h.prescriptions.GetByAppointment(r.Context(), appointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "prescription not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load prescription")
		return
	}
	writeJSON(w, http.StatusOK, prescriptionResponse(p))
}

func (h *PrescriptionHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r)
	list, total, err := h.prescriptions.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list prescriptions")
		return
	}

	out := make([]map[string]any, 0, len(list))
	for _, p := range list {
		out = append(out, prescriptionResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"prescriptions": out,
		"pagination":    paginate(total, page, limit),
	})
}

func prescriptionResponse(p model.Prescription) map[string]any {
	return map[string]any{
		"id":             p.ID,
		"appointment_id": p.AppointmentID,
		"prescription":   p.Prescription,
		"notes":          p.Notes,
		"disease":        p.Disease,
		"created_at":     p.CreatedAt,
	}
}
