package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/careslot/careslot/internal/model"
	"github.com/careslot/careslot/internal/policy"
	"github.com/careslot/careslot/internal/schedule"
	"github.com/careslot/careslot/internal/storage"
)

// DoctorHandler serves doctor directory and profile management.
type DoctorHandler struct {
	doctors      *storage.DoctorRepository
	appointments *storage.AppointmentRepository
}

func NewDoctorHandler(doctors *storage.DoctorRepository, appointments *storage.AppointmentRepository) *DoctorHandler {
	return &DoctorHandler{doctors: doctors, appointments: appointments}
}

type addDoctorRequest struct {
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Password       string          `json:"password"`
	Gender         string          `json:"gender"`
	Age            int             `json:"age"`
	Phone          string          `json:"phone"`
	Specialization string          `json:"specialization"`
	Experience     int             `json:"experience"`
	Schedule       json.RawMessage `json:"schedule"`
	Fees           float64         `json:"fees"`
}

func (h *DoctorHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addDoctorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	req.Specialization = strings.TrimSpace(req.Specialization)

	for _, check := range []error{
		validateName(req.Name),
		validateEmail(req.Email),
		validatePassword(req.Password),
		validateGender(req.Gender),
		validateAge(req.Age),
		validatePhone(req.Phone),
		validateFees(req.Fees),
	} {
		if check != nil {
			writeError(w, http.StatusBadRequest, check.Error())
			return
		}
	}
	if req.Specialization == "" {
		writeError(w, http.StatusBadRequest, "specialization is required")
		return
	}

	weekly := schedule.Weekly{}
	if len(req.Schedule) > 0 {
		parsed, err := schedule.Parse(req.Schedule)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		weekly = parsed
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	doc := model.Doctor{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Email:          req.Email,
		PasswordHash:   string(hash),
		Gender:         strings.ToLower(req.Gender),
		Age:            req.Age,
		Phone:          req.Phone,
		Specialization: req.Specialization,
		Experience:     req.Experience,
		Schedule:       weekly,
		Fees:           req.Fees,
		Available:      true,
	}
	if err := h.doctors.Create(r.Context(), doc); err != nil {
		if storage.IsConflict(err) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create doctor")
		return
	}
	writeJSON(w, http.StatusCreated, doctorResponse(doc))
}

func (h *DoctorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.doctors.Delete(r.Context(), r.PathValue("id")); err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "doctor not found")
			return
		}
		if storage.IsReferenced(err) {
			writeError(w, http.StatusConflict, "doctor has existing appointments")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete doctor")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "doctor deleted"})
}

func (h *DoctorHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r)
	docs, total, err := h.doctors.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list doctors")
		return
	}

	out := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		out = append(out, doctorResponse(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"doctors":    out,
		"pagination": paginate(total, page, limit),
	})
}

func (h *DoctorHandler) BySpecialization(w http.ResponseWriter, r *http.Request) {
	spec := r.PathValue("specialization")
	docs, err := h.doctors.ListBySpecialization(r.Context(), spec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list doctors")
		return
	}

	out := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		out = append(out, doctorResponse(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"doctors": out})
}

func (h *DoctorHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	actor, _ := ActorFromContext(r.Context())
	if actor.ID != id && !allow(actor, policy.ActionManageDoctors, false) {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	doc, err := h.doctors.GetByID(r.Context(), id)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "doctor not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load doctor")
		return
	}
	writeJSON(w, http.StatusOK, doctorResponse(doc))
}

type updateDoctorRequest struct {
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Gender         string          `json:"gender"`
	Age            int             `json:"age"`
	Phone          string          `json:"phone"`
	Specialization string          `json:"specialization"`
	Experience     int             `json:"experience"`
	Schedule       json.RawMessage `json:"schedule"`
	Fees           float64         `json:"fees"`
	Available      *bool           `json:"available"`
}

func (h *DoctorHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	actor, _ := ActorFromContext(r.Context())
	if actor.ID != id && !allow(actor, policy.ActionManageDoctors, false) {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	var req updateDoctorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Name != "" {
		if err := validateName(req.Name); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Email != "" {
		if err := validateEmail(req.Email); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	for _, check := range []error{
		validateGender(req.Gender),
		validateAge(req.Age),
		validatePhone(req.Phone),
		validateFees(req.Fees),
	} {
		if check != nil {
			writeError(w, http.StatusBadRequest, check.Error())
			return
		}
	}

	var weekly schedule.Weekly
	if len(req.Schedule) > 0 {
		parsed, err := schedule.Parse(req.Schedule)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		weekly = parsed
	}

	current, err := h.doctors.GetByID(r.Context(), id)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "doctor not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load doctor")
		return
	}
	available := current.Available
	if req.Available != nil {
		available = *req.Available
	}

	doc, err := h.doctors.Update(r.Context(), model.Doctor{
		ID:             id,
		Name:           req.Name,
		Email:          req.Email,
		Gender:         strings.ToLower(req.Gender),
		Age:            req.Age,
		Phone:          req.Phone,
		Specialization: req.Specialization,
		Experience:     req.Experience,
		Schedule:       weekly,
		Fees:           req.Fees,
		Available:      available,
	})
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "doctor not found")
			return
		}
		if storage.IsConflict(err) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update doctor")
		return
	}
	writeJSON(w, http.StatusOK, doctorResponse(doc))
}

// History returns the doctor's completed visits with one patient,
// prescriptions included.
func (h *DoctorHandler) History(w http.ResponseWriter, r *http.Request) {
	doctorID := r.PathValue("doctorId")
	patientID := r.PathValue("patientId")

	actor, _ := ActorFromContext(r.Context())
	if actor.ID != doctorID && !allow(actor, policy.ActionManageDoctors, false) {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	rows, err := h.appointments.History(r.Context(), patientID, doctorID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": historyResponse(rows)})
}

func historyResponse(rows []storage.HistoryRow) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		entry := map[string]any{
			"id":               row.ID,
			"patient_id":       row.PatientID,
			"patient_name":     row.PatientName,
			"doctor_id":        row.DoctorID,
			"doctor_name":      row.DoctorName,
			"specialization":   row.Specialization,
			"appointment_time": row.Time,
			"disease":          row.Disease,
			"status":           row.Status,
		}
		if row.PrescriptionID != "" {
			entry["prescription"] = map[string]any{
				"id":           row.PrescriptionID,
				"prescription": row.Prescription,
				"notes":        row.Notes,
			}
		}
		out = append(out, entry)
	}
	return out
}
