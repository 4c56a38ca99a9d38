package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/careslot/careslot/internal/mailer"
	"github.com/careslot/careslot/internal/model"
	"github.com/careslot/careslot/internal/otp"
	"github.com/careslot/careslot/internal/policy"
	"github.com/careslot/careslot/internal/schedule"
	"github.com/careslot/careslot/internal/storage"
)

// DoctorAuthHandler serves doctor registration and session management.
type DoctorAuthHandler struct {
	doctors  *storage.DoctorRepository
	otp      *otp.Store
	sender   mailer.Sender
	logger   *slog.Logger
	secret   string
	resetURL string
}

func NewDoctorAuthHandler(doctors *storage.DoctorRepository, otpStore *otp.Store, sender mailer.Sender, logger *slog.Logger, secret, resetURL string) *DoctorAuthHandler {
	return &DoctorAuthHandler{
		doctors:  doctors,
		otp:      otpStore,
		sender:   sender,
		logger:   logger,
		secret:   secret,
		resetURL: resetURL,
	}
}

func (h *DoctorAuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req sendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateEmail(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	exists, err := h.doctors.EmailExists(r.Context(), req.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check email")
		return
	}
	if exists {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}

	code, err := h.otp.Issue(r.Context(), req.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue code")
		return
	}

	subject, body := mailer.OTPBody(code, otp.TTL)
	if err := h.sender.Send(req.Email, subject, body); err != nil {
		h.logger.Error("otp email failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to send verification email")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "verification code sent"})
}

type doctorRegisterRequest struct {
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	OTP            string  `json:"otp"`
	Gender         string  `json:"gender"`
	Age            int     `json:"age"`
	Phone          string  `json:"phone"`
	Specialization string  `json:"specialization"`
	Experience     int     `json:"experience"`
	Fees           float64 `json:"fees"`
}

func (h *DoctorAuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req doctorRegisterRequest
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

	if err := h.otp.Verify(r.Context(), req.Email, req.OTP); err != nil {
		if errors.Is(err, otp.ErrMismatch) {
			writeError(w, http.StatusBadRequest, "verification code invalid or expired")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to verify code")
		return
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
		Schedule:       schedule.Weekly{},
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

	token, err := signSession(doc.ID, policy.RoleDoctor, doc.Email, h.secret)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	setSessionCookie(w, token)
	writeJSON(w, http.StatusCreated, map[string]any{
		"token":  token,
		"doctor": doctorResponse(doc),
	})
}

func (h *DoctorAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}

	doc, err := h.doctors.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load doctor")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(doc.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := signSession(doc.ID, policy.RoleDoctor, doc.Email, h.secret)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]any{
		"token":  token,
		"doctor": doctorResponse(doc),
	})
}

func (h *DoctorAuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *DoctorAuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateEmail(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := h.doctors.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if storage.IsNotFound(err) {
			writeJSON(w, http.StatusOK, map[string]string{"message": "if the email is registered, a reset link has been sent"})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load doctor")
		return
	}

	token, err := signReset(doc.Email, policy.RoleDoctor, h.secret)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue reset token")
		return
	}

	subject, body := mailer.ResetBody(h.resetURL+"/"+token, resetTTL)
	if err := h.sender.Send(doc.Email, subject, body); err != nil {
		h.logger.Error("reset email failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to send reset email")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "if the email is registered, a reset link has been sent"})
}

func (h *DoctorAuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := validatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims, err := verifyReset(token, policy.RoleDoctor, h.secret)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "reset link invalid or expired")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}
	if err := h.doctors.UpdatePasswordByEmail(r.Context(), claims.Email, string(hash)); err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "doctor not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (h *DoctorAuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	doc, err := h.doctors.GetByID(r.Context(), actor.ID)
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

func doctorResponse(d model.Doctor) map[string]any {
	return map[string]any{
		"id":             d.ID,
		"name":           d.Name,
		"email":          d.Email,
		"gender":         d.Gender,
		"age":            d.Age,
		"phone":          d.Phone,
		"specialization": d.Specialization,
		"experience":     d.Experience,
		"schedule":       d.Schedule,
		"fees":           d.Fees,
		"available":      d.Available,
		"created_at":     d.CreatedAt,
	}
}
