package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/careslot/careslot/internal/mailer"
	"github.com/careslot/careslot/internal/model"
	"github.com/careslot/careslot/internal/otp"
	"github.com/careslot/careslot/internal/policy"
	"github.com/careslot/careslot/internal/storage"
	"github.com/careslot/careslot/libs/auth"
)

const (
	sessionTTL = 24 * time.Hour
	resetTTL   = 15 * time.Minute
)

// UserAuthHandler serves patient registration and session management.
type UserAuthHandler struct {
	users    *storage.UserRepository
	otp      *otp.Store
	sender   mailer.Sender
	logger   *slog.Logger
	secret   string
	resetURL string
}

func NewUserAuthHandler(users *storage.UserRepository, otpStore *otp.Store, sender mailer.Sender, logger *slog.Logger, secret, resetURL string) *UserAuthHandler {
	return &UserAuthHandler{
		users:    users,
		otp:      otpStore,
		sender:   sender,
		logger:   logger,
		secret:   secret,
		resetURL: resetURL,
	}
}

type sendOTPRequest struct {
	Email string `json:"email"`
}

func (h *UserAuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
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

	exists, err := h.users.EmailExists(r.Context(), req.Email)
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

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	OTP      string `json:"otp"`
	Gender   string `json:"gender"`
	Age      int    `json:"age"`
	Phone    string `json:"phone"`
}

func (h *UserAuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	for _, check := range []error{
		validateName(req.Name),
		validateEmail(req.Email),
		validatePassword(req.Password),
		validateGender(req.Gender),
		validateAge(req.Age),
		validatePhone(req.Phone),
	} {
		if check != nil {
			writeError(w, http.StatusBadRequest, check.Error())
			return
		}
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

	user := model.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Gender:       strings.ToLower(req.Gender),
		Age:          req.Age,
		Phone:        req.Phone,
		Role:         policy.RolePatient,
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		if storage.IsConflict(err) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	token, err := signSession(user.ID, user.Role, user.Email, h.secret)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	setSessionCookie(w, token)
	writeJSON(w, http.StatusCreated, map[string]any{
		"token": token,
		"user":  userResponse(user),
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *UserAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
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

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := signSession(user.ID, user.Role, user.Email, h.secret)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  userResponse(user),
	})
}

func (h *UserAuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *UserAuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
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

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if storage.IsNotFound(err) {
			// Do not reveal whether the address is registered.
			writeJSON(w, http.StatusOK, map[string]string{"message": "if the email is registered, a reset link has been sent"})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	token, err := signReset(user.Email, user.Role, h.secret)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue reset token")
		return
	}

	subject, body := mailer.ResetBody(h.resetURL+"/"+token, resetTTL)
	if err := h.sender.Send(user.Email, subject, body); err != nil {
		h.logger.Error("reset email failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to send reset email")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "if the email is registered, a reset link has been sent"})
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func (h *UserAuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
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

	claims, err := verifyReset(token, policy.RolePatient, h.secret)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "reset link invalid or expired")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}
	if err := h.users.UpdatePasswordByEmail(r.Context(), claims.Email, string(hash)); err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (h *UserAuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	user, err := h.users.GetByID(r.Context(), actor.ID)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, userResponse(user))
}

func userResponse(u model.User) map[string]any {
	return map[string]any{
		"id":         u.ID,
		"name":       u.Name,
		"email":      u.Email,
		"gender":     u.Gender,
		"age":        u.Age,
		"phone":      u.Phone,
		"role":       u.Role,
		"created_at": u.CreatedAt,
	}
}

func signSession(id, role, email, secret string) (string, error) {
	return auth.SignHS256(auth.NewClaims(id, role, email, sessionTTL), secret)
}

func signReset(email, role, secret string) (string, error) {
	claims := auth.NewClaims("", role, email, resetTTL)
	claims.Purpose = "reset"
	return auth.SignHS256(claims, secret)
}

// verifyReset accepts only purpose-tagged tokens for the expected role.
func verifyReset(token, role, secret string) (*auth.Claims, error) {
	claims, err := auth.ParseAndVerifyHS256(token, secret)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != "reset" || claims.Role != role || claims.Email == "" {
		return nil, fmt.Errorf("not a reset token")
	}
	return claims, nil
}

func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
