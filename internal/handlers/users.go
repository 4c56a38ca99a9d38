package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/careslot/careslot/internal/model"
	"github.com/careslot/careslot/internal/policy"
	"github.com/careslot/careslot/internal/storage"
)

// UserHandler serves account management for patients and admins.
type UserHandler struct {
	users *storage.UserRepository
}

func NewUserHandler(users *storage.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r)
	users, total, err := h.users.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	out := make([]map[string]any, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse(u))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"users":      out,
		"pagination": paginate(total, page, limit),
	})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), r.PathValue("id"))
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

type updateUserRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Gender string `json:"gender"`
	Age    int    `json:"age"`
	Phone  string `json:"phone"`
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	actor, _ := ActorFromContext(r.Context())
	if actor.ID != id && !allow(actor, policy.ActionManageUsers, false) {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	var req updateUserRequest
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
	for _, check := range []error{validateGender(req.Gender), validateAge(req.Age), validatePhone(req.Phone)} {
		if check != nil {
			writeError(w, http.StatusBadRequest, check.Error())
			return
		}
	}

	user, err := h.users.Update(r.Context(), model.User{
		ID:     id,
		Name:   req.Name,
		Email:  req.Email,
		Gender: strings.ToLower(req.Gender),
		Age:    req.Age,
		Phone:  req.Phone,
	})
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		if storage.IsConflict(err) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update user")
		return
	}
	writeJSON(w, http.StatusOK, userResponse(user))
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	actor, _ := ActorFromContext(r.Context())
	if actor.ID != id && !allow(actor, policy.ActionManageUsers, false) {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		if storage.IsReferenced(err) {
			writeError(w, http.StatusConflict, "user has existing appointments")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := validatePassword(req.NewPassword); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.GetByID(r.Context(), actor.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)) != nil {
		writeError(w, http.StatusUnauthorized, "old password is incorrect")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}
	if err := h.users.UpdatePassword(r.Context(), actor.ID, string(hash)); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}
