package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/careslot/careslot/internal/mailer"
)

// ContactHandler relays contact-form submissions to the admin mailbox.
type ContactHandler struct {
	sender  mailer.Sender
	logger  *slog.Logger
	adminTo string
}

func NewContactHandler(sender mailer.Sender, logger *slog.Logger, adminTo string) *ContactHandler {
	return &ContactHandler{sender: sender, logger: logger, adminTo: adminTo}
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (h *ContactHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Message = strings.TrimSpace(req.Message)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := validateName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateEmail(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	subject := "Contact form: " + req.Subject
	if strings.TrimSpace(req.Subject) == "" {
		subject = "Contact form message"
	}
	body := fmt.Sprintf("From: %s <%s>\n\n%s\n", req.Name, req.Email, req.Message)

	if err := h.sender.Send(h.adminTo, subject, body); err != nil {
		h.logger.Error("contact email failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to send message")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "message sent"})
}
