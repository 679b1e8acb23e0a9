package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type ContactMailer interface {
	SendContact(ctx context.Context, name, email, message string) error
}

type ContactHandler struct {
	mailer ContactMailer
	logger *zap.SugaredLogger
}

func NewContactHandler(mailer ContactMailer, logger *zap.SugaredLogger) *ContactHandler {
	return &ContactHandler{mailer: mailer, logger: logger}
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Send handles POST /contact, forwarding site messages to the farm
// inbox.
func (h *ContactHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Message = strings.TrimSpace(req.Message)
	if req.Name == "" || req.Message == "" || !strings.Contains(req.Email, "@") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name, email and message are required"})
		return
	}

	if err := h.mailer.SendContact(r.Context(), req.Name, req.Email, req.Message); err != nil {
		h.logger.Errorw("contact mail failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "could not send message"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]bool{"sent": true})
}
