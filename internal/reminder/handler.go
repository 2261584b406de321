package reminder

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ubudget/service-ledger-go/internal/middleware"
	"github.com/ubudget/service-ledger-go/internal/reminder/entity"
)

// Handler exposes the reminder endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// CreateRequest creates either an obligation-derived reminder (only
// obligation_title set) or a standalone one.
type CreateRequest struct {
	ObligationTitle string             `json:"obligation_title"`
	Title           string             `json:"title"`
	Message         string             `json:"message"`
	RemindAt        string             `json:"remind_at"`
	Channels        *entity.ChannelSet `json:"channels"`
}

// ReminderView is the external representation of a reminder.
type ReminderView struct {
	ID       int64             `json:"id"`
	Title    string            `json:"title"`
	Message  string            `json:"message"`
	RemindAt string            `json:"remind_at"`
	Channels entity.ChannelSet `json:"channels"`
	IsSent   bool              `json:"is_sent"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	var rem *entity.Reminder
	var err error
	if req.ObligationTitle != "" {
		rem, err = h.svc.CreateForObligation(r.Context(), userID, req.ObligationTitle)
	} else {
		in := StandaloneInput{UserID: userID, Title: req.Title, Message: req.Message}
		if req.RemindAt != "" {
			in.RemindAt, err = time.Parse(time.RFC3339, req.RemindAt)
			if err != nil {
				h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid remind_at"})
				return
			}
		}
		if req.Channels != nil {
			in.ChannelSet = *req.Channels
		}
		rem, err = h.svc.CreateStandalone(r.Context(), in)
	}
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid reminder input"})
		case errors.Is(err, ErrUserNotFound):
			h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		case errors.Is(err, ErrObligationNotFound):
			h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "obligation not found"})
		default:
			h.logger.Warnw("create reminder failed", "err", err)
			h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "create reminder failed"})
		}
		return
	}
	h.writeJSON(w, http.StatusCreated, reminderView(rem))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	rows, err := h.svc.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Warnw("list reminders failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list reminders failed"})
		return
	}
	out := make([]ReminderView, 0, len(rows))
	for _, rem := range rows {
		out = append(out, reminderView(rem))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func reminderView(rem *entity.Reminder) ReminderView {
	return ReminderView{
		ID:       rem.ID,
		Title:    rem.Title,
		Message:  rem.Message,
		RemindAt: rem.RemindAt.Format(time.RFC3339),
		Channels: rem.ChannelSet,
		IsSent:   rem.IsSent,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
