package obligation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ubudget/service-ledger-go/internal/middleware"
	"github.com/ubudget/service-ledger-go/internal/obligation/entity"
)

// Handler exposes the obligation endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type CreateRequest struct {
	Title           string `json:"title"`
	AmountTotal     string `json:"amount_total"`
	AmountRemaining string `json:"amount_remaining"`
	Currency        string `json:"currency"`
	DueDate         string `json:"due_date"`
	Frequency       string `json:"frequency"`
}

// ObligationView is the external representation of an obligation.
type ObligationView struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	AmountTotal     string `json:"amount_total"`
	AmountRemaining string `json:"amount_remaining"`
	Currency        string `json:"currency"`
	DueDate         string `json:"due_date"`
	Frequency       string `json:"frequency"`
	State           string `json:"state"`
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
	o, err := h.svc.CreateObligation(r.Context(), CreateInput{
		UserID:          userID,
		Title:           req.Title,
		AmountTotal:     req.AmountTotal,
		AmountRemaining: req.AmountRemaining,
		Currency:        req.Currency,
		DueDate:         req.DueDate,
		Frequency:       entity.Frequency(req.Frequency),
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid obligation input"})
		case errors.Is(err, ErrUserNotFound):
			h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		default:
			h.logger.Warnw("create obligation failed", "err", err)
			h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "create obligation failed"})
		}
		return
	}
	h.writeJSON(w, http.StatusCreated, obligationView(o))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	rows, err := h.svc.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Warnw("list obligations failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list obligations failed"})
		return
	}
	out := make([]ObligationView, 0, len(rows))
	for _, o := range rows {
		out = append(out, obligationView(o))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid obligation id"})
		return
	}
	if err := h.svc.Cancel(r.Context(), id, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "obligation not found"})
			return
		}
		h.logger.Warnw("cancel obligation failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cancel obligation failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "obligation cancelled"})
}

func obligationView(o *entity.Obligation) ObligationView {
	return ObligationView{
		ID:              o.ID,
		Title:           o.Title,
		AmountTotal:     o.AmountTotal.String(),
		AmountRemaining: o.AmountRemaining.String(),
		Currency:        o.Currency,
		DueDate:         o.DueDate.Format(DueDateLayout),
		Frequency:       string(o.Frequency),
		State:           string(o.State),
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
