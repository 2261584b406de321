package account

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ubudget/service-ledger-go/internal/account/entity"
	"github.com/ubudget/service-ledger-go/internal/middleware"
)

// Handler exposes HTTP endpoints for account operations.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// CreateRequest is the request body for account creation. Balance travels
// as a decimal string.
type CreateRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
}

// AccountView is the external representation of an account.
type AccountView struct {
	Number    string `json:"account_number"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Currency  string `json:"currency"`
	Balance   string `json:"balance"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

func viewOf(a *entity.Account) AccountView {
	return AccountView{
		Number:    a.Number,
		Name:      a.Name,
		Type:      string(a.Type),
		Currency:  string(a.Currency),
		Balance:   a.CachedBalance.String(),
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid account payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	a, err := h.svc.CreateAccount(r.Context(), userID, req.Name,
		entity.AccountType(req.Type), entity.Currency(req.Currency), req.Balance)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid account data"})
			return
		}
		h.logger.Warnw("account creation failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "account creation failed"})
		return
	}
	h.writeJSON(w, http.StatusCreated, viewOf(a))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	accounts, err := h.svc.ListAccounts(r.Context(), userID)
	if err != nil {
		h.logger.Warnw("account list failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "account list failed"})
		return
	}
	out := make([]AccountView, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, viewOf(a))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	number := r.PathValue("number")
	if err := h.svc.DeactivateAccount(r.Context(), userID, number); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "account not found"})
			return
		}
		h.logger.Warnw("account deactivation failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "account deactivation failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "account deactivated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
