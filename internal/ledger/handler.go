package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	accentity "github.com/ubudget/service-ledger-go/internal/account/entity"
	"github.com/ubudget/service-ledger-go/internal/ledger/entity"
	"github.com/ubudget/service-ledger-go/internal/middleware"
)

// TransactionLister is the read surface the history endpoint needs.
type TransactionLister interface {
	GetAccount(ctx context.Context, number string) (*accentity.Account, error)
	ListByAccount(ctx context.Context, accountID int64, limit int) ([]*entity.Transaction, error)
}

// Handler exposes the transaction endpoints.
type Handler struct {
	svc    *Service
	lister TransactionLister
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, lister TransactionLister, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, lister: lister, logger: logger}
}

// SubmitRequest is the transaction submission body. Amounts are decimal
// strings; account_two is blank for single-account transactions.
type SubmitRequest struct {
	AccountOne  string `json:"account_one"`
	AccountTwo  string `json:"account_two"`
	Category    string `json:"category"`
	AmountOne   string `json:"amount_one"`
	AmountTwo   string `json:"amount_two"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
}

// SubmitResponse reports the committed transaction.
type SubmitResponse struct {
	Message   string `json:"message"`
	Total     string `json:"total"`
	Reference string `json:"reference"`
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid transaction payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	in := Input{
		UserRef:     strconv.FormatInt(userID, 10),
		AccountOne:  req.AccountOne,
		AccountTwo:  req.AccountTwo,
		Category:    req.Category,
		AmountOne:   req.AmountOne,
		AmountTwo:   req.AmountTwo,
		Currency:    req.Currency,
		Description: req.Description,
	}
	res, err := h.svc.Execute(r.Context(), in)
	if err != nil {
		h.logger.Warnw("transaction failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "transaction failed"})
		return
	}
	if !res.OK {
		h.writeJSON(w, statusForReason(res.Reason), map[string]string{"error": res.Reason.String()})
		return
	}
	h.writeJSON(w, http.StatusOK, SubmitResponse{
		Message:   "Transaction was successful.",
		Total:     res.Amount.String(),
		Reference: res.Transaction.Reference,
	})
}

func statusForReason(r Reason) int {
	switch r {
	case ReasonInsufficientFunds:
		return http.StatusConflict
	case ReasonUserNotFound, ReasonAccountNotFound, ReasonCategoryNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

// TransactionView is the external representation of a ledger row.
type TransactionView struct {
	Reference   string `json:"reference"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	OccurredAt  string `json:"occurred_at"`
	Reconciled  bool   `json:"reconciled"`
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	number := r.PathValue("number")
	a, err := h.lister.GetAccount(r.Context(), number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "account not found"})
			return
		}
		h.logger.Warnw("history lookup failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history lookup failed"})
		return
	}
	if a.UserID != userID {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "account not found"})
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	rows, err := h.lister.ListByAccount(r.Context(), a.ID, limit)
	if err != nil {
		h.logger.Warnw("history list failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history list failed"})
		return
	}
	out := make([]TransactionView, 0, len(rows))
	for _, t := range rows {
		out = append(out, TransactionView{
			Reference:   t.Reference,
			Type:        string(t.Type),
			Amount:      t.Amount.String(),
			Currency:    t.Currency,
			Description: t.Description,
			OccurredAt:  t.OccurredAt.Format("2006-01-02T15:04:05Z07:00"),
			Reconciled:  t.IsReconciled,
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
