package user

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ubudget/service-ledger-go/internal/middleware"
	"github.com/ubudget/service-ledger-go/internal/user/entity"
)

// Handler exposes registration and session endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// TokenResponse is the login and refresh payload.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// ProfileView is the external representation of a user.
type ProfileView struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	Role      string `json:"role"`
	LastLogin string `json:"last_login,omitempty"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	u, err := h.svc.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrWeakPassword):
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, ErrEmailTaken):
			h.writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			h.logger.Warnw("register failed", "err", err)
			h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "registration failed"})
		}
		return
	}
	h.writeJSON(w, http.StatusCreated, profileView(u))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	pair, _, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrBadCredentials):
			h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		case errors.Is(err, ErrDisabled):
			h.writeJSON(w, http.StatusForbidden, map[string]string{"error": "user disabled"})
		default:
			h.logger.Warnw("login failed", "err", err)
			h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "login failed"})
		}
		return
	}
	h.writeJSON(w, http.StatusOK, tokenResponse(pair))
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	pair, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionExpired), errors.Is(err, ErrDisabled):
			h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "session expired"})
		default:
			h.logger.Warnw("refresh failed", "err", err)
			h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "refresh failed"})
		}
		return
	}
	h.writeJSON(w, http.StatusOK, tokenResponse(pair))
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := h.svc.Logout(r.Context(), req.RefreshToken); err != nil {
		h.logger.Warnw("logout failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "logout failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	u, err := h.svc.GetByID(r.Context(), userID)
	if err != nil {
		h.logger.Warnw("profile lookup failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "profile lookup failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, profileView(u))
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := h.svc.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, ErrBadCredentials):
			h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		case errors.Is(err, ErrWeakPassword):
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			h.logger.Warnw("change password failed", "err", err)
			h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "change password failed"})
		}
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func tokenResponse(p *TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    p.ExpiresIn,
	}
}

func profileView(u *entity.User) ProfileView {
	v := ProfileView{ID: u.ID, Email: u.Email, Role: string(u.Role)}
	if u.Name != nil {
		v.Name = *u.Name
	}
	if u.LastLoginAt != nil {
		v.LastLogin = u.LastLoginAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return v
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
