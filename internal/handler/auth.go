package handler

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kelurahan-digital/sisurat/internal/model"
	"github.com/kelurahan-digital/sisurat/internal/service"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user"`
	HomePath  string      `json:"homePath"`
}

// Register mendaftarkan akun warga baru.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.service.RegisterWarga(r.Context(), req)
	if err != nil {
		h.writeError(w, r, "register", err)
		return
	}

	writeJSON(w, http.StatusCreated, u)
}

// Login memeriksa kredensial lalu menerbitkan token akses. Token dikirim di
// body dan juga disimpan di cookie HttpOnly.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "username dan sandi wajib diisi")
		return
	}

	u, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, "login", err)
		return
	}

	token, exp, err := h.auth.IssueToken(model.Actor{UserID: u.ID, Username: u.Username, Role: u.Role})
	if err != nil {
		h.writeError(w, r, "issue token", err)
		return
	}

	h.auth.SetAuthCookie(w, token, exp)
	h.logger.Info("user logged in", zap.Int64("user_id", u.ID), zap.String("role", string(u.Role)))

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: exp,
		User:      u,
		HomePath:  u.Role.HomePath(),
	})
}

// Logout menghapus cookie token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.ClearAuthCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me mengembalikan akun pengguna yang sedang login.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	u, err := h.service.CurrentUser(r.Context(), actor)
	if err != nil {
		h.writeError(w, r, "current user", err)
		return
	}

	writeJSON(w, http.StatusOK, u)
}
