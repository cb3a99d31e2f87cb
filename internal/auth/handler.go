package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// LoginHandler serves the OAuth2 password-style token endpoint. Credentials
// arrive form-encoded as username and password.
type LoginHandler struct {
	Service *Service
	Logger  *slog.Logger
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid username or password")
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		writeDetail(w, http.StatusBadRequest, "invalid username or password")
		return
	}

	_, token, err := h.Service.Login(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			writeDetail(w, http.StatusBadRequest, "invalid username or password")
			return
		}
		h.Logger.ErrorContext(r.Context(), "issue token", "err", err)
		writeDetail(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(h.Service.TTL().Seconds()),
	})
}

// MeHandler returns the identity behind the presented token.
type MeHandler struct{}

func (MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"username":  user.Username,
		"full_name": user.DisplayName,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
