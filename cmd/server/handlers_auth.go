package main

import (
	"net/http"
	"time"

	"github.com/quaynav/quay/internal/auth"
)

func handleHealth(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"time":   time.Now().UTC(),
		})
	}
}

// POST /api/auth/login
func handleLogin(authn *auth.Auth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !authn.IsEnabled() {
			respondJSON(w, http.StatusOK, map[string]any{"authRequired": false})
			return
		}

		var req struct {
			Password string `json:"password"`
		}
		if err := decodeJSON(r, &req); err != nil {
			badRequest(w, "invalid request body")
			return
		}
		if !authn.ValidatePassword(req.Password) {
			respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid password"})
			return
		}

		token, err := authn.GenerateToken()
		if err != nil {
			respondError(w, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     auth.CookieName,
			Value:    token,
			Path:     "/",
			Expires:  time.Now().Add(auth.TokenExpiry),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		respondJSON(w, http.StatusOK, map[string]any{"authRequired": true, "token": token})
	}
}

// POST /api/auth/logout
func handleLogout(authn *auth.Auth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := authn.GetTokenFromRequest(r); token != "" {
			authn.InvalidateToken(token)
		}
		http.SetCookie(w, &http.Cookie{
			Name:     auth.CookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})
		respondJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
	}
}
