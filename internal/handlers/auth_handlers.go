package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/ajuia-m/hw05-final/internal/auth"
)

// safeNext оставляет только локальные пути, чтобы ?next= не уводил на чужой сайт.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

// Signup displays and processes the registration form.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		h.render(w, r, http.StatusOK, "signup.html", TemplateData{})
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	_, err := h.auth.RegisterUser(r.Context(), email, username, password)
	if err != nil {
		log.Infof("Registration error: %v", err)
		var errMsg string
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			errMsg = "Email already registered."
		case errors.Is(err, auth.ErrUsernameExists):
			errMsg = "Username already taken."
		case errors.Is(err, auth.ErrInvalidInput):
			errMsg = err.Error()
		default:
			h.Render500(w, r, err)
			return
		}
		h.render(w, r, http.StatusBadRequest, "signup.html", TemplateData{Error: errMsg, Email: email, Login: username})
		return
	}

	http.Redirect(w, r, "/auth/login/", http.StatusFound)
}

// Login displays and processes the login form.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		h.render(w, r, http.StatusOK, "login.html", TemplateData{Next: r.URL.Query().Get("next")})
		return
	}

	login := strings.TrimSpace(r.FormValue("login")) // Can be email or username
	password := r.FormValue("password")
	next := r.FormValue("next")

	user, session, err := h.auth.LoginUser(r.Context(), login, password)
	if err != nil {
		if !errors.Is(err, auth.ErrUserNotFound) && !errors.Is(err, auth.ErrInvalidPassword) {
			h.Render500(w, r, err)
			return
		}
		log.Infof("Login failed for %s: %v", login, err)
		h.render(w, r, http.StatusUnauthorized, "login.html", TemplateData{
			Error: "Invalid email/username or password.",
			Login: login,
			Next:  next,
		})
		return
	}

	h.auth.SetSessionCookie(w, session.UUID, session.Expires)
	log.Infof("User '%s' (ID: %d) logged in successfully.", user.Username, user.ID)
	http.Redirect(w, r, safeNext(next), http.StatusFound)
}

// Logout logs out the user by deleting their session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionCookie, err := r.Cookie(auth.SessionCookieName)
	if err == nil {
		err = h.auth.LogoutUser(r.Context(), sessionCookie.Value)
		if err != nil && !errors.Is(err, auth.ErrSessionNotFound) {
			log.Errorf("Error deleting session from DB: %v", err)
		}
	}

	// Always clear the cookie from the client
	h.auth.ClearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

// Pinger проверяет соединение с базой.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Healthz проверяет доступность базы.
func Healthz(pinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := pinger.Ping(r.Context()); err != nil {
			log.Errorf("Health check failed: %v", err)
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	}
}
