package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/ajuia-m/hw05-final/internal/auth"
	"github.com/ajuia-m/hw05-final/internal/models"
)

// LoginURL — страница входа, куда отправляются анонимные пользователи.
const LoginURL = "/auth/login/"

// Sessions проверяет сессионную куку.
type Sessions interface {
	UserBySession(ctx context.Context, uuid string) (*models.User, error)
	ClearSessionCookie(w http.ResponseWriter)
}

// AuthMiddleware проверяет сессию пользователя и добавляет объект User в контекст запроса.
func AuthMiddleware(sessions Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionCookie, err := r.Cookie(auth.SessionCookieName)
			if err != nil {
				// Куки нет, пользователь не аутентифицирован.
				next.ServeHTTP(w, r)
				return
			}

			user, err := sessions.UserBySession(r.Context(), sessionCookie.Value)
			if err != nil {
				// Сессия недействительна или истекла. Очищаем куки.
				sessions.ClearSessionCookie(w)
				log.Debugf("Invalid or expired session, error: %v", err)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}

// RequireAuthMiddleware перенаправляет анонимного пользователя на страницу входа,
// запоминая исходный путь в параметре next.
// Для AJAX запросов возвращает JSON ошибку вместо редиректа.
func RequireAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetUserFromContext(r.Context()) == nil {
			accept := r.Header.Get("Accept")
			isAJAX := r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
				strings.Contains(accept, "application/json")

			if isAJAX {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"Unauthorized"}`))
				return
			}
			http.Redirect(w, r, LoginURL+"?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
