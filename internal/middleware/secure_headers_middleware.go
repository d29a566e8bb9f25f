package middleware

import (
	"net/http"
	"strings"
)

// SecureHeadersMiddleware добавляет безопасные HTTP-заголовки для защиты от различных атак.
// imgSources — дополнительные источники картинок (например, адрес S3).
func SecureHeadersMiddleware(imgSources ...string) func(http.Handler) http.Handler {
	csp := "default-src 'self'; style-src 'self' 'unsafe-inline' https://cdn.jsdelivr.net; script-src 'self' https://cdn.jsdelivr.net; " +
		"img-src " + strings.Join(append([]string{"'self'", "data:"}, imgSources...), " ") +
		"; font-src 'self' https://cdn.jsdelivr.net; object-src 'none'"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Content Security Policy (CSP)
			w.Header().Set("Content-Security-Policy", csp)

			// X-Frame-Options: Защита от clickjacking.
			w.Header().Set("X-Frame-Options", "DENY")

			// X-Content-Type-Options: Предотвращает Mime-Type Sniffing.
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// Referrer-Policy: Управляет информацией, отправляемой в заголовке Referer.
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}
