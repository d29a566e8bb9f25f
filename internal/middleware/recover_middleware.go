package middleware

import (
	"net/http"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
)

// RecoverMiddleware перехватывает панику обработчика и отдаёт страницу ошибки.
func RecoverMiddleware(onPanic http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.WithFields(log.Fields{"method": r.Method, "path": r.URL.Path}).
						Errorf("panic: %v\n%s", rec, debug.Stack())
					onPanic(w, r)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
