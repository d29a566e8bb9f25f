package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	burst         = 10
	clientIdleTTL = 2 * time.Minute
)

// clientState хранит лимитер для каждого клиента
type clientState struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter ограничивает частоту POST-запросов с одного IP-адреса.
type RateLimiter struct {
	limit rate.Limit

	mu      sync.Mutex
	clients map[string]*clientState
}

// NewRateLimiter принимает допустимое число запросов в минуту.
func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		limit:   rate.Limit(float64(perMinute) / 60),
		clients: make(map[string]*clientState),
	}
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	state, ok := rl.clients[ip]
	if !ok {
		state = &clientState{limiter: rate.NewLimiter(rl.limit, burst)}
		rl.clients[ip] = state
	}
	state.lastSeen = time.Now()
	return state.limiter.Allow()
}

// Cleanup периодически удаляет неактивных клиентов, пока ctx не отменён.
func (rl *RateLimiter) Cleanup(ctx context.Context) {
	ticker := time.NewTicker(clientIdleTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, state := range rl.clients {
				if time.Since(state.lastSeen) > clientIdleTTL {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Middleware пропускает GET без ограничений: листать ленту можно сколько угодно.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}

		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if !rl.allow(ip) {
			log.Warnf("Rate limit exceeded for %s on %s", ip, r.URL.Path)
			accept := r.Header.Get("Accept")
			isAJAX := r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
				strings.Contains(accept, "application/json")

			if isAJAX {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error": "Too Many Requests",
				})
			} else {
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			}
			return
		}

		next.ServeHTTP(w, r)
	})
}
