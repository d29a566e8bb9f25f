package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajuia-m/hw05-final/internal/auth"
	"github.com/ajuia-m/hw05-final/internal/cache"
	"github.com/ajuia-m/hw05-final/internal/models"
)

type fakeSessions struct {
	users   map[string]*models.User
	cleared int
}

func (f *fakeSessions) UserBySession(_ context.Context, uuid string) (*models.User, error) {
	if u, ok := f.users[uuid]; ok {
		return u, nil
	}
	return nil, auth.ErrSessionNotFound
}

func (f *fakeSessions) ClearSessionCookie(http.ResponseWriter) { f.cleared++ }

func whoAmI(w http.ResponseWriter, r *http.Request) {
	if u := auth.GetUserFromContext(r.Context()); u != nil {
		fmt.Fprint(w, u.Username)
		return
	}
	fmt.Fprint(w, "anon")
}

func TestAuthMiddleware(t *testing.T) {
	sessions := &fakeSessions{users: map[string]*models.User{"good": {ID: 1, Username: "leo"}}}
	h := AuthMiddleware(sessions)(http.HandlerFunc(whoAmI))

	cases := []struct {
		cookie  string
		want    string
		cleared int
	}{
		{"", "anon", 0},
		{"good", "leo", 0},
		{"stale", "anon", 1},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if c.cookie != "" {
			req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: c.cookie})
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, c.want, rec.Body.String())
		assert.Equal(t, c.cleared, sessions.cleared)
	}
}

func TestRequireAuthRedirectsWithNext(t *testing.T) {
	called := false
	h := RequireAuthMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/posts/1/comment/", nil))
	assert.False(t, called)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/login/?next=%2Fposts%2F1%2Fcomment%2F", rec.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/create/", nil)
	req.Header.Set("Accept", "application/json")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/create/", nil)
	req = req.WithContext(auth.WithUser(req.Context(), &models.User{ID: 1}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.True(t, called)
}

func TestCachePage(t *testing.T) {
	c := cache.NewMemory()
	calls := 0
	h := CachePage(c, 20*time.Second, IndexPagePrefix)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "render %d page %s", calls, r.URL.Query().Get("page"))
	}))

	get := func(target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec
	}

	first := get("/")
	second := get("/?page=2")
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", second.Header().Get("Content-Type"))
	assert.Equal(t, 1, calls)

	require.NoError(t, c.Clear(context.Background()))
	third := get("/")
	assert.NotEqual(t, first.Body.String(), third.Body.String())
	assert.Equal(t, 2, calls)
}

func TestCachePageSkipsErrorsAndPosts(t *testing.T) {
	c := cache.NewMemory()
	calls := 0
	h := CachePage(c, time.Minute, "p")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Method == http.MethodGet {
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))

	for i := 0; i < 2; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	}
	assert.Equal(t, 4, calls)
}

func TestCacheKeySeparatesViewers(t *testing.T) {
	anon := httptest.NewRequest(http.MethodGet, "/?page=3", nil)
	assert.Equal(t, "index_page:/:anon", CacheKey(IndexPagePrefix, anon))

	user := anon.WithContext(auth.WithUser(anon.Context(), &models.User{ID: 42}))
	assert.Equal(t, "index_page:/:42", CacheKey(IndexPagePrefix, user))
}

func TestRateLimiterOnlyLimitsPosts(t *testing.T) {
	rl := NewRateLimiter(1)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(method string) int {
		req := httptest.NewRequest(method, "/create/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < burst; i++ {
		require.Equal(t, http.StatusOK, send(http.MethodPost))
	}
	assert.Equal(t, http.StatusTooManyRequests, send(http.MethodPost))
	assert.Equal(t, http.StatusOK, send(http.MethodGet))
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(errors.New("kaboom"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSecureHeaders(t *testing.T) {
	h := SecureHeadersMiddleware("http://localhost:9000")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "img-src 'self' data: http://localhost:9000;")
}
