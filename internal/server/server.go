package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ajuia-m/hw05-final/config"
	"github.com/ajuia-m/hw05-final/internal/auth"
	"github.com/ajuia-m/hw05-final/internal/cache"
	"github.com/ajuia-m/hw05-final/internal/database"
	"github.com/ajuia-m/hw05-final/internal/handlers"
	"github.com/ajuia-m/hw05-final/internal/metrics"
	"github.com/ajuia-m/hw05-final/internal/middleware"
	"github.com/ajuia-m/hw05-final/internal/tracing"
	"github.com/ajuia-m/hw05-final/internal/web"
)

const sessionCleanupInterval = time.Hour

// Deps — собранные компоненты, из которых строится роутер.
type Deps struct {
	Store       *database.Store
	Auth        *auth.Service
	Handler     *handlers.Handler
	Cache       cache.Cache
	CacheTTL    time.Duration
	RateLimiter *middleware.RateLimiter
	Static      http.FileSystem
	MediaRoot   string   // пусто, если картинки лежат не на диске
	ImgSources  []string // дополнительные источники картинок для CSP
}

// protectStatic не отдаёт листинги каталогов.
func protectStatic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewRouter регистрирует маршруты и глобальные middleware.
func NewRouter(d Deps) http.Handler {
	h := d.Handler
	r := chi.NewRouter()

	r.Use(
		middleware.RecoverMiddleware(h.Panic),
		middleware.LoggerMiddleware,
		middleware.MetricsMiddleware,
		middleware.SecureHeadersMiddleware(d.ImgSources...),
		middleware.AuthMiddleware(d.Auth),
	)
	if d.RateLimiter != nil {
		r.Use(d.RateLimiter.Middleware)
	}
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	r.With(middleware.CachePage(d.Cache, d.CacheTTL, middleware.IndexPagePrefix)).Get("/", h.Index)
	r.Get("/group/{slug}/", h.GroupPosts)
	r.Get("/profile/{username}/", h.Profile)
	r.Get(`/posts/{post_id:\d+}/`, h.PostDetail)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuthMiddleware)
		r.Get("/create/", h.PostCreate)
		r.Post("/create/", h.PostCreate)
		r.Get(`/posts/{post_id:\d+}/edit/`, h.PostEdit)
		r.Post(`/posts/{post_id:\d+}/edit/`, h.PostEdit)
		r.Post(`/posts/{post_id:\d+}/comment/`, h.AddComment)
		r.Get("/follow/", h.FollowIndex)
		r.Get("/profile/{username}/follow/", h.ProfileFollow)
		r.Get("/profile/{username}/unfollow/", h.ProfileUnfollow)
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/signup/", h.Signup)
		r.Post("/signup/", h.Signup)
		r.Get("/login/", h.Login)
		r.Post("/login/", h.Login)
		r.Get("/logout/", h.Logout)
	})

	if d.Static != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", protectStatic(http.FileServer(d.Static))))
	}
	if d.MediaRoot != "" {
		r.Handle("/media/*", http.StripPrefix("/media/", protectStatic(http.FileServer(http.Dir(d.MediaRoot)))))
	}
	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", handlers.Healthz(d.Store))

	return r
}

// staticFS отдаёт каталог с диска, если он есть, иначе встроенную статику.
func staticFS(dir string) (http.FileSystem, error) {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return http.Dir(dir), nil
		}
	}
	sub, err := fs.Sub(web.Static, "static")
	if err != nil {
		return nil, err
	}
	return http.FS(sub), nil
}

// Run собирает приложение по конфигурации и обслуживает запросы до отмены ctx.
func Run(ctx context.Context, cfg *config.Config) error {
	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing.Endpoint, cfg.Tracing.ServiceName)
	if err != nil {
		return err
	}
	defer func() {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(c); err != nil {
			log.Warnf("Tracing shutdown: %v", err)
		}
	}()

	app, err := Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	// Кэш страниц сбрасывается при каждом запуске.
	if err := app.Cache.Clear(ctx); err != nil {
		log.Warnf("Could not clear page cache: %v", err)
	}

	go app.Store.CleanupExpiredSessions(ctx, sessionCleanupInterval)
	if app.RateLimiter != nil {
		go app.RateLimiter.Cleanup(ctx)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      otelhttp.NewHandler(NewRouter(app.Deps), "yatube"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Server starting on http://localhost%s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(c); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	log.Info("Server stopped.")
	return nil
}
