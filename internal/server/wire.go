package server

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/ajuia-m/hw05-final/config"
	"github.com/ajuia-m/hw05-final/internal/auth"
	"github.com/ajuia-m/hw05-final/internal/cache"
	"github.com/ajuia-m/hw05-final/internal/database"
	"github.com/ajuia-m/hw05-final/internal/events"
	"github.com/ajuia-m/hw05-final/internal/handlers"
	"github.com/ajuia-m/hw05-final/internal/media"
	"github.com/ajuia-m/hw05-final/internal/middleware"
	"github.com/ajuia-m/hw05-final/internal/web"
)

// RedisNamespace — префикс ключей кэша страниц в Redis.
const RedisNamespace = "yatube:page:"

// App — приложение, собранное из конфигурации.
type App struct {
	Deps
	events  events.Publisher
	closers []func() error
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warnf("Error during shutdown: %v", err)
		}
	}
}

// OpenCache открывает кэш страниц выбранного бэкенда.
func OpenCache(ctx context.Context, cfg *config.Config) (cache.Cache, func() error, error) {
	if cfg.Cache.Backend != "redis" {
		return cache.NewMemory(), func() error { return nil }, nil
	}
	client, err := cache.Dial(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	return cache.NewRedis(client, RedisNamespace), client.Close, nil
}

// OpenStore открывает базу и применяет миграции.
func OpenStore(cfg *config.Config) (*database.Store, error) {
	store, err := database.Open(cfg.DSN())
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func openMedia(ctx context.Context, cfg *config.Config) (media.Storage, []string, string, error) {
	if cfg.Media.Backend != "s3" {
		return media.NewLocal(cfg.Media.Root, cfg.Media.URLPrefix), nil, cfg.Media.Root, nil
	}
	s3, err := media.NewS3(media.S3Config{
		Endpoint:  cfg.Media.S3Endpoint,
		AccessKey: cfg.Media.S3AccessKey,
		SecretKey: cfg.Media.S3SecretKey,
		UseSSL:    cfg.Media.S3UseSSL,
		Bucket:    cfg.Media.S3Bucket,
	})
	if err != nil {
		return nil, nil, "", err
	}
	if err := s3.EnsureBucket(ctx); err != nil {
		return nil, nil, "", err
	}
	return s3, []string{s3.Origin()}, "", nil
}

// Build открывает все внешние ресурсы и связывает компоненты.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{}
	fail := func(err error) (*App, error) {
		app.Close()
		return nil, err
	}

	store, err := OpenStore(cfg)
	if err != nil {
		return fail(err)
	}
	app.closers = append(app.closers, store.Close)

	pageCache, closeCache, err := OpenCache(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	app.closers = append(app.closers, closeCache)

	storage, imgSources, mediaRoot, err := openMedia(ctx, cfg)
	if err != nil {
		return fail(err)
	}

	app.events = events.Noop{}
	if cfg.Kafka.Brokers != "" {
		app.events = events.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		log.Infof("Publishing events to Kafka topic %s", cfg.Kafka.Topic)
	}
	app.closers = append(app.closers, app.events.Close)

	static, err := staticFS(cfg.Server.StaticDir)
	if err != nil {
		return fail(fmt.Errorf("server: static files: %w", err))
	}

	renderer, err := handlers.NewRenderer(web.Templates, storage.URL)
	if err != nil {
		return fail(err)
	}
	authSvc := auth.NewService(store, cfg.Session.Expiration, cfg.Server.CookieSecure)

	app.Deps = Deps{
		Store:       store,
		Auth:        authSvc,
		Handler:     handlers.New(store, authSvc, storage, app.events, renderer),
		Cache:       pageCache,
		CacheTTL:    cfg.Cache.TTL,
		RateLimiter: middleware.NewRateLimiter(cfg.Server.RateLimit),
		Static:      static,
		MediaRoot:   mediaRoot,
		ImgSources:  imgSources,
	}
	if cfg.Server.RateLimit <= 0 {
		app.RateLimiter = nil
	}
	return app, nil
}
