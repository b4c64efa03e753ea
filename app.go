// Package saunasite is the backend of a sauna installation business site.
// It serves the crawler-facing sitemaps, feed and structured data, and a
// session-gated JSON admin API for posts, the content index, the gallery
// and the internal-linking tools in package seo.
package saunasite

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/eringen/saunasite/logger"
	"github.com/eringen/saunasite/search"
	"github.com/eringen/saunasite/seo"
	"github.com/eringen/saunasite/sitemap"
	"github.com/eringen/saunasite/storage"
)

// App wires together the store, cache, handlers and middleware.
type App struct {
	Config   SiteConfig
	Echo     *echo.Echo
	Store    *Store
	Cache    *ContentCache
	Storage  storage.Backend
	Search   *search.Index
	Sitemaps *sitemap.Generator
	Auditor  *seo.Auditor
	Log      logger.Logger

	loginLimiter Limiter
	metrics      *appMetrics
	redis        *redis.Client
	customRoutes []func(*App)
	staticDir    string
	staticPages  []sitemap.StaticPage
	now          func() time.Time
	opened       bool
}

// New creates an App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:      cfg,
		Echo:        echo.New(),
		Log:         logger.NewNop(),
		staticDir:   "public",
		staticPages: sitemap.StaticPages,
		now:         time.Now,
		metrics:     newAppMetrics(),
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true

	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Open initializes the data layer: store, cache, object storage, search
// and the sitemap generator. CLI commands that do not serve HTTP stop here.
func (a *App) Open(ctx context.Context) error {
	if a.opened {
		return nil
	}

	store, err := OpenStore(ctx, a.Config.DatabaseDriver, a.Config.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("saunasite: init store: %w", err)
	}
	store.SetLogger(a.Log)
	a.Store = store
	a.Cache = NewContentCache(a.Store, a.Config.CacheTTL)

	if a.Storage == nil {
		backend, err := a.newStorage(ctx)
		if err != nil {
			return fmt.Errorf("saunasite: init storage: %w", err)
		}
		a.Storage = backend
	}

	idx, err := search.New()
	if err != nil {
		return fmt.Errorf("saunasite: init search: %w", err)
	}
	a.Search = idx
	a.Cache.OnReload(func(snap Snapshot) {
		if err := a.Search.Rebuild(snap.Entries, snap.Posts); err != nil {
			a.Log.Warn("search index rebuild failed", logger.Error(err))
		}
	})

	a.Sitemaps = &sitemap.Generator{
		BaseURL: a.Config.URL,
		Static:  a.staticPages,
		Posts:   a.Cache,
		Gallery: a.Cache,
		Now:     a.now,
	}
	a.Auditor = seo.NewAuditor(a.Config.Hostname())
	a.opened = true
	return nil
}

func (a *App) newStorage(ctx context.Context) (storage.Backend, error) {
	if a.Config.S3.Bucket != "" {
		return storage.NewS3(ctx, a.Config.S3)
	}
	return storage.New(storage.Config{BasePath: a.Config.UploadDir, PublicURL: a.Config.UploadURL})
}

func (a *App) newLimiter(ctx context.Context) Limiter {
	if a.Config.RedisAddr != "" {
		client, err := newRedisClient(ctx, a.Config.RedisAddr, a.Config.RedisPassword, a.Config.RedisDB, 5*time.Second)
		if err == nil {
			a.redis = client
			a.Log.Info("login limiter using redis", logger.String("addr", a.Config.RedisAddr))
			return NewRedisLimiter(client, a.Config.LoginMaxAttempts, a.Config.LoginWindow, a.Log)
		}
		a.Log.Warn("redis unavailable, falling back to in-memory login limiter",
			logger.String("addr", a.Config.RedisAddr), logger.Error(err))
	}
	return NewLoginLimiter(a.Config.LoginMaxAttempts, a.Config.LoginWindow)
}

// Init opens the data layer and registers middleware and routes.
func (a *App) Init(ctx context.Context) error {
	if a.Config.AdminPassword == "" {
		return errors.New("saunasite: AdminPassword is required")
	}
	if a.Config.SessionSecret == "" {
		return errors.New("saunasite: SessionSecret is required")
	}
	if err := a.Open(ctx); err != nil {
		return err
	}
	if a.loginLimiter == nil {
		a.loginLimiter = a.newLimiter(ctx)
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start initializes the app and serves HTTP until the server is shut down.
func (a *App) Start() error {
	if err := a.Init(context.Background()); err != nil {
		return err
	}
	a.Log.Info("listening", logger.String("addr", a.Config.Addr), logger.String("url", a.Config.URL))
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/public", a.staticDir)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/healthz", a.handleHealthz)
	e.GET("/metrics", a.metricsHandler())

	// Crawler endpoints
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/sitemap-images.xml", a.handleImageSitemap)
	e.GET("/sitemap-index.xml", a.handleSitemapIndex)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/api/structured-data", a.handleBusinessJSONLD)
	e.GET("/api/structured-data/blog/:slug", a.handlePostJSONLD)

	// Admin API
	api := e.Group("/admin/api")
	api.POST("/login", a.handleAdminLogin)
	api.POST("/logout", handleAdminLogout)
	api.GET("/session", handleAdminSession)

	admin := api.Group("", requireAdmin)
	admin.GET("/posts", a.handleAdminPosts)
	admin.GET("/posts/:slug", a.handleAdminPost)
	admin.PUT("/posts/:slug", a.handleAdminSavePost)
	admin.DELETE("/posts/:slug", a.handleAdminDeletePost)

	admin.GET("/entries", a.handleAdminEntries)
	admin.PUT("/entries", a.handleAdminSaveEntry)
	admin.DELETE("/entries", a.handleAdminDeleteEntry)

	admin.GET("/images", a.handleImageList)
	admin.POST("/images", a.handleImageUpload)
	admin.PUT("/images/:id", a.handleImageUpdate)
	admin.DELETE("/images/:id", a.handleImageDelete)

	admin.GET("/seo/suggestions", a.handleSuggestions)
	admin.POST("/seo/audit", a.handleAudit)
	admin.GET("/seo/health", a.handleHealthReport)
	admin.GET("/search", a.handleSearch)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if l, ok := a.loginLimiter.(*LoginLimiter); ok {
		l.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.Search != nil {
		a.Search.Close()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
