package saunasite

import (
	"net/url"
	"strings"
	"time"

	"github.com/eringen/saunasite/logger"
	"github.com/eringen/saunasite/sitemap"
	"github.com/eringen/saunasite/storage"
)

// SiteConfig holds all configuration for the site backend.
type SiteConfig struct {
	Name        string // Business name (default "Sauna Co")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and JSON-LD
	Phone       string // LocalBusiness telephone
	Email       string // LocalBusiness email
	Street      string
	Locality    string
	Region      string
	PostalCode  string
	Country     string
	PriceRange  string // LocalBusiness priceRange, e.g. "$$"

	Addr           string // Listen address (default ":3000")
	DatabaseDriver string // "sqlite" (default) or "postgres"
	DatabaseDSN    string // SQLite path or PostgreSQL DSN (default "data/saunasite.db")

	AdminPassword string // Required: admin login password
	SessionSecret string // Required: session encryption secret
	CookieSecure  bool   // Set true for HTTPS

	CacheTTL    time.Duration // Content cache TTL (default 5min)
	ReadTimeout time.Duration // Sitemap and health read budget (default 10s)

	UploadDir string // Filesystem upload root (default "public")
	UploadURL string // URL prefix UploadDir is served from (default "/public")
	S3        storage.S3Config

	RedisAddr     string // Shares the login limiter across instances when set
	RedisPassword string
	RedisDB       int

	LoginMaxAttempts int           // default 5
	LoginWindow      time.Duration // default 1min

	Tracing bool // Wrap requests in OpenTelemetry spans
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Sauna Co"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimRight(c.URL, "/")
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabaseDriver == "" {
		c.DatabaseDriver = DriverSQLite
	}
	if c.DatabaseDSN == "" {
		c.DatabaseDSN = "data/saunasite.db"
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.UploadDir == "" {
		c.UploadDir = "public"
	}
	if c.UploadURL == "" {
		c.UploadURL = "/public"
	}
	if c.LoginMaxAttempts == 0 {
		c.LoginMaxAttempts = 5
	}
	if c.LoginWindow == 0 {
		c.LoginWindow = time.Minute
	}
}

// Hostname returns the host of URL without port, used to recognize
// absolute links that point back at this site.
func (c SiteConfig) Hostname() string {
	u, err := url.Parse(c.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithLogger sets the application logger (default: no-op).
func WithLogger(log logger.Logger) Option {
	return func(a *App) {
		a.Log = log
	}
}

// WithStorage overrides the upload backend chosen from SiteConfig.
func WithStorage(b storage.Backend) Option {
	return func(a *App) {
		a.Storage = b
	}
}

// WithStaticPages replaces the hand-curated sitemap table.
func WithStaticPages(pages []sitemap.StaticPage) Option {
	return func(a *App) {
		a.staticPages = pages
	}
}

// WithLimiter overrides the login limiter chosen from SiteConfig.
func WithLimiter(l Limiter) Option {
	return func(a *App) {
		a.loginLimiter = l
	}
}

// WithClock sets the time source used for sitemap dates and staleness.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}
