package folio

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/labstack/echo/v4"
	"gopkg.in/yaml.v3"

	"github.com/folio-press/folio/analytics"
)

// Author is the profile shown on the home page.
type Author struct {
	Name          string `yaml:"name"`
	Age           int    `yaml:"age"`
	ProjectsCount int    `yaml:"projectsCount"`
	HourlyRate    string `yaml:"hourlyRate"`
	Bio           string `yaml:"bio"`
}

// Account is a user on an external publishing platform.
type Account struct {
	UserName string `yaml:"userName"`
}

// Platforms lists where articles are cross-posted.
type Platforms struct {
	Zenn  Account `yaml:"zenn"`
	Qiita Account `yaml:"qiita"`
}

// Social holds profile links.
type Social struct {
	X       string `yaml:"x"`
	GitHub  string `yaml:"github"`
	Website string `yaml:"website"`
}

func (s Social) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.X, is.URL),
		validation.Field(&s.GitHub, is.URL),
		validation.Field(&s.Website, is.URL),
	)
}

// SiteConfig holds all configuration for a folio site.
type SiteConfig struct {
	Name        string `yaml:"name"`        // Site name (default "Portfolio")
	URL         string `yaml:"url"`         // Absolute URL without trailing slash (default "http://localhost:3000")
	Description string `yaml:"description"` // Used for meta tags, RSS and fallback descriptions
	Language    string `yaml:"language"`    // RSS and <html lang> (default "ja")

	Author    Author    `yaml:"author"`
	Platforms Platforms `yaml:"platforms"`
	Social    Social    `yaml:"social"`
	Skills    []string  `yaml:"skills"`

	Addr string `yaml:"-"` // Listen address (default ":3000")

	AnalyticsEnabled      bool   `yaml:"-"` // Record page views (default false)
	AnalyticsDatabasePath string `yaml:"-"` // SQLite path (default "data/analytics.db")
	AnalyticsDays         int    `yaml:"-"` // Dashboard range (default 30)

	RevalidateToken string `yaml:"-"` // Enables POST /api/revalidate when set
	MetricsEnabled  bool   `yaml:"-"` // Serve /metrics

	FeedLimit int `yaml:"-"` // RSS items (default 50)
	PageSize  int `yaml:"-"` // Articles per listing page (default 10)
}

// LoadSiteFile reads a YAML site profile. A missing file yields an empty
// config so defaults and environment overrides still apply.
func LoadSiteFile(path string) (SiteConfig, error) {
	var cfg SiteConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read site file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse site file %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides file values with environment variables.
func (c *SiteConfig) ApplyEnv() {
	c.URL = EnvOr("SITE_URL", c.URL)
	c.Name = EnvOr("SITE_NAME", c.Name)
	c.Description = EnvOr("SITE_DESCRIPTION", c.Description)
	c.Platforms.Zenn.UserName = EnvOr("ZENN_USER_NAME", c.Platforms.Zenn.UserName)
	c.Platforms.Qiita.UserName = EnvOr("QIITA_USER_NAME", c.Platforms.Qiita.UserName)
	c.Addr = EnvOr("ADDR", c.Addr)
	c.AnalyticsEnabled = EnvBool("ANALYTICS_ENABLED", c.AnalyticsEnabled)
	c.AnalyticsDatabasePath = EnvOr("ANALYTICS_DB", c.AnalyticsDatabasePath)
	c.RevalidateToken = EnvOr("REVALIDATE_TOKEN", c.RevalidateToken)
	c.MetricsEnabled = EnvBool("METRICS_ENABLED", c.MetricsEnabled)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Portfolio"
	}
	c.URL = strings.TrimRight(strings.TrimSpace(c.URL), "/")
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Language == "" {
		c.Language = "ja"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.AnalyticsDatabasePath == "" {
		c.AnalyticsDatabasePath = "data/analytics.db"
	}
	if c.AnalyticsDays == 0 {
		c.AnalyticsDays = 30
	}
	if c.FeedLimit == 0 {
		c.FeedLimit = 50
	}
	if c.PageSize == 0 {
		c.PageSize = 10
	}
	c.Platforms.Zenn.UserName = strings.TrimSpace(c.Platforms.Zenn.UserName)
	c.Platforms.Qiita.UserName = strings.TrimSpace(c.Platforms.Qiita.UserName)
}

// Validate reports configuration that would produce broken links or feeds.
func (c SiteConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.URL, validation.Required, is.URL),
		validation.Field(&c.Language, validation.Required, validation.Length(2, 16)),
		validation.Field(&c.Social),
		validation.Field(&c.AnalyticsDays, validation.Min(1)),
		validation.Field(&c.FeedLimit, validation.Min(1)),
		validation.Field(&c.PageSize, validation.Min(1)),
	)
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

// WithAnalytics records page views into store and enables the dashboard card.
func WithAnalytics(store *analytics.Store) Option {
	return func(a *App) {
		a.Analytics = store
	}
}

// WithLogger sets the application logger (default slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.Logger = logger
	}
}

// WithEcho replaces the Echo instance, mostly for tests.
func WithEcho(e *echo.Echo) Option {
	return func(a *App) {
		a.Echo = e
	}
}

// EnvOr returns the trimmed value of the environment variable key, or
// fallback if it is empty.
func EnvOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// EnvBool parses key as a boolean, returning fallback when unset or invalid.
func EnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(EnvOr(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

// EnvInt parses key as an integer, returning fallback when unset or invalid.
func EnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(EnvOr(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

// EnvDuration parses key with time.ParseDuration, returning fallback when
// unset or invalid.
func EnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(EnvOr(key, ""))
	if err != nil {
		return fallback
	}
	return v
}
