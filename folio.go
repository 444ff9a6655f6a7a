// Package folio is a portfolio and blog site built with Go, Echo, and templ.
// Articles are markdown files indexed from GitHub repositories or a local
// directory; the site adds listings, article pages, RSS, a sitemap, Open
// Graph images and an optional self-hosted page view dashboard.
//
// Users provide their own templ templates via the ViewFuncs struct, and
// folio handles the handler logic, middleware, and feeds.
package folio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/folio-press/folio/analytics"
	"github.com/folio-press/folio/articles"
)

// timeNow is replaced in tests.
var timeNow = time.Now

// ArticleSource is the article index the site renders. *articles.Library
// implements it.
type ArticleSource interface {
	Index(ctx context.Context) []articles.IndexItem
	Article(ctx context.Context, slug string) (articles.Article, bool)
	Lookup(ctx context.Context, slug string) (articles.IndexItem, bool)
	Invalidate(ctx context.Context) error
}

// ViewFuncs holds user-provided templ components that the framework calls
// when rendering pages.
type ViewFuncs struct {
	Home        func(cfg SiteConfig, page HomePage) templ.Component
	Articles    func(cfg SiteConfig, page ListPage) templ.Component
	Article     func(cfg SiteConfig, page ArticlePage) templ.Component
	NotFound    func(cfg SiteConfig) templ.Component
	ServerError func(cfg SiteConfig) templ.Component
}

// App is the central folio application. It wires together the article
// index, analytics, handlers, middleware, and user-provided templates.
type App struct {
	Config    SiteConfig
	Echo      *echo.Echo
	Library   ArticleSource
	Views     ViewFuncs
	Analytics *analytics.Store
	Logger    *slog.Logger

	recorder     *analytics.Recorder
	tokenLimiter *TokenLimiter
	customRoutes []func(*App)
	staticDir    string
	setupOnce    sync.Once
}

// New creates a folio App serving lib with the given configuration and views.
func New(cfg SiteConfig, lib ArticleSource, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Library:   lib,
		Views:     views,
		Logger:    slog.Default(),
		staticDir: "public",
	}
	for _, opt := range opts {
		opt(a)
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true
	return a
}

// Handler finishes setup on first use and returns the HTTP handler.
func (a *App) Handler() http.Handler {
	a.setupOnce.Do(func() {
		a.tokenLimiter = NewTokenLimiter(5, time.Minute)
		if a.Analytics != nil {
			a.recorder = analytics.NewRecorder(a.Analytics, analytics.RecorderConfig{
				Skipper: skipPageView,
				Logger:  a.Logger,
			})
		}
		a.setupMiddleware()
		a.setupRoutes()
		for _, fn := range a.customRoutes {
			fn(a)
		}
	})
	return a.Echo
}

// Start validates the configuration and serves until ctx is cancelled, then
// shuts down gracefully.
func (a *App) Start(ctx context.Context) error {
	if err := a.Config.Validate(); err != nil {
		return fmt.Errorf("folio: invalid config: %w", err)
	}
	a.Handler()

	if a.Analytics != nil {
		stopCleanup := a.Analytics.StartCleanupScheduler(365, 24*time.Hour, a.Logger)
		defer stopCleanup()
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server started", "addr", a.Config.Addr, "url", a.Config.URL)
		errCh <- a.Echo.Start(a.Config.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("folio: shutdown: %w", err)
	}
	return nil
}

// Close releases background resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.recorder != nil {
		a.recorder.Close()
	}
	if a.tokenLimiter != nil {
		a.tokenLimiter.Close()
	}
	if a.Analytics != nil {
		return a.Analytics.Close()
	}
	return nil
}
