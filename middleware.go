package folio

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

func (a *App) setupMiddleware() {
	e := a.Echo

	e.IPExtractor = echo.ExtractIPFromXFFHeader(
		echo.TrustLoopback(true),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(true),
	)

	e.HTTPErrorHandler = a.httpErrorHandler

	e.Pre(middleware.RemoveTrailingSlashWithConfig(middleware.TrailingSlashConfig{
		RedirectCode: http.StatusMovedPermanently,
	}))

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				a.Logger.Error("request", append(attrs, "error", v.Error)...)
				return nil
			}
			a.Logger.Info("request", attrs...)
			return nil
		},
	}))

	e.Use(middleware.Recover())

	if a.Config.MetricsEnabled {
		reg := prometheus.NewRegistry()
		mw, err := echoprometheus.MiddlewareConfig{
			Subsystem:  "http",
			Namespace:  "folio",
			Registerer: reg,
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/metrics" || strings.HasPrefix(c.Request().URL.Path, "/public/")
			},
		}.ToMiddleware()
		if err != nil {
			a.Logger.Error("metrics middleware disabled", "error", err)
		} else {
			e.Use(mw)
			e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
				Gatherer: prometheus.Gatherers{prometheus.DefaultGatherer, reg},
			}))
		}
	}

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return strings.HasPrefix(p, "/public/") || strings.HasSuffix(p, "opengraph-image")
		},
	}))

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' https: data:; font-src 'self'; connect-src 'self'",
		HSTSMaxAge:            31536000,
	}))

	e.Use(cacheControlMiddleware)

	if a.recorder != nil {
		e.Use(a.recorder.Middleware())
	}
}

// skipPageView excludes assets, feeds, images and the API from page view recording.
func skipPageView(c echo.Context) bool {
	p := c.Request().URL.Path
	return strings.HasPrefix(p, "/public/") ||
		strings.HasPrefix(p, "/api/") ||
		strings.HasSuffix(p, "opengraph-image") ||
		p == "/metrics" || p == "/healthz" ||
		p == "/rss.xml" || p == "/sitemap.xml" || p == "/robots.txt"
}

func cacheControlMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		p := c.Request().URL.Path
		h := c.Response().Header()
		switch {
		case strings.HasPrefix(p, "/public/"):
			h.Set("Cache-Control", "public, max-age=31536000, immutable")
		case p == "/robots.txt" || strings.HasSuffix(p, "opengraph-image"):
			h.Set("Cache-Control", "public, max-age=86400")
		case p == "/api/revalidate" || p == "/metrics" || p == "/healthz":
			h.Set("Cache-Control", "no-store")
		default:
			// Pages follow the index snapshot lifetime.
			h.Set("Cache-Control", "public, max-age=60")
		}
		return next(c)
	}
}
