package analytics

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const sessionCookie = "folio_sid"

// Recorder is an echo middleware that records successful HTML page views.
type Recorder struct {
	store   *Store
	limiter *viewLimiter
	logger  *slog.Logger
	skipper middleware.Skipper
}

// RecorderConfig configures a Recorder.
type RecorderConfig struct {
	// Skipper excludes requests before any recording logic runs.
	Skipper middleware.Skipper
	// DedupeWindow suppresses repeat views of one path by one visitor (default 30m).
	DedupeWindow time.Duration
	Logger       *slog.Logger
}

// NewRecorder returns a Recorder writing to store.
func NewRecorder(store *Store, cfg RecorderConfig) *Recorder {
	if cfg.Skipper == nil {
		cfg.Skipper = middleware.DefaultSkipper
	}
	if cfg.DedupeWindow == 0 {
		cfg.DedupeWindow = 30 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Recorder{
		store:   store,
		limiter: newViewLimiter(cfg.DedupeWindow),
		logger:  cfg.Logger,
		skipper: cfg.Skipper,
	}
}

// Close stops the background dedupe cleanup.
func (r *Recorder) Close() {
	r.limiter.stop()
}

// Middleware records the request after the handler has run.
func (r *Recorder) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if r.skipper(c) || c.Request().Method != http.MethodGet {
				return next(c)
			}
			// Mint the session cookie before the handler commits headers.
			sessionID := r.session(c)
			err := next(c)
			if err == nil && recordable(c) {
				r.record(c, sessionID)
			}
			return err
		}
	}
}

func recordable(c echo.Context) bool {
	res := c.Response()
	return res.Status == http.StatusOK &&
		strings.HasPrefix(res.Header().Get(echo.HeaderContentType), echo.MIMETextHTML) &&
		c.Request().Header.Get("DNT") != "1"
}

func (r *Recorder) session(c echo.Context) string {
	if ck, err := c.Cookie(sessionCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	id := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (r *Recorder) record(c echo.Context, sessionID string) {
	req := c.Request()
	ua := req.UserAgent()
	ip := c.RealIP()
	path := req.URL.Path
	now := time.Now().UTC()
	ctx := context.WithoutCancel(req.Context())

	if IsBot(ua) {
		err := r.store.RecordBot(ctx, BotVisit{
			BotName:   ExtractBotName(ua),
			IPHash:    r.store.HashIP(ip),
			UserAgent: ua,
			Path:      path,
			Timestamp: now,
		})
		if err != nil {
			r.logger.Error("record bot visit", "path", path, "error", err)
		}
		return
	}

	visitor := r.store.VisitorID(ip, ua)
	if !r.limiter.allow(visitor + "|" + path) {
		return
	}
	browser, os, device := ParseUserAgent(ua)
	err := r.store.RecordView(ctx, PageView{
		VisitorID: visitor,
		SessionID: sessionID,
		IPHash:    r.store.HashIP(ip),
		Browser:   browser,
		OS:        os,
		Device:    device,
		Path:      path,
		Referrer:  CleanReferrer(req.Referer()),
		Timestamp: now,
	})
	if err != nil {
		r.logger.Error("record page view", "path", path, "error", err)
	}
}
