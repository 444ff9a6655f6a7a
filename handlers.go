package folio

import (
	"bytes"
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/folio-press/folio/articles"
)

const (
	homeLatest   = 5
	relatedLimit = 3
)

func (a *App) setupRoutes() {
	e := a.Echo

	e.FileFS("/public/folio.css", "embedded/folio.css", EmbeddedAssets)
	e.Static("/public", a.staticDir)

	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/rss.xml", a.handleFeed)
	e.GET("/opengraph-image", a.handleSiteImage)
	e.GET("/healthz", handleHealth)

	e.GET("/", a.handleHome)
	e.GET("/articles", a.handleArticles)
	e.GET("/articles/:slug", a.handleArticle)
	e.GET("/articles/:slug/opengraph-image", a.handleArticleImage)

	api := e.Group("/api")
	api.GET("/articles", a.handleAPIIndex)
	api.GET("/articles/:slug", a.handleAPIArticle)
	api.POST("/revalidate", a.handleRevalidate)
}

func (a *App) siteMeta(title, description, pageURL, ogType string) PageMeta {
	if description == "" {
		description = a.Config.Description
	}
	return PageMeta{
		Title:       title,
		Description: description,
		URL:         pageURL,
		Canonical:   pageURL,
		OGType:      ogType,
		Image:       BuildURL(a.Config.URL, "opengraph-image"),
	}
}

func (a *App) handleHome(c echo.Context) error {
	ctx := c.Request().Context()
	index := a.Library.Index(ctx)
	latest := index
	if len(latest) > homeLatest {
		latest = latest[:homeLatest]
	}
	return Render(c, a.Views.Home(a.Config, HomePage{
		Meta:      a.siteMeta(a.Config.Name, "", BuildURL(a.Config.URL), "website"),
		Latest:    latest,
		Total:     len(index),
		Analytics: a.analyticsCard(c, index),
	}))
}

// analyticsCard summarises recent page views. Failures degrade to a
// disabled card rather than failing the page.
func (a *App) analyticsCard(c echo.Context, index []articles.IndexItem) AnalyticsCard {
	if a.Analytics == nil {
		return AnalyticsCard{Message: "Page view analytics are disabled."}
	}
	d, err := a.Analytics.Dashboard(c.Request().Context(), a.Config.AnalyticsDays, timeNow())
	if err != nil {
		a.Logger.Error("analytics dashboard", "error", err)
		return AnalyticsCard{Message: "Page view analytics are temporarily unavailable."}
	}

	titles := make(map[string]string, len(index))
	for _, it := range index {
		titles[it.Slug] = it.FrontMatter.Title
	}
	top := make([]TopArticle, 0, len(d.TopArticles))
	for _, t := range d.TopArticles {
		title := titles[t.Slug]
		if title == "" {
			title = t.Slug
		}
		top = append(top, TopArticle{Path: t.Path, Slug: t.Slug, Title: title, Views: t.Views})
	}
	return AnalyticsCard{
		Enabled:     true,
		RangeLabel:  d.RangeLabel,
		TotalViews:  d.TotalViews,
		Daily:       d.Daily,
		TopArticles: top,
	}
}

// pageBounds clamps a requested 1-based page into range and returns the
// slice bounds for it.
func pageBounds(requested, total, size int) (page, pages, start, end int) {
	pages = (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	page = min(max(requested, 1), pages)
	start = min((page-1)*size, total)
	end = min(start+size, total)
	return page, pages, start, end
}

func (a *App) handleArticles(c echo.Context) error {
	index := a.Library.Index(c.Request().Context())
	requested, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil {
		requested = 1
	}
	page, pages, start, end := pageBounds(requested, len(index), a.Config.PageSize)

	pageURL := BuildURL(a.Config.URL, "articles")
	if page > 1 {
		pageURL += "?page=" + strconv.Itoa(page)
	}
	return Render(c, a.Views.Articles(a.Config, ListPage{
		Meta:       a.siteMeta("Articles", "", pageURL, "website"),
		Items:      index[start:end],
		Page:       page,
		TotalPages: pages,
		Total:      len(index),
	}))
}

func (a *App) handleArticle(c echo.Context) error {
	ctx := c.Request().Context()
	slug := c.Param("slug")
	art, ok := a.Library.Article(ctx, slug)
	if !ok {
		return echo.ErrNotFound
	}

	description := ArticleDescription(a.Config, art.Content)
	pageURL := ArticleURL(a.Config, art.Slug)
	meta := a.siteMeta(art.FrontMatter.Title, description, pageURL, "article")
	meta.Image = BuildURL(a.Config.URL, "articles", art.Slug, "opengraph-image")
	source := CanonicalSourceURL(a.Config, art.Slug, art.FrontMatter)
	if source != "" {
		meta.Canonical = source
	}

	return Render(c, a.Views.Article(a.Config, ArticlePage{
		Meta:      meta,
		Article:   art,
		SourceURL: source,
		Related:   RelatedArticles(art, a.Library.Index(ctx), relatedLimit),
		JSONLD:    ArticleJsonLD(a.Config, art, description),
	}))
}

func (a *App) handleAPIIndex(c echo.Context) error {
	index := a.Library.Index(c.Request().Context())
	if index == nil {
		index = []articles.IndexItem{}
	}
	return c.JSON(http.StatusOK, index)
}

func (a *App) handleAPIArticle(c echo.Context) error {
	art, ok := a.Library.Article(c.Request().Context(), c.Param("slug"))
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "article not found"})
	}
	return c.JSON(http.StatusOK, art)
}

// handleRevalidate drops the cached index when called with the configured
// token. Repeated bad tokens from one IP are throttled.
func (a *App) handleRevalidate(c echo.Context) error {
	if a.Config.RevalidateToken == "" {
		return echo.ErrNotFound
	}
	ip := c.RealIP()
	if !a.tokenLimiter.Check(ip) {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many attempts"})
	}
	token := c.Request().Header.Get("X-Revalidate-Token")
	if subtle.ConstantTimeCompare([]byte(token), []byte(a.Config.RevalidateToken)) != 1 {
		a.tokenLimiter.Record(ip)
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
	}
	if err := a.Library.Invalidate(c.Request().Context()); err != nil {
		return err
	}
	a.Logger.Info("article index invalidated", "ip", ip)
	return c.JSON(http.StatusOK, map[string]any{"revalidated": true, "at": timeNow().UTC()})
}

func (a *App) handleSitemap(c echo.Context) error {
	return renderXML(c, "application/xml; charset=utf-8", a.buildSitemap(a.Library.Index(c.Request().Context())))
}

func (a *App) handleFeed(c echo.Context) error {
	ctx := c.Request().Context()
	return renderXML(c, "application/rss+xml; charset=utf-8", a.buildFeed(ctx, a.Library.Index(ctx)))
}

func (a *App) handleRobots(c echo.Context) error {
	return c.String(http.StatusOK, robotsTxt(a.Config))
}

func (a *App) handleSiteImage(c echo.Context) error {
	return a.renderImage(c, OGCard{
		Title:    a.Config.Name,
		Subtitle: a.Config.Description,
		Footer:   a.Config.URL,
	})
}

func (a *App) handleArticleImage(c echo.Context) error {
	it, ok := a.Library.Lookup(c.Request().Context(), c.Param("slug"))
	if !ok {
		return echo.ErrNotFound
	}
	return a.renderImage(c, OGCard{
		Title:  it.FrontMatter.Title,
		Tags:   it.FrontMatter.Topics,
		Footer: a.Config.Name,
	})
}

func (a *App) renderImage(c echo.Context, card OGCard) error {
	var buf bytes.Buffer
	if err := RenderOGImage(&buf, card); err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

func handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	isAPI := strings.HasPrefix(c.Request().URL.Path, "/api/")
	if ok && he.Code == http.StatusNotFound && !isAPI {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.Config))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.Logger.Error("server error", "path", c.Request().URL.Path, "error", err)
		if !isAPI {
			_ = RenderStatus(c, code, a.Views.ServerError(a.Config))
			return
		}
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
