package folio

import (
	"github.com/folio-press/folio/analytics"
	"github.com/folio-press/folio/articles"
)

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // og:url
	Canonical   string // rel=canonical; the cross-posted original when there is one
	OGType      string // "website" or "article"
	Image       string // absolute og:image URL
	NoIndex     bool
}

// HomePage is the view model of "/".
type HomePage struct {
	Meta      PageMeta
	Latest    []articles.IndexItem
	Total     int
	Analytics AnalyticsCard
}

// AnalyticsCard is the dashboard summary on the home page.
type AnalyticsCard struct {
	Enabled     bool
	Message     string // shown when disabled or failing
	RangeLabel  string
	TotalViews  int
	Daily       []analytics.DailyViews
	TopArticles []TopArticle
}

// TopArticle is a most-viewed article resolved to its title.
type TopArticle struct {
	Path  string
	Slug  string
	Title string
	Views int
}

// ListPage is the view model of "/articles".
type ListPage struct {
	Meta       PageMeta
	Items      []articles.IndexItem
	Page       int
	TotalPages int
	Total      int
}

// ArticlePage is the view model of "/articles/:slug".
type ArticlePage struct {
	Meta      PageMeta
	Article   articles.Article
	SourceURL string // cross-posted original, if known
	Related   []articles.IndexItem
	JSONLD    string
}
