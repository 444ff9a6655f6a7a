// Package views is the default presentation for a folio site: templ
// components for every page, exposed through folio.ViewFuncs.
package views

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/folio-press/folio"
	"github.com/folio-press/folio/articles"
	"github.com/folio-press/folio/markdown"
)

// New returns the default ViewFuncs.
func New() folio.ViewFuncs {
	return folio.ViewFuncs{
		Home:        Home,
		Articles:    Articles,
		Article:     Article,
		NotFound:    NotFound,
		ServerError: ServerError,
	}
}

// Layout wraps body in the document shell: head metadata, header and footer.
func Layout(cfg folio.SiteConfig, meta folio.PageMeta, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<!DOCTYPE html><html`)
		h.attr("lang", cfg.Language)
		h.raw(`><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
		if meta.Title == "" || meta.Title == cfg.Name {
			h.text(cfg.Name)
		} else {
			h.text(meta.Title + " | " + cfg.Name)
		}
		h.raw(`</title>`)
		if meta.Description != "" {
			h.raw(`<meta name="description"`)
			h.attr("content", meta.Description)
			h.raw(`>`)
		}
		if meta.NoIndex {
			h.raw(`<meta name="robots" content="noindex">`)
		}
		if meta.Canonical != "" {
			h.raw(`<link rel="canonical"`)
			h.url("href", meta.Canonical)
			h.raw(`>`)
		}
		h.meta("og:title", meta.Title)
		h.meta("og:type", meta.OGType)
		h.meta("og:url", meta.URL)
		h.meta("og:site_name", cfg.Name)
		h.meta("og:description", meta.Description)
		if meta.Image != "" {
			h.meta("og:image", meta.Image)
			h.raw(`<meta name="twitter:card" content="summary_large_image">`)
		}
		h.raw(`<link rel="alternate" type="application/rss+xml"`)
		h.attr("title", cfg.Name)
		h.raw(` href="/rss.xml"><link rel="stylesheet" href="/public/folio.css">`)
		h.jsonLD(folio.WebsiteJsonLD(cfg))
		h.raw(`</head><body><header class="site-header"><a href="/"><strong>`)
		h.text(cfg.Name)
		h.raw(`</strong></a><nav><a href="/articles">Articles</a><a href="/rss.xml">RSS</a>`)
		if cfg.Social.GitHub != "" {
			h.raw(`<a rel="me"`)
			h.url("href", cfg.Social.GitHub)
			h.raw(`>GitHub</a>`)
		}
		if cfg.Social.X != "" {
			h.raw(`<a rel="me"`)
			h.url("href", cfg.Social.X)
			h.raw(`>X</a>`)
		}
		h.raw(`</nav></header><main>`)
		h.component(ctx, body)
		h.raw(`</main><footer class="site-footer">&copy; `)
		h.text(strconv.Itoa(time.Now().Year()) + " ")
		if cfg.Author.Name != "" {
			h.text(cfg.Author.Name)
		} else {
			h.text(cfg.Name)
		}
		h.raw(`</footer></body></html>`)
		return h.err
	})
}

// ArticleList renders index items as a dated list of links.
func ArticleList(items []articles.IndexItem) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<ul class="article-list">`)
		for _, it := range items {
			h.raw(`<li>`)
			if it.FrontMatter.Emoji != "" {
				h.raw(`<span class="emoji">`)
				h.text(it.FrontMatter.Emoji)
				h.raw(`</span>`)
			}
			h.raw(`<a`)
			h.url("href", "/articles/"+PathEscape(it.Slug))
			h.raw(`>`)
			h.text(it.FrontMatter.Title)
			h.raw(`</a>`)
			h.date(it.FrontMatter.Date)
			h.raw(`</li>`)
		}
		h.raw(`</ul>`)
		return h.err
	})
}

func Home(cfg folio.SiteConfig, p folio.HomePage) templ.Component {
	return Layout(cfg, p.Meta, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<section class="grid"><div class="card"><h2>`)
		if cfg.Author.Name != "" {
			h.text(cfg.Author.Name)
		} else {
			h.text(cfg.Name)
		}
		h.raw(`</h2><p>`)
		if cfg.Author.Bio != "" {
			h.text(cfg.Author.Bio)
		} else {
			h.text(cfg.Description)
		}
		h.raw(`</p><dl class="stats"><div><dt>Articles</dt><dd>`)
		h.text(strconv.Itoa(p.Total))
		h.raw(`</dd></div>`)
		if cfg.Author.ProjectsCount > 0 {
			h.raw(`<div><dt>Projects</dt><dd>`)
			h.text(strconv.Itoa(cfg.Author.ProjectsCount))
			h.raw(`</dd></div>`)
		}
		if cfg.Author.HourlyRate != "" {
			h.raw(`<div><dt>Rate</dt><dd>`)
			h.text(cfg.Author.HourlyRate)
			h.raw(`</dd></div>`)
		}
		h.raw(`</dl></div>`)

		if len(cfg.Skills) > 0 {
			h.raw(`<div class="card"><h2>Skills</h2><ul class="skills">`)
			for _, s := range cfg.Skills {
				h.raw(`<li>`)
				h.text(s)
				h.raw(`</li>`)
			}
			h.raw(`</ul></div>`)
		}

		h.raw(`<div class="card"><h2>Page views</h2>`)
		if card := p.Analytics; card.Enabled {
			h.raw(`<p>`)
			h.text(card.RangeLabel)
			h.raw(`: <strong>`)
			h.text(strconv.Itoa(card.TotalViews))
			h.raw(`</strong></p><div class="bars">`)
			heights := BarHeights(card.Daily)
			for i, d := range card.Daily {
				h.raw(`<span`)
				h.attr("title", d.Label+": "+strconv.Itoa(d.Views))
				h.attr("style", "height: "+strconv.Itoa(heights[i])+"%")
				h.raw(`></span>`)
			}
			h.raw(`</div>`)
			if len(card.TopArticles) > 0 {
				h.raw(`<ol>`)
				for _, a := range card.TopArticles {
					h.raw(`<li><a`)
					h.url("href", "/articles/"+PathEscape(a.Slug))
					h.raw(`>`)
					h.text(a.Title)
					h.raw(`</a> (`)
					h.text(strconv.Itoa(a.Views))
					h.raw(`)</li>`)
				}
				h.raw(`</ol>`)
			}
		} else {
			h.raw(`<p>`)
			h.text(card.Message)
			h.raw(`</p>`)
		}
		h.raw(`</div></section><section><h2>Latest articles</h2>`)

		if len(p.Latest) == 0 {
			h.raw(`<p>No articles yet.</p>`)
		} else {
			h.component(ctx, ArticleList(p.Latest))
			if p.Total > len(p.Latest) {
				h.raw(`<p><a href="/articles">All `)
				h.text(strconv.Itoa(p.Total))
				h.raw(` articles</a></p>`)
			}
		}
		h.raw(`</section>`)
		return h.err
	}))
}

func Articles(cfg folio.SiteConfig, p folio.ListPage) templ.Component {
	return Layout(cfg, p.Meta, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<h1>Articles</h1><p>`)
		h.text(strconv.Itoa(p.Total))
		h.raw(` articles</p>`)
		h.component(ctx, ArticleList(p.Items))
		if p.TotalPages > 1 {
			h.raw(`<nav class="pagination">`)
			if p.Page > 1 {
				h.raw(`<a rel="prev"`)
				h.url("href", "/articles?page="+strconv.Itoa(p.Page-1))
				h.raw(`>Newer</a>`)
			} else {
				h.raw(`<span></span>`)
			}
			h.raw(`<span>`)
			h.text(strconv.Itoa(p.Page) + " / " + strconv.Itoa(p.TotalPages))
			h.raw(`</span>`)
			if p.Page < p.TotalPages {
				h.raw(`<a rel="next"`)
				h.url("href", "/articles?page="+strconv.Itoa(p.Page+1))
				h.raw(`>Older</a>`)
			} else {
				h.raw(`<span></span>`)
			}
			h.raw(`</nav>`)
		}
		return h.err
	}))
}

func Article(cfg folio.SiteConfig, p folio.ArticlePage) templ.Component {
	return Layout(cfg, p.Meta, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		fm := p.Article.FrontMatter
		h.raw(`<article><header>`)
		if fm.Emoji != "" {
			h.raw(`<p class="emoji">`)
			h.text(fm.Emoji)
			h.raw(`</p>`)
		}
		h.raw(`<h1>`)
		h.text(fm.Title)
		h.raw(`</h1><p>`)
		h.date(fm.Date)
		if label := KindLabel(fm.Type); label != "" {
			h.raw(`<span class="topic">`)
			h.text(label)
			h.raw(`</span>`)
		}
		for _, topic := range fm.Topics {
			h.raw(`<span class="topic">#`)
			h.text(topic)
			h.raw(`</span> `)
		}
		h.raw(`</p>`)
		if p.SourceURL != "" {
			h.raw(`<p class="canonical-note">Originally published at <a`)
			h.url("href", p.SourceURL)
			h.raw(`>`)
			h.text(p.SourceURL)
			h.raw(`</a></p>`)
		}
		h.raw(`</header><div class="article-body">`)
		h.component(ctx, markdown.Markdown(p.Article.Content))
		h.raw(`</div></article>`)
		if len(p.Related) > 0 {
			h.raw(`<section><h2>Related articles</h2>`)
			h.component(ctx, ArticleList(p.Related))
			h.raw(`</section>`)
		}
		h.jsonLD(p.JSONLD)
		return h.err
	}))
}

func NotFound(cfg folio.SiteConfig) templ.Component {
	return Layout(cfg, errorMeta(cfg, "Not found"), message(
		"Page not found",
		`The page you are looking for does not exist. <a href="/articles">Browse all articles</a>.`,
	))
}

func ServerError(cfg folio.SiteConfig) templ.Component {
	return Layout(cfg, errorMeta(cfg, "Something went wrong"), message(
		"Something went wrong",
		"Please try again in a moment.",
	))
}

func errorMeta(cfg folio.SiteConfig, title string) folio.PageMeta {
	return folio.PageMeta{
		Title:   title,
		URL:     folio.BuildURL(cfg.URL),
		OGType:  "website",
		NoIndex: true,
	}
}

// message renders a heading and a trusted HTML paragraph.
func message(title, body string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<h1>`)
		h.text(title)
		h.raw(`</h1><p>` + body + `</p>`)
		return h.err
	})
}
