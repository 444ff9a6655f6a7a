package folio

import (
	"encoding/xml"

	"github.com/folio-press/folio/articles"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// buildSitemap lists the home page, the article listing and every indexed
// article. lastmod is only set for dates that parse.
func (a *App) buildSitemap(index []articles.IndexItem) sitemapURLSet {
	base := a.Config.URL
	urls := []sitemapURL{
		{Loc: BuildURL(base)},
		{Loc: BuildURL(base, "articles")},
	}
	for _, it := range index {
		u := sitemapURL{Loc: ArticleURL(a.Config, it.Slug)}
		if t, ok := articles.ParseDate(it.FrontMatter.Date); ok {
			u.LastMod = t.UTC().Format("2006-01-02")
		}
		urls = append(urls, u)
	}
	return sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
}

func robotsTxt(cfg SiteConfig) string {
	return "User-agent: *\nAllow: /\n\nSitemap: " + BuildURL(cfg.URL, "sitemap.xml") + "\n"
}
