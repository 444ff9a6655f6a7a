package folio

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/folio-press/folio/articles"
	"github.com/folio-press/folio/markdown"
)

const descriptionLimit = 160

// BuildURL appends escaped path segments to base. With no segments it
// returns the root URL with a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(base, "/"))
	if len(pathSegments) == 0 {
		b.WriteString("/")
	}
	for _, seg := range pathSegments {
		b.WriteString("/")
		b.WriteString(url.PathEscape(seg))
	}
	return b.String()
}

// ArticleURL returns the absolute URL of an article on this site.
func ArticleURL(cfg SiteConfig, slug string) string {
	return BuildURL(cfg.URL, "articles", slug)
}

// CanonicalSourceURL returns where the article was originally published.
// Articles with a qiitaId point to Qiita, everything else to Zenn. The
// result is empty when the matching platform user is not configured.
func CanonicalSourceURL(cfg SiteConfig, slug string, fm articles.FrontMatter) string {
	if id := strings.TrimSpace(fm.QiitaID); id != "" {
		user := cfg.Platforms.Qiita.UserName
		if user == "" {
			return ""
		}
		return "https://qiita.com/" + url.PathEscape(user) + "/items/" + url.PathEscape(id)
	}
	user := cfg.Platforms.Zenn.UserName
	if user == "" {
		return ""
	}
	return "https://zenn.dev/" + url.PathEscape(user) + "/articles/" + url.PathEscape(slug)
}

// ArticleDescription summarises an article body for meta tags and feeds,
// falling back to the site description for bodies with no prose.
func ArticleDescription(cfg SiteConfig, content string) string {
	if d := markdown.Excerpt(content, descriptionLimit); d != "" {
		return d
	}
	return cfg.Description
}

// RelatedArticles returns up to limit items sharing a topic with current,
// in index order.
func RelatedArticles(current articles.Article, items []articles.IndexItem, limit int) []articles.IndexItem {
	topics := make(map[string]struct{}, len(current.FrontMatter.Topics))
	for _, t := range current.FrontMatter.Topics {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			topics[t] = struct{}{}
		}
	}
	var related []articles.IndexItem
	for _, it := range items {
		if len(related) == limit {
			break
		}
		if it.Slug == current.Slug {
			continue
		}
		for _, t := range it.FrontMatter.Topics {
			if _, ok := topics[strings.ToLower(strings.TrimSpace(t))]; ok {
				related = append(related, it)
				break
			}
		}
	}
	return related
}

// WebsiteJsonLD returns a JSON-LD string for a WebSite schema.
func WebsiteJsonLD(cfg SiteConfig) string {
	data := map[string]any{
		"@context":    "https://schema.org",
		"@type":       "WebSite",
		"name":        cfg.Name,
		"url":         cfg.URL,
		"description": cfg.Description,
	}
	if cfg.Author.Name != "" {
		data["author"] = map[string]string{"@type": "Person", "name": cfg.Author.Name}
	}
	return marshalJsonLD(data)
}

// ArticleJsonLD returns a JSON-LD string for a BlogPosting schema.
func ArticleJsonLD(cfg SiteConfig, a articles.Article, description string) string {
	pageURL := ArticleURL(cfg, a.Slug)
	data := map[string]any{
		"@context":    "https://schema.org",
		"@type":       "BlogPosting",
		"headline":    a.FrontMatter.Title,
		"description": description,
		"url":         pageURL,
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   pageURL,
		},
	}
	if t, ok := articles.ParseDate(a.FrontMatter.Date); ok {
		data["datePublished"] = t.Format("2006-01-02")
	}
	if cfg.Author.Name != "" {
		data["author"] = map[string]string{"@type": "Person", "name": cfg.Author.Name}
	}
	if len(a.FrontMatter.Topics) > 0 {
		data["keywords"] = strings.Join(a.FrontMatter.Topics, ", ")
	}
	if src := CanonicalSourceURL(cfg, a.Slug, a.FrontMatter); src != "" {
		data["isBasedOn"] = src
	}
	return marshalJsonLD(data)
}

func marshalJsonLD(data map[string]any) string {
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
