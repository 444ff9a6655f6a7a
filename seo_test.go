package folio

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/folio-press/folio/articles"
)

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base string
		segs []string
		want string
	}{
		{"https://example.com", nil, "https://example.com/"},
		{"https://example.com/", nil, "https://example.com/"},
		{"https://example.com", []string{"articles"}, "https://example.com/articles"},
		{"https://example.com/", []string{"articles", "hello world"}, "https://example.com/articles/hello%20world"},
		{"https://example.com", []string{"articles", "a/b"}, "https://example.com/articles/a%2Fb"},
		{"https://example.com", []string{"articles", "日本語"}, "https://example.com/articles/%E6%97%A5%E6%9C%AC%E8%AA%9E"},
	}
	for _, tt := range tests {
		if got := BuildURL(tt.base, tt.segs...); got != tt.want {
			t.Errorf("BuildURL(%q, %v) = %q, want %q", tt.base, tt.segs, got, tt.want)
		}
	}
}

func TestCanonicalSourceURL(t *testing.T) {
	both := SiteConfig{Platforms: Platforms{Zenn: Account{UserName: "zuser"}, Qiita: Account{UserName: "quser"}}}
	tests := []struct {
		name string
		cfg  SiteConfig
		slug string
		fm   articles.FrontMatter
		want string
	}{
		{"zenn", both, "intro", articles.FrontMatter{}, "https://zenn.dev/zuser/articles/intro"},
		{"qiita", both, "abc", articles.FrontMatter{QiitaID: "abc"}, "https://qiita.com/quser/items/abc"},
		{"qiita without user", SiteConfig{Platforms: Platforms{Zenn: Account{UserName: "zuser"}}}, "abc", articles.FrontMatter{QiitaID: "abc"}, ""},
		{"no platforms", SiteConfig{}, "intro", articles.FrontMatter{}, ""},
		{"blank qiita id", both, "intro", articles.FrontMatter{QiitaID: "  "}, "https://zenn.dev/zuser/articles/intro"},
	}
	for _, tt := range tests {
		if got := CanonicalSourceURL(tt.cfg, tt.slug, tt.fm); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestArticleDescription(t *testing.T) {
	cfg := SiteConfig{Description: "site fallback"}

	if got := ArticleDescription(cfg, "## Title\n\nSome *text* with [a link](https://x.test)."); got != "Title Some text with ." {
		t.Errorf("unexpected description %q", got)
	}
	if got := ArticleDescription(cfg, "```go\nfunc main() {}\n```\n"); got != "site fallback" {
		t.Errorf("expected fallback, got %q", got)
	}

	long := strings.Repeat("あ", 200)
	got := ArticleDescription(cfg, long)
	if n := len([]rune(got)); n != 160 {
		t.Errorf("expected 160 runes, got %d", n)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected ellipsis, got %q", got)
	}
}

func TestRelatedArticles(t *testing.T) {
	current := articles.Article{Slug: "a", FrontMatter: articles.FrontMatter{Topics: []string{"Go", "web"}}}
	items := []articles.IndexItem{
		{Slug: "a", FrontMatter: articles.FrontMatter{Topics: []string{"go"}}},
		{Slug: "b", FrontMatter: articles.FrontMatter{Topics: []string{"rust"}}},
		{Slug: "c", FrontMatter: articles.FrontMatter{Topics: []string{"go"}}},
		{Slug: "d", FrontMatter: articles.FrontMatter{Topics: []string{"WEB "}}},
		{Slug: "e", FrontMatter: articles.FrontMatter{Topics: []string{"go", "web"}}},
	}

	got := RelatedArticles(current, items, 2)
	if len(got) != 2 || got[0].Slug != "c" || got[1].Slug != "d" {
		t.Fatalf("unexpected related %+v", got)
	}
	if got := RelatedArticles(articles.Article{Slug: "x"}, items, 3); len(got) != 0 {
		t.Fatalf("expected no related articles without topics, got %+v", got)
	}
}

func TestArticleJsonLD(t *testing.T) {
	cfg := SiteConfig{
		URL:       "https://example.com",
		Author:    Author{Name: "Taro"},
		Platforms: Platforms{Zenn: Account{UserName: "zuser"}},
	}
	a := articles.Article{
		Slug:        "intro",
		FrontMatter: articles.FrontMatter{Title: "Intro", Date: "2024-01-02", Topics: []string{"go", "web"}},
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(ArticleJsonLD(cfg, a, "desc")), &data); err != nil {
		t.Fatalf("decode json-ld: %v", err)
	}
	want := map[string]any{
		"@type":         "BlogPosting",
		"headline":      "Intro",
		"url":           "https://example.com/articles/intro",
		"datePublished": "2024-01-02",
		"keywords":      "go, web",
		"isBasedOn":     "https://zenn.dev/zuser/articles/intro",
	}
	for k, v := range want {
		if data[k] != v {
			t.Errorf("%s = %v, want %v", k, data[k], v)
		}
	}

	a.FrontMatter.Date = "someday"
	data = nil
	if err := json.Unmarshal([]byte(ArticleJsonLD(cfg, a, "desc")), &data); err != nil {
		t.Fatalf("decode json-ld: %v", err)
	}
	if _, ok := data["datePublished"]; ok {
		t.Errorf("expected no datePublished for an unparseable date")
	}
}

func TestWebsiteJsonLD(t *testing.T) {
	got := WebsiteJsonLD(SiteConfig{Name: "Site", URL: "https://example.com"})
	if !strings.Contains(got, `"@type":"WebSite"`) || strings.Contains(got, "author") {
		t.Fatalf("unexpected json-ld %s", got)
	}
}
