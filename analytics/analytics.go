// Package analytics records page views in SQLite and summarises them for the
// home page dashboard. Visitors are identified by salted hashes only.
package analytics

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// PageView is a single recorded HTML page view.
type PageView struct {
	VisitorID string
	SessionID string
	IPHash    string
	Browser   string
	OS        string
	Device    string
	Path      string
	Slug      string // article slug when Path is /articles/<slug>
	Referrer  string
	Timestamp time.Time
}

// BotVisit is a page request made by a crawler.
type BotVisit struct {
	BotName   string
	IPHash    string
	UserAgent string
	Path      string
	Timestamp time.Time
}

// Dashboard summarises page views over a trailing range of days.
type Dashboard struct {
	RangeLabel  string         `json:"rangeLabel"`
	From        time.Time      `json:"from"`
	To          time.Time      `json:"to"`
	TotalViews  int            `json:"totalPageViews"`
	Daily       []DailyViews   `json:"dailyPageViews"`
	TopArticles []ArticleViews `json:"topArticles"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// DailyViews is the page view count of one UTC day.
type DailyViews struct {
	Date  string `json:"date"`  // 2006-01-02
	Label string `json:"label"` // M/D
	Views int    `json:"pv"`
}

// ArticleViews is the page view count of one article.
type ArticleViews struct {
	Path  string `json:"path"`
	Slug  string `json:"slug"`
	Views int    `json:"views"`
}

// DayLabel formats t as "M/D".
func DayLabel(t time.Time) string {
	return fmt.Sprintf("%d/%d", int(t.Month()), t.Day())
}

// ArticleSlug extracts the slug from an /articles/<slug> path. Query strings,
// fragments and deeper segments are ignored; other paths yield "".
func ArticleSlug(path string) string {
	clean, _, _ := strings.Cut(path, "?")
	clean, _, _ = strings.Cut(clean, "#")
	rest, ok := strings.CutPrefix(clean, "/articles/")
	if !ok {
		return ""
	}
	seg, _, _ := strings.Cut(rest, "/")
	slug, err := url.PathUnescape(seg)
	if err != nil {
		return ""
	}
	return slug
}

func hashWithSalt(salt string, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(salt))
	h.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// ParseUserAgent extracts browser, OS, and device from User-Agent string.
func ParseUserAgent(ua string) (browser, os, device string) {
	ua = strings.ToLower(ua)

	// Edge and Opera also announce chrome, so they go first.
	switch {
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	case strings.Contains(ua, "opera") || strings.Contains(ua, "opr/"):
		browser = "Opera"
	case strings.Contains(ua, "edg"):
		browser = "Edge"
	case strings.Contains(ua, "chrome"):
		browser = "Chrome"
	case strings.Contains(ua, "safari"):
		browser = "Safari"
	default:
		browser = "Other"
	}

	switch {
	case strings.Contains(ua, "windows"):
		os = "Windows"
	case strings.Contains(ua, "android"):
		os = "Android"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad"):
		os = "iOS"
	case strings.Contains(ua, "macintosh") || strings.Contains(ua, "mac os"):
		os = "macOS"
	case strings.Contains(ua, "linux"):
		os = "Linux"
	default:
		os = "Other"
	}

	switch {
	case strings.Contains(ua, "tablet") || strings.Contains(ua, "ipad"):
		device = "Tablet"
	case strings.Contains(ua, "mobile"):
		device = "Mobile"
	default:
		device = "Desktop"
	}
	return
}

var botMarkers = []string{
	"bot", "crawler", "spider", "crawl", "slurp", "scrape",
	"facebookexternalhit", "yandex", "baidu", "headlesschrome", "lighthouse",
}

// IsBot reports whether ua looks like a crawler. An empty agent counts as one.
func IsBot(ua string) bool {
	ua = strings.ToLower(strings.TrimSpace(ua))
	if ua == "" {
		return true
	}
	for _, m := range botMarkers {
		if strings.Contains(ua, m) {
			return true
		}
	}
	return false
}

// known bot names, checked in order.
var botNames = []struct{ pattern, name string }{
	{"googlebot", "Googlebot"},
	{"bingbot", "Bingbot"},
	{"duckduckbot", "DuckDuckBot"},
	{"yandex", "Yandex"},
	{"baidu", "Baidu"},
	{"facebookexternalhit", "Facebook"},
	{"twitterbot", "Twitterbot"},
	{"slackbot", "Slackbot"},
	{"discordbot", "Discordbot"},
	{"hatena", "Hatena"},
	{"ahrefsbot", "Ahrefs"},
	{"semrushbot", "SEMrush"},
	{"headlesschrome", "HeadlessChrome"},
	{"lighthouse", "Lighthouse"},
}

// ExtractBotName returns a display name for a crawler user agent.
func ExtractBotName(ua string) string {
	lower := strings.ToLower(ua)
	for _, b := range botNames {
		if strings.Contains(lower, b.pattern) {
			return b.name
		}
	}
	if strings.TrimSpace(ua) == "" {
		return "Empty"
	}
	return "Other Bot"
}

var referrerDomain = regexp.MustCompile(`^https?://(?:www\.)?([^/:]+)`)

// CleanReferrer reduces a referrer URL to a source name or bare domain.
func CleanReferrer(ref string) string {
	if ref == "" {
		return "Direct"
	}
	m := referrerDomain.FindStringSubmatch(strings.ToLower(ref))
	if m == nil {
		return "Other"
	}
	domain := m[1]
	switch {
	case strings.Contains(domain, "google."):
		return "Google"
	case strings.Contains(domain, "bing."):
		return "Bing"
	case strings.Contains(domain, "duckduckgo."):
		return "DuckDuckGo"
	case domain == "zenn.dev":
		return "Zenn"
	case domain == "qiita.com":
		return "Qiita"
	case domain == "github.com":
		return "GitHub"
	case domain == "t.co" || domain == "x.com" || domain == "twitter.com":
		return "X"
	}
	return domain
}
