package views

import (
	"net/url"
	"strings"

	"github.com/folio-press/folio/analytics"
	"github.com/folio-press/folio/articles"
)

// PathEscape wraps url.PathEscape for use in templates.
func PathEscape(s string) string {
	return url.PathEscape(s)
}

// FormatDate renders a front matter date as 2006.01.02. Dates that do not
// parse are shown as written.
func FormatDate(s string) string {
	if t, ok := articles.ParseDate(s); ok {
		return t.Format("2006.01.02")
	}
	return strings.TrimSpace(s)
}

// ISODate returns the machine-readable form of a front matter date for
// <time datetime>, or "" when it does not parse.
func ISODate(s string) string {
	if t, ok := articles.ParseDate(s); ok {
		return t.Format("2006-01-02")
	}
	return ""
}

// KindLabel names the article type for display.
func KindLabel(k articles.Kind) string {
	switch k {
	case articles.KindTech:
		return "Tech"
	case articles.KindIdea:
		return "Idea"
	default:
		return ""
	}
}

// JoinTopics formats a topic slice as a comma-separated string.
func JoinTopics(topics []string) string {
	return strings.Join(topics, ", ")
}

// BarHeights scales daily view counts to percentages of the busiest day.
func BarHeights(days []analytics.DailyViews) []int {
	peak := 0
	for _, d := range days {
		peak = max(peak, d.Views)
	}
	out := make([]int, len(days))
	if peak == 0 {
		return out
	}
	for i, d := range days {
		out[i] = d.Views * 100 / peak
	}
	return out
}
