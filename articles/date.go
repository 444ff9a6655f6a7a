package articles

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var reLooseDate = regexp.MustCompile(`^(\d{4})[./-](\d{1,2})[./-](\d{1,2})$`)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC1123Z,
	time.RFC1123,
}

// ParseDate parses the loosely formatted front matter date. Day precision
// dates ("2024-01-05", "2024.01.05", "2024/1/5") resolve to UTC midnight.
func ParseDate(s string) (time.Time, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return time.Time{}, false
	}
	if m := reLooseDate.FindStringSubmatch(raw); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
		// time.Date normalizes 2024-02-31 into March; reject instead.
		if t.Year() != y || int(t.Month()) != mo || t.Day() != d {
			return time.Time{}, false
		}
		return t, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// sortByDateDesc orders entries newest first. Entries whose date does not
// parse go after every dated entry; ties keep their incoming order.
func sortByDateDesc(items []entry) {
	type dated struct {
		e  entry
		t  time.Time
		ok bool
	}
	keyed := make([]dated, len(items))
	for i, e := range items {
		t, ok := ParseDate(e.FrontMatter.Date)
		keyed[i] = dated{e: e, t: t, ok: ok}
	}
	sort.SliceStable(keyed, func(i, j int) bool {
		a, b := keyed[i], keyed[j]
		if a.ok != b.ok {
			return a.ok
		}
		return a.ok && a.t.After(b.t)
	})
	for i := range keyed {
		items[i] = keyed[i].e
	}
}
