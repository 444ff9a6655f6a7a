// Package markdown renders article bodies to HTML as templ components and
// reduces them to plain text for descriptions and feeds.
package markdown

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/a-h/templ"
)

var (
	reBold             = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBoldUnderscore   = regexp.MustCompile(`__(.+?)__`)
	reItalic           = regexp.MustCompile(`\*([^*]+)\*`)
	reItalicUnderscore = regexp.MustCompile(`(^|[^\w])_([^_]+)_([^\w]|$)`)
	reStrike           = regexp.MustCompile(`~~(.+?)~~`)
	reInlineCode       = regexp.MustCompile("`([^`]+)`")
	reLink             = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)
	reImg              = regexp.MustCompile(`!\[(.*?)\]\((.*?)\)`)
	reHeading          = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	reOrderedItem      = regexp.MustCompile(`^\s*\d+\.\s+`)
	reBulletItem       = regexp.MustCompile(`^\s*[-*+]\s+`)
	reRule             = regexp.MustCompile(`^\s{0,3}([-*_])(\s*[-*_]){2,}\s*$`)
)

// Markdown returns a templ.Component that renders md as HTML.
func Markdown(md string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		RenderMarkdown(&buf, md)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

type block int

const (
	blockNone block = iota
	blockPara
	blockList
	blockOrdered
	blockQuote
	blockTable
	blockCode
)

// renderer tracks which block element is open while lines are consumed.
type renderer struct {
	buf        *bytes.Buffer
	open       block
	tableBody  bool
	codeLabel  bool
	imageCount int
}

func (r *renderer) close() {
	switch r.open {
	case blockPara:
		r.buf.WriteString("</p>")
	case blockList:
		r.buf.WriteString("</ul>")
	case blockOrdered:
		r.buf.WriteString("</ol>")
	case blockQuote:
		r.buf.WriteString("</blockquote>")
	case blockTable:
		if r.tableBody {
			r.buf.WriteString("</tbody>")
		}
		r.buf.WriteString("</table>")
		r.tableBody = false
	case blockCode:
		r.buf.WriteString("</code></pre>")
		if r.codeLabel {
			r.buf.WriteString("</div>")
			r.codeLabel = false
		}
	}
	r.open = blockNone
}

// enter closes the current block unless it is already b.
func (r *renderer) enter(b block) bool {
	if r.open == b {
		return false
	}
	r.close()
	r.open = b
	return true
}

func (r *renderer) inline(s string) string {
	return FormatInline(s, &r.imageCount)
}

// openCode starts a fenced block. The info string may be "lang" or
// "lang:path/to/file".
func (r *renderer) openCode(info string) {
	r.close()
	r.open = blockCode
	lang, file, _ := strings.Cut(strings.TrimSpace(info), ":")
	lang = html.EscapeString(strings.TrimSpace(lang))
	file = html.EscapeString(strings.TrimSpace(file))
	if lang == "" && file == "" {
		r.buf.WriteString(`<pre class="code-block"><code>`)
		return
	}
	r.codeLabel = true
	r.buf.WriteString(`<div class="code-block-wrapper"><div class="code-label">`)
	if lang != "" {
		r.buf.WriteString(`<span class="code-lang">` + lang + `</span>`)
	}
	if file != "" {
		r.buf.WriteString(`<span class="code-file">` + file + `</span>`)
	}
	r.buf.WriteString(`</div><pre class="code-block">`)
	if lang != "" {
		r.buf.WriteString(`<code class="language-` + lang + `">`)
	} else {
		r.buf.WriteString(`<code>`)
	}
}

func (r *renderer) tableRow(line string) {
	if r.enter(blockTable) {
		r.buf.WriteString("<table><thead><tr>")
		for _, cell := range parseTableCells(line) {
			r.buf.WriteString("<th>" + r.inline(cell) + "</th>")
		}
		r.buf.WriteString("</tr></thead>")
		return
	}
	if !r.tableBody {
		r.buf.WriteString("<tbody>")
		r.tableBody = true
	}
	if isTableSeparator(line) {
		return
	}
	r.buf.WriteString("<tr>")
	for _, cell := range parseTableCells(line) {
		r.buf.WriteString("<td>" + r.inline(cell) + "</td>")
	}
	r.buf.WriteString("</tr>")
}

// RenderMarkdown writes the HTML representation of md to buf.
func RenderMarkdown(buf *bytes.Buffer, md string) {
	r := &renderer{buf: buf}
	for _, raw := range strings.Split(md, "\n") {
		line := strings.TrimRight(raw, "\r")

		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if r.open == blockCode {
				r.close()
			} else {
				r.openCode(strings.TrimSpace(line)[3:])
			}
			continue
		}
		if r.open == blockCode {
			buf.WriteString(html.EscapeString(line))
			buf.WriteString("\n")
			continue
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			r.close()
		case reRule.MatchString(line):
			r.close()
			buf.WriteString("<hr/>")
		case reHeading.MatchString(trimmed):
			r.close()
			m := reHeading.FindStringSubmatch(trimmed)
			tag := "h" + strconv.Itoa(len(m[1]))
			buf.WriteString("<" + tag + ">" + r.inline(strings.TrimSpace(m[2])) + "</" + tag + ">")
		case strings.HasPrefix(trimmed, "|"):
			r.tableRow(trimmed)
		case reBulletItem.MatchString(line):
			if r.enter(blockList) {
				buf.WriteString("<ul>")
			}
			buf.WriteString("<li>" + r.inline(strings.TrimSpace(reBulletItem.ReplaceAllString(line, ""))) + "</li>")
		case reOrderedItem.MatchString(line):
			if r.enter(blockOrdered) {
				buf.WriteString("<ol>")
			}
			buf.WriteString("<li>" + r.inline(strings.TrimSpace(reOrderedItem.ReplaceAllString(line, ""))) + "</li>")
		case strings.HasPrefix(trimmed, ">"):
			if r.enter(blockQuote) {
				buf.WriteString("<blockquote>")
			} else {
				buf.WriteString(" ")
			}
			buf.WriteString(r.inline(strings.TrimSpace(strings.TrimPrefix(trimmed, ">"))))
		default:
			if r.enter(blockPara) {
				buf.WriteString("<p>")
			} else {
				buf.WriteString(" ")
			}
			buf.WriteString(r.inline(trimmed))
		}
	}
	r.close()
}

func parseTableCells(line string) []string {
	line = strings.Trim(strings.TrimSpace(line), "|")
	parts := strings.Split(line, "|")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func isTableSeparator(line string) bool {
	line = strings.Trim(strings.TrimSpace(line), "|")
	for _, cell := range strings.Split(line, "|") {
		if strings.Trim(strings.TrimSpace(cell), "-:") != "" {
			return false
		}
	}
	return true
}

// ApplyOutsideTags applies fn only to text segments outside HTML tags,
// so that formatting regexes never touch URLs inside href attributes.
func ApplyOutsideTags(s string, fn func(string) string) string {
	var buf strings.Builder
	for len(s) > 0 {
		lt := strings.Index(s, "<")
		if lt < 0 {
			buf.WriteString(fn(s))
			break
		}
		if lt > 0 {
			buf.WriteString(fn(s[:lt]))
		}
		gt := strings.Index(s[lt:], ">")
		if gt < 0 {
			buf.WriteString(s[lt:])
			break
		}
		buf.WriteString(s[lt : lt+gt+1])
		s = s[lt+gt+1:]
	}
	return buf.String()
}

// FormatInline applies inline formatting (code, images, links, emphasis) to s.
// imageCount is shared across a document so only the first image is
// fetched with high priority.
func FormatInline(s string, imageCount *int) string {
	escaped := html.EscapeString(s)

	// Code spans are swapped for placeholders so nothing inside them is formatted.
	var spans []string
	escaped = reInlineCode.ReplaceAllStringFunc(escaped, func(m string) string {
		inner := reInlineCode.FindStringSubmatch(m)[1]
		spans = append(spans, "<code>"+inner+"</code>")
		return "\x00C" + strconv.Itoa(len(spans)-1) + "\x00"
	})

	escaped = reImg.ReplaceAllStringFunc(escaped, func(m string) string {
		match := reImg.FindStringSubmatch(m)
		src := SafeURL(match[2])
		if src == "" {
			return match[1]
		}
		*imageCount++
		load := `loading="lazy"`
		if *imageCount == 1 {
			load = `fetchpriority="high"`
		}
		return `<img ` + load + ` alt="` + match[1] + `" src="` + src + `" decoding="async"/>`
	})
	escaped = reLink.ReplaceAllStringFunc(escaped, func(m string) string {
		match := reLink.FindStringSubmatch(m)
		href := SafeURL(match[2])
		if href == "" {
			return match[1]
		}
		attrs := ""
		if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
			attrs = ` target="_blank" rel="noopener noreferrer"`
		}
		return `<a href="` + href + `"` + attrs + `>` + match[1] + `</a>`
	})
	escaped = ApplyOutsideTags(escaped, func(seg string) string {
		seg = reBold.ReplaceAllString(seg, "<strong>$1</strong>")
		seg = reBoldUnderscore.ReplaceAllString(seg, "<strong>$1</strong>")
		seg = reItalic.ReplaceAllString(seg, "<em>$1</em>")
		seg = reItalicUnderscore.ReplaceAllString(seg, "$1<em>$2</em>$3")
		seg = reStrike.ReplaceAllString(seg, "<del>$1</del>")
		return seg
	})

	for i, code := range spans {
		escaped = strings.Replace(escaped, "\x00C"+strconv.Itoa(i)+"\x00", code, 1)
	}
	return escaped
}

// SafeURL validates and escapes a URL for use in HTML attributes. Relative
// paths and fragments pass; absolute URLs need an http(s), mailto or tel scheme.
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}

var (
	reFence       = regexp.MustCompile("(?s)```.*?```")
	reCodeSpan    = regexp.MustCompile("`[^`]*`")
	reImageRef    = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	reLinkRef     = regexp.MustCompile(`\[[^\]]*\]\([^)]+\)`)
	reHeadingMark = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s+`)
	reQuoteMark   = regexp.MustCompile(`(?m)^\s{0,3}>\s?`)
	reBulletMark  = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	reNumberMark  = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	reEmphasis    = regexp.MustCompile(`[*_~]`)
	reSpaces      = regexp.MustCompile(`\s+`)
)

// PlainText strips markdown syntax from md and collapses whitespace. Code,
// images and links are dropped entirely, including link text.
func PlainText(md string) string {
	s := reFence.ReplaceAllString(md, " ")
	s = reCodeSpan.ReplaceAllString(s, " ")
	s = reImageRef.ReplaceAllString(s, " ")
	s = reLinkRef.ReplaceAllString(s, " ")
	s = reHeadingMark.ReplaceAllString(s, "")
	s = reQuoteMark.ReplaceAllString(s, "")
	s = reBulletMark.ReplaceAllString(s, "")
	s = reNumberMark.ReplaceAllString(s, "")
	s = reEmphasis.ReplaceAllString(s, "")
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

// Excerpt returns the plain text of md clipped to max characters. Longer
// text is cut to max-3 characters followed by "...".
func Excerpt(md string, max int) string {
	text := PlainText(md)
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
