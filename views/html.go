package views

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// html writes markup and keeps the first error, so components can emit a
// sequence of writes and check once at the end.
type html struct {
	w   io.Writer
	err error
}

func (h *html) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *html) attr(name, value string) {
	h.raw(" " + name + `="` + templ.EscapeString(value) + `"`)
}

// url writes an attribute whose value is sanitized as a link target.
func (h *html) url(name, value string) {
	h.attr(name, string(templ.URL(value)))
}

func (h *html) meta(property, content string) {
	if content == "" {
		return
	}
	h.raw(`<meta`)
	h.attr("property", property)
	h.attr("content", content)
	h.raw(`>`)
}

// jsonLD embeds an encoded JSON-LD document. encoding/json escapes <, > and &,
// so the payload cannot close the script element.
func (h *html) jsonLD(doc string) {
	if doc == "" {
		return
	}
	h.raw(`<script type="application/ld+json">` + doc + `</script>`)
}

func (h *html) date(s string) {
	iso := ISODate(s)
	if iso == "" {
		return
	}
	h.raw(`<time`)
	h.attr("datetime", iso)
	h.raw(`>`)
	h.text(FormatDate(s))
	h.raw(`</time>`)
}

func (h *html) component(ctx context.Context, c templ.Component) {
	if h.err == nil {
		h.err = c.Render(ctx, h.w)
	}
}
