package markdown

import (
	"bytes"
	"strings"
	"testing"
)

func render(md string) string {
	var buf bytes.Buffer
	RenderMarkdown(&buf, md)
	return buf.String()
}

func TestFormatInlineEmphasis(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"**bold**", "<strong>bold</strong>"},
		{"__bold__", "<strong>bold</strong>"},
		{"*italic*", "<em>italic</em>"},
		{"_italic_", "<em>italic</em>"},
		{"text **bold** more", "text <strong>bold</strong> more"},
		{"**bold *italic* text**", "<strong>bold <em>italic</em> text</strong>"},
		{"~~gone~~", "<del>gone</del>"},
		{"snake_case_name stays", "snake_case_name stays"},
	}
	for _, tt := range tests {
		got := FormatInline(tt.input, new(int))
		if got != tt.expected {
			t.Errorf("FormatInline(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestFormatInlineCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"`code`", "<code>code</code>"},
		{"use `fmt.Println` here", "use <code>fmt.Println</code> here"},
		{"`**not bold**`", "<code>**not bold**</code>"},
		{"`<b>`", "<code>&lt;b&gt;</code>"},
	}
	for _, tt := range tests {
		got := FormatInline(tt.input, new(int))
		if got != tt.expected {
			t.Errorf("FormatInline(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestFormatInlineLinks(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{
			"[Wikipedia](https://en.wikipedia.org/wiki/Some_Article_Title)",
			`<a href="https://en.wikipedia.org/wiki/Some_Article_Title" target="_blank" rel="noopener noreferrer">Wikipedia</a>`,
		},
		{
			"see [other](/articles/intro)",
			`see <a href="/articles/intro">other</a>`,
		},
		{
			"[bad](javascript:void)",
			"bad",
		},
	}
	for _, tt := range tests {
		got := FormatInline(tt.input, new(int))
		if got != tt.expected {
			t.Errorf("FormatInline(%q)\n  got:  %q\n  want: %q", tt.input, got, tt.expected)
		}
	}
}

func TestFormatInlineImagesPrioritiseFirst(t *testing.T) {
	count := 0
	first := FormatInline("![a](/img/a.png)", &count)
	second := FormatInline("![b](/img/b.png)", &count)
	if !strings.Contains(first, `fetchpriority="high"`) {
		t.Errorf("first image should be high priority: %q", first)
	}
	if !strings.Contains(second, `loading="lazy"`) {
		t.Errorf("later images should be lazy: %q", second)
	}
	if strings.Contains(first, "<a ") {
		t.Errorf("image must not also become a link: %q", first)
	}
}

func TestRenderMarkdownCodeBlock(t *testing.T) {
	got := render("```\n<plain> code\n```")
	if got != "<pre class=\"code-block\"><code>&lt;plain&gt; code\n</code></pre>" {
		t.Errorf("unexpected code block: %q", got)
	}
}

func TestRenderMarkdownCodeBlockLabels(t *testing.T) {
	got := render("```go:cmd/main.go\nfmt.Println(\"hello\")\n```")
	for _, want := range []string{
		`<div class="code-block-wrapper">`,
		`<span class="code-lang">go</span>`,
		`<span class="code-file">cmd/main.go</span>`,
		`<code class="language-go">`,
		"</code></pre></div>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in %q", want, got)
		}
	}
}

func TestRenderMarkdownHeadings(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"# Heading 1", "<h1>Heading 1</h1>"},
		{"### Heading 3", "<h3>Heading 3</h3>"},
		{"###### Six", "<h6>Six</h6>"},
		{"#hashtag", "<p>#hashtag</p>"},
	}
	for _, tt := range tests {
		if got := render(tt.input); got != tt.expected {
			t.Errorf("RenderMarkdown(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestRenderMarkdownBlocks(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"bullets", "- item 1\n* item 2\n+ item 3", "<ul><li>item 1</li><li>item 2</li><li>item 3</li></ul>"},
		{"ordered", "1. first\n2. **second**", "<ol><li>first</li><li><strong>second</strong></li></ol>"},
		{"list then paragraph", "- a\n\ntext", "<ul><li>a</li></ul><p>text</p>"},
		{"paragraph lines join", "one\ntwo", "<p>one two</p>"},
		{"quote", "> quoted\n> more", "<blockquote>quoted more</blockquote>"},
		{"rule", "a\n\n---\n\nb", "<p>a</p><hr/><p>b</p>"},
		{"table", "| a | b |\n|---|:-:|\n| 1 | 2 |",
			"<table><thead><tr><th>a</th><th>b</th></tr></thead><tbody><tr><td>1</td><td>2</td></tr></tbody></table>"},
		{"crlf", "one\r\n\r\ntwo", "<p>one</p><p>two</p>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render(tt.input); got != tt.expected {
				t.Errorf("RenderMarkdown(%q)\n  got:  %q\n  want: %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRenderMarkdownUnclosedFence(t *testing.T) {
	got := render("```sh\necho hi")
	if !strings.HasSuffix(got, "</code></pre></div>") {
		t.Errorf("unclosed fence should still be closed: %q", got)
	}
}

func TestPlainText(t *testing.T) {
	md := "# Title\n\nSome **bold** and _soft_ text.\n\n```go\nfmt.Println()\n```\n\n- item with `code`\n> quote [link](https://x.dev) ![img](/a.png)\n1. step"
	want := "Title Some bold and soft text. item with quote step"
	if got := PlainText(md); got != want {
		t.Errorf("PlainText() = %q, want %q", got, want)
	}
}

func TestExcerpt(t *testing.T) {
	short := "短い本文"
	if got := Excerpt(short, 160); got != short {
		t.Errorf("short text changed: %q", got)
	}

	long := strings.Repeat("あ", 200)
	got := Excerpt(long, 160)
	if n := len([]rune(got)); n != 160 {
		t.Errorf("excerpt length = %d runes, want 160", n)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("excerpt should end with ellipsis: %q", got)
	}

	exact := strings.Repeat("a", 160)
	if got := Excerpt(exact, 160); got != exact {
		t.Errorf("text of exactly max length must not be clipped")
	}
}
