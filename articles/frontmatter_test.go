package articles

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMarkdownYAML(t *testing.T) {
	raw := `---
title: Hello
emoji: "👋"
type: tech
topics:
  - intro
  - go
published: true
date: 2024-01-05
---

# Hello

Body text.
`
	fm, body, err := ParseMarkdown(raw)
	require.NoError(t, err)
	assert.Equal(t, FrontMatter{
		Title:     "Hello",
		Emoji:     "👋",
		Type:      KindTech,
		Topics:    []string{"intro", "go"},
		Published: true,
		Date:      "2024-01-05",
	}, fm)
	assert.True(t, strings.HasPrefix(body, "# Hello"), "body = %q", body)
	assert.Contains(t, body, "Body text.")
}

func TestParseMarkdownTOML(t *testing.T) {
	raw := "+++\ntitle = \"Idea\"\ntype = \"idea\"\ntopics = [\"life\"]\npublished = false\ndate = \"2023.12.31\"\nqiitaId = \"q1\"\n+++\nText\n"
	fm, body, err := ParseMarkdown(raw)
	require.NoError(t, err)
	assert.Equal(t, "Idea", fm.Title)
	assert.Equal(t, KindIdea, fm.Type)
	assert.Equal(t, "q1", fm.QiitaID)
	assert.False(t, fm.Published)
	assert.Equal(t, "2023.12.31", fm.Date)
	assert.Equal(t, "Text", strings.TrimSpace(body))
}

func TestParseMarkdownWithoutFrontMatter(t *testing.T) {
	fm, body, err := ParseMarkdown("just text\n")
	require.NoError(t, err)
	assert.Equal(t, FrontMatter{}, fm)
	assert.Equal(t, "just text", strings.TrimSpace(body))
}

func TestParseMarkdownInvalidYAML(t *testing.T) {
	_, _, err := ParseMarkdown("---\ntitle: [unclosed\n---\nbody\n")
	assert.Error(t, err)
}

func TestFrontMatterRoundTrip(t *testing.T) {
	original := FrontMatter{
		Title:     "Round trip: quoting, colons",
		Emoji:     "🔁",
		Type:      KindIdea,
		Topics:    []string{"yaml", "toml"},
		Published: true,
		Date:      "2024/03/09",
		QiitaID:   "0123abcd",
	}

	for _, format := range []Format{FormatYAML, FormatTOML} {
		t.Run(string(format), func(t *testing.T) {
			doc, err := EncodeMarkdown(original, "Body line\n", format)
			require.NoError(t, err)

			fm, body, err := ParseMarkdown(string(doc))
			require.NoError(t, err)
			assert.Equal(t, original, fm)
			assert.Equal(t, "Body line", strings.TrimSpace(body))
		})
	}
}

func TestEncodeMarkdownUnknownFormat(t *testing.T) {
	_, err := EncodeMarkdown(FrontMatter{}, "", Format("json"))
	assert.Error(t, err)
}
