package articles

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a front matter encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

var formats = []*frontmatter.Format{
	frontmatter.NewFormat("---", "---", yaml.Unmarshal),
	frontmatter.NewFormat("+++", "+++", toml.Unmarshal),
}

// ParseMarkdown splits raw into its front matter and body. A document without
// a recognized front matter block yields a zero FrontMatter and the whole text
// as body.
func ParseMarkdown(raw string) (FrontMatter, string, error) {
	var fm FrontMatter
	body, err := frontmatter.Parse(strings.NewReader(raw), &fm, formats...)
	if err != nil {
		return FrontMatter{}, "", fmt.Errorf("parse front matter: %w", err)
	}
	return fm, strings.TrimLeft(string(body), "\r\n"), nil
}

// EncodeMarkdown renders fm and body back into a markdown document.
func EncodeMarkdown(fm FrontMatter, body string, format Format) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatYAML, "":
		buf.WriteString("---\n")
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(fm); err != nil {
			return nil, fmt.Errorf("encode yaml front matter: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		buf.WriteString("---\n")
	case FormatTOML:
		buf.WriteString("+++\n")
		if err := toml.NewEncoder(&buf).Encode(fm); err != nil {
			return nil, fmt.Errorf("encode toml front matter: %w", err)
		}
		buf.WriteString("+++\n")
	default:
		return nil, fmt.Errorf("unsupported front matter format: %s", format)
	}

	if body != "" {
		buf.WriteString("\n")
		buf.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			buf.WriteString("\n")
		}
	}
	return buf.Bytes(), nil
}
