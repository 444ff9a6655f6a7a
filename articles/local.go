package articles

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// isMarkdown reports whether name has a .md extension, ignoring case.
func isMarkdown(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".md")
}

// fileSlug strips the .md extension from a file name.
func fileSlug(name string) string {
	return name[:len(name)-len(".md")]
}

// scanLocal reads every markdown file in dir. A missing directory is an empty
// index; files that cannot be read or parsed are skipped.
func scanLocal(ctx context.Context, dir string, logger *slog.Logger) ([]entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var items []entry
	for _, de := range dirEntries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if de.IsDir() || !isMarkdown(de.Name()) {
			continue
		}
		full := filepath.Join(dir, de.Name())
		raw, err := os.ReadFile(full)
		if err != nil {
			logger.Warn("read article file", "path", full, "error", err)
			continue
		}
		fm, _, err := ParseMarkdown(string(raw))
		if err != nil {
			logger.Warn("parse article file", "path", full, "error", err)
			continue
		}
		items = append(items, entry{
			IndexItem: IndexItem{Slug: slugFor(fileSlug(de.Name()), fm), FrontMatter: fm},
			Origin:    OriginLocal,
			FilePath:  full,
		})
	}
	return items, nil
}

// readLocal loads one article file. Missing files map to ErrNotFound.
func readLocal(path string) (FrontMatter, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return FrontMatter{}, "", ErrNotFound
		}
		return FrontMatter{}, "", err
	}
	return ParseMarkdown(string(raw))
}

// safeSlug reports whether slug can be used as a file name without escaping
// the articles directory.
func safeSlug(slug string) bool {
	return slug != "" && slug != "." && slug != ".." &&
		!strings.ContainsAny(slug, `/\`) && !strings.Contains(slug, "\x00")
}
