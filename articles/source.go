package articles

import (
	"encoding/json"
	"os"
	"strings"
)

const (
	defaultArticlesPath = "articles"
	defaultLocalDir     = "content/articles"
)

// LocatorConfig holds the raw, unvalidated values that decide where articles
// come from.
type LocatorConfig struct {
	Repos        string // JSON array or comma/newline separated list
	DefaultOwner string // completes bare "repo" entries
	ArticlesPath string // directory inside each repository
	Token        string // optional GitHub token
	LocalDir     string // used when no repository is configured
}

// LocatorConfigFromEnv reads the locator settings from the environment.
func LocatorConfigFromEnv() LocatorConfig {
	return LocatorConfig{
		Repos:        os.Getenv("GITHUB_REPOS"),
		DefaultOwner: os.Getenv("GITHUB_OWNER"),
		ArticlesPath: os.Getenv("GITHUB_BLOG_PATH"),
		Token:        os.Getenv("GITHUB_TOKEN"),
		LocalDir:     os.Getenv("ARTICLES_DIR"),
	}
}

// Source is the resolved content origin. When Repos is empty the local
// directory is used.
type Source struct {
	Repos        []RepoRef
	ArticlesPath string
	Token        string
	LocalDir     string
}

// Remote reports whether articles come from GitHub.
func (s Source) Remote() bool {
	return len(s.Repos) > 0
}

// Locate resolves cfg into a Source. It never fails: missing or unusable
// repository settings select the local directory.
func Locate(cfg LocatorConfig) Source {
	src := Source{
		ArticlesPath: strings.TrimSpace(cfg.ArticlesPath),
		Token:        strings.TrimSpace(cfg.Token),
		LocalDir:     strings.TrimSpace(cfg.LocalDir),
	}
	if src.ArticlesPath == "" {
		src.ArticlesPath = defaultArticlesPath
	}
	if src.LocalDir == "" {
		src.LocalDir = defaultLocalDir
	}
	src.Repos = ParseRepoList(cfg.Repos, strings.TrimSpace(cfg.DefaultOwner))
	return src
}

type entryKind int

const (
	entryText entryKind = iota
	entryObject
)

// repoEntry is one element of the configured repository list before
// normalization: either "owner/repo" / "repo" text or an {owner, repo} object.
type repoEntry struct {
	kind  entryKind
	text  string
	owner string
	repo  string
}

func (e *repoEntry) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*e = repoEntry{kind: entryText, text: s}
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(b, &obj); err != nil || obj == nil {
		// Numbers, nulls, nested arrays: kept as an entry that normalizes to nothing.
		*e = repoEntry{kind: entryObject}
		return nil
	}
	owner, _ := obj["owner"].(string)
	repo, _ := obj["repo"].(string)
	*e = repoEntry{kind: entryObject, owner: owner, repo: repo}
	return nil
}

func (e repoEntry) normalize(defaultOwner string) (RepoRef, bool) {
	switch e.kind {
	case entryText:
		s := strings.TrimSpace(e.text)
		if s == "" {
			return RepoRef{}, false
		}
		if strings.Contains(s, "/") {
			parts := strings.Split(s, "/")
			owner, repo := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
			if owner == "" || repo == "" {
				return RepoRef{}, false
			}
			return RepoRef{Owner: owner, Repo: repo}, true
		}
		if defaultOwner == "" {
			return RepoRef{}, false
		}
		return RepoRef{Owner: defaultOwner, Repo: s}, true
	case entryObject:
		owner, repo := strings.TrimSpace(e.owner), strings.TrimSpace(e.repo)
		if owner == "" || repo == "" {
			return RepoRef{}, false
		}
		return RepoRef{Owner: owner, Repo: repo}, true
	}
	return RepoRef{}, false
}

// ParseRepoList parses the configured repository list. It accepts a JSON array
// of strings and/or {owner, repo} objects, or a comma/newline separated list.
// Entries that do not resolve to a full owner and repo are dropped.
func ParseRepoList(raw, defaultOwner string) []RepoRef {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var list []repoEntry
		err := json.Unmarshal([]byte(trimmed), &list)
		if err == nil {
			return normalizeAll(list, defaultOwner)
		}
		// Broken JSON falls through to the delimiter form.
	}

	fields := strings.FieldsFunc(trimmed, func(r rune) bool { return r == ',' || r == '\n' })
	list := make([]repoEntry, 0, len(fields))
	for _, f := range fields {
		list = append(list, repoEntry{kind: entryText, text: f})
	}
	return normalizeAll(list, defaultOwner)
}

func normalizeAll(list []repoEntry, defaultOwner string) []RepoRef {
	var out []RepoRef
	for _, e := range list {
		if ref, ok := e.normalize(defaultOwner); ok {
			out = append(out, ref)
		}
	}
	return out
}
