// Package articles builds the article index for the site from markdown files
// hosted in one or more GitHub repositories, or from a local directory.
//
// The index is the published-only, slug-unique, newest-first list of article
// metadata used by listings, the sitemap, and the RSS feed. Article bodies are
// fetched on demand by slug.
package articles

import "strings"

// Kind classifies an article.
type Kind string

const (
	KindTech Kind = "tech"
	KindIdea Kind = "idea"
)

// FrontMatter is the metadata block at the top of every article file.
type FrontMatter struct {
	Title     string   `yaml:"title" toml:"title" json:"title"`
	Emoji     string   `yaml:"emoji" toml:"emoji" json:"emoji"`
	Type      Kind     `yaml:"type" toml:"type" json:"type"`
	Topics    []string `yaml:"topics" toml:"topics" json:"topics"`
	Published bool     `yaml:"published" toml:"published" json:"published"`
	Date      string   `yaml:"date" toml:"date" json:"date"`
	QiitaID   string   `yaml:"qiitaId,omitempty" toml:"qiitaId,omitempty" json:"qiitaId,omitempty"`
}

// Article is a fully resolved article. Content is the markdown body and may be
// empty in list views.
type Article struct {
	Slug        string      `json:"slug"`
	FrontMatter FrontMatter `json:"frontMatter"`
	Content     string      `json:"content"`
}

// IndexItem is the lightweight projection of an article used for listings.
type IndexItem struct {
	Slug        string      `json:"slug"`
	FrontMatter FrontMatter `json:"frontMatter"`
}

// RepoRef identifies one configured content repository.
type RepoRef struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

func (r RepoRef) String() string {
	return r.Owner + "/" + r.Repo
}

// Origin records where an index entry was read from.
type Origin string

const (
	OriginGitHub Origin = "github"
	OriginLocal  Origin = "local"
)

// entry is an index item plus the bookkeeping needed to re-fetch its body.
// FilePath is the repository path for GitHub entries and the file system path
// for local ones.
type entry struct {
	IndexItem
	Origin   Origin   `json:"origin"`
	FilePath string   `json:"filePath"`
	Repo     *RepoRef `json:"repo,omitempty"`
}

// slugFor returns the route slug for a file: a non-empty qiitaId wins over the
// file name so syndicated articles keep their external identity.
func slugFor(fileSlug string, fm FrontMatter) string {
	if id := strings.TrimSpace(fm.QiitaID); id != "" {
		return id
	}
	return fileSlug
}
