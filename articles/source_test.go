package articles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRepoList(t *testing.T) {
	want := []RepoRef{{Owner: "octocat", Repo: "blog"}, {Owner: "me", Repo: "notes"}}

	tests := []struct {
		name  string
		raw   string
		owner string
		want  []RepoRef
	}{
		{"json strings", `["octocat/blog", "me/notes"]`, "", want},
		{"json objects", `[{"owner":"octocat","repo":"blog"},{"owner":"me","repo":"notes"}]`, "", want},
		{"json mixed", `["octocat/blog", {"owner":"me","repo":"notes"}]`, "", want},
		{"json bare with owner", `["octocat/blog", "notes"]`, "me", want},
		{"comma", "octocat/blog, me/notes", "", want},
		{"newline", "octocat/blog\nme/notes\n", "", want},
		{"crlf", "octocat/blog\r\nme/notes", "", want},
		{"bare with owner", "octocat/blog,notes", "me", want},
		{"broken json falls back", `[octocat/blog, me/notes`, "", []RepoRef{{Owner: "me", Repo: "notes"}}},
		{"invalid entries dropped", `["octocat/blog", "/x", "y/", "", {"owner":"me"}, 42, null, "me/notes"]`, "", want},
		{"bare without owner dropped", "octocat/blog,notes,me/notes", "", want},
		{"whitespace trimmed", "  octocat / blog ,me/notes ", "", want},
		{"empty", "   ", "me", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRepoList(tt.raw, tt.owner))
		})
	}
}

func TestLocate(t *testing.T) {
	t.Run("no repositories selects local", func(t *testing.T) {
		src := Locate(LocatorConfig{})
		assert.False(t, src.Remote())
		assert.Equal(t, "content/articles", src.LocalDir)
		assert.Equal(t, "articles", src.ArticlesPath)
	})

	t.Run("all entries invalid selects local", func(t *testing.T) {
		src := Locate(LocatorConfig{Repos: "just-a-repo"})
		assert.False(t, src.Remote())
	})

	t.Run("remote", func(t *testing.T) {
		src := Locate(LocatorConfig{
			Repos:        `["octocat/blog"]`,
			ArticlesPath: " posts ",
			Token:        " secret ",
		})
		assert.True(t, src.Remote())
		assert.Equal(t, []RepoRef{{Owner: "octocat", Repo: "blog"}}, src.Repos)
		assert.Equal(t, "posts", src.ArticlesPath)
		assert.Equal(t, "secret", src.Token)
	})
}

func TestLocatorConfigFromEnv(t *testing.T) {
	t.Setenv("GITHUB_REPOS", "a/b")
	t.Setenv("GITHUB_OWNER", "a")
	t.Setenv("GITHUB_BLOG_PATH", "posts")
	t.Setenv("GITHUB_TOKEN", "tok")
	t.Setenv("ARTICLES_DIR", "/srv/articles")

	cfg := LocatorConfigFromEnv()
	assert.Equal(t, LocatorConfig{
		Repos:        "a/b",
		DefaultOwner: "a",
		ArticlesPath: "posts",
		Token:        "tok",
		LocalDir:     "/srv/articles",
	}, cfg)
}
