package articles

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func slugsOf(items []IndexItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Slug
	}
	return out
}

func remoteLibrary(gh *fakeGitHub, articlesPath string, repos []RepoRef, opts ...Option) *Library {
	src := Source{Repos: repos, ArticlesPath: articlesPath}
	base := []Option{WithGitHubClient(gh.client("")), WithLogger(quietLogger())}
	return NewLibrary(src, append(base, opts...)...)
}

func TestLibraryRemoteIndexAndLookup(t *testing.T) {
	gh := newFakeGitHub(t, map[string]*fakeRepo{
		"octocat/blog": {files: map[string]string{
			"posts/intro.md": markdownDoc("title: Hello\npublished: true\ndate: 2024-01-02\n", "# Hello\n"),
			"posts/qiita.md": markdownDoc("title: Cross posted\npublished: true\ndate: 2024-03-01\nqiitaId: abc123\n", "cross body\n"),
			"posts/draft.md": markdownDoc("title: Draft\npublished: false\ndate: 2025-01-01\n", "wip\n"),
			"posts/UPPER.MD": markdownDoc("title: Upper\npublished: true\ndate: 2023-06-01\n", "upper\n"),
			"posts/notes.txt": "not markdown",
			"posts/img/x.png": "png",
		}},
	})
	lib := remoteLibrary(gh, "posts", []RepoRef{{Owner: "octocat", Repo: "blog"}})
	ctx := t.Context()

	items := lib.Index(ctx)
	assert.Equal(t, []string{"abc123", "intro", "UPPER"}, slugsOf(items))
	assert.Equal(t, "Hello", items[1].FrontMatter.Title)

	a, ok := lib.Article(ctx, "intro")
	require.True(t, ok)
	assert.Equal(t, "intro", a.Slug)
	assert.Equal(t, "# Hello\n", a.Content)

	// qiitaId slugs have no file of that name and resolve through the index.
	a, ok = lib.Article(ctx, "abc123")
	require.True(t, ok)
	assert.Equal(t, "abc123", a.Slug)
	assert.Equal(t, "Cross posted", a.FrontMatter.Title)
	assert.Equal(t, "cross body\n", a.Content)

	// The file name still works and the requested slug is echoed back.
	a, ok = lib.Article(ctx, "qiita")
	require.True(t, ok)
	assert.Equal(t, "qiita", a.Slug)
	assert.Equal(t, "cross body\n", a.Content)

	// Direct lookups do not consult the published flag.
	a, ok = lib.Article(ctx, "draft")
	require.True(t, ok)
	assert.False(t, a.FrontMatter.Published)

	_, ok = lib.Article(ctx, "missing")
	assert.False(t, ok)
	_, ok = lib.Article(ctx, "")
	assert.False(t, ok)

	it, ok := lib.Lookup(ctx, "abc123")
	require.True(t, ok)
	assert.Equal(t, "Cross posted", it.FrontMatter.Title)
	_, ok = lib.Lookup(ctx, "draft")
	assert.False(t, ok)

	arts := lib.Articles(ctx)
	require.Len(t, arts, 3)
	for _, a := range arts {
		assert.Empty(t, a.Content)
	}
}

func TestLibraryFirstRepoWinsOnDuplicateSlug(t *testing.T) {
	gh := newFakeGitHub(t, map[string]*fakeRepo{
		"a/repo1": {files: map[string]string{
			"articles/same.md":   markdownDoc("title: First\npublished: true\ndate: 2024-01-01\n", "one"),
			"articles/hidden.md": markdownDoc("title: Hidden\npublished: false\n", "h1"),
		}},
		"a/repo2": {files: map[string]string{
			"articles/same.md":   markdownDoc("title: Second\npublished: true\ndate: 2024-05-01\n", "two"),
			"articles/hidden.md": markdownDoc("title: Visible\npublished: true\n", "h2"),
			"articles/other.md":  markdownDoc("title: Other\npublished: true\ndate: 2024-02-01\n", "other"),
		}},
	})
	lib := remoteLibrary(gh, "articles", []RepoRef{{Owner: "a", Repo: "repo1"}, {Owner: "a", Repo: "repo2"}})

	items := lib.Index(t.Context())
	require.Equal(t, []string{"other", "same"}, slugsOf(items))
	assert.Equal(t, "First", items[1].FrontMatter.Title)

	a, ok := lib.Article(t.Context(), "same")
	require.True(t, ok)
	assert.Equal(t, "one", a.Content)
}

func TestLibrarySkipsFailingRepositories(t *testing.T) {
	healthy := map[string]string{
		"articles/ok.md": markdownDoc("title: OK\npublished: true\ndate: 2024-01-01\n", "ok"),
	}
	tests := []struct {
		name  string
		repo1 *fakeRepo
	}{
		{"listing error", &fakeRepo{listStatus: http.StatusInternalServerError}},
		{"file error", &fakeRepo{
			files: map[string]string{
				"articles/a.md": markdownDoc("title: A\npublished: true\n", "a"),
				"articles/b.md": markdownDoc("title: B\npublished: true\n", "b"),
			},
			fileStatus: map[string]int{"articles/b.md": http.StatusBadGateway},
		}},
		{"missing directory", &fakeRepo{files: map[string]string{"README.md": "readme"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gh := newFakeGitHub(t, map[string]*fakeRepo{
				"a/repo1": tt.repo1,
				"a/repo2": {files: healthy},
			})
			lib := remoteLibrary(gh, "articles", []RepoRef{
				{Owner: "a", Repo: "repo1"},
				{Owner: "a", Repo: "gone"},
				{Owner: "a", Repo: "repo2"},
			})
			assert.Equal(t, []string{"ok"}, slugsOf(lib.Index(t.Context())))

			a, ok := lib.Article(t.Context(), "ok")
			require.True(t, ok)
			assert.Equal(t, "ok", a.Content)
		})
	}
}

func TestLibraryArticleContinuesPastServerError(t *testing.T) {
	gh := newFakeGitHub(t, map[string]*fakeRepo{
		"a/repo1": {
			files:      map[string]string{"articles/same.md": markdownDoc("title: First\npublished: true\n", "one")},
			fileStatus: map[string]int{"articles/same.md": http.StatusBadGateway},
		},
		"a/repo2": {files: map[string]string{
			"articles/same.md": markdownDoc("title: Second\npublished: true\n", "two"),
		}},
	})
	lib := remoteLibrary(gh, "articles", []RepoRef{{Owner: "a", Repo: "repo1"}, {Owner: "a", Repo: "repo2"}})

	a, ok := lib.Article(t.Context(), "same")
	require.True(t, ok)
	assert.Equal(t, "Second", a.FrontMatter.Title)
	assert.Equal(t, "two", a.Content)
}

func TestLibrarySkipsFileWhoseDownloadFails(t *testing.T) {
	gh := newFakeGitHub(t, map[string]*fakeRepo{
		"a/blog": {
			files: map[string]string{
				"articles/good.md": markdownDoc("title: Good\npublished: true\ndate: 2024-01-01\n", "good"),
				"articles/big.md":  markdownDoc("title: Big\npublished: true\ndate: 2024-02-01\n", "big"),
			},
			rawOnly:   map[string]bool{"articles/big.md": true},
			rawStatus: map[string]int{"articles/big.md": http.StatusBadGateway},
		},
	})
	lib := remoteLibrary(gh, "articles", []RepoRef{{Owner: "a", Repo: "blog"}})

	assert.Equal(t, []string{"good"}, slugsOf(lib.Index(t.Context())))
	_, ok := lib.Article(t.Context(), "big")
	assert.False(t, ok)
}

func TestLibrarySkipsUnparseableFiles(t *testing.T) {
	gh := newFakeGitHub(t, map[string]*fakeRepo{
		"a/blog": {files: map[string]string{
			"articles/good.md":  markdownDoc("title: Good\npublished: true\n", "good"),
			"articles/bad.md":   "---\ntitle: [unclosed\n---\nbody",
			"articles/empty.md": "",
		}},
	})
	lib := remoteLibrary(gh, "articles", []RepoRef{{Owner: "a", Repo: "blog"}})
	assert.Equal(t, []string{"good"}, slugsOf(lib.Index(t.Context())))
}

func TestLibraryAbortedBuildIsEmptyAndNotCached(t *testing.T) {
	repo := &fakeRepo{files: map[string]string{
		"articles/a.md": markdownDoc("title: A\npublished: true\n", "a"),
	}}
	repo.garbage.Store(true)
	gh := newFakeGitHub(t, map[string]*fakeRepo{"a/blog": repo})
	lib := remoteLibrary(gh, "articles", []RepoRef{{Owner: "a", Repo: "blog"}})

	assert.Empty(t, lib.Index(t.Context()))
	_, ok := lib.Article(t.Context(), "nope")
	assert.False(t, ok)

	repo.garbage.Store(false)
	assert.Equal(t, []string{"a"}, slugsOf(lib.Index(t.Context())))
}

func TestLibraryCachesUntilExpiryOrInvalidate(t *testing.T) {
	gh := newFakeGitHub(t, map[string]*fakeRepo{
		"a/blog": {files: map[string]string{
			"articles/a.md": markdownDoc("title: A\npublished: true\n", "a"),
			"articles/b.md": markdownDoc("title: B\npublished: true\n", "b"),
		}},
	})
	store := NewMemoryStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	lib := remoteLibrary(gh, "articles", []RepoRef{{Owner: "a", Repo: "blog"}},
		WithSnapshotStore(store), WithTTL(time.Minute))
	ctx := t.Context()

	require.Len(t, lib.Index(ctx), 2)
	cold := gh.requests.Load()
	assert.Equal(t, int64(3), cold) // listing plus two files

	lib.Index(ctx)
	lib.Articles(ctx)
	lib.Lookup(ctx, "a")
	assert.Equal(t, cold, gh.requests.Load(), "warm reads must not hit the API")

	now = now.Add(59 * time.Second)
	lib.Index(ctx)
	assert.Equal(t, cold, gh.requests.Load())

	now = now.Add(2 * time.Second)
	lib.Index(ctx)
	assert.Equal(t, 2*cold, gh.requests.Load(), "expired snapshot is rebuilt")

	require.NoError(t, lib.Invalidate(ctx))
	lib.Index(ctx)
	assert.Equal(t, 3*cold, gh.requests.Load(), "invalidate forces a rebuild")
}

func TestLibraryCachesArticleBodies(t *testing.T) {
	gh := newFakeGitHub(t, map[string]*fakeRepo{
		"a/blog": {files: map[string]string{
			"articles/a.md": markdownDoc("title: A\npublished: true\n", "a"),
			"articles/x.md": markdownDoc("title: X\npublished: true\nqiitaId: q1\n", "x"),
		}},
	})
	store := NewMemoryStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	lib := remoteLibrary(gh, "articles", []RepoRef{{Owner: "a", Repo: "blog"}},
		WithSnapshotStore(store), WithTTL(time.Minute))
	ctx := t.Context()

	_, ok := lib.Article(ctx, "a")
	require.True(t, ok)
	_, ok = lib.Article(ctx, "q1")
	require.True(t, ok)
	warm := gh.requests.Load()

	for range 3 {
		a, ok := lib.Article(ctx, "a")
		require.True(t, ok)
		assert.Equal(t, "a", a.Content)
		a, ok = lib.Article(ctx, "q1")
		require.True(t, ok)
		assert.Equal(t, "q1", a.Slug)
	}
	assert.Equal(t, warm, gh.requests.Load(), "cached bodies must not hit the API")

	now = now.Add(61 * time.Second)
	lib.Article(ctx, "a")
	afterExpiry := gh.requests.Load()
	assert.Greater(t, afterExpiry, warm, "expired body is refetched")

	require.NoError(t, lib.Invalidate(ctx))
	lib.Article(ctx, "a")
	assert.Greater(t, gh.requests.Load(), afterExpiry, "invalidate drops cached bodies")

	// Misses are not cached.
	_, ok = lib.Article(ctx, "missing")
	assert.False(t, ok)
	before := gh.requests.Load()
	lib.Article(ctx, "missing")
	assert.Greater(t, gh.requests.Load(), before)
}

func TestLibraryNonPositiveTTLUsesDefault(t *testing.T) {
	for _, ttl := range []time.Duration{0, -time.Second} {
		lib := NewLibrary(Source{LocalDir: t.TempDir()}, WithTTL(ttl))
		assert.Equal(t, defaultIndexTTL, lib.TTL())
	}
}

func TestLibraryFetchLimit(t *testing.T) {
	files := map[string]string{}
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		files["articles/"+s+".md"] = markdownDoc("title: "+s+"\npublished: true\n", s)
	}
	gh := newFakeGitHub(t, map[string]*fakeRepo{"a/blog": {files: files}})
	lib := remoteLibrary(gh, "articles", []RepoRef{{Owner: "a", Repo: "blog"}}, WithFetchLimit(2))
	assert.Len(t, lib.Index(t.Context()), 5)
}

func TestLibraryConcurrentReaders(t *testing.T) {
	gh := newFakeGitHub(t, map[string]*fakeRepo{
		"a/blog": {files: map[string]string{
			"articles/a.md": markdownDoc("title: A\npublished: true\n", "a"),
		}},
	})
	lib := remoteLibrary(gh, "articles", []RepoRef{{Owner: "a", Repo: "blog"}})

	done := make(chan []IndexItem)
	for range 8 {
		go func() { done <- lib.Index(t.Context()) }()
	}
	for range 8 {
		assert.Equal(t, []string{"a"}, slugsOf(<-done))
	}
}

func writeArticle(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLibraryLocal(t *testing.T) {
	dir := t.TempDir()
	writeArticle(t, dir, "intro.md", markdownDoc("title: Intro\npublished: true\ndate: 2024-01-02\n", "intro body\n"))
	writeArticle(t, dir, "cross.md", markdownDoc("title: Cross\npublished: true\ndate: 2024-02-01\nqiitaId: q42\n", "cross body\n"))
	writeArticle(t, dir, "draft.md", markdownDoc("title: Draft\npublished: false\n", "draft\n"))
	writeArticle(t, dir, "Loud.MD", markdownDoc("title: Loud\npublished: true\ndate: not a date\n", "loud\n"))
	writeArticle(t, dir, "broken.md", "---\ntitle: [oops\n---\n")
	writeArticle(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.md"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(dir), "secret.md"),
		[]byte(markdownDoc("title: Secret\npublished: true\n", "secret")), 0o644))

	lib := NewLibrary(Source{LocalDir: dir}, WithLogger(quietLogger()))
	ctx := t.Context()

	assert.Equal(t, []string{"q42", "intro", "Loud"}, slugsOf(lib.Index(ctx)))

	a, ok := lib.Article(ctx, "intro")
	require.True(t, ok)
	assert.Equal(t, "intro body\n", a.Content)

	a, ok = lib.Article(ctx, "q42")
	require.True(t, ok)
	assert.Equal(t, "q42", a.Slug)
	assert.Equal(t, "cross body\n", a.Content)

	a, ok = lib.Article(ctx, "draft")
	require.True(t, ok)
	assert.Equal(t, "Draft", a.FrontMatter.Title)

	a, ok = lib.Article(ctx, "Loud")
	require.True(t, ok, "reverse lookup resolves the upper-case extension")
	assert.Equal(t, "loud\n", a.Content)

	_, ok = lib.Article(ctx, "../secret")
	assert.False(t, ok)
	_, ok = lib.Article(ctx, "broken")
	assert.False(t, ok)
}

func TestLibraryLocalMissingDirectory(t *testing.T) {
	lib := NewLibrary(Source{LocalDir: filepath.Join(t.TempDir(), "absent")}, WithLogger(quietLogger()))
	assert.Empty(t, lib.Index(t.Context()))
	_, ok := lib.Article(t.Context(), "anything")
	assert.False(t, ok)
}

func TestMergeEntries(t *testing.T) {
	mk := func(slug, date string, published bool, file string) entry {
		return entry{
			IndexItem: IndexItem{Slug: slug, FrontMatter: FrontMatter{Title: file, Date: date, Published: published}},
			FilePath:  file,
		}
	}
	got := mergeEntries([]entry{
		mk("x", "2024-01-01", false, "x1"),
		mk("x", "2025-01-01", true, "x2"),
		mk("y", "2023-01-01", true, "y1"),
		mk("z", "2024-06-01", true, "z1"),
		mk("y", "2026-01-01", true, "y2"),
	})
	require.Len(t, got, 2)
	assert.Equal(t, "z1", got[0].FilePath)
	assert.Equal(t, "y1", got[1].FilePath)
}
