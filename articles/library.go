package articles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/folio-press/folio/metrics"
)

const (
	snapshotKey        = "articles:index:v1"
	bodyKeyPrefix      = "articles:body:v1:"
	defaultIndexTTL    = time.Minute
	defaultHTTPTimeout = 15 * time.Second
)

// Library builds the article index and resolves articles by slug. All public
// methods degrade to empty results instead of returning errors: a partial
// listing is preferred over a failed page.
type Library struct {
	src        Source
	gh         *GitHubClient
	snapshots  SnapshotStore
	ttl        time.Duration
	fetchLimit int
	logger     *slog.Logger
	group      singleflight.Group

	bodyMu   sync.Mutex
	bodyKeys map[string]struct{} // body snapshots written by this Library
}

// Option configures a Library.
type Option func(*Library)

// WithGitHubClient replaces the default GitHub client.
func WithGitHubClient(c *GitHubClient) Option {
	return func(l *Library) { l.gh = c }
}

// WithSnapshotStore sets where built indexes are cached (default in memory).
func WithSnapshotStore(s SnapshotStore) Option {
	return func(l *Library) { l.snapshots = s }
}

// WithTTL sets how long a built index and fetched article bodies are reused
// (default one minute). Zero or a negative value selects the default.
func WithTTL(ttl time.Duration) Option {
	return func(l *Library) { l.ttl = ttl }
}

// WithFetchLimit bounds concurrent file fetches per repository. Zero or a
// negative value means unbounded.
func WithFetchLimit(n int) Option {
	return func(l *Library) { l.fetchLimit = n }
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) { l.logger = logger }
}

// NewLibrary returns a Library reading from src.
func NewLibrary(src Source, opts ...Option) *Library {
	l := &Library{
		src:    src,
		ttl:      defaultIndexTTL,
		logger:   slog.Default(),
		bodyKeys: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.ttl <= 0 {
		l.ttl = defaultIndexTTL
	}
	if l.gh == nil && src.Remote() {
		l.gh = NewGitHubClient(src.Token, defaultHTTPTimeout)
	}
	if l.snapshots == nil {
		l.snapshots = NewMemoryStore()
	}
	return l
}

// TTL returns how long built indexes and article bodies are reused.
func (l *Library) TTL() time.Duration {
	return l.ttl
}

// Source returns the resolved content origin.
func (l *Library) Source() Source {
	return l.src
}

func (l *Library) mode() string {
	if l.src.Remote() {
		return string(OriginGitHub)
	}
	return string(OriginLocal)
}

// Index returns the published articles, newest first, without bodies.
func (l *Library) Index(ctx context.Context) []IndexItem {
	entries := l.entries(ctx)
	out := make([]IndexItem, len(entries))
	for i, e := range entries {
		out[i] = e.IndexItem
	}
	return out
}

// Articles returns the index in the Article shape with empty Content, for
// callers that expect full articles but only read metadata.
func (l *Library) Articles(ctx context.Context) []Article {
	entries := l.entries(ctx)
	out := make([]Article, len(entries))
	for i, e := range entries {
		out[i] = Article{Slug: e.Slug, FrontMatter: e.FrontMatter}
	}
	return out
}

// Lookup returns the index item for slug without fetching its body.
func (l *Library) Lookup(ctx context.Context, slug string) (IndexItem, bool) {
	for _, e := range l.entries(ctx) {
		if e.Slug == slug {
			return e.IndexItem, true
		}
	}
	return IndexItem{}, false
}

// Invalidate drops the cached index and article bodies so the next read
// fetches them again.
func (l *Library) Invalidate(ctx context.Context) error {
	l.bodyMu.Lock()
	keys := make([]string, 0, len(l.bodyKeys)+1)
	for k := range l.bodyKeys {
		keys = append(keys, k)
	}
	clear(l.bodyKeys)
	l.bodyMu.Unlock()

	var errs []error
	for _, k := range append(keys, snapshotKey) {
		if err := l.snapshots.Delete(ctx, k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// entries returns the cached index, building it when the snapshot is missing
// or expired. Concurrent cold callers share one build.
func (l *Library) entries(ctx context.Context) []entry {
	data, ok, err := l.snapshots.Load(ctx, snapshotKey)
	switch {
	case err != nil:
		metrics.SnapshotLookups.WithLabelValues("error").Inc()
		l.logger.Warn("load index snapshot", "error", err)
	case ok:
		var items []entry
		if err := json.Unmarshal(data, &items); err == nil {
			metrics.SnapshotLookups.WithLabelValues("hit").Inc()
			return items
		}
		l.logger.Warn("discarding unreadable index snapshot")
	default:
		metrics.SnapshotLookups.WithLabelValues("miss").Inc()
	}

	v, err, _ := l.group.Do(snapshotKey, func() (any, error) {
		// The build outlives any single caller's cancellation since others may share it.
		items, err := l.build(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(items); err == nil {
			if err := l.snapshots.Save(ctx, snapshotKey, data, l.ttl); err != nil {
				l.logger.Warn("save index snapshot", "error", err)
			}
		}
		return items, nil
	})
	if err != nil {
		l.logger.Error("article index build failed", "mode", l.mode(), "error", err)
		return nil
	}
	return v.([]entry)
}

// build crawls the source and returns the merged index.
func (l *Library) build(ctx context.Context) ([]entry, error) {
	start := time.Now()
	var (
		items []entry
		err   error
	)
	if l.src.Remote() {
		items, err = l.scanGitHub(ctx)
	} else {
		items, err = scanLocal(ctx, l.src.LocalDir, l.logger)
	}
	if err != nil {
		metrics.ObserveBuild(l.mode(), "aborted", time.Since(start).Seconds(), 0)
		return nil, err
	}
	merged := mergeEntries(items)
	metrics.ObserveBuild(l.mode(), "ok", time.Since(start).Seconds(), len(merged))
	l.logger.Info("article index built", "mode", l.mode(), "articles", len(merged), "took", time.Since(start))
	return merged, nil
}

// mergeEntries keeps the first entry per slug, drops unpublished ones, and
// sorts newest first.
func mergeEntries(items []entry) []entry {
	seen := make(map[string]struct{}, len(items))
	out := make([]entry, 0, len(items))
	for _, e := range items {
		if _, dup := seen[e.Slug]; dup {
			continue
		}
		seen[e.Slug] = struct{}{}
		if e.FrontMatter.Published {
			out = append(out, e)
		}
	}
	sortByDateDesc(out)
	return out
}

// skippable reports whether err only disqualifies the repository it came
// from. Everything else abandons the whole build.
func skippable(err error) bool {
	var fe *FetchError
	return errors.Is(err, ErrNotFound) || errors.As(err, &fe)
}

// scanGitHub scans every configured repository in parallel and flattens the
// results in configuration order.
func (l *Library) scanGitHub(ctx context.Context) ([]entry, error) {
	perRepo := make([][]entry, len(l.src.Repos))
	g, gctx := errgroup.WithContext(ctx)
	for i, repo := range l.src.Repos {
		g.Go(func() error {
			items, err := l.scanRepo(gctx, repo)
			if err != nil {
				if skippable(err) {
					metrics.RepoFailures.WithLabelValues(repo.String()).Inc()
					l.logger.Error("skipping repository", "repo", repo.String(), "error", err)
					return nil
				}
				return fmt.Errorf("scan %s: %w", repo, err)
			}
			perRepo[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []entry
	for _, items := range perRepo {
		all = append(all, items...)
	}
	return all, nil
}

// scanRepo lists the articles directory of repo and fetches every markdown
// file in parallel. Files that vanish between listing and fetch are skipped.
func (l *Library) scanRepo(ctx context.Context, repo RepoRef) ([]entry, error) {
	listing, err := l.gh.ListDir(ctx, repo, l.src.ArticlesPath)
	if err != nil {
		return nil, err
	}
	var files []DirEntry
	for _, e := range listing {
		if e.Type == "file" && isMarkdown(e.Name) {
			files = append(files, e)
		}
	}
	l.logger.Info("markdown files listed", "repo", repo.String(), "files", len(files))

	found := make([]*entry, len(files))
	g, gctx := errgroup.WithContext(ctx)
	if l.fetchLimit > 0 {
		g.SetLimit(l.fetchLimit)
	}
	for i, f := range files {
		g.Go(func() error {
			raw, err := l.gh.FileContent(gctx, repo, f.Path)
			if errors.Is(err, ErrNotFound) || (err == nil && raw == "") {
				return nil
			}
			if err != nil {
				return err
			}
			fm, _, err := ParseMarkdown(raw)
			if err != nil {
				l.logger.Warn("parse article file", "repo", repo.String(), "path", f.Path, "error", err)
				return nil
			}
			owner := repo
			found[i] = &entry{
				IndexItem: IndexItem{Slug: slugFor(fileSlug(f.Name), fm), FrontMatter: fm},
				Origin:    OriginGitHub,
				FilePath:  f.Path,
				Repo:      &owner,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]entry, 0, len(found))
	for _, e := range found {
		if e != nil {
			items = append(items, *e)
		}
	}
	return items, nil
}

// Article resolves one article by slug: first by treating the slug as a file
// name, then by looking the slug up in the index (which covers slugs taken from
// qiitaId). The returned Article carries the requested slug.
//
// Remote articles are kept in the snapshot store for the index TTL so page
// views and feeds do not refetch them from GitHub.
func (l *Library) Article(ctx context.Context, slug string) (Article, bool) {
	if slug == "" {
		return Article{}, false
	}
	if a, ok := l.loadBody(ctx, slug); ok {
		metrics.ArticleLookups.WithLabelValues("cached").Inc()
		return a, true
	}
	a, how, ok := l.resolve(ctx, slug)
	metrics.ArticleLookups.WithLabelValues(how).Inc()
	if ok {
		l.saveBody(ctx, a)
	}
	return a, ok
}

func (l *Library) resolve(ctx context.Context, slug string) (Article, string, bool) {
	if a, ok := l.direct(ctx, slug); ok {
		return a, "direct", true
	}
	if a, ok := l.reverse(ctx, slug); ok {
		return a, "reverse", true
	}
	return Article{}, "miss", false
}

func (l *Library) loadBody(ctx context.Context, slug string) (Article, bool) {
	if !l.src.Remote() {
		return Article{}, false
	}
	data, ok, err := l.snapshots.Load(ctx, bodyKeyPrefix+slug)
	if err != nil {
		l.logger.Warn("load article snapshot", "slug", slug, "error", err)
		return Article{}, false
	}
	if !ok {
		return Article{}, false
	}
	var a Article
	if err := json.Unmarshal(data, &a); err != nil {
		return Article{}, false
	}
	return a, true
}

func (l *Library) saveBody(ctx context.Context, a Article) {
	if !l.src.Remote() {
		return
	}
	data, err := json.Marshal(a)
	if err != nil {
		return
	}
	key := bodyKeyPrefix + a.Slug
	if err := l.snapshots.Save(ctx, key, data, l.ttl); err != nil {
		l.logger.Warn("save article snapshot", "slug", a.Slug, "error", err)
		return
	}
	l.bodyMu.Lock()
	l.bodyKeys[key] = struct{}{}
	l.bodyMu.Unlock()
}

func (l *Library) direct(ctx context.Context, slug string) (Article, bool) {
	if !safeSlug(slug) {
		return Article{}, false
	}
	if !l.src.Remote() {
		fm, body, err := readLocal(filepath.Join(l.src.LocalDir, slug+".md"))
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				l.logger.Warn("read article", "slug", slug, "error", err)
			}
			return Article{}, false
		}
		return Article{Slug: slug, FrontMatter: fm, Content: body}, true
	}

	p := path.Join(l.src.ArticlesPath, slug+".md")
	for _, repo := range l.src.Repos {
		raw, err := l.gh.FileContent(ctx, repo, p)
		if err != nil {
			if ctx.Err() != nil {
				return Article{}, false
			}
			if !errors.Is(err, ErrNotFound) {
				l.logger.Warn("fetch article", "repo", repo.String(), "path", p, "error", err)
			}
			continue
		}
		if raw == "" {
			continue
		}
		fm, body, err := ParseMarkdown(raw)
		if err != nil {
			l.logger.Warn("parse article", "repo", repo.String(), "path", p, "error", err)
			continue
		}
		return Article{Slug: slug, FrontMatter: fm, Content: body}, true
	}
	return Article{}, false
}

func (l *Library) reverse(ctx context.Context, slug string) (Article, bool) {
	for _, e := range l.entries(ctx) {
		if e.Slug != slug {
			continue
		}
		var (
			fm   FrontMatter
			body string
			err  error
		)
		switch {
		case e.Origin == OriginGitHub && l.src.Remote() && e.Repo != nil:
			var raw string
			raw, err = l.gh.FileContent(ctx, *e.Repo, e.FilePath)
			if err == nil {
				fm, body, err = ParseMarkdown(raw)
			}
		case e.Origin == OriginLocal && !l.src.Remote():
			fm, body, err = readLocal(e.FilePath)
		default:
			return Article{}, false
		}
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				l.logger.Warn("refetch article", "slug", slug, "path", e.FilePath, "error", err)
			}
			return Article{}, false
		}
		return Article{Slug: slug, FrontMatter: fm, Content: body}, true
	}
	return Article{}, false
}
