package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/folio-press/folio"
	"github.com/folio-press/folio/analytics"
	"github.com/folio-press/folio/articles"
	"github.com/folio-press/folio/views"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	logger := newLogger(folio.EnvOr("LOG_LEVEL", "info"))
	slog.SetDefault(logger)

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(logger)
	case "index":
		err = runIndex(logger)
	case "article":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: folio article <slug>")
			os.Exit(1)
		}
		err = runArticle(logger, os.Args[2])
	case "new":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: folio new <directory>")
			os.Exit(1)
		}
		err = runNew(os.Args[2])
	case "version":
		fmt.Printf("folio %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`folio - A portfolio and article site built with Go, Echo, and templ

Usage:
  folio [command] [arguments]

Commands:
  serve           Run the web server (default)
  index           Print the published article index as JSON
  article <slug>  Print one article as JSON
  new <dir>       Create a starter site profile and content directory
  version         Print the folio version
  help            Show this help message

Articles are read from GITHUB_REPOS when set, otherwise from ARTICLES_DIR.`)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// newLibrary builds the article index from the environment. The returned
// cleanup closes the Redis client when one was opened.
func newLibrary(logger *slog.Logger) (*articles.Library, func(), error) {
	src := articles.Locate(articles.LocatorConfigFromEnv())
	opts := []articles.Option{
		articles.WithLogger(logger),
		articles.WithTTL(folio.EnvDuration("INDEX_TTL", time.Minute)),
		articles.WithFetchLimit(folio.EnvInt("FETCH_LIMIT", 0)),
	}
	if src.Remote() {
		timeout := folio.EnvDuration("GITHUB_TIMEOUT", 15*time.Second)
		opts = append(opts, articles.WithGitHubClient(articles.NewGitHubClient(src.Token, timeout)))
	}

	cleanup := func() {}
	if raw := folio.EnvOr("REDIS_URL", ""); raw != "" {
		ropts, err := redis.ParseURL(raw)
		if err != nil {
			return nil, cleanup, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(ropts)
		cleanup = func() { rdb.Close() }
		opts = append(opts, articles.WithSnapshotStore(articles.NewRedisStore(rdb, "folio:")))
	}

	if src.Remote() {
		repos := make([]string, len(src.Repos))
		for i, r := range src.Repos {
			repos[i] = r.String()
		}
		logger.Info("article source", "mode", "github", "repos", strings.Join(repos, ","), "path", src.ArticlesPath)
	} else {
		logger.Info("article source", "mode", "local", "dir", src.LocalDir)
	}
	return articles.NewLibrary(src, opts...), cleanup, nil
}

func loadConfig() (folio.SiteConfig, error) {
	cfg, err := folio.LoadSiteFile(folio.EnvOr("SITE_FILE", "site.yaml"))
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func runServe(logger *slog.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	lib, cleanup, err := newLibrary(logger)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []folio.Option{folio.WithLogger(logger)}
	if cfg.AnalyticsEnabled {
		dbPath := cfg.AnalyticsDatabasePath
		if dbPath == "" {
			dbPath = "data/analytics.db"
		}
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return fmt.Errorf("create analytics dir: %w", err)
		}
		store, err := analytics.NewStore(ctx, dbPath)
		if err != nil {
			return fmt.Errorf("open analytics: %w", err)
		}
		opts = append(opts, folio.WithAnalytics(store))
	}

	app := folio.New(cfg, lib, views.New(), opts...)
	defer app.Close()

	// Warm the index so the first visitor does not pay for the scan.
	go func() {
		n := len(lib.Index(ctx))
		logger.Info("article index ready", "articles", n)
	}()

	if err := app.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runIndex(logger *slog.Logger) error {
	lib, cleanup, err := newLibrary(logger)
	if err != nil {
		return err
	}
	defer cleanup()

	index := lib.Index(context.Background())
	if index == nil {
		index = []articles.IndexItem{}
	}
	return printJSON(index)
}

func runArticle(logger *slog.Logger, slug string) error {
	lib, cleanup, err := newLibrary(logger)
	if err != nil {
		return err
	}
	defer cleanup()

	a, ok := lib.Article(context.Background(), slug)
	if !ok {
		return fmt.Errorf("article %q not found", slug)
	}
	return printJSON(a)
}
