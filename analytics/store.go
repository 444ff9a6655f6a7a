package analytics

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"
)

const (
	tsLayout  = "2006-01-02 15:04:05"
	dayLayout = "2006-01-02"
	topLimit  = 5
)

// Store provides database operations for analytics.
type Store struct {
	db   *sql.DB
	salt string
}

// NewStore opens (creating if needed) the analytics database at dbPath.
func NewStore(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := s.loadSalt(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS page_views (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			visitor_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			browser TEXT NOT NULL,
			os TEXT NOT NULL,
			device TEXT NOT NULL,
			path TEXT NOT NULL,
			slug TEXT NOT NULL DEFAULT '',
			referrer TEXT NOT NULL DEFAULT '',
			ts TEXT NOT NULL,
			day TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS bot_visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			bot_name TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			user_agent TEXT NOT NULL,
			path TEXT NOT NULL,
			ts TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_page_views_day ON page_views(day);
		CREATE INDEX IF NOT EXISTS idx_page_views_slug ON page_views(slug, day);
		CREATE INDEX IF NOT EXISTS idx_bot_visits_ts ON bot_visits(ts);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

// currentSchemaVersion is the latest schema version. Increment when adding migrations.
const currentSchemaVersion = 1

func (s *Store) migrate(ctx context.Context) error {
	verStr, err := s.GetSetting(ctx, "schema_version")
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	version := 0
	if verStr != "" {
		if version, err = strconv.Atoi(verStr); err != nil {
			return fmt.Errorf("parse schema version %q: %w", verStr, err)
		}
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema v%d is newer than supported v%d", version, currentSchemaVersion)
	}
	return s.SetSetting(ctx, "schema_version", strconv.Itoa(currentSchemaVersion))
}

// loadSalt reads the per-installation hashing salt, generating it on first use.
func (s *Store) loadSalt(ctx context.Context) error {
	v, err := s.GetSetting(ctx, "hash_salt")
	if err != nil {
		return fmt.Errorf("read hash salt: %w", err)
	}
	if v == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return fmt.Errorf("generate salt: %w", err)
		}
		v = hex.EncodeToString(b)
		if err := s.SetSetting(ctx, "hash_salt", v); err != nil {
			return fmt.Errorf("store hash salt: %w", err)
		}
	}
	s.salt = v
	return nil
}

// HashIP returns a salted, truncated hash of ip.
func (s *Store) HashIP(ip string) string {
	return hashWithSalt(s.salt, ip)
}

// VisitorID derives an anonymous visitor identifier from ip and user agent.
func (s *Store) VisitorID(ip, userAgent string) string {
	return hashWithSalt(s.salt, ip, userAgent)
}

// GetSetting retrieves a setting value by key. Returns empty string if not found.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var val string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return val, err
}

// SetSetting stores a setting value by key (upsert).
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// RecordView stores a page view. The slug is derived from the path when unset.
func (s *Store) RecordView(ctx context.Context, v PageView) error {
	ts := v.Timestamp.UTC()
	if v.Slug == "" {
		v.Slug = ArticleSlug(v.Path)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO page_views (visitor_id, session_id, ip_hash, browser, os, device, path, slug, referrer, ts, day)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.VisitorID, v.SessionID, v.IPHash, v.Browser, v.OS, v.Device,
		v.Path, v.Slug, v.Referrer, ts.Format(tsLayout), ts.Format(dayLayout))
	if err != nil {
		return fmt.Errorf("insert page view: %w", err)
	}
	return nil
}

// RecordBot stores a crawler request.
func (s *Store) RecordBot(ctx context.Context, b BotVisit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bot_visits (bot_name, ip_hash, user_agent, path, ts) VALUES (?, ?, ?, ?, ?)`,
		b.BotName, b.IPHash, b.UserAgent, b.Path, b.Timestamp.UTC().Format(tsLayout))
	if err != nil {
		return fmt.Errorf("insert bot visit: %w", err)
	}
	return nil
}

// Dashboard summarises the last days UTC days ending on now's day: total
// views, a zero-filled daily series and the most viewed articles.
func (s *Store) Dashboard(ctx context.Context, days int, now time.Time) (*Dashboard, error) {
	if days < 1 {
		days = 1
	}
	to := now.UTC().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -(days - 1))
	fromDay, toDay := from.Format(dayLayout), to.Format(dayLayout)

	d := &Dashboard{
		RangeLabel:  fmt.Sprintf("Last %d days", days),
		From:        from,
		To:          to,
		TopArticles: []ArticleViews{},
		UpdatedAt:   now.UTC(),
	}
	perDay := make(map[string]int, days)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := s.db.QueryRowContext(gctx,
			`SELECT COUNT(*) FROM page_views WHERE day BETWEEN ? AND ?`, fromDay, toDay).Scan(&d.TotalViews)
		if err != nil {
			return fmt.Errorf("count views: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		rows, err := s.db.QueryContext(gctx,
			`SELECT day, COUNT(*) FROM page_views WHERE day BETWEEN ? AND ? GROUP BY day`, fromDay, toDay)
		if err != nil {
			return fmt.Errorf("daily views: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var day string
			var n int
			if err := rows.Scan(&day, &n); err != nil {
				return fmt.Errorf("scan daily views: %w", err)
			}
			perDay[day] = n
		}
		return rows.Err()
	})
	g.Go(func() error {
		rows, err := s.db.QueryContext(gctx, `
			SELECT slug, COUNT(*) AS views FROM page_views
			WHERE slug != '' AND day BETWEEN ? AND ?
			GROUP BY slug ORDER BY views DESC, slug ASC LIMIT ?`, fromDay, toDay, topLimit)
		if err != nil {
			return fmt.Errorf("top articles: %w", err)
		}
		defer rows.Close()
		var top []ArticleViews
		for rows.Next() {
			var a ArticleViews
			if err := rows.Scan(&a.Slug, &a.Views); err != nil {
				return fmt.Errorf("scan top articles: %w", err)
			}
			a.Path = "/articles/" + a.Slug
			top = append(top, a)
		}
		if top != nil {
			d.TopArticles = top
		}
		return rows.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d.Daily = make([]DailyViews, 0, days)
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		key := day.Format(dayLayout)
		d.Daily = append(d.Daily, DailyViews{Date: key, Label: DayLabel(day), Views: perDay[key]})
	}
	return d, nil
}

// CleanupOldVisits removes page views and bot visits older than retentionDays.
func (s *Store) CleanupOldVisits(ctx context.Context, retentionDays int, now time.Time) error {
	cutoff := now.UTC().AddDate(0, 0, -retentionDays)
	if _, err := s.db.ExecContext(ctx, `DELETE FROM page_views WHERE day < ?`, cutoff.Format(dayLayout)); err != nil {
		return fmt.Errorf("cleanup page_views: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM bot_visits WHERE ts < ?`, cutoff.Format(tsLayout)); err != nil {
		return fmt.Errorf("cleanup bot_visits: %w", err)
	}
	return nil
}

// StartCleanupScheduler runs periodic cleanup of old data. Returns a stop function.
func (s *Store) StartCleanupScheduler(retentionDays int, interval time.Duration, logger *slog.Logger) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := s.CleanupOldVisits(context.Background(), retentionDays, time.Now()); err != nil {
					logger.Error("analytics cleanup", "error", err)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}
