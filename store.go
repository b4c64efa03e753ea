package saunasite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/eringen/saunasite/content"
	"github.com/eringen/saunasite/logger"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store persists posts, the content index and the gallery catalog in SQLite
// or PostgreSQL.
type Store struct {
	db     *sql.DB
	driver string
	log    logger.Logger
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	return OpenStore(context.Background(), DriverSQLite, path)
}

// OpenStore connects to the database named by driver and dsn and migrates
// the schema. For SQLite, dsn is a file path.
func OpenStore(ctx context.Context, driver, dsn string) (*Store, error) {
	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case DriverSQLite, "":
		driver = DriverSQLite
		db, err = openSQLite(dsn)
	case DriverPostgres:
		db, err = openPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, driver: driver, log: logger.NewNop()}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func openSQLite(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the sitemap readers run alongside admin writes; the busy
	// timeout makes writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	return db, nil
}

func openPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// Close closes the underlying database connection.
// SetLogger sets where skipped malformed rows are reported.
func (s *Store) SetLogger(log logger.Logger) {
	if log != nil {
		s.log = log
	}
}

// skipRow logs a row that could not be decoded. List reads drop such rows
// so one bad record never hides the rest of its table.
func (s *Store) skipRow(table string, err error) {
	s.log.Warn("skipping malformed row", logger.String("table", table), logger.Error(err))
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rebind rewrites ? placeholders as $1, $2, ... for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(q), args...)
}

func (s *Store) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(q), args...)
}

func (s *Store) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(q), args...)
}

// Posts

const postColumns = `slug, title, excerpt, content, tags, published, published_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(r rowScanner) (content.Post, error) {
	var p content.Post
	var tags, publishedAt, updatedAt string
	var published int
	if err := r.Scan(&p.Slug, &p.Title, &p.Excerpt, &p.Content, &tags, &published, &publishedAt, &updatedAt); err != nil {
		return content.Post{}, err
	}
	p.Tags = ParseTags(tags)
	p.Published = published == 1
	p.PublishedAt = parseTimePtr(publishedAt)
	p.UpdatedAt = parseTimePtr(updatedAt)
	return p, nil
}

func (s *Store) listPosts(ctx context.Context, q string, args ...any) ([]content.Post, error) {
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []content.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			s.skipRow("posts", err)
			continue
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// ListPublishedPosts returns published posts, newest first.
func (s *Store) ListPublishedPosts(ctx context.Context) ([]content.Post, error) {
	return s.listPosts(ctx, `SELECT `+postColumns+` FROM posts WHERE published = 1 ORDER BY published_at DESC, slug`)
}

// ListAllPosts returns every post (published and drafts), newest first.
func (s *Store) ListAllPosts(ctx context.Context) ([]content.Post, error) {
	return s.listPosts(ctx, `SELECT `+postColumns+` FROM posts ORDER BY published_at DESC, slug`)
}

// GetPost returns a single published post by slug.
func (s *Store) GetPost(ctx context.Context, slug string) (content.Post, error) {
	return scanPost(s.queryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE slug = ? AND published = 1`, slug))
}

// GetPostAny returns a post by slug regardless of published status (for admin).
func (s *Store) GetPostAny(ctx context.Context, slug string) (content.Post, error) {
	return scanPost(s.queryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE slug = ?`, slug))
}

// SavePost upserts a blog post. Tags are normalized to lowercase.
func (s *Store) SavePost(ctx context.Context, p content.Post) error {
	normalized := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			normalized = append(normalized, t)
		}
	}
	tagString := ""
	if len(normalized) > 0 {
		tagString = "," + strings.Join(normalized, ",") + ","
	}
	_, err := s.exec(ctx, `
INSERT INTO posts (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (slug) DO UPDATE SET
    title = excluded.title,
    excerpt = excluded.excerpt,
    content = excluded.content,
    tags = excluded.tags,
    published = excluded.published,
    published_at = excluded.published_at,
    updated_at = excluded.updated_at`,
		p.Slug, p.Title, p.Excerpt, p.Content, tagString, boolInt(p.Published),
		formatTimePtr(p.PublishedAt), formatTimePtr(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save post %s: %w", p.Slug, err)
	}
	return nil
}

// DeletePost removes a post by slug.
func (s *Store) DeletePost(ctx context.Context, slug string) error {
	return s.deleteOne(ctx, `DELETE FROM posts WHERE slug = ?`, slug)
}

// Content index

const entryColumns = `url, title, page_type, excerpt, main_keywords, content_summary, related_pages, last_modified_at, created_at`

func scanEntry(r rowScanner) (content.Entry, error) {
	var e content.Entry
	var pageType, keywords, related, modified, created string
	var summary sql.NullString
	if err := r.Scan(&e.URL, &e.Title, &pageType, &e.Excerpt, &keywords, &summary, &related, &modified, &created); err != nil {
		return content.Entry{}, err
	}
	e.PageType = content.PageType(pageType)
	if err := decodeList(keywords, &e.MainKeywords); err != nil {
		return content.Entry{}, fmt.Errorf("entry %s keywords: %w", e.URL, err)
	}
	if err := decodeList(related, &e.RelatedPages); err != nil {
		return content.Entry{}, fmt.Errorf("entry %s related pages: %w", e.URL, err)
	}
	if summary.Valid {
		v := summary.String
		e.ContentSummary = &v
	}
	if t := parseTimePtr(modified); t != nil {
		e.LastModifiedAt = *t
	}
	if t := parseTimePtr(created); t != nil {
		e.CreatedAt = *t
	}
	return e, nil
}

// ListEntries returns the whole content index ordered by URL.
func (s *Store) ListEntries(ctx context.Context) ([]content.Entry, error) {
	rows, err := s.query(ctx, `SELECT `+entryColumns+` FROM content_entries ORDER BY url`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []content.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			s.skipRow("content_entries", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetEntry returns the content index entry for url.
func (s *Store) GetEntry(ctx context.Context, url string) (content.Entry, error) {
	return scanEntry(s.queryRow(ctx, `SELECT `+entryColumns+` FROM content_entries WHERE url = ?`, url))
}

// SaveEntry upserts a content index entry.
func (s *Store) SaveEntry(ctx context.Context, e content.Entry) error {
	keywords, err := encodeList(e.MainKeywords)
	if err != nil {
		return err
	}
	related, err := encodeList(e.RelatedPages)
	if err != nil {
		return err
	}
	var summary sql.NullString
	if e.ContentSummary != nil {
		summary = sql.NullString{String: *e.ContentSummary, Valid: true}
	}
	_, err = s.exec(ctx, `
INSERT INTO content_entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (url) DO UPDATE SET
    title = excluded.title,
    page_type = excluded.page_type,
    excerpt = excluded.excerpt,
    main_keywords = excluded.main_keywords,
    content_summary = excluded.content_summary,
    related_pages = excluded.related_pages,
    last_modified_at = excluded.last_modified_at,
    created_at = excluded.created_at`,
		e.URL, e.Title, string(e.PageType), e.Excerpt, keywords, summary, related,
		formatTime(e.LastModifiedAt), formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("save entry %s: %w", e.URL, err)
	}
	return nil
}

// DeleteEntry removes a content index entry.
func (s *Store) DeleteEntry(ctx context.Context, url string) error {
	return s.deleteOne(ctx, `DELETE FROM content_entries WHERE url = ?`, url)
}

// Gallery

const imageColumns = `id, image_url, title, alt_text, description, category, is_published, order_index`

func scanImage(r rowScanner) (content.GalleryImage, error) {
	var img content.GalleryImage
	var published int
	if err := r.Scan(&img.ID, &img.ImageURL, &img.Title, &img.AltText, &img.Description, &img.Category, &published, &img.OrderIndex); err != nil {
		return content.GalleryImage{}, err
	}
	img.IsPublished = published == 1
	return img, nil
}

func (s *Store) listImages(ctx context.Context, q string, args ...any) ([]content.GalleryImage, error) {
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []content.GalleryImage
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			s.skipRow("gallery_images", err)
			continue
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// ListImages returns every gallery image ordered for display.
func (s *Store) ListImages(ctx context.Context) ([]content.GalleryImage, error) {
	return s.listImages(ctx, `SELECT `+imageColumns+` FROM gallery_images ORDER BY order_index, id`)
}

// ListPublishedImages returns published gallery images ordered by order index.
func (s *Store) ListPublishedImages(ctx context.Context) ([]content.GalleryImage, error) {
	return s.listImages(ctx, `SELECT `+imageColumns+` FROM gallery_images WHERE is_published = 1 ORDER BY order_index, id`)
}

// GetImage returns a gallery image by id.
func (s *Store) GetImage(ctx context.Context, id string) (content.GalleryImage, error) {
	return scanImage(s.queryRow(ctx, `SELECT `+imageColumns+` FROM gallery_images WHERE id = ?`, id))
}

// SaveImage upserts a gallery image.
func (s *Store) SaveImage(ctx context.Context, img content.GalleryImage) error {
	_, err := s.exec(ctx, `
INSERT INTO gallery_images (`+imageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    image_url = excluded.image_url,
    title = excluded.title,
    alt_text = excluded.alt_text,
    description = excluded.description,
    category = excluded.category,
    is_published = excluded.is_published,
    order_index = excluded.order_index`,
		img.ID, img.ImageURL, img.Title, img.AltText, img.Description, img.Category,
		boolInt(img.IsPublished), img.OrderIndex)
	if err != nil {
		return fmt.Errorf("save image %s: %w", img.ID, err)
	}
	return nil
}

// DeleteImage removes a gallery image by id.
func (s *Store) DeleteImage(ctx context.Context, id string) error {
	return s.deleteOne(ctx, `DELETE FROM gallery_images WHERE id = ?`, id)
}

// NextOrderIndex returns one past the highest order index in the gallery.
func (s *Store) NextOrderIndex(ctx context.Context) (int, error) {
	var n int
	err := s.queryRow(ctx, `SELECT COALESCE(MAX(order_index), -1) + 1 FROM gallery_images`).Scan(&n)
	return n, err
}

func (s *Store) deleteOne(ctx context.Context, q string, key string) error {
	res, err := s.exec(ctx, q, key)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ParseTags splits a comma-delimited tag string (e.g. ",go,web,") into a slice.
func ParseTags(tagString string) []string {
	tagString = strings.Trim(tagString, ",")
	if tagString == "" {
		return nil
	}
	parts := strings.Split(tagString, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func parseTimePtr(v string) *time.Time {
	if v == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}

func encodeList(v []string) (string, error) {
	if len(v) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeList(v string, dst *[]string) error {
	if v == "" || v == "[]" {
		*dst = nil
		return nil
	}
	return json.Unmarshal([]byte(v), dst)
}
