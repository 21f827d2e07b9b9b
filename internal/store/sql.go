package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"articledesk/internal/model"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect captures the differences between the supported SQL engines.
type Dialect struct {
	Name       string
	driverName string
	schema     []string
	// lockRow is appended to the row read that precedes a write.
	lockRow string
	// numbered placeholders ($1, $2, ...) instead of "?".
	numbered bool
	// singleConn serializes access through one connection.
	singleConn bool
}

var (
	SQLite = Dialect{
		Name:       "sqlite",
		driverName: "sqlite",
		schema: []string{
			`CREATE TABLE IF NOT EXISTS articles (
				article_id INTEGER PRIMARY KEY AUTOINCREMENT,
				admin_id INTEGER NOT NULL,
				title TEXT NOT NULL,
				summary TEXT NOT NULL,
				link TEXT NOT NULL,
				image_link TEXT NULL
			)`,
		},
		singleConn: true,
	}

	Postgres = Dialect{
		Name:       "postgres",
		driverName: "pgx",
		schema: []string{
			`CREATE TABLE IF NOT EXISTS articles (
				article_id BIGSERIAL PRIMARY KEY,
				admin_id BIGINT NOT NULL,
				title TEXT NOT NULL,
				summary TEXT NOT NULL,
				link TEXT NOT NULL,
				image_link TEXT NULL
			)`,
		},
		lockRow:  " FOR UPDATE",
		numbered: true,
	}
)

// DialectFor resolves a configured driver name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", name)
	}
}

// rebind rewrites "?" placeholders for dialects that number them.
func (d Dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
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

const (
	articleColumns = `article_id, admin_id, title, summary, link, image_link`

	insertArticle = `INSERT INTO articles (admin_id, title, summary, link, image_link)
		VALUES (?, ?, ?, ?, ?) RETURNING article_id`
	selectArticles = `SELECT ` + articleColumns + ` FROM articles ORDER BY article_id ASC`
	selectArticle  = `SELECT ` + articleColumns + ` FROM articles WHERE article_id = ?`
	updateArticle  = `UPDATE articles SET admin_id = ?, title = ?, summary = ?, link = ?, image_link = ?
		WHERE article_id = ?`
	deleteArticle = `DELETE FROM articles WHERE article_id = ?`
)

// SQLStore keeps articles in a relational table.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to the database. Call Migrate before first use.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("database dsn is required")
	}

	db, err := sql.Open(dialect.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Name, err)
	}
	if dialect.singleConn {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.Name, err)
	}

	return &SQLStore{db: db, dialect: dialect}, nil
}

// Dialect reports which engine the store talks to.
func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}

// Migrate creates the articles table if it does not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) Create(ctx context.Context, in model.ArticleInput) (*model.Article, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	article := model.NewArticle(in)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, s.dialect.rebind(insertArticle),
		article.AdminID, article.Title, article.Summary, article.Link, nullString(article.ImageLink),
	).Scan(&article.ID)
	if err != nil {
		return nil, fmt.Errorf("insert article: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &article, nil
}

func (s *SQLStore) List(ctx context.Context) ([]model.Article, error) {
	rows, err := s.db.QueryContext(ctx, selectArticles)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	articles := []model.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}

// Get reads one article outside of a write transaction.
func (s *SQLStore) Get(ctx context.Context, id int64) (*model.Article, error) {
	a, err := scanArticle(s.db.QueryRowContext(ctx, s.dialect.rebind(selectArticle), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get article %d: %w", id, err)
	}
	return a, nil
}

func (s *SQLStore) Replace(ctx context.Context, id int64, in model.ArticleInput) (*model.Article, *model.Article, error) {
	if err := in.Validate(); err != nil {
		return nil, nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	previous, err := s.lockedRow(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}

	updated := *previous
	in.Apply(&updated)
	_, err = tx.ExecContext(ctx, s.dialect.rebind(updateArticle),
		updated.AdminID, updated.Title, updated.Summary, updated.Link, nullString(updated.ImageLink), id,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("update article %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}
	return &updated, previous, nil
}

func (s *SQLStore) Delete(ctx context.Context, id int64) (*model.Article, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	removed, err := s.lockedRow(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, s.dialect.rebind(deleteArticle), id); err != nil {
		return nil, fmt.Errorf("delete article %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return removed, nil
}

func (s *SQLStore) lockedRow(ctx context.Context, tx *sql.Tx, id int64) (*model.Article, error) {
	a, err := scanArticle(tx.QueryRowContext(ctx, s.dialect.rebind(selectArticle+s.dialect.lockRow), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get article %d: %w", id, err)
	}
	return a, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanArticle(row rowScanner) (*model.Article, error) {
	var (
		a     model.Article
		image sql.NullString
	)
	if err := row.Scan(&a.ID, &a.AdminID, &a.Title, &a.Summary, &a.Link, &image); err != nil {
		return nil, err
	}
	if image.Valid {
		a.ImageLink = &image.String
	}
	return &a, nil
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
