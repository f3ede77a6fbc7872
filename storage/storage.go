// Package storage persists classified posts and daily reports. SQLite is the
// default engine; a postgres:// DSN selects PostgreSQL through the pgx driver.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert loses to an existing record with
// the same tweet id. Callers treat this as "already stored", not a failure.
var ErrDuplicate = errors.New("duplicate tweet id")

const (
	dialectSQLite   = "sqlite"
	dialectPostgres = "postgres"
)

// Post is the persisted form of a classified post. TweetID is unique across
// all rows; it is the dedup key.
type Post struct {
	ID             int64
	TweetID        int64
	Content        string
	Author         string
	CreatedAt      time.Time
	Language       string
	Category       string
	RelevanceScore int
	Metadata       map[string]any
	ProcessedAt    *time.Time
}

// Report is a persisted daily report summary.
type Report struct {
	ID         int64
	Date       time.Time
	TotalPosts int
	Categories map[string]int
	CreatedAt  time.Time
}

// DB wraps the database connection and provides storage operations.
type DB struct {
	conn    *sql.DB
	dialect string
}

// Open connects to the store selected by the DSN and initializes the schema.
// A postgres:// (or postgresql://) DSN opens PostgreSQL; anything else is
// treated as a SQLite file path.
func Open(dsn string) (*DB, error) {
	dialect := dialectSQLite
	driver := "sqlite"
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		dialect = dialectPostgres
		driver = "pgx"
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db := &DB{conn: conn, dialect: dialect}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	timestamp := "DATETIME"
	if db.dialect == dialectPostgres {
		idColumn = "BIGSERIAL PRIMARY KEY"
		timestamp = "TIMESTAMPTZ"
	}

	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS posts (
		id %[1]s,
		tweet_id BIGINT NOT NULL UNIQUE,
		content TEXT NOT NULL,
		author TEXT NOT NULL,
		created_at %[2]s NOT NULL,
		language TEXT NOT NULL,
		category TEXT NOT NULL,
		relevance_score INTEGER NOT NULL,
		metadata TEXT,
		processed_at %[2]s
	);

	CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);
	CREATE INDEX IF NOT EXISTS idx_posts_category ON posts(category);

	CREATE TABLE IF NOT EXISTS reports (
		id %[1]s,
		date %[2]s NOT NULL,
		total_posts INTEGER NOT NULL,
		categories TEXT NOT NULL,
		created_at %[2]s NOT NULL
	);
	`, idColumn, timestamp)

	_, err := db.conn.Exec(schema)
	return err
}

// rebind rewrites ? placeholders into the $n form PostgreSQL expects.
func (db *DB) rebind(query string) string {
	if db.dialect != dialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// InsertPost persists a post. The unique constraint on tweet_id arbitrates
// concurrent inserts of the same identifier: the loser gets ErrDuplicate.
func (db *DB) InsertPost(ctx context.Context, post *Post) error {
	metadataJSON, err := json.Marshal(post.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	query := `
	INSERT INTO posts (tweet_id, content, author, created_at, language, category, relevance_score, metadata, processed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (tweet_id) DO NOTHING
	`

	res, err := db.conn.ExecContext(ctx, db.rebind(query),
		post.TweetID,
		post.Content,
		post.Author,
		post.CreatedAt,
		post.Language,
		post.Category,
		post.RelevanceScore,
		string(metadataJSON),
		post.ProcessedAt,
	)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrDuplicate
	}
	return nil
}

// FindByTweetID retrieves a post by its external identifier.
func (db *DB) FindByTweetID(ctx context.Context, tweetID int64) (*Post, error) {
	query := `
	SELECT id, tweet_id, content, author, created_at, language, category, relevance_score, metadata, processed_at
	FROM posts WHERE tweet_id = ?
	`

	row := db.conn.QueryRowContext(ctx, db.rebind(query), tweetID)
	post, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return post, nil
}

// PostsBetween returns posts created in [start, end), highest relevance first.
func (db *DB) PostsBetween(ctx context.Context, start, end time.Time) ([]Post, error) {
	query := `
	SELECT id, tweet_id, content, author, created_at, language, category, relevance_score, metadata, processed_at
	FROM posts WHERE created_at >= ? AND created_at < ?
	ORDER BY relevance_score DESC, tweet_id
	`

	rows, err := db.conn.QueryContext(ctx, db.rebind(query), start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

// Stats returns the total post count and the per-category breakdown.
func (db *DB) Stats(ctx context.Context) (int, map[string]int, error) {
	query := `SELECT category, COUNT(*) FROM posts GROUP BY category`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	total := 0
	categories := make(map[string]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return 0, nil, err
		}
		categories[category] = count
		total += count
	}
	return total, categories, rows.Err()
}

// DeleteOlderThan removes posts created before the cutoff and returns how
// many were deleted.
func (db *DB) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM posts WHERE created_at < ?`

	res, err := db.conn.ExecContext(ctx, db.rebind(query), cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SaveReport persists a daily report summary.
func (db *DB) SaveReport(ctx context.Context, report *Report) error {
	categoriesJSON, err := json.Marshal(report.Categories)
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}

	query := `
	INSERT INTO reports (date, total_posts, categories, created_at)
	VALUES (?, ?, ?, ?)
	`

	_, err = db.conn.ExecContext(ctx, db.rebind(query),
		report.Date,
		report.TotalPosts,
		string(categoriesJSON),
		report.CreatedAt,
	)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (*Post, error) {
	post := &Post{}
	var metadataJSON sql.NullString
	var processedAt sql.NullTime

	err := row.Scan(
		&post.ID,
		&post.TweetID,
		&post.Content,
		&post.Author,
		&post.CreatedAt,
		&post.Language,
		&post.Category,
		&post.RelevanceScore,
		&metadataJSON,
		&processedAt,
	)
	if err != nil {
		return nil, err
	}

	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &post.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	if processedAt.Valid {
		post.ProcessedAt = &processedAt.Time
	}

	return post, nil
}
