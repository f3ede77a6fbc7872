package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testPost(tweetID int64, createdAt time.Time) *Post {
	processedAt := createdAt.Add(time.Minute)
	return &Post{
		TweetID:        tweetID,
		Content:        "New ransomware encrypted our files #ransomware",
		Author:         "secresearcher",
		CreatedAt:      createdAt,
		Language:       "en",
		Category:       "malware_ransomware",
		RelevanceScore: 70,
		Metadata:       map[string]any{"author_id": "42"},
		ProcessedAt:    &processedAt,
	}
}

func TestOpenInitializesSchema(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.conn.ExecContext(ctx, "SELECT 1 FROM posts LIMIT 1"); err != nil {
		t.Errorf("posts table not created: %v", err)
	}
	if _, err := db.conn.ExecContext(ctx, "SELECT 1 FROM reports LIMIT 1"); err != nil {
		t.Errorf("reports table not created: %v", err)
	}
}

func TestInsertAndFind(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createdAt := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

	if err := db.InsertPost(ctx, testPost(1712345678901234567, createdAt)); err != nil {
		t.Fatalf("InsertPost failed: %v", err)
	}

	got, err := db.FindByTweetID(ctx, 1712345678901234567)
	if err != nil {
		t.Fatalf("FindByTweetID failed: %v", err)
	}
	if got.ID == 0 {
		t.Error("surrogate key not assigned")
	}
	if got.Category != "malware_ransomware" {
		t.Errorf("Category = %q, want malware_ransomware", got.Category)
	}
	if got.RelevanceScore != 70 {
		t.Errorf("RelevanceScore = %d, want 70", got.RelevanceScore)
	}
	if got.Metadata["author_id"] != "42" {
		t.Errorf("Metadata author_id = %v, want 42", got.Metadata["author_id"])
	}
	if got.ProcessedAt == nil {
		t.Error("ProcessedAt = nil, want set")
	}
}

func TestFindMissing(t *testing.T) {
	db := newTestDB(t)

	_, err := db.FindByTweetID(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestInsertDuplicate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createdAt := time.Now().UTC()

	if err := db.InsertPost(ctx, testPost(100, createdAt)); err != nil {
		t.Fatalf("first InsertPost failed: %v", err)
	}

	err := db.InsertPost(ctx, testPost(100, createdAt))
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("second insert error = %v, want ErrDuplicate", err)
	}

	// The original record must be untouched.
	total, _, err := db.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
}

func TestStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createdAt := time.Now().UTC()

	for i, category := range []string{"malware_ransomware", "malware_ransomware", "phishing_social_engineering"} {
		post := testPost(int64(i+1), createdAt)
		post.Category = category
		if err := db.InsertPost(ctx, post); err != nil {
			t.Fatalf("InsertPost failed: %v", err)
		}
	}

	total, categories, err := db.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if categories["malware_ransomware"] != 2 {
		t.Errorf("malware_ransomware = %d, want 2", categories["malware_ransomware"])
	}
	if categories["phishing_social_engineering"] != 1 {
		t.Errorf("phishing_social_engineering = %d, want 1", categories["phishing_social_engineering"])
	}
}

func TestPostsBetween(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	inside := testPost(1, day.Add(10*time.Hour))
	inside.RelevanceScore = 40
	higher := testPost(2, day.Add(12*time.Hour))
	higher.RelevanceScore = 90
	outside := testPost(3, day.Add(25*time.Hour))

	for _, post := range []*Post{inside, higher, outside} {
		if err := db.InsertPost(ctx, post); err != nil {
			t.Fatalf("InsertPost failed: %v", err)
		}
	}

	posts, err := db.PostsBetween(ctx, day, day.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("PostsBetween failed: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("len(posts) = %d, want 2", len(posts))
	}
	if posts[0].TweetID != 2 || posts[1].TweetID != 1 {
		t.Errorf("order = [%d, %d], want highest relevance first", posts[0].TweetID, posts[1].TweetID)
	}
}

func TestDeleteOlderThan(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	old := testPost(1, now.Add(-10*24*time.Hour))
	recent := testPost(2, now.Add(-time.Hour))
	for _, post := range []*Post{old, recent} {
		if err := db.InsertPost(ctx, post); err != nil {
			t.Fatalf("InsertPost failed: %v", err)
		}
	}

	deleted, err := db.DeleteOlderThan(ctx, now.Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	if _, err := db.FindByTweetID(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("old post still present, err = %v", err)
	}
	if _, err := db.FindByTweetID(ctx, 2); err != nil {
		t.Errorf("recent post missing: %v", err)
	}
}

func TestSaveReport(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	report := &Report{
		Date:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		TotalPosts: 5,
		Categories: map[string]int{"malware_ransomware": 3, "data_breach_leaks": 2},
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.SaveReport(ctx, report); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}

	var total int
	if err := db.conn.QueryRowContext(ctx, "SELECT total_posts FROM reports").Scan(&total); err != nil {
		t.Fatalf("read report back: %v", err)
	}
	if total != 5 {
		t.Errorf("total_posts = %d, want 5", total)
	}
}
