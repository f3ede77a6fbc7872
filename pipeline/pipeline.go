// Package pipeline ties fetching, classification, and storage together into
// the idempotent ingest stage.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/LadyR00t/rrss-mcp/storage"
	"github.com/LadyR00t/rrss-mcp/twitter"
)

// Store is the slice of the storage layer the pipeline depends on.
type Store interface {
	FindByTweetID(ctx context.Context, tweetID int64) (*storage.Post, error)
	InsertPost(ctx context.Context, post *storage.Post) error
}

// Classifier assigns a category and relevance score to post content.
type Classifier interface {
	Classify(text, language string) (category string, score int)
}

// Summary accumulates the outcome counters of one ingest batch.
type Summary struct {
	Processed  int            `json:"processed"`
	Skipped    int            `json:"skipped"`
	Failed     int            `json:"failed"`
	Categories map[string]int `json:"categories"`
}

// Pipeline ingests fetched posts: dedup by tweet id, classify, persist.
type Pipeline struct {
	store      Store
	classifier Classifier
	now        func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// New creates an ingestion pipeline.
func New(store Store, classifier Classifier, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:      store,
		classifier: classifier,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest processes each post independently: a failure on one post never
// aborts the batch. At most one record is ever stored per tweet id; repeats
// and insert races count as skipped. Posts the classifier rejects count as
// failed (discarded, not an error).
func (p *Pipeline) Ingest(ctx context.Context, posts []twitter.Post) Summary {
	summary := Summary{Categories: make(map[string]int)}

	for _, post := range posts {
		tweetID, err := strconv.ParseInt(strings.TrimSpace(post.ID), 10, 64)
		if err != nil {
			slog.Warn("discarding post with unparseable id", "id", post.ID)
			summary.Failed++
			continue
		}

		_, err = p.store.FindByTweetID(ctx, tweetID)
		if err == nil {
			summary.Skipped++
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Error("dedup lookup failed", "tweet_id", tweetID, "error", err)
			summary.Failed++
			continue
		}

		category, score := p.classifier.Classify(post.Text, post.Language)
		if category == "" {
			slog.Debug("post below relevance threshold", "tweet_id", tweetID)
			summary.Failed++
			continue
		}

		processedAt := p.now().UTC()
		record := &storage.Post{
			TweetID:        tweetID,
			Content:        post.Text,
			Author:         post.Author,
			CreatedAt:      post.CreatedAt,
			Language:       post.Language,
			Category:       category,
			RelevanceScore: score,
			Metadata:       post.Metadata,
			ProcessedAt:    &processedAt,
		}

		if err := p.store.InsertPost(ctx, record); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				// Lost a race with a concurrent insert; the record exists.
				summary.Skipped++
				continue
			}
			slog.Error("persist failed", "tweet_id", tweetID, "error", err)
			summary.Failed++
			continue
		}

		summary.Processed++
		summary.Categories[category]++
	}

	return summary
}
