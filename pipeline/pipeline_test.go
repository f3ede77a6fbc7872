package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LadyR00t/rrss-mcp/classifier"
	"github.com/LadyR00t/rrss-mcp/storage"
	"github.com/LadyR00t/rrss-mcp/twitter"
)

// fakeStore is an in-memory Store keyed by tweet id.
type fakeStore struct {
	posts     map[int64]*storage.Post
	findCalls int
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{posts: make(map[int64]*storage.Post)}
}

func (s *fakeStore) FindByTweetID(ctx context.Context, tweetID int64) (*storage.Post, error) {
	s.findCalls++
	if post, found := s.posts[tweetID]; found {
		return post, nil
	}
	return nil, storage.ErrNotFound
}

func (s *fakeStore) InsertPost(ctx context.Context, post *storage.Post) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	if _, found := s.posts[post.TweetID]; found {
		return storage.ErrDuplicate
	}
	s.posts[post.TweetID] = post
	return nil
}

func newTestPipeline(store Store) *Pipeline {
	return New(store, classifier.New(classifier.DefaultConfig()))
}

func ransomwarePost(id string) twitter.Post {
	return twitter.Post{
		ID:        id,
		Text:      "New ransomware encrypted our files #ransomware #cybersecurity",
		Author:    "secresearcher",
		CreatedAt: time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
		Language:  "en",
		Metadata:  map[string]any{"author_id": "42"},
	}
}

func TestIngestPersistsRelevantPost(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(store)

	summary := p.Ingest(context.Background(), []twitter.Post{ransomwarePost("1712345678901234567")})

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, map[string]int{"malware_ransomware": 1}, summary.Categories)

	record := store.posts[1712345678901234567]
	require.NotNil(t, record)
	assert.Equal(t, "malware_ransomware", record.Category)
	assert.GreaterOrEqual(t, record.RelevanceScore, 70)
	assert.Equal(t, "secresearcher", record.Author)
	assert.NotNil(t, record.ProcessedAt)
}

func TestIngestIsIdempotent(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(store)
	posts := []twitter.Post{ransomwarePost("101"), ransomwarePost("102")}

	first := p.Ingest(context.Background(), posts)
	require.Equal(t, 2, first.Processed)

	second := p.Ingest(context.Background(), posts)
	assert.Equal(t, 0, second.Processed)
	assert.Equal(t, 2, second.Skipped)
	assert.Equal(t, 0, second.Failed)
	assert.Empty(t, second.Categories)
	assert.Len(t, store.posts, 2)
}

func TestIngestUnparseableID(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(store)

	summary := p.Ingest(context.Background(), []twitter.Post{ransomwarePost("not-a-number")})

	assert.Equal(t, Summary{Failed: 1, Categories: map[string]int{}}, summary)
	assert.Zero(t, store.findCalls, "storage must not be touched for an unparseable id")
}

func TestIngestBelowThresholdCountsFailed(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(store)

	post := ransomwarePost("55")
	post.Text = "nice weather today"

	summary := p.Ingest(context.Background(), []twitter.Post{post})

	assert.Equal(t, 1, summary.Failed)
	assert.Empty(t, store.posts)
}

func TestIngestInsertRaceCountsSkipped(t *testing.T) {
	store := newFakeStore()
	// The dedup lookup misses but the insert loses to a concurrent writer:
	// the race loser is a no-op, not an error.
	store.insertErr = storage.ErrDuplicate
	p := newTestPipeline(store)

	summary := p.Ingest(context.Background(), []twitter.Post{ransomwarePost("200")})

	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
}

func TestIngestIsolatesPerPostFailures(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(store)

	posts := []twitter.Post{
		ransomwarePost("not-a-number"),
		ransomwarePost("301"),
	}

	summary := p.Ingest(context.Background(), posts)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Processed)
	assert.Contains(t, store.posts, int64(301))
}

func TestIngestStoreErrorCountsFailed(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("disk full")
	p := newTestPipeline(store)

	summary := p.Ingest(context.Background(), []twitter.Post{ransomwarePost("400")})

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.Processed)
}
