// Package report builds the daily incident summary and delivers it.
package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/LadyR00t/rrss-mcp/storage"
)

// ErrNoData is returned when the requested day has no stored posts.
var ErrNoData = errors.New("no posts for the requested day")

// Number of highest-relevance posts highlighted in the report body.
const topPosts = 5

// Store is the slice of the storage layer the generator depends on.
type Store interface {
	PostsBetween(ctx context.Context, start, end time.Time) ([]storage.Post, error)
	SaveReport(ctx context.Context, report *storage.Report) error
}

// Summarizer produces the short excerpt shown per highlighted post.
type Summarizer interface {
	Summarize(text, language string) string
}

// Sender delivers a rendered report. A nil Sender disables delivery.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Generator builds, persists, and optionally delivers daily reports.
type Generator struct {
	store      Store
	summarizer Summarizer
	sender     Sender
	now        func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithSender sets the delivery channel.
func WithSender(sender Sender) Option {
	return func(g *Generator) {
		g.sender = sender
	}
}

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// NewGenerator creates a report generator.
func NewGenerator(store Store, summarizer Summarizer, opts ...Option) *Generator {
	g := &Generator{
		store:      store,
		summarizer: summarizer,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateDaily builds the report covering the UTC day containing the given
// instant, persists it, and delivers it when a sender is configured.
func (g *Generator) GenerateDaily(ctx context.Context, day time.Time) (*storage.Report, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)

	posts, err := g.store.PostsBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("load posts: %w", err)
	}
	if len(posts) == 0 {
		return nil, ErrNoData
	}

	categories := make(map[string]int)
	for _, post := range posts {
		categories[post.Category]++
	}

	report := &storage.Report{
		Date:       start,
		TotalPosts: len(posts),
		Categories: categories,
		CreatedAt:  g.now().UTC(),
	}
	if err := g.store.SaveReport(ctx, report); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}

	if g.sender != nil {
		if err := g.sender.Send(ctx, g.render(start, posts, categories)); err != nil {
			return nil, fmt.Errorf("deliver report: %w", err)
		}
	}

	return report, nil
}

func (g *Generator) render(day time.Time, posts []storage.Post, categories map[string]int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Security incident report for %s\n", day.Format("2006-01-02"))
	fmt.Fprintf(&b, "Total posts: %d\n\n", len(posts))

	b.WriteString("By category:\n")
	for _, cat := range sortedKeys(categories) {
		fmt.Fprintf(&b, "- %s: %d\n", cat, categories[cat])
	}

	b.WriteString("\nTop posts:\n")
	// PostsBetween returns highest relevance first.
	for i, post := range posts {
		if i == topPosts {
			break
		}
		fmt.Fprintf(&b, "%d. [%d] @%s: %s\n",
			i+1, post.RelevanceScore, post.Author,
			g.summarizer.Summarize(post.Content, post.Language))
	}

	return b.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
