// Package classifier scores post content against a fixed set of
// security-incident categories.
package classifier

import (
	"fmt"
	"strings"
)

const (
	keywordPoints = 15
	hashtagPoints = 10
	entityPoints  = 10

	keywordCap = 40
	hashtagCap = 30
	entityCap  = 30

	maxScore = 100

	// Scores below this threshold are treated as unclassifiable content.
	relevanceThreshold = 30

	// Upper bound for Summarize output, matching the provider's post length.
	summaryBudget = 280
)

// Classifier assigns incident categories and relevance scores to post text.
// It is a pure function of its configuration: no I/O, deterministic output
// for a given input.
type Classifier struct {
	cfg Config
}

// New creates a classifier from the given configuration.
func New(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify scores the text against every configured category and returns the
// best category with its 0-100 relevance score. An empty category means the
// content scored below the relevance threshold. The keyword lists cover both
// accepted languages, so the language tag does not alter matching.
func (c *Classifier) Classify(text, language string) (string, int) {
	lower := strings.ToLower(text)

	// Hashtag and entity signals are category-independent; count them once.
	hashtagScore := capped(c.countHashtags(lower)*hashtagPoints, hashtagCap)
	entityScore := capped(c.countEntities(lower)*entityPoints, entityCap)

	bestCategory := ""
	bestScore := 0

	for _, cat := range c.cfg.Categories {
		keywordScore := capped(countMatches(lower, cat.Keywords)*keywordPoints, keywordCap)
		score := capped(keywordScore+hashtagScore+entityScore, maxScore)
		if score > bestScore {
			bestScore = score
			bestCategory = cat.Name
		}
	}

	if bestScore < relevanceThreshold {
		return "", 0
	}
	return bestCategory, bestScore
}

// Summarize produces a short excerpt: the first sentence plus any recognized
// entities and hashtags, kept within the summary budget.
func (c *Classifier) Summarize(text, language string) string {
	summary := firstSentence(text)
	if summary == "" {
		return truncate(text, 100) + "..."
	}

	lower := strings.ToLower(text)

	var extras []string
	if entities := c.matchedEntities(lower); len(entities) > 0 {
		extras = append(extras, "Entities: "+strings.Join(entities, ", "))
	}
	if hashtags := extractHashtags(text); len(hashtags) > 0 {
		extras = append(extras, "Tags: "+strings.Join(hashtags, ", "))
	}

	if len(extras) > 0 {
		extra := strings.Join(extras, " | ")
		if len(summary)+len(extra)+5 <= summaryBudget {
			summary = fmt.Sprintf("%s [%s]", summary, extra)
		}
	}
	return summary
}

func (c *Classifier) countHashtags(lower string) int {
	count := 0
	for _, tag := range c.cfg.RelevantHashtags {
		if strings.Contains(lower, strings.ToLower(tag)) {
			count++
		}
	}
	return count
}

func (c *Classifier) countEntities(lower string) int {
	count := 0
	for _, ent := range c.cfg.Entities {
		if strings.Contains(lower, ent.Text) {
			count++
		}
	}
	return count
}

func (c *Classifier) matchedEntities(lower string) []string {
	var matched []string
	for _, ent := range c.cfg.Entities {
		if strings.Contains(lower, ent.Text) {
			matched = append(matched, ent.Text)
		}
	}
	return matched
}

func countMatches(lower string, keywords []string) int {
	count := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			count++
		}
	}
	return count
}

func capped(score, limit int) int {
	if score > limit {
		return limit
	}
	return score
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	for i, r := range text {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		rest := text[i+1:]
		if rest == "" || strings.HasPrefix(rest, " ") {
			return text[:i+1]
		}
	}
	return ""
}

func extractHashtags(text string) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, word := range strings.Fields(text) {
		if strings.HasPrefix(word, "#") && len(word) > 1 && !seen[word] {
			seen[word] = true
			tags = append(tags, word)
		}
	}
	return tags
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
