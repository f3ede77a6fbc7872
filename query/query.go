// Package query builds search queries for the Twitter recent-search API.
package query

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoKeywords is returned when no usable keywords remain after trimming.
var ErrNoKeywords = errors.New("at least one non-empty keyword is required")

// Keywords are operator-controlled configuration, so no escaping is applied;
// the result is handed verbatim to the provider.
const filters = "-is:retweet (lang:es OR lang:en)"

// Build joins the non-empty keywords with OR, groups them, and appends the
// fixed retweet and language filters.
func Build(keywords []string) (string, error) {
	parts := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			parts = append(parts, kw)
		}
	}
	if len(parts) == 0 {
		return "", ErrNoKeywords
	}

	return fmt.Sprintf("(%s) %s", strings.Join(parts, " OR "), filters), nil
}
