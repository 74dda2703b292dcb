package persistence

import (
	"strings"
	"time"

	"github.com/wms/backend/internal/domain/stock"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// searchPatterns turns free text into lowercase LIKE patterns, one per
// whitespace-separated term. Callers AND them together.
func searchPatterns(q string) []string {
	return likePatterns(searchTermsOf(q))
}

func searchTermsOf(q string) []string {
	return stock.SearchTerms(q)
}

func likePatterns(terms []string) []string {
	patterns := make([]string, 0, len(terms))
	for _, t := range terms {
		patterns = append(patterns, "%"+likeEscaper.Replace(t)+"%")
	}
	return patterns
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
