package stock

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// fold lower-cases s. Casers carry state, so one is built per call.
func fold(s string) string {
	return cases.Lower(language.Und).String(s)
}

// SearchTerms splits free text on whitespace into lower-cased terms.
func SearchTerms(q string) []string {
	fields := strings.Fields(q)
	terms := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		term := fold(f)
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}
	return terms
}

// Matches reports whether every term appears in the transaction header or
// in one of its lines. Terms must already be lower-cased.
func (t *Transaction) Matches(terms []string) bool {
	for _, term := range terms {
		if !t.contains(term) {
			return false
		}
	}
	return true
}

func (t *Transaction) contains(term string) bool {
	fields := []string{t.ID, t.Supplier, t.PONumber, t.Notes}
	for _, line := range t.Items {
		fields = append(fields, line.Name, line.SKU)
	}
	for _, f := range fields {
		if strings.Contains(fold(f), term) {
			return true
		}
	}
	return false
}
