package shared

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// Prefixes of generated document ids.
const (
	PrefixTransaction = "TRX"
	PrefixRejectLog   = "REJ"
)

// DocumentIDGenerator produces ids of the form PREFIX-yyyymmdd-hhmmss-NNN.
type DocumentIDGenerator struct {
	prefix string
	now    func() time.Time
	suffix func() int
}

// NewDocumentIDGenerator creates a generator for the given prefix.
func NewDocumentIDGenerator(prefix string) *DocumentIDGenerator {
	return &DocumentIDGenerator{
		prefix: strings.ToUpper(prefix),
		now:    time.Now,
		suffix: func() int { return rand.IntN(1000) },
	}
}

// WithClock replaces the time source. Used by tests.
func (g *DocumentIDGenerator) WithClock(now func() time.Time) *DocumentIDGenerator {
	g.now = now
	return g
}

// WithSuffix replaces the random suffix source. Used by tests.
func (g *DocumentIDGenerator) WithSuffix(suffix func() int) *DocumentIDGenerator {
	g.suffix = suffix
	return g
}

// Next returns a new id.
func (g *DocumentIDGenerator) Next() string {
	t := g.now()
	return fmt.Sprintf("%s-%s-%s-%03d", g.prefix, t.Format("20060102"), t.Format("150405"), g.suffix()%1000)
}

// Prefix returns the id prefix.
func (g *DocumentIDGenerator) Prefix() string {
	return g.prefix
}
