// Package segment splits a backstory into independently checkable
// claims. The splitter is intentionally a period heuristic, not a
// sentence-boundary parser: abbreviations, decimals, and quoted
// dialogue with periods will be split lossily. That trade-off is
// accepted because claims only seed retrieval queries.
package segment

import (
	"strings"

	"canoncheck/internal/model"
)

// DefaultMinClaimChars is the minimum fragment length kept as a claim.
// Shorter fragments are treated as noise (abbreviations, list markers).
const DefaultMinClaimChars = 20

// Segmenter splits backstories into claims.
type Segmenter struct {
	minChars int
}

// New creates a segmenter. minChars <= 0 selects the default threshold.
func New(minChars int) *Segmenter {
	if minChars <= 0 {
		minChars = DefaultMinClaimChars
	}
	return &Segmenter{minChars: minChars}
}

// Split segments a backstory on sentence-terminating periods, trims
// whitespace, and discards fragments at or below the minimum length.
// If nothing usable survives, the whole backstory becomes the single
// claim: a non-empty backstory is never analyzed with zero claims.
func (s *Segmenter) Split(backstory string) model.Claims {
	var items []string
	for _, part := range strings.Split(backstory, ".") {
		part = strings.TrimSpace(part)
		if len(part) > s.minChars {
			items = append(items, part)
		}
	}

	if len(items) == 0 {
		return model.OneClaim(backstory)
	}
	return model.ManySegments(items)
}
