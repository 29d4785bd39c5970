package model

// Claims is the result of segmenting a backstory into independently
// checkable claims. It is an explicit sum type: either the backstory
// split cleanly into segments, or segmentation produced nothing usable
// and the whole backstory stands in as a single claim. The distinction
// is resolved once at segmentation time, never re-inferred downstream.
type Claims struct {
	Items    []string `json:"items"`    // Trimmed claim texts, never empty for non-empty input
	Fallback bool     `json:"fallback"` // True when Items is the whole backstory verbatim
}

// ManySegments wraps cleanly segmented claims.
func ManySegments(items []string) Claims {
	return Claims{Items: items}
}

// OneClaim wraps a backstory that could not be segmented; the whole
// text becomes the single claim.
func OneClaim(text string) Claims {
	return Claims{Items: []string{text}, Fallback: true}
}

// Len returns the number of claims.
func (c Claims) Len() int { return len(c.Items) }
