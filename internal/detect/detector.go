// Package detect decides CONSISTENT or CONTRADICTS for claims against
// retrieved evidence. The decision is a lexical negation heuristic,
// not entailment: a passage containing an explicit negation marker is
// taken as asserting the opposite of the claim. Known false positives
// ("not unlike") and false negatives (contradiction without negation
// words) make this the system's primary accuracy ceiling; the marker
// list and precedence are therefore fixed so behavior stays
// reproducible.
package detect

import (
	"strings"

	"canoncheck/internal/model"
	"canoncheck/internal/similarity"
)

// NegationMarkers is the canonical marker set, matched case-insensitively
// as substrings of EVIDENCE text only — never of the claim text.
var NegationMarkers = []string{"did not", "never", "no ", "not "}

// NoEvidenceRationale is the fixed rationale for claims with an empty
// evidence set: absence of contradicting evidence defaults to
// CONSISTENT, because it cannot be told apart from absence of evidence.
const NoEvidenceRationale = "No contradicting evidence found."

// matchRationale is the fixed rationale for claims judged against
// retrieved passages.
const matchRationale = "Heuristic semantic match with negation check."

// Detector produces per-claim and story-level verdicts.
type Detector struct {
	excerpts int // Passages re-ranked per claim in dossier mode
}

// New creates a detector. excerpts is the per-claim top-N passage
// count for dossier mode; non-positive selects 3.
func New(excerpts int) *Detector {
	if excerpts <= 0 {
		excerpts = 3
	}
	return &Detector{excerpts: excerpts}
}

// hasNegation reports whether any marker occurs in the passage text.
func hasNegation(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range NegationMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// StoryVerdict is the interactive-mode decision: the story is
// CONTRADICTS if any evidence passage carries a negation marker,
// regardless of which claim retrieved it. The first matching passage
// short-circuits the scan.
func (d *Detector) StoryVerdict(evidence []model.Chunk) model.Label {
	for _, chunk := range evidence {
		if hasNegation(chunk.Text) {
			return model.LabelContradicts
		}
	}
	return model.LabelConsistent
}

// Analyze is the dossier-mode decision: one verdict per claim. For
// each claim the shared evidence pool is re-ranked by cosine between
// the claim's embedding and each passage's embedding — computed fresh,
// since deduplication may have pooled passages retrieved by other
// claims — and only the top passages are checked for markers.
// claimVectors and claims, and poolVectors and pool, must be
// positionally aligned. A claim with no evidence is CONSISTENT.
func (d *Detector) Analyze(claims []string, claimVectors [][]float32, pool []model.Chunk, poolVectors [][]float32) []model.ClaimVerdict {
	verdicts := make([]model.ClaimVerdict, 0, len(claims))

	if len(pool) == 0 {
		for _, claim := range claims {
			verdicts = append(verdicts, model.ClaimVerdict{
				Claim:    claim,
				Label:    model.LabelConsistent,
				Excerpts: []model.Chunk{},
				Analysis: NoEvidenceRationale,
			})
		}
		return verdicts
	}

	sim := similarity.Matrix(claimVectors, poolVectors)

	for i, claim := range claims {
		top := similarity.TopIndices(sim[i], d.excerpts)
		excerpts := make([]model.Chunk, 0, len(top))
		label := model.LabelConsistent
		for _, j := range top {
			excerpts = append(excerpts, pool[j])
			if label == model.LabelConsistent && hasNegation(pool[j].Text) {
				label = model.LabelContradicts
			}
		}

		verdicts = append(verdicts, model.ClaimVerdict{
			Claim:    claim,
			Label:    label,
			Excerpts: excerpts,
			Analysis: matchRationale,
		})
	}

	return verdicts
}

// Aggregate folds per-claim verdicts into the story-level label:
// CONTRADICTS if any claim contradicts, else CONSISTENT.
func Aggregate(verdicts []model.ClaimVerdict) model.Label {
	for _, v := range verdicts {
		if v.Label == model.LabelContradicts {
			return model.LabelContradicts
		}
	}
	return model.LabelConsistent
}
