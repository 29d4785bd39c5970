package model

import "fmt"

// Label is the verdict for a claim or a whole story.
// The numeric values are part of the batch output contract.
type Label int

const (
	LabelContradicts Label = 0
	LabelConsistent  Label = 1
)

func (l Label) String() string {
	switch l {
	case LabelContradicts:
		return "CONTRADICTS"
	case LabelConsistent:
		return "CONSISTENT"
	default:
		return fmt.Sprintf("Label(%d)", int(l))
	}
}

// ClaimVerdict is the per-claim analysis result inside a dossier.
type ClaimVerdict struct {
	Claim    string  `json:"claim"`
	Label    Label   `json:"label"`
	Excerpts []Chunk `json:"excerpts"` // Top supporting/contradicting passages, bounded
	Analysis string  `json:"analysis"` // Fixed-vocabulary rationale
}

// Dossier is the persisted per-story record: the input, the per-claim
// verdicts, and the deduplicated evidence that backed them. Written
// once per analyzed story and overwritten wholesale on rerun.
type Dossier struct {
	StoryID        int            `json:"story_id"`
	RunID          string         `json:"run_id,omitempty"` // Batch run that produced this dossier
	BookName       string         `json:"book_name"`
	Backstory      string         `json:"backstory"` // Verbatim input
	Analysis       []ClaimVerdict `json:"analysis"`
	EvidenceChunks []Chunk        `json:"evidence_chunks"`
}

// Story is one batch input row.
type Story struct {
	ID       int
	BookName string
	Content  string
}

// StoryResult is one row of the batch results summary.
type StoryResult struct {
	ID           int
	Label        Label
	EvidenceFile string
}
