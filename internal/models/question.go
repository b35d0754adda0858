package models

import (
	"encoding/json"
	"time"

	"github.com/examflow/editorial/internal/workflow"
)

// OptionLetters are the labels of the up to five answer options.
var OptionLetters = []string{"A", "B", "C", "D", "E"}

// Content is the author-editable part of a question. Snapshots diff on these fields.
type Content struct {
	Body          string  `json:"body"`
	ImageURL      *string `json:"image_url,omitempty"`
	FileURL       *string `json:"file_url,omitempty"`
	OptionA       *string `json:"option_a,omitempty"`
	OptionB       *string `json:"option_b,omitempty"`
	OptionC       *string `json:"option_c,omitempty"`
	OptionD       *string `json:"option_d,omitempty"`
	OptionE       *string `json:"option_e,omitempty"`
	CorrectAnswer string  `json:"correct_answer"`
	Difficulty    int     `json:"difficulty"`
	SubjectID     int64   `json:"subject_id"`
}

// Option returns the text of the option labeled letter, or nil.
func (c *Content) Option(letter string) *string {
	switch letter {
	case "A":
		return c.OptionA
	case "B":
		return c.OptionB
	case "C":
		return c.OptionC
	case "D":
		return c.OptionD
	case "E":
		return c.OptionE
	}
	return nil
}

// Question is an exam item moving through the editorial pipeline.
type Question struct {
	ID int64 `json:"id"`
	Content
	CreatorID             *int64         `json:"creator_id,omitempty"`
	TypesetterID          *int64         `json:"typesetter_id,omitempty"`
	State                 workflow.State `json:"state"`
	Version               int            `json:"version"`
	RevisionNote          *string        `json:"revision_note,omitempty"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
	TypesettingStartedAt  *time.Time     `json:"typesetting_started_at,omitempty"`
	TypesettingFinishedAt *time.Time     `json:"typesetting_finished_at,omitempty"`
}

// Status is shorthand for q.State.Status().
func (q *Question) Status() workflow.Status {
	return q.State.Status()
}

// IsOwner reports whether userID created the question.
func (q *Question) IsOwner(userID int64) bool {
	return q.CreatorID != nil && *q.CreatorID == userID
}

// IsTypesetter reports whether userID is the assigned typesetter.
func (q *Question) IsTypesetter(userID int64) bool {
	return q.TypesetterID != nil && *q.TypesetterID == userID
}

// Clone returns a deep copy so a pre-mutation record survives edits to the original.
func (q *Question) Clone() *Question {
	out := *q
	out.ImageURL = clonePtr(q.ImageURL)
	out.FileURL = clonePtr(q.FileURL)
	out.OptionA = clonePtr(q.OptionA)
	out.OptionB = clonePtr(q.OptionB)
	out.OptionC = clonePtr(q.OptionC)
	out.OptionD = clonePtr(q.OptionD)
	out.OptionE = clonePtr(q.OptionE)
	out.CreatorID = clonePtr(q.CreatorID)
	out.TypesetterID = clonePtr(q.TypesetterID)
	out.RevisionNote = clonePtr(q.RevisionNote)
	out.TypesettingStartedAt = clonePtr(q.TypesettingStartedAt)
	out.TypesettingFinishedAt = clonePtr(q.TypesettingFinishedAt)
	return &out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// QuestionVersion is an immutable copy of a question taken before a mutation.
type QuestionVersion struct {
	ID            int64           `json:"id"`
	QuestionID    int64           `json:"question_id"`
	VersionNumber int             `json:"version_number"`
	Snapshot      json.RawMessage `json:"snapshot"`
	ChangedBy     *int64          `json:"changed_by,omitempty"`
	Reason        string          `json:"reason"`
	CreatedAt     time.Time       `json:"created_at"`
}

// RevisionNote is a reviewer remark attached to a question.
type RevisionNote struct {
	ID           int64               `json:"id"`
	QuestionID   int64               `json:"question_id"`
	AuthorID     *int64              `json:"author_id,omitempty"`
	SelectedText string              `json:"selected_text,omitempty"`
	Note         string              `json:"note"`
	ReviewKind   workflow.ReviewKind `json:"review_kind"`
	Resolved     bool                `json:"resolved"`
	CreatedAt    time.Time           `json:"created_at"`
}

// TypesettingEntry records one typesetting pass over a question.
type TypesettingEntry struct {
	ID           int64     `json:"id"`
	QuestionID   int64     `json:"question_id"`
	TypesetterID *int64    `json:"typesetter_id,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	FileURL      *string   `json:"file_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
