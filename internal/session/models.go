// Package session persists in-progress answer sets for questionnaire
// sessions. Scoring results are never stored here: every score request
// recomputes them from the instrument definition and the saved answers.
package session

import (
	"strconv"

	"github.com/psytools/normscore/internal/scoring"
)

const (
	StatusInProgress = "in_progress"
	StatusSubmitted  = "submitted"
)

// Blank is the sentinel form UIs send for an item the respondent left
// untouched; it is equivalent to the item being absent.
const Blank = "__BLANK__"

// Session is one respondent's pass over one instrument. Answers are
// keyed by item id as strings, holding either a response label or a
// numeric score, matching what JSON clients send.
type Session struct {
	ID           string         `json:"id"`
	InstrumentID string         `json:"instrument_id"`
	RespondentID string         `json:"respondent_id"`
	Status       string         `json:"status"`
	Answers      map[string]any `json:"answers"`
	StartedAt    int64          `json:"started_at"`
	SubmittedAt  *int64         `json:"submitted_at,omitempty"`
}

// ScoringAnswers converts the raw answer map into the scorer's form:
// integer item ids, blank sentinels and empty strings dropped as
// unanswered, non-integer keys skipped.
func (s *Session) ScoringAnswers() scoring.Answers {
	out := make(scoring.Answers, len(s.Answers))
	for k, v := range s.Answers {
		id, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		if v == nil || v == "" || v == Blank {
			continue
		}
		out[id] = v
	}
	return out
}
