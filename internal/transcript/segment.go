package transcript

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Assembler state-misuse errors. These indicate a control-flow bug in the
// caller and are surfaced rather than silently tolerated.
var (
	ErrAlreadyActive = errors.New("assembler is already active")
	ErrNotActive     = errors.New("assembler is not active")
)

// Segment is one unit of transcribed text. Partial segments are provisional
// hypotheses superseded by later partials or a final; final segments are
// immutable once emitted and appended in non-decreasing timestamp order.
type Segment struct {
	ID         uuid.UUID `json:"id"`
	Text       string    `json:"text"`
	Timestamp  float64   `json:"timestamp"` // seconds since session start
	Duration   float64   `json:"duration"`
	Confidence float64   `json:"confidence"`
	Final      bool      `json:"is_final"`
}

// FullText joins the text of all final segments with single spaces, in
// order.
func FullText(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg.Final && seg.Text != "" {
			parts = append(parts, seg.Text)
		}
	}
	return strings.Join(parts, " ")
}
