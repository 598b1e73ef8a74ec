package interview

import (
	"time"

	"github.com/samber/lo"

	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
)

// Transcript is the ordered turn log of one session. It is not safe for
// concurrent use; Session guards it.
type Transcript struct {
	turns []interview.Turn
	now   func() time.Time
}

// NewTranscript returns an empty transcript stamped with the given clock.
func NewTranscript(now func() time.Time) *Transcript {
	if now == nil {
		now = time.Now
	}
	return &Transcript{turns: make([]interview.Turn, 0, 16), now: now}
}

// Append records a new turn and returns it.
func (t *Transcript) Append(speaker interview.Speaker, text string) interview.Turn {
	turn := interview.Turn{Speaker: speaker, Text: text, Timestamp: t.now().UTC()}
	t.turns = append(t.turns, turn)
	return turn
}

// PopIf removes the last turn when it was authored by speaker.
func (t *Transcript) PopIf(speaker interview.Speaker) bool {
	if len(t.turns) == 0 || t.turns[len(t.turns)-1].Speaker != speaker {
		return false
	}
	t.turns = t.turns[:len(t.turns)-1]
	return true
}

// Reset drops every turn.
func (t *Transcript) Reset() {
	t.turns = t.turns[:0]
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	return len(t.turns)
}

// TurnIndex is the number of candidate turns.
func (t *Transcript) TurnIndex() int {
	return lo.CountBy(t.turns, func(turn interview.Turn) bool {
		return turn.Speaker == interview.Candidate
	})
}

// LastInterviewer returns the most recent interviewer turn.
func (t *Transcript) LastInterviewer() (interview.Turn, bool) {
	for i := len(t.turns) - 1; i >= 0; i-- {
		if t.turns[i].Speaker == interview.Interviewer {
			return t.turns[i], true
		}
	}
	return interview.Turn{}, false
}

// Snapshot returns a copy safe to hand to other goroutines.
func (t *Transcript) Snapshot() []interview.Turn {
	out := make([]interview.Turn, len(t.turns))
	copy(out, t.turns)
	return out
}
