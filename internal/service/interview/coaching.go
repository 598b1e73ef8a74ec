package interview

import (
	"context"
	"log"
	"strings"

	"github.com/samber/lo"

	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
)

// CoachingKind names one of the on-demand answer aids.
type CoachingKind string

const (
	KindHint        CoachingKind = "hint"
	KindIntent      CoachingKind = "intent"
	KindModelAnswer CoachingKind = "model_answer"
	KindVocabulary  CoachingKind = "vocabulary"
)

// ParseCoachingKind validates a kind coming from a URL or socket message.
func ParseCoachingKind(raw string) (CoachingKind, bool) {
	switch CoachingKind(raw) {
	case KindHint, KindIntent, KindModelAnswer, KindVocabulary:
		return CoachingKind(raw), true
	case "hints":
		return KindHint, true
	case "vocab":
		return KindVocabulary, true
	}
	return "", false
}

// Coach generates answer aids for the latest interviewer question.
type Coach interface {
	Hints(ctx context.Context, question string, lang interview.Language) ([]string, error)
	Intent(ctx context.Context, question string, lang interview.Language) (string, error)
	ModelAnswer(ctx context.Context, question string, lang interview.Language) (string, error)
	Vocabulary(ctx context.Context, question string, lang interview.Language) ([]string, error)
}

// Artifact is a cached coaching result. List kinds fill Items, text kinds fill Text.
type Artifact struct {
	Kind        CoachingKind `json:"kind"`
	Items       []string     `json:"items,omitempty"`
	Text        string       `json:"text,omitempty"`
	Placeholder bool         `json:"placeholder,omitempty"`
}

// Placeholder results.
var (
	PlaceholderHints          = []string{"Share a specific success story.", "Show enthusiasm for the industry.", "Highlight listening skills."}
	PlaceholderIntent         = "Analysis unavailable."
	PlaceholderModelAnswer    = "Model answer unavailable."
	PlaceholderVocabulary     = []string{"MDRT", "Risk Management"}
	PlaceholderVocabularyNone = []string{"Professionalism", "Integrity"}
)

type coachingState struct {
	cache    map[CoachingKind]Artifact
	inflight map[CoachingKind]bool
	version  uint64
}

func newCoachingState() coachingState {
	return coachingState{
		cache:    make(map[CoachingKind]Artifact),
		inflight: make(map[CoachingKind]bool),
	}
}

// invalidate drops cached results; in-flight requests finish but are not cached.
func (c *coachingState) invalidate() {
	c.version++
	clear(c.cache)
}

func (c *coachingState) snapshot() map[CoachingKind]Artifact {
	out := make(map[CoachingKind]Artifact, len(c.cache))
	for k, v := range c.cache {
		out[k] = v
	}
	return out
}

func generateArtifact(ctx context.Context, coach Coach, kind CoachingKind, question string, lang interview.Language) Artifact {
	art := Artifact{Kind: kind}
	if coach == nil {
		return placeholderArtifact(kind, true)
	}

	switch kind {
	case KindHint:
		items, err := coach.Hints(ctx, question, lang)
		items = cleanItems(items)
		if err != nil || len(items) == 0 {
			logCoachingFailure(kind, err)
			return placeholderArtifact(kind, err != nil)
		}
		art.Items = lo.Slice(items, 0, 3)
	case KindVocabulary:
		items, err := coach.Vocabulary(ctx, question, lang)
		items = cleanItems(items)
		if err != nil || len(items) == 0 {
			logCoachingFailure(kind, err)
			return placeholderArtifact(kind, err != nil)
		}
		art.Items = lo.Slice(items, 0, 5)
	case KindIntent:
		text, err := coach.Intent(ctx, question, lang)
		if err != nil || strings.TrimSpace(text) == "" {
			logCoachingFailure(kind, err)
			return placeholderArtifact(kind, true)
		}
		art.Text = strings.TrimSpace(text)
	case KindModelAnswer:
		text, err := coach.ModelAnswer(ctx, question, lang)
		if err != nil || strings.TrimSpace(text) == "" {
			logCoachingFailure(kind, err)
			return placeholderArtifact(kind, true)
		}
		art.Text = strings.TrimSpace(text)
	}
	return art
}

func placeholderArtifact(kind CoachingKind, failed bool) Artifact {
	art := Artifact{Kind: kind, Placeholder: true}
	switch kind {
	case KindHint:
		art.Items = append([]string(nil), PlaceholderHints...)
	case KindVocabulary:
		if failed {
			art.Items = append([]string(nil), PlaceholderVocabulary...)
		} else {
			art.Items = append([]string(nil), PlaceholderVocabularyNone...)
		}
	case KindIntent:
		art.Text = PlaceholderIntent
	case KindModelAnswer:
		art.Text = PlaceholderModelAnswer
	}
	return art
}

func cleanItems(items []string) []string {
	return lo.FilterMap(items, func(item string, _ int) (string, bool) {
		trimmed := strings.TrimSpace(item)
		return trimmed, trimmed != ""
	})
}

func logCoachingFailure(kind CoachingKind, err error) {
	if err != nil {
		log.Printf("[interview] coaching %s failed, using placeholder: %v", kind, err)
	}
}
