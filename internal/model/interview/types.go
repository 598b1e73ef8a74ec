package interview

import "time"

// Speaker identifies who authored a transcript turn.
type Speaker string

const (
	Interviewer Speaker = "interviewer"
	Candidate   Speaker = "candidate"
)

// Turn is one immutable transcript entry.
type Turn struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Phase 面试会话所处阶段。
type Phase string

const (
	PhaseWelcome     Phase = "welcome"
	PhaseActive      Phase = "active"
	PhaseSummarizing Phase = "summarizing"
	PhaseFinished    Phase = "finished"
)

// Scenario selects the interviewer persona and difficulty.
type Scenario string

const (
	ScenarioStandard Scenario = "standard"
	ScenarioAdvanced Scenario = "advanced"
)

// Language is the locale the interviewer speaks and the recognizer listens in.
type Language string

const (
	Cantonese Language = "zh-HK"
	English   Language = "en-US"
)

// Label returns the human readable language name used in prompts.
func (l Language) Label() string {
	if l == English {
		return "English"
	}
	return "Cantonese"
}

// ReportLabel is the language directive used by the report prompt.
func (l Language) ReportLabel() string {
	if l == English {
		return "English"
	}
	return "Traditional Chinese (Hong Kong)"
}

// ParseLanguage maps loose user input to a supported language, defaulting to Cantonese.
func ParseLanguage(raw string) Language {
	switch raw {
	case "en", "en-US", "en-GB", "english":
		return English
	default:
		return Cantonese
	}
}

// ParseScenario maps loose user input to a scenario, defaulting to standard.
// "objection" is accepted for the advanced scenario.
func ParseScenario(raw string) Scenario {
	switch raw {
	case "advanced", "objection":
		return ScenarioAdvanced
	default:
		return ScenarioStandard
	}
}

// Sentiment is cosmetic mood metadata attached to interviewer lines.
type Sentiment string

const (
	Neutral  Sentiment = "neutral"
	Positive Sentiment = "positive"
	Serious  Sentiment = "serious"
)

// DefaultQuestionCount is used when settings do not carry a positive count.
const DefaultQuestionCount = 5

// MaxQuestionCount bounds the count a client may configure.
const MaxQuestionCount = 20

// Settings 由外部持有的配置，每次远程调用前读取，核心逻辑不会修改。
type Settings struct {
	QuestionCount int      `json:"questionCount"`
	Scenario      Scenario `json:"scenario"`
	Language      Language `json:"language"`
	Background    string   `json:"background,omitempty"`
}

// Normalized fills zero values with defaults.
func (s Settings) Normalized() Settings {
	if s.QuestionCount <= 0 {
		s.QuestionCount = DefaultQuestionCount
	}
	if s.Scenario == "" {
		s.Scenario = ScenarioStandard
	}
	if s.Language == "" {
		s.Language = Cantonese
	}
	return s
}

// ReplyRequest carries everything the remote interviewer needs for one reply.
// History is a snapshot; Latest is the candidate text (or the opening cue).
type ReplyRequest struct {
	History   []Turn
	Latest    string
	TurnIndex int
	Settings  Settings
}

// Opening reports whether this request produces the first interviewer line.
func (r ReplyRequest) Opening() bool {
	return len(r.History) == 0
}

// Final reports whether this request produces the closing line.
func (r ReplyRequest) Final() bool {
	return r.TurnIndex >= r.Settings.Normalized().QuestionCount
}
