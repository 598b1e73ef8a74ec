package report

import "time"

// Recommendation values the summarizer is asked to return.
const (
	StrongHire  = "Strong Hire"
	Hire        = "Hire"
	Conditional = "Conditional"
	Reject      = "Reject"
)

// Metrics holds the six 1-10 competency scores.
type Metrics struct {
	Communication   int `json:"communication"`
	SalesPotential  int `json:"sales_potential"`
	Resilience      int `json:"resilience"`
	Professionalism int `json:"professionalism"`
	Ambition        int `json:"ambition"`
	ClientFocus     int `json:"client_focus"`
}

// Report is the closing assessment produced once per session.
type Report struct {
	OverallScore   int      `json:"overall_score"`
	Recommendation string   `json:"hiring_recommendation"`
	Metrics        Metrics  `json:"metrics"`
	Strengths      []string `json:"key_strengths"`
	Improvements   []string `json:"areas_for_improvement"`
	Analysis       string   `json:"detailed_analysis"`
	VisionSummary  string   `json:"vision_analysis_summary,omitempty"`
	NextSteps      string   `json:"next_steps"`
}

// Band is the display tier derived from the overall score.
type Band string

const (
	BandStrongHire  Band = "strong_hire"
	BandHire        Band = "hire"
	BandConditional Band = "conditional"
	BandReject      Band = "reject"
)

// BandFor maps a score to its styling tier. The recommendation text itself is
// never re-derived from this.
func BandFor(score int) Band {
	switch {
	case score >= 85:
		return BandStrongHire
	case score >= 70:
		return BandHire
	case score >= 50:
		return BandConditional
	default:
		return BandReject
	}
}

// Placeholder returns the fixed report used when summarization fails.
func Placeholder() Report {
	return Report{
		OverallScore:   65,
		Recommendation: Conditional,
		Metrics: Metrics{
			Communication:   6,
			SalesPotential:  6,
			Resilience:      7,
			Professionalism: 8,
			Ambition:        7,
			ClientFocus:     6,
		},
		Strengths:     []string{"Positive Attitude", "Structured Communication"},
		Improvements:  []string{"Needs more specific examples"},
		Analysis:      "Simulation report generated due to error. Candidate showed good potential but needs more specific examples.",
		VisionSummary: "(No visual analysis data)",
		NextSteps:     "Suggest 2nd interview",
	}
}

// Record is a finished interview kept in the history archive.
type Record struct {
	SessionID   string    `json:"sessionId"`
	Language    string    `json:"language"`
	Scenario    string    `json:"scenario"`
	TurnCount   int       `json:"turnCount"`
	Report      Report    `json:"report"`
	Band        Band      `json:"band"`
	CompletedAt time.Time `json:"completedAt"`
}
