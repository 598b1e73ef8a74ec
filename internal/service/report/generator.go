package report

import (
	"context"
	"log"
	"strings"

	"github.com/samber/lo"

	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
	model "github.com/zhouzirui/z-interview/backend/internal/model/report"
)

// Summarizer asks a remote model for the closing assessment.
type Summarizer interface {
	Summarize(ctx context.Context, transcript []interview.Turn, visionLog []string, lang interview.Language) (model.Report, error)
}

// Generator produces the closing report, falling back to a fixed placeholder.
type Generator struct {
	summarizer Summarizer
}

// NewGenerator creates a Generator. A nil summarizer always yields the placeholder.
func NewGenerator(summarizer Summarizer) *Generator {
	return &Generator{summarizer: summarizer}
}

// Generate never fails: any remote or parse error produces model.Placeholder.
func (g *Generator) Generate(ctx context.Context, transcript []interview.Turn, visionLog []string, lang interview.Language) model.Report {
	if g == nil || g.summarizer == nil {
		log.Printf("[report] no summarizer configured, using placeholder")
		return model.Placeholder()
	}

	rep, err := g.summarizer.Summarize(ctx, transcript, visionLog, lang)
	if err != nil {
		log.Printf("[report] summarize failed, using placeholder: %v", err)
		return model.Placeholder()
	}
	return Normalize(rep)
}

// Normalize clamps scores into range and trims text. The recommendation is
// kept as returned.
func Normalize(r model.Report) model.Report {
	r.OverallScore = clamp(r.OverallScore, 0, 100)
	r.Recommendation = strings.TrimSpace(r.Recommendation)
	r.Metrics = model.Metrics{
		Communication:   clamp(r.Metrics.Communication, 1, 10),
		SalesPotential:  clamp(r.Metrics.SalesPotential, 1, 10),
		Resilience:      clamp(r.Metrics.Resilience, 1, 10),
		Professionalism: clamp(r.Metrics.Professionalism, 1, 10),
		Ambition:        clamp(r.Metrics.Ambition, 1, 10),
		ClientFocus:     clamp(r.Metrics.ClientFocus, 1, 10),
	}
	r.Strengths = cleanList(r.Strengths)
	r.Improvements = cleanList(r.Improvements)
	r.Analysis = strings.TrimSpace(r.Analysis)
	r.VisionSummary = strings.TrimSpace(r.VisionSummary)
	r.NextSteps = strings.TrimSpace(r.NextSteps)
	return r
}

func clamp(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

func cleanList(items []string) []string {
	return lo.FilterMap(items, func(item string, _ int) (string, bool) {
		trimmed := strings.TrimSpace(item)
		return trimmed, trimmed != ""
	})
}
