package report

import (
	"context"
	"errors"
	"testing"

	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
	model "github.com/zhouzirui/z-interview/backend/internal/model/report"
)

type fakeSummarizer struct {
	rep model.Report
	err error
}

func (f fakeSummarizer) Summarize(context.Context, []interview.Turn, []string, interview.Language) (model.Report, error) {
	return f.rep, f.err
}

func TestGenerateFallsBackOnError(t *testing.T) {
	g := NewGenerator(fakeSummarizer{err: errors.New("parse failure")})
	rep := g.Generate(context.Background(), nil, nil, interview.English)
	if rep.OverallScore != 65 || rep.Recommendation != model.Conditional {
		t.Fatalf("expected placeholder, got %+v", rep)
	}
}

func TestGenerateWithoutSummarizer(t *testing.T) {
	rep := NewGenerator(nil).Generate(context.Background(), nil, nil, interview.Cantonese)
	if rep.NextSteps == "" {
		t.Fatalf("placeholder should be fully populated: %+v", rep)
	}
}

func TestGenerateNormalizesButTrustsRecommendation(t *testing.T) {
	g := NewGenerator(fakeSummarizer{rep: model.Report{
		OverallScore:   140,
		Recommendation: " Hire ",
		Metrics:        model.Metrics{Communication: 12, SalesPotential: 0, Resilience: 5, Professionalism: 7, Ambition: -3, ClientFocus: 10},
		Strengths:      []string{"Clear", "  ", ""},
		Improvements:   []string{" Examples "},
	}})

	rep := g.Generate(context.Background(), nil, nil, interview.English)
	if rep.OverallScore != 100 {
		t.Fatalf("score not clamped: %d", rep.OverallScore)
	}
	if rep.Recommendation != "Hire" {
		t.Fatalf("recommendation must not be re-derived from score, got %q", rep.Recommendation)
	}
	if rep.Metrics.Communication != 10 || rep.Metrics.SalesPotential != 1 || rep.Metrics.Ambition != 1 {
		t.Fatalf("metrics not clamped: %+v", rep.Metrics)
	}
	if len(rep.Strengths) != 1 || rep.Improvements[0] != "Examples" {
		t.Fatalf("lists not cleaned: %+v %+v", rep.Strengths, rep.Improvements)
	}
	if model.BandFor(rep.OverallScore) != model.BandStrongHire {
		t.Fatal("band should follow the clamped score")
	}
}
