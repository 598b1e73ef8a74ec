package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/model/persona"
	"github.com/zhouzirui/z-interview/backend/internal/model/report"
)

// ErrEmptyResponse is returned when the model answers with no usable content.
var ErrEmptyResponse = errors.New("ai: empty response")

const historyLimit = 24

// Service wraps the chat and vision models behind the capabilities the
// interview needs: replies, coaching aids, the closing report and frame checks.
type Service struct {
	chatModel   model.ChatModel
	visionModel model.ChatModel
	personas    persona.Store
	chain       compose.Runnable[map[string]any, *schema.Message]
}

// NewService compiles the prompt chain. visionModel may be nil, in which case
// frame checks go to chatModel.
func NewService(ctx context.Context, chatModel, visionModel model.ChatModel, personas persona.Store) (*Service, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	if visionModel == nil {
		visionModel = chatModel
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile interview chain: %w", err)
	}

	return &Service{
		chatModel:   chatModel,
		visionModel: visionModel,
		personas:    personas,
		chain:       runnable,
	}, nil
}

// Reply produces the raw interviewer line for a request. Callers normalize it.
func (s *Service) Reply(ctx context.Context, req interview.ReplyRequest) (string, error) {
	settings := req.Settings.Normalized()
	p, ok := s.personas.ForScenario(settings.Scenario, settings.Language)
	if !ok {
		return "", fmt.Errorf("no interviewer for scenario %s", settings.Scenario)
	}

	query := strings.TrimSpace(req.Latest)
	if query == "" {
		query = p.OpeningCue
	}

	input := map[string]any{
		"system":  buildSystemPrompt(p, req),
		"history": buildHistoryMessages(req.History),
		"query":   query,
	}

	msg, err := s.run(ctx, input)
	if err != nil {
		return "", err
	}
	log.Printf("[ai] reply generated persona=%s turn=%d length=%d", p.ID, req.TurnIndex, len(msg))
	return msg, nil
}

// Hints returns up to three answer pointers for the question.
func (s *Service) Hints(ctx context.Context, question string, lang interview.Language) ([]string, error) {
	items, err := s.list(ctx, coachingPrompt(hintPromptTemplate, question, lang))
	if err != nil {
		return nil, err
	}
	return truncate(items, 3), nil
}

// Intent explains what the question is testing.
func (s *Service) Intent(ctx context.Context, question string, lang interview.Language) (string, error) {
	return s.run(ctx, map[string]any{"system": coachingPrompt(intentPromptTemplate, question, lang), "query": question})
}

// ModelAnswer returns a short exemplary answer.
func (s *Service) ModelAnswer(ctx context.Context, question string, lang interview.Language) (string, error) {
	return s.run(ctx, map[string]any{"system": coachingPrompt(modelAnswerPromptTemplate, question, lang), "query": question})
}

// Vocabulary returns up to five key phrases.
func (s *Service) Vocabulary(ctx context.Context, question string, lang interview.Language) ([]string, error) {
	items, err := s.list(ctx, coachingPrompt(vocabularyPromptTemplate, question, lang))
	if err != nil {
		return nil, err
	}
	return truncate(items, 5), nil
}

// Summarize asks the model for the closing assessment.
func (s *Service) Summarize(ctx context.Context, transcript []interview.Turn, visionLog []string, lang interview.Language) (report.Report, error) {
	var query strings.Builder
	query.WriteString("Transcript:\n")
	query.WriteString(formatTranscript(transcript))
	if len(visionLog) > 0 {
		query.WriteString("\n\n**VISUAL ANALYSIS LOGS (From Camera):**\n- ")
		query.WriteString(strings.Join(visionLog, "\n- "))
	}

	content, err := s.run(ctx, map[string]any{"system": summaryPrompt(lang), "query": query.String()})
	if err != nil {
		return report.Report{}, err
	}

	return parseReport(content)
}

// AnalyzeFrame checks one JPEG frame, or a reference and current pair when
// reference is non-empty.
func (s *Service) AnalyzeFrame(ctx context.Context, current, reference []byte) (string, error) {
	parts := make([]schema.ChatMessagePart, 0, 3)
	if len(reference) > 0 {
		parts = append(parts, imagePart(reference))
	}
	parts = append(parts, imagePart(current), schema.ChatMessagePart{
		Type: schema.ChatMessagePartTypeText,
		Text: VisionPrompt,
	})

	msg, err := s.visionModel.Generate(ctx, []*schema.Message{{
		Role:         schema.User,
		MultiContent: parts,
	}})
	if err != nil {
		return "", fmt.Errorf("vision model: %w", err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(msg.Content), nil
}

func (s *Service) run(ctx context.Context, input map[string]any) (string, error) {
	if _, ok := input["history"]; !ok {
		input["history"] = []*schema.Message{}
	}

	msg, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(msg.Content), nil
}

func (s *Service) list(ctx context.Context, system string) ([]string, error) {
	content, err := s.run(ctx, map[string]any{"system": system, "query": "Answer now."})
	if err != nil {
		return nil, err
	}
	return parseStringList(content)
}

func buildHistoryMessages(turns []interview.Turn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}

	start := 0
	if len(turns) > historyLimit {
		start = len(turns) - historyLimit
	}

	history := make([]*schema.Message, 0, len(turns)-start)
	for _, t := range turns[start:] {
		switch t.Speaker {
		case interview.Candidate:
			history = append(history, schema.UserMessage(t.Text))
		case interview.Interviewer:
			history = append(history, schema.AssistantMessage(t.Text, nil))
		}
	}
	return history
}

func imagePart(jpeg []byte) schema.ChatMessagePart {
	return schema.ChatMessagePart{
		Type: schema.ChatMessagePartTypeImageURL,
		ImageURL: &schema.ChatMessageImageURL{
			URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg),
		},
	}
}

// parseReport 解析模型返回的 JSON 报告，缺少关键字段视为失败。
func parseReport(content string) (report.Report, error) {
	raw, err := extractJSON(content, '{', '}')
	if err != nil {
		return report.Report{}, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return report.Report{}, err
	}
	for _, key := range []string{"overall_score", "metrics"} {
		if _, ok := fields[key]; !ok {
			return report.Report{}, fmt.Errorf("report missing %s", key)
		}
	}

	var wire reportWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return report.Report{}, err
	}
	return wire.report(), nil
}

// reportWire accepts fractional scores; the outer fields shadow the embedded
// integer ones during decoding.
type reportWire struct {
	report.Report
	OverallScore float64 `json:"overall_score"`
	Metrics      struct {
		Communication   float64 `json:"communication"`
		SalesPotential  float64 `json:"sales_potential"`
		Resilience      float64 `json:"resilience"`
		Professionalism float64 `json:"professionalism"`
		Ambition        float64 `json:"ambition"`
		ClientFocus     float64 `json:"client_focus"`
	} `json:"metrics"`
}

func (w reportWire) report() report.Report {
	out := w.Report
	out.OverallScore = roundScore(w.OverallScore)
	out.Metrics = report.Metrics{
		Communication:   roundScore(w.Metrics.Communication),
		SalesPotential:  roundScore(w.Metrics.SalesPotential),
		Resilience:      roundScore(w.Metrics.Resilience),
		Professionalism: roundScore(w.Metrics.Professionalism),
		Ambition:        roundScore(w.Metrics.Ambition),
		ClientFocus:     roundScore(w.Metrics.ClientFocus),
	}
	return out
}

func roundScore(v float64) int {
	return int(math.Round(v))
}

func parseStringList(content string) ([]string, error) {
	raw, err := extractJSON(content, '[', ']')
	if err != nil {
		return nil, err
	}

	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func extractJSON(content string, open, close byte) ([]byte, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.IndexByte(trimmed, open)
	end := strings.LastIndexByte(trimmed, close)
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("missing json %c...%c", open, close)
	}
	return []byte(trimmed[start : end+1]), nil
}

func truncate(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
